package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestUserIsAdmin(t *testing.T) {
	cases := []struct {
		name string
		user User
		want bool
	}{
		{"super admin", User{Role: &Role{Name: RoleSuperAdmin}}, true},
		{"admin", User{Role: &Role{Name: RoleAdmin}}, true},
		{"officer", User{Role: &Role{Name: RoleVerificationOfficer}}, false},
		{"role grants admin", User{Role: &Role{Name: "Supervisor", Permissions: datatypes.JSONMap{"admin": true}}}, true},
		{"user override revokes", User{Role: &Role{Name: "Supervisor", Permissions: datatypes.JSONMap{"admin": true}}, Permissions: datatypes.JSONMap{"admin": false}}, false},
		{"no role loaded", User{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.IsAdmin())
		})
	}
}

func TestEffectivePermissions_UserOverridesRole(t *testing.T) {
	u := User{
		Role:        &Role{Permissions: datatypes.JSONMap{"orders.create": true, "reports": true}},
		Permissions: datatypes.JSONMap{"reports": false},
	}
	got := u.EffectivePermissions()
	assert.Equal(t, true, got["orders.create"])
	assert.Equal(t, false, got["reports"])
}

func TestOrderStatuses(t *testing.T) {
	assert.True(t, ValidOrderStatus(OrderStatusInProgress))
	assert.False(t, ValidOrderStatus("shipped"))
	for _, s := range ClosedOrderStatuses {
		assert.True(t, IsClosedOrderStatus(s))
	}
	assert.False(t, IsClosedOrderStatus(OrderStatusCompleted))
}

func TestDocumentSlots(t *testing.T) {
	var s DocumentSlots
	assert.True(t, s.Mirror(DocCNICBack, "u1"))
	assert.True(t, s.Mirror(DocCNICBack, "u2"))
	assert.Equal(t, "u2", *s.CNICBackURL, "latest upload wins")
	assert.False(t, s.Mirror(DocPhoto, "u3"))

	col, ok := SlotColumn(DocServiceCard)
	assert.True(t, ok)
	assert.Equal(t, "service_card_url", col)
	_, ok = SlotColumn(DocOther)
	assert.False(t, ok)
}

func TestGrantorPersonTypes(t *testing.T) {
	assert.Equal(t, 2, GrantorNumberOf(GrantorPersonType(2)))
	assert.Equal(t, 1, GrantorNumberOf(PersonGrantor1))
	assert.Equal(t, 0, GrantorNumberOf(PersonPurchaser))
	assert.True(t, ValidPersonType(PersonOther))
	assert.False(t, ValidDocumentType("passport"))
}
