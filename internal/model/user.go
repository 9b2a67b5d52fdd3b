package model

import (
	"time"

	"gorm.io/datatypes"
)

// Reference role names seeded by cmd/seeduser.
const (
	RoleSuperAdmin          = "Super Admin"
	RoleAdmin               = "Admin"
	RoleVerificationOfficer = "Verification Officer"
	RoleSalesAgent          = "Sales Agent"
)

const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// PermissionAdmin grants admin capability regardless of role name.
const PermissionAdmin = "admin"

// Role is immutable reference data. Permissions is an arbitrary
// capability map (e.g. {"admin": true, "orders.assign": true}).
type Role struct {
	ID          uint              `gorm:"primaryKey"`
	Name        string            `gorm:"uniqueIndex:uni_roles_name;not null"`
	Permissions datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is a staff account. Username, email, cnic and phone are each
// globally unique; the unique index names are translated back into field
// names when a write collides. Permissions holds per-user overrides
// layered on top of the role's set.
type User struct {
	ID            uint    `gorm:"primaryKey"`
	FullName      string  `gorm:"not null"`
	Username      string  `gorm:"uniqueIndex:uni_users_username;not null"`
	Email         *string `gorm:"uniqueIndex:uni_users_email"`
	CNIC          *string `gorm:"column:cnic;uniqueIndex:uni_users_cnic"`
	Phone         *string `gorm:"uniqueIndex:uni_users_phone"`
	PasswordHash  string  `gorm:"not null"`
	RoleID        uint    `gorm:"not null;index"`
	Role          *Role
	DeviceID      *string
	Status        string `gorm:"type:varchar(10);not null;default:active"`
	Bio           *string
	AvatarURL     *string
	CoverImageURL *string
	FCMToken      *string           `gorm:"column:fcm_token"`
	Permissions   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) IsActive() bool { return u.Status == UserStatusActive }

// RoleName returns "" when the role was not preloaded.
func (u *User) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

func (u *User) IsSuperAdmin() bool { return u.RoleName() == RoleSuperAdmin }

func (u *User) IsVerificationOfficer() bool { return u.RoleName() == RoleVerificationOfficer }

// IsAdmin is true for Super Admin, Admin, or any user whose effective
// permissions grant "admin".
func (u *User) IsAdmin() bool {
	switch u.RoleName() {
	case RoleSuperAdmin, RoleAdmin:
		return true
	}
	granted, _ := u.EffectivePermissions()[PermissionAdmin].(bool)
	return granted
}

// EffectivePermissions overlays the user's overrides on the role's set.
func (u *User) EffectivePermissions() map[string]interface{} {
	out := make(map[string]interface{})
	if u.Role != nil {
		for k, v := range u.Role.Permissions {
			out[k] = v
		}
	}
	for k, v := range u.Permissions {
		out[k] = v
	}
	return out
}
