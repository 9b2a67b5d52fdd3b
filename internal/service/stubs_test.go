package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"qist/internal/dto"
	"qist/internal/infra"
	"qist/internal/model"
	"qist/internal/repository"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ── In-memory repository stubs ───────────────────────────────────────────────
// Every stub returns gorm.ErrRecordNotFound for missing rows and DB() == nil,
// so runTx calls the closure directly.

var (
	_ repository.OrderRepository        = (*stubOrderRepo)(nil)
	_ repository.UserRepository         = (*stubUserRepo)(nil)
	_ repository.RoleRepository         = (*stubRoleRepo)(nil)
	_ repository.VerificationRepository = (*stubVerificationRepo)(nil)
	_ repository.DocumentRepository     = (*stubDocumentRepo)(nil)
	_ infra.Storage                     = (*stubStorage)(nil)
	_ AssignmentNotifier                = (*stubNotifier)(nil)
)

type stubOrderRepo struct {
	mu           sync.Mutex
	orders       map[uint]*model.Order
	nextID       uint
	// beforeAssign runs ahead of each conditional assign write.
	beforeAssign func(id uint)
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: make(map[uint]*model.Order)}
}

// seed stores o as is and returns its id.
func (r *stubOrderRepo) seed(o model.Order) uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	if o.Status == "" {
		o.Status = model.OrderStatusNew
	}
	r.orders[o.ID] = &o
	return o.ID
}

func (r *stubOrderRepo) get(id uint) *model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id]
}

func (r *stubOrderRepo) Create(_ context.Context, _ *gorm.DB, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *stubOrderRepo) HasActiveDuplicate(_ context.Context, _ *gorm.DB, whatsapp, product string, day time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.WhatsappNumber == whatsapp && o.ProductName == product &&
			o.CreatedOn.Equal(day) && !model.IsClosedOrderStatus(o.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubOrderRepo) FindByID(_ context.Context, id uint) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *stubOrderRepo) LockByIDs(_ context.Context, _ *gorm.DB, ids []uint) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, id := range ids {
		if o, ok := r.orders[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *stubOrderRepo) Assign(_ context.Context, _ *gorm.DB, id, officerID uint) (bool, error) {
	if r.beforeAssign != nil {
		r.beforeAssign(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.AssignedToUserID != nil {
		return false, nil
	}
	o.AssignedToUserID = &officerID
	return true, nil
}

func (r *stubOrderRepo) Unassign(_ context.Context, _ *gorm.DB, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.AssignedToUserID == nil {
		return false, nil
	}
	o.AssignedToUserID = nil
	return true, nil
}

func (r *stubOrderRepo) AssignMany(ctx context.Context, tx *gorm.DB, ids []uint, officerID uint) (int64, error) {
	var n int64
	for _, id := range ids {
		ok, _ := r.Assign(ctx, tx, id, officerID)
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *stubOrderRepo) UnassignMany(ctx context.Context, tx *gorm.DB, ids []uint) (int64, error) {
	var n int64
	for _, id := range ids {
		ok, _ := r.Unassign(ctx, tx, id)
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *stubOrderRepo) sorted() []model.Order {
	out := make([]model.Order, 0, len(r.orders))
	for _, o := range r.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *stubOrderRepo) ListPendingUnassigned(_ context.Context) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, o := range r.sorted() {
		if o.Status == model.OrderStatusNew && o.AssignedToUserID == nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *stubOrderRepo) List(_ context.Context, _ dto.OrderFilter) ([]model.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	return all, int64(len(all)), nil
}

func (r *stubOrderRepo) ListAfter(_ context.Context, filter dto.OrderFilter) ([]model.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	var out []model.Order
	for i := len(all) - 1; i >= 0 && len(out) < filter.Limit; i-- {
		if filter.LastID == 0 || all[i].ID < filter.LastID {
			out = append(out, all[i])
		}
	}
	return out, int64(len(all)), nil
}

func (r *stubOrderRepo) UpdateStatus(_ context.Context, _ *gorm.DB, id uint, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || model.IsClosedOrderStatus(o.Status) {
		return false, nil
	}
	o.Status = status
	return true, nil
}

func (r *stubOrderRepo) ListWithVerification(_ context.Context) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, o := range r.sorted() {
		if o.Verification != nil {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *stubOrderRepo) DB() *gorm.DB { return nil }

// ─────────────────────────────────────────────────────────────────────────────

type stubUserRepo struct {
	users  map[uint]*model.User
	nextID uint
	counts map[uint]int64
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uint]*model.User), counts: make(map[uint]int64)}
}

var (
	officerRole = &model.Role{ID: 3, Name: model.RoleVerificationOfficer}
	adminRole   = &model.Role{ID: 2, Name: model.RoleAdmin}
	agentRole   = &model.Role{ID: 4, Name: model.RoleSalesAgent}
)

func (r *stubUserRepo) add(username string, role *model.Role) *model.User {
	r.nextID++
	u := &model.User{
		ID:       r.nextID,
		FullName: username,
		Username: username,
		RoleID:   role.ID,
		Role:     role,
		Status:   model.UserStatusActive,
	}
	r.users[u.ID] = u
	return u
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func strEq(p *string, v string) bool { return p != nil && *p == v }

func (r *stubUserRepo) IsTaken(_ context.Context, field, value string, excludeID uint) (bool, error) {
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		switch field {
		case "username":
			if u.Username == value {
				return true, nil
			}
		case "email":
			if strEq(u.Email, value) {
				return true, nil
			}
		case "cnic":
			if strEq(u.CNIC, value) {
				return true, nil
			}
		case "phone":
			if strEq(u.Phone, value) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *stubUserRepo) List(_ context.Context, _ dto.UserFilter) ([]model.User, int64, error) {
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func optString(v interface{}) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func (r *stubUserRepo) UpdateFields(_ context.Context, id uint, fields map[string]interface{}) error {
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "device_id":
			u.DeviceID = optString(v)
		case "fcm_token":
			u.FCMToken = optString(v)
		case "status":
			u.Status = v.(string)
		case "full_name":
			u.FullName = v.(string)
		case "email":
			u.Email = optString(v)
		case "phone":
			u.Phone = optString(v)
		case "bio":
			u.Bio = optString(v)
		case "avatar_url":
			u.AvatarURL = optString(v)
		case "cover_image_url":
			u.CoverImageURL = optString(v)
		case "permissions":
			u.Permissions = v.(datatypes.JSONMap)
		}
	}
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id uint) error {
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) ListActiveOfficers(_ context.Context, _ *gorm.DB) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.IsVerificationOfficer() && u.IsActive() {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) OpenAssignmentCounts(_ context.Context, _ *gorm.DB) (map[uint]int64, error) {
	out := make(map[uint]int64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out, nil
}

func (r *stubUserRepo) DB() *gorm.DB { return nil }

// ─────────────────────────────────────────────────────────────────────────────

type stubRoleRepo struct {
	roles []model.Role
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{roles: []model.Role{*adminRole, *officerRole, *agentRole}}
}

func (r *stubRoleRepo) FindByID(_ context.Context, id uint) (*model.Role, error) {
	for i := range r.roles {
		if r.roles[i].ID == id {
			cp := r.roles[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	for i := range r.roles {
		if r.roles[i].Name == name {
			cp := r.roles[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRoleRepo) List(_ context.Context) ([]model.Role, error) { return r.roles, nil }

func (r *stubRoleRepo) Ensure(ctx context.Context, name string, perms datatypes.JSONMap) (*model.Role, error) {
	if role, err := r.FindByName(ctx, name); err == nil {
		return role, nil
	}
	role := model.Role{ID: uint(len(r.roles) + 10), Name: name, Permissions: perms}
	r.roles = append(r.roles, role)
	return &role, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type grantorKey struct {
	verificationID uint
	number         int
}

type stubVerificationRepo struct {
	verifications map[uint]*model.Verification
	purchasers    map[uint]*model.PurchaserVerification
	grantors      map[grantorKey]*model.GrantorVerification
	kin           map[uint]*model.NextOfKin
	locations     []model.LocationTracking
	nextID        uint
}

func newStubVerificationRepo() *stubVerificationRepo {
	return &stubVerificationRepo{
		verifications: make(map[uint]*model.Verification),
		purchasers:    make(map[uint]*model.PurchaserVerification),
		grantors:      make(map[grantorKey]*model.GrantorVerification),
		kin:           make(map[uint]*model.NextOfKin),
	}
}

func (r *stubVerificationRepo) Create(_ context.Context, _ *gorm.DB, v *model.Verification) error {
	for _, existing := range r.verifications {
		if existing.OrderID == v.OrderID {
			return &repository.DuplicateError{Constraint: "uni_verifications_order_id"}
		}
	}
	r.nextID++
	v.ID = r.nextID
	cp := *v
	r.verifications[v.ID] = &cp
	return nil
}

func (r *stubVerificationRepo) FindByID(_ context.Context, id uint) (*model.Verification, error) {
	v, ok := r.verifications[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *stubVerificationRepo) FindGraph(ctx context.Context, id uint) (*model.Verification, error) {
	v, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v.Purchaser = r.purchasers[id]
	v.NextOfKin = r.kin[id]
	for _, n := range []int{1, 2} {
		if g, ok := r.grantors[grantorKey{id, n}]; ok {
			v.Grantors = append(v.Grantors, *g)
		}
	}
	for _, l := range r.locations {
		if l.VerificationID == id {
			v.Locations = append(v.Locations, l)
		}
	}
	return v, nil
}

func (r *stubVerificationRepo) FindByOrderID(ctx context.Context, orderID uint) (*model.Verification, error) {
	for id, v := range r.verifications {
		if v.OrderID == orderID {
			return r.FindGraph(ctx, id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubVerificationRepo) ExistsForOrder(_ context.Context, _ *gorm.DB, orderID uint) (bool, error) {
	for _, v := range r.verifications {
		if v.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubVerificationRepo) Update(_ context.Context, _ *gorm.DB, v *model.Verification) error {
	if _, ok := r.verifications[v.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *v
	r.verifications[v.ID] = &cp
	return nil
}

func (r *stubVerificationRepo) List(_ context.Context, _ dto.VerificationFilter) ([]model.Verification, int64, error) {
	out := make([]model.Verification, 0, len(r.verifications))
	for _, v := range r.verifications {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (r *stubVerificationRepo) FindPurchaser(_ context.Context, verificationID uint) (*model.PurchaserVerification, error) {
	p, ok := r.purchasers[verificationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubVerificationRepo) UpsertPurchaser(_ context.Context, p *model.PurchaserVerification) error {
	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	}
	cp := *p
	r.purchasers[p.VerificationID] = &cp
	return nil
}

func (r *stubVerificationRepo) FindGrantor(_ context.Context, verificationID uint, number int) (*model.GrantorVerification, error) {
	g, ok := r.grantors[grantorKey{verificationID, number}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *stubVerificationRepo) UpsertGrantor(_ context.Context, g *model.GrantorVerification) error {
	if g.ID == 0 {
		r.nextID++
		g.ID = r.nextID
	}
	cp := *g
	r.grantors[grantorKey{g.VerificationID, g.GrantorNumber}] = &cp
	return nil
}

func (r *stubVerificationRepo) FindNextOfKin(_ context.Context, verificationID uint) (*model.NextOfKin, error) {
	k, ok := r.kin[verificationID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *k
	return &cp, nil
}

func (r *stubVerificationRepo) UpsertNextOfKin(_ context.Context, k *model.NextOfKin) error {
	if k.ID == 0 {
		r.nextID++
		k.ID = r.nextID
	}
	cp := *k
	r.kin[k.VerificationID] = &cp
	return nil
}

func (r *stubVerificationRepo) AddLocation(_ context.Context, l *model.LocationTracking) error {
	l.ID = uint(len(r.locations) + 1)
	r.locations = append(r.locations, *l)
	return nil
}

func (r *stubVerificationRepo) DB() *gorm.DB { return nil }

// ─────────────────────────────────────────────────────────────────────────────

type mirrorCall struct {
	verificationID uint
	grantorNumber  int
	column         string
	url            string
}

type stubDocumentRepo struct {
	docs      map[uint]*model.VerificationDocument
	nextID    uint
	mirrors   []mirrorCall
	createErr error
}

func newStubDocumentRepo() *stubDocumentRepo {
	return &stubDocumentRepo{docs: make(map[uint]*model.VerificationDocument)}
}

func (r *stubDocumentRepo) Create(_ context.Context, _ *gorm.DB, d *model.VerificationDocument) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	d.ID = r.nextID
	cp := *d
	r.docs[d.ID] = &cp
	return nil
}

func (r *stubDocumentRepo) FindByID(_ context.Context, id uint) (*model.VerificationDocument, error) {
	d, ok := r.docs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *stubDocumentRepo) Delete(_ context.Context, id uint) error {
	if _, ok := r.docs[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *stubDocumentRepo) CountByType(_ context.Context, verificationID uint, types []string) (map[string]int64, error) {
	want := make(map[string]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	out := make(map[string]int64)
	for _, d := range r.docs {
		if d.VerificationID == verificationID && want[d.DocumentType] {
			out[d.DocumentType]++
		}
	}
	return out, nil
}

func (r *stubDocumentRepo) MirrorSlot(_ context.Context, _ *gorm.DB, verificationID uint, grantorNumber int, column, url string) error {
	r.mirrors = append(r.mirrors, mirrorCall{verificationID, grantorNumber, column, url})
	return nil
}

func (r *stubDocumentRepo) DB() *gorm.DB { return nil }

// ─────────────────────────────────────────────────────────────────────────────

type stubStorage struct {
	files   map[string][]byte
	deleted []string
	saveErr error
}

func newStubStorage() *stubStorage { return &stubStorage{files: make(map[string][]byte)} }

func (s *stubStorage) Save(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	s.files[key] = buf.Bytes()
	return "http://files.test/" + key, nil
}

func (s *stubStorage) Delete(_ context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	delete(s.files, key)
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────

type notification struct {
	officerID uint
	orderID   uint
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *stubNotifier) NotifyAssignment(_ context.Context, officer *model.User, order *model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{officerID: officer.ID, orderID: order.ID})
}

var errBoom = errors.New("boom")
