package repository

import (
	"context"

	"qist/internal/dto"
	"qist/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Columns rewritten by the sub-record upserts. Document slot columns are
// excluded; they only change through DocumentRepository.MirrorSlot.
var (
	purchaserColumns = []string{
		"name", "father_husband_name", "present_address", "permanent_address", "cnic_number",
		"telephone_number", "employer_name", "employer_address", "designation", "official_number",
		"years_in_company", "gross_salary", "updated_at",
	}
	grantorColumns = []string{
		"name", "father_husband_name", "present_address", "permanent_address", "cnic_number",
		"telephone_number", "designation", "official_number", "office_address", "company_name",
		"years_in_company", "monthly_income", "full_residential_address", "relationship", "updated_at",
	}
	nextOfKinColumns = []string{"name", "cnic_number", "relation", "phone_number", "updated_at"}
)

type VerificationRepository interface {
	Create(ctx context.Context, tx *gorm.DB, v *model.Verification) error
	FindByID(ctx context.Context, id uint) (*model.Verification, error)
	// FindGraph loads the verification with every sub-record.
	FindGraph(ctx context.Context, id uint) (*model.Verification, error)
	FindByOrderID(ctx context.Context, orderID uint) (*model.Verification, error)
	ExistsForOrder(ctx context.Context, tx *gorm.DB, orderID uint) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, v *model.Verification) error
	List(ctx context.Context, filter dto.VerificationFilter) ([]model.Verification, int64, error)

	FindPurchaser(ctx context.Context, verificationID uint) (*model.PurchaserVerification, error)
	UpsertPurchaser(ctx context.Context, p *model.PurchaserVerification) error
	FindGrantor(ctx context.Context, verificationID uint, number int) (*model.GrantorVerification, error)
	UpsertGrantor(ctx context.Context, g *model.GrantorVerification) error
	FindNextOfKin(ctx context.Context, verificationID uint) (*model.NextOfKin, error)
	UpsertNextOfKin(ctx context.Context, k *model.NextOfKin) error
	AddLocation(ctx context.Context, l *model.LocationTracking) error
	DB() *gorm.DB
}

type verificationRepo struct{ db *gorm.DB }

func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepo{db: db}
}

func (r *verificationRepo) DB() *gorm.DB { return r.db }

func (r *verificationRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Verification) error {
	return translate(conn(ctx, r.db, tx).Omit(clause.Associations).Create(v).Error)
}

func (r *verificationRepo) FindByID(ctx context.Context, id uint) (*model.Verification, error) {
	var v model.Verification
	err := r.db.WithContext(ctx).First(&v, id).Error
	return &v, err
}

func withGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Order").Preload("Order.CreatedBy").Preload("Order.AssignedTo").
		Preload("VerificationOfficer").
		Preload("ApprovedBy").
		Preload("Purchaser").
		Preload("Grantors", func(db *gorm.DB) *gorm.DB { return db.Order("grantor_number") }).
		Preload("NextOfKin").
		Preload("Locations", func(db *gorm.DB) *gorm.DB { return db.Order("captured_at DESC") }).
		Preload("Documents", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at DESC") })
}

func (r *verificationRepo) FindGraph(ctx context.Context, id uint) (*model.Verification, error) {
	var v model.Verification
	err := withGraph(r.db.WithContext(ctx)).First(&v, id).Error
	return &v, err
}

func (r *verificationRepo) FindByOrderID(ctx context.Context, orderID uint) (*model.Verification, error) {
	var v model.Verification
	err := withGraph(r.db.WithContext(ctx)).Where("order_id = ?", orderID).First(&v).Error
	return &v, err
}

func (r *verificationRepo) ExistsForOrder(ctx context.Context, tx *gorm.DB, orderID uint) (bool, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&model.Verification{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, err
}

func (r *verificationRepo) Update(ctx context.Context, tx *gorm.DB, v *model.Verification) error {
	return translate(conn(ctx, r.db, tx).Omit(clause.Associations).Save(v).Error)
}

func (r *verificationRepo) List(ctx context.Context, filter dto.VerificationFilter) ([]model.Verification, int64, error) {
	var list []model.Verification
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Verification{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	switch filter.Approval {
	case "pending":
		q = q.Where("is_approved IS NULL")
	case "approved":
		q = q.Where("is_approved = ?", true)
	case "rejected":
		q = q.Where("is_approved = ?", false)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := withGraph(q).
		Order("id DESC").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&list).Error
	return list, total, err
}

func (r *verificationRepo) FindPurchaser(ctx context.Context, verificationID uint) (*model.PurchaserVerification, error) {
	var p model.PurchaserVerification
	err := r.db.WithContext(ctx).Where("verification_id = ?", verificationID).First(&p).Error
	return &p, err
}

func (r *verificationRepo) UpsertPurchaser(ctx context.Context, p *model.PurchaserVerification) error {
	p.ID = 0 // the stored row's id comes back through RETURNING
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "verification_id"}},
		DoUpdates: clause.AssignmentColumns(purchaserColumns),
	}).Create(p).Error)
}

func (r *verificationRepo) FindGrantor(ctx context.Context, verificationID uint, number int) (*model.GrantorVerification, error) {
	var g model.GrantorVerification
	err := r.db.WithContext(ctx).
		Where("verification_id = ? AND grantor_number = ?", verificationID, number).
		First(&g).Error
	return &g, err
}

func (r *verificationRepo) UpsertGrantor(ctx context.Context, g *model.GrantorVerification) error {
	g.ID = 0 // the stored row's id comes back through RETURNING
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "verification_id"}, {Name: "grantor_number"}},
		DoUpdates: clause.AssignmentColumns(grantorColumns),
	}).Create(g).Error)
}

func (r *verificationRepo) FindNextOfKin(ctx context.Context, verificationID uint) (*model.NextOfKin, error) {
	var k model.NextOfKin
	err := r.db.WithContext(ctx).Where("verification_id = ?", verificationID).First(&k).Error
	return &k, err
}

func (r *verificationRepo) UpsertNextOfKin(ctx context.Context, k *model.NextOfKin) error {
	k.ID = 0 // the stored row's id comes back through RETURNING
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "verification_id"}},
		DoUpdates: clause.AssignmentColumns(nextOfKinColumns),
	}).Create(k).Error)
}

func (r *verificationRepo) AddLocation(ctx context.Context, l *model.LocationTracking) error {
	return translate(r.db.WithContext(ctx).Create(l).Error)
}
