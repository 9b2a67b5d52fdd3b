package repository

import (
	"context"
	"fmt"

	"qist/internal/model"

	"gorm.io/gorm"
)

type DocumentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, d *model.VerificationDocument) error
	FindByID(ctx context.Context, id uint) (*model.VerificationDocument, error)
	Delete(ctx context.Context, id uint) error
	// CountByType counts the verification's documents per document type.
	CountByType(ctx context.Context, verificationID uint, types []string) (map[string]int64, error)
	// MirrorSlot writes url into column of the purchaser (grantorNumber 0)
	// or grantor row of the verification.
	MirrorSlot(ctx context.Context, tx *gorm.DB, verificationID uint, grantorNumber int, column, url string) error
	DB() *gorm.DB
}

type documentRepo struct{ db *gorm.DB }

func NewDocumentRepository(db *gorm.DB) DocumentRepository { return &documentRepo{db: db} }

func (r *documentRepo) DB() *gorm.DB { return r.db }

func (r *documentRepo) Create(ctx context.Context, tx *gorm.DB, d *model.VerificationDocument) error {
	return translate(conn(ctx, r.db, tx).Create(d).Error)
}

func (r *documentRepo) FindByID(ctx context.Context, id uint) (*model.VerificationDocument, error) {
	var d model.VerificationDocument
	err := r.db.WithContext(ctx).First(&d, id).Error
	return &d, err
}

func (r *documentRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&model.VerificationDocument{}, id).Error
}

func (r *documentRepo) CountByType(ctx context.Context, verificationID uint, types []string) (map[string]int64, error) {
	var rows []struct {
		DocumentType string
		Total        int64
	}
	err := r.db.WithContext(ctx).Model(&model.VerificationDocument{}).
		Select("document_type, COUNT(*) AS total").
		Where("verification_id = ? AND document_type IN ?", verificationID, types).
		Group("document_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(types))
	for _, row := range rows {
		counts[row.DocumentType] = row.Total
	}
	return counts, nil
}

func (r *documentRepo) MirrorSlot(ctx context.Context, tx *gorm.DB, verificationID uint, grantorNumber int, column, url string) error {
	q := conn(ctx, r.db, tx)
	var res *gorm.DB
	if grantorNumber == 0 {
		res = q.Model(&model.PurchaserVerification{}).
			Where("verification_id = ?", verificationID).
			Update(column, url)
	} else {
		res = q.Model(&model.GrantorVerification{}).
			Where("verification_id = ? AND grantor_number = ?", verificationID, grantorNumber).
			Update(column, url)
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mirror %s: %w", column, gorm.ErrRecordNotFound)
	}
	return nil
}
