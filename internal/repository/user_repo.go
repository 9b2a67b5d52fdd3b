package repository

import (
	"context"
	"fmt"

	"qist/internal/dto"
	"qist/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UniqueUserFields are the user columns carrying a unique index.
var UniqueUserFields = []string{"username", "email", "cnic", "phone"}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// IsTaken reports whether another user (id != excludeID) already holds value in field.
	IsTaken(ctx context.Context, field, value string, excludeID uint) (bool, error)
	List(ctx context.Context, filter dto.UserFilter) ([]model.User, int64, error)
	Update(ctx context.Context, u *model.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	Delete(ctx context.Context, id uint) error
	// ListActiveOfficers returns active Verification Officers ordered by id.
	ListActiveOfficers(ctx context.Context, tx *gorm.DB) ([]model.User, error)
	// OpenAssignmentCounts counts assigned orders per officer whose status is not closed.
	OpenAssignmentCounts(ctx context.Context, tx *gorm.DB) (map[uint]int64, error)
	DB() *gorm.DB
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) DB() *gorm.DB { return r.db }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error)
}

func (r *userRepo) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Preload("Role").First(&u, id).Error
	return &u, err
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Preload("Role").Where("username = ?", username).First(&u).Error
	return &u, err
}

func (r *userRepo) IsTaken(ctx context.Context, field, value string, excludeID uint) (bool, error) {
	allowed := false
	for _, f := range UniqueUserFields {
		if f == field {
			allowed = true
			break
		}
	}
	if !allowed {
		return false, fmt.Errorf("user repo: %q is not a unique field", field)
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where(clause.Eq{Column: clause.Column{Name: field}, Value: value}).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepo) List(ctx context.Context, filter dto.UserFilter) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	q := r.db.WithContext(ctx).Model(&model.User{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("(full_name ILIKE ? OR username ILIKE ? OR email ILIKE ? OR cnic ILIKE ? OR phone ILIKE ?)",
			like, like, like, like, like)
	}
	if filter.RoleID != 0 {
		q = q.Where("role_id = ?", filter.RoleID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Role").
		Order("id DESC").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&users).Error
	return users, total, err
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(u).Error)
}

func (r *userRepo) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return translate(r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields).Error)
}

func (r *userRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.User{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepo) ListActiveOfficers(ctx context.Context, tx *gorm.DB) ([]model.User, error) {
	var users []model.User
	err := conn(ctx, r.db, tx).
		Preload("Role").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name = ? AND users.status = ?", model.RoleVerificationOfficer, model.UserStatusActive).
		Order("users.id").
		Find(&users).Error
	return users, err
}

func (r *userRepo) OpenAssignmentCounts(ctx context.Context, tx *gorm.DB) (map[uint]int64, error) {
	var rows []struct {
		AssignedToUserID uint
		Open             int64
	}
	err := conn(ctx, r.db, tx).Model(&model.Order{}).
		Select("assigned_to_user_id, COUNT(*) AS open").
		Where("assigned_to_user_id IS NOT NULL AND status NOT IN ?", model.ClosedOrderStatuses).
		Group("assigned_to_user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.AssignedToUserID] = row.Open
	}
	return counts, nil
}
