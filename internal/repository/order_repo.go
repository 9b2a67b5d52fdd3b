package repository

import (
	"context"
	"strings"
	"time"

	"qist/internal/dto"
	"qist/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderSortColumns whitelists the sortBy values accepted by List.
var orderSortColumns = map[string]string{
	"id":            "orders.id",
	"created_at":    "orders.created_at",
	"customer_name": "orders.customer_name",
	"product_name":  "orders.product_name",
	"total_amount":  "orders.total_amount",
	"months":        "orders.months",
	"status":        "orders.status",
}

type OrderRepository interface {
	Create(ctx context.Context, tx *gorm.DB, o *model.Order) error
	// HasActiveDuplicate looks for an order with the same contact and product
	// created on day whose status is not closed.
	HasActiveDuplicate(ctx context.Context, tx *gorm.DB, whatsapp, product string, day time.Time) (bool, error)
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	// LockByIDs loads the orders with SELECT ... FOR UPDATE.
	LockByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]model.Order, error)
	// Assign sets the assignee only when the order is still unassigned.
	Assign(ctx context.Context, tx *gorm.DB, id, officerID uint) (bool, error)
	// Unassign clears the assignee only when one is set.
	Unassign(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
	AssignMany(ctx context.Context, tx *gorm.DB, ids []uint, officerID uint) (int64, error)
	UnassignMany(ctx context.Context, tx *gorm.DB, ids []uint) (int64, error)
	// ListPendingUnassigned returns unassigned orders in status new, oldest first.
	ListPendingUnassigned(ctx context.Context) ([]model.Order, error)
	List(ctx context.Context, filter dto.OrderFilter) ([]model.Order, int64, error)
	// ListAfter returns up to filter.Limit orders with id < filter.LastID
	// (no bound when LastID is 0) in id DESC order, plus the filtered total.
	ListAfter(ctx context.Context, filter dto.OrderFilter) ([]model.Order, int64, error)
	// UpdateStatus changes the status unless the order is already closed.
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status string) (bool, error)
	ListWithVerification(ctx context.Context) ([]model.Order, error)
	DB() *gorm.DB
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &orderRepo{db: db} }

func (r *orderRepo) DB() *gorm.DB { return r.db }

func (r *orderRepo) Create(ctx context.Context, tx *gorm.DB, o *model.Order) error {
	return translate(conn(ctx, r.db, tx).Omit(clause.Associations).Create(o).Error)
}

func (r *orderRepo) HasActiveDuplicate(ctx context.Context, tx *gorm.DB, whatsapp, product string, day time.Time) (bool, error) {
	var count int64
	err := conn(ctx, r.db, tx).Model(&model.Order{}).
		Where("whatsapp_number = ? AND product_name = ?", whatsapp, product).
		Where("created_on = ?", day.Format(time.DateOnly)).
		Where("status NOT IN ?", model.ClosedOrderStatuses).
		Count(&count).Error
	return count > 0, err
}

func (r *orderRepo) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).
		Preload("CreatedBy").Preload("AssignedTo").
		First(&o, id).Error
	return &o, err
}

func (r *orderRepo) LockByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]model.Order, error) {
	var orders []model.Order
	err := conn(ctx, r.db, tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) Assign(ctx context.Context, tx *gorm.DB, id, officerID uint) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.Order{}).
		Where("id = ? AND assigned_to_user_id IS NULL", id).
		Update("assigned_to_user_id", officerID)
	return res.RowsAffected == 1, translate(res.Error)
}

func (r *orderRepo) Unassign(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.Order{}).
		Where("id = ? AND assigned_to_user_id IS NOT NULL", id).
		Update("assigned_to_user_id", nil)
	return res.RowsAffected == 1, res.Error
}

func (r *orderRepo) AssignMany(ctx context.Context, tx *gorm.DB, ids []uint, officerID uint) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&model.Order{}).
		Where("id IN ? AND assigned_to_user_id IS NULL", ids).
		Update("assigned_to_user_id", officerID)
	return res.RowsAffected, translate(res.Error)
}

func (r *orderRepo) UnassignMany(ctx context.Context, tx *gorm.DB, ids []uint) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&model.Order{}).
		Where("id IN ? AND assigned_to_user_id IS NOT NULL", ids).
		Update("assigned_to_user_id", nil)
	return res.RowsAffected, res.Error
}

func (r *orderRepo) ListPendingUnassigned(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("assigned_to_user_id IS NULL AND status = ?", model.OrderStatusNew).
		Order("id").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepo) filtered(ctx context.Context, filter dto.OrderFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		q = q.Where(`(orders.customer_name ILIKE ? OR orders.whatsapp_number ILIKE ? OR orders.order_ref ILIKE ?
			OR orders.token_number ILIKE ? OR orders.product_name ILIKE ? OR orders.city ILIKE ? OR orders.area ILIKE ?)`,
			like, like, like, like, like, like, like)
	}
	if filter.Status != "" {
		q = q.Where("orders.status = ?", filter.Status)
	}
	if filter.Channel != "" {
		q = q.Where("orders.order_channel = ?", filter.Channel)
	}
	if filter.City != "" {
		q = q.Where("orders.city ILIKE ?", filter.City)
	}
	if filter.Area != "" {
		q = q.Where("orders.area ILIKE ?", filter.Area)
	}
	if filter.ProductName != "" {
		q = q.Where("orders.product_name ILIKE ?", "%"+filter.ProductName+"%")
	}
	if filter.AssignedTo != "" {
		q = q.Where("orders.assigned_to_user_id IN (?)",
			r.db.Model(&model.User{}).Select("id").Where("username = ?", filter.AssignedTo))
	}
	if filter.CreatedBy != "" {
		q = q.Where("orders.created_by_user_id IN (?)",
			r.db.Model(&model.User{}).Select("id").Where("username = ?", filter.CreatedBy))
	}
	return q
}

func (r *orderRepo) List(ctx context.Context, filter dto.OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := orderSortColumns[filter.SortBy]
	if !ok {
		col = orderSortColumns["id"]
	}
	dir := "DESC"
	if strings.EqualFold(filter.SortDir, "asc") {
		dir = "ASC"
	}

	err := r.filtered(ctx, filter).
		Preload("CreatedBy").Preload("AssignedTo").
		Order(col + " " + dir).Order("orders.id DESC").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepo) ListAfter(ctx context.Context, filter dto.OrderFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.filtered(ctx, filter)
	if filter.LastID > 0 {
		q = q.Where("orders.id < ?", filter.LastID)
	}
	err := q.Preload("CreatedBy").Preload("AssignedTo").
		Order("orders.id DESC").
		Limit(filter.Limit).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status string) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.Order{}).
		Where("id = ? AND status NOT IN ?", id, model.ClosedOrderStatuses).
		Update("status", status)
	return res.RowsAffected == 1, res.Error
}

func (r *orderRepo) ListWithVerification(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Joins("JOIN verifications ON verifications.order_id = orders.id").
		Where("orders.assigned_to_user_id IS NOT NULL").
		Preload("CreatedBy").Preload("AssignedTo").
		Preload("Verification").
		Preload("Verification.VerificationOfficer").
		Preload("Verification.ApprovedBy").
		Preload("Verification.Purchaser").
		Preload("Verification.Grantors", func(db *gorm.DB) *gorm.DB { return db.Order("grantor_number") }).
		Preload("Verification.NextOfKin").
		Preload("Verification.Locations", func(db *gorm.DB) *gorm.DB { return db.Order("captured_at DESC") }).
		Preload("Verification.Documents", func(db *gorm.DB) *gorm.DB { return db.Order("uploaded_at DESC") }).
		Order("orders.id DESC").
		Find(&orders).Error
	return orders, err
}
