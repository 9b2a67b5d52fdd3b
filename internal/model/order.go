package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. The set is exhaustive.
const (
	OrderStatusNew        = "new"
	OrderStatusAssigned   = "assigned"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// ClosedOrderStatuses are excluded from duplicate suppression and from
// officer workload counts.
var ClosedOrderStatuses = []string{OrderStatusCancelled, OrderStatusDelivered}

var orderStatuses = map[string]bool{
	OrderStatusNew: true, OrderStatusAssigned: true, OrderStatusInProgress: true,
	OrderStatusCompleted: true, OrderStatusDelivered: true, OrderStatusCancelled: true,
}

// ValidOrderStatus reports whether s belongs to the order status set.
func ValidOrderStatus(s string) bool { return orderStatuses[s] }

// IsClosedOrderStatus reports whether s is cancelled or delivered.
func IsClosedOrderStatus(s string) bool {
	return s == OrderStatusCancelled || s == OrderStatusDelivered
}

// Order is a customer installment order.
// CreatedOn is the business-day date used by the partial unique index
// idx_orders_active_daily (see infra.applySchemaPatches).
type Order struct {
	ID               uint   `gorm:"primaryKey"`
	OrderRef         string `gorm:"type:varchar(20);not null;index"`
	TokenNumber      string `gorm:"type:varchar(8);not null;index"`
	CustomerName     string `gorm:"not null"`
	WhatsappNumber   string `gorm:"not null;index"`
	Address          string `gorm:"not null"`
	City             *string
	Area             *string
	ProductName      string          `gorm:"not null"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	AdvanceAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	MonthlyAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	Months           int             `gorm:"not null"`
	OrderChannel     string          `gorm:"not null"`
	Status           string          `gorm:"type:varchar(20);not null;default:new;index"`
	CreatedByUserID  uint            `gorm:"not null;index"`
	CreatedBy        *User           `gorm:"foreignKey:CreatedByUserID"`
	AssignedToUserID *uint           `gorm:"index"`
	AssignedTo       *User           `gorm:"foreignKey:AssignedToUserID"`
	CreatedOn        time.Time       `gorm:"type:date;not null"`
	Verification     *Verification   `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (o *Order) IsAssigned() bool { return o.AssignedToUserID != nil }
