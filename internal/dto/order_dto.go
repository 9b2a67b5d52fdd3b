package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreateOrderRequest accepts amounts and months either as JSON numbers or
// numeric strings. Presence and range are checked by the order service.
type CreateOrderRequest struct {
	CustomerName   string           `json:"customer_name"`
	WhatsappNumber string           `json:"whatsapp_number"`
	Address        string           `json:"address"`
	City           *string          `json:"city"`
	Area           *string          `json:"area"`
	ProductName    string           `json:"product_name"`
	TotalAmount    *decimal.Decimal `json:"total_amount"`
	AdvanceAmount  *decimal.Decimal `json:"advance_amount"`
	MonthlyAmount  *decimal.Decimal `json:"monthly_amount"`
	Months         json.Number      `json:"months"`
	OrderChannel   string           `json:"order_channel"`
}

// AssignOrderRequest assigns to UserID, or clears the assignee when
// Action is "unassign".
type AssignOrderRequest struct {
	UserID *uint  `json:"user_id"`
	Action string `json:"action" validate:"omitempty,oneof=assign unassign"`
}

type BulkAssignRequest struct {
	OrderIDs []uint `json:"order_ids" validate:"required,min=1,dive,min=1"`
	UserID   *uint  `json:"user_id"`
	Action   string `json:"action"    validate:"omitempty,oneof=assign unassign"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new assigned in_progress completed delivered cancelled"`
}

// OrderFilter is bound from the query string of both order listings.
// Page applies to the offset listing and LastID to the cursor listing.
type OrderFilter struct {
	Search      string `form:"search"`
	Status      string `form:"status"`
	Channel     string `form:"order_channel"`
	City        string `form:"city"`
	Area        string `form:"area"`
	ProductName string `form:"product_name"`
	AssignedTo  string `form:"assigned_to"` // username
	CreatedBy   string `form:"created_by"`  // username
	SortBy      string `form:"sortBy,default=id"`
	SortDir     string `form:"sortDir,default=desc" validate:"omitempty,oneof=asc desc ASC DESC"`
	Page        int    `form:"page,default=1"   validate:"min=1"`
	Limit       int    `form:"limit,default=10" validate:"min=1,max=100"`
	LastID      uint   `form:"lastId"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserRef struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

type OrderResponse struct {
	ID             uint            `json:"id"`
	OrderRef       string          `json:"order_ref"`
	TokenNumber    string          `json:"token_number"`
	CustomerName   string          `json:"customer_name"`
	WhatsappNumber string          `json:"whatsapp_number"`
	Address        string          `json:"address"`
	City           *string         `json:"city"`
	Area           *string         `json:"area"`
	ProductName    string          `json:"product_name"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	AdvanceAmount  decimal.Decimal `json:"advance_amount"`
	MonthlyAmount  decimal.Decimal `json:"monthly_amount"`
	Months         int             `json:"months"`
	OrderChannel   string          `json:"order_channel"`
	Status         string          `json:"status"`
	CreatedBy      *UserRef        `json:"created_by"`
	AssignedTo     *UserRef        `json:"assigned_to"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Pagination OffsetPage      `json:"pagination"`
}

type OrderCursorResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Pagination CursorPage      `json:"pagination"`
}

type BulkAssignResponse struct {
	Action   string `json:"action"`
	Affected int64  `json:"affected"`
	Skipped  int    `json:"skipped"`
}

// AutoAssignment records one order placed by an auto-assign sweep.
type AutoAssignment struct {
	OrderID   uint   `json:"order_id"`
	OrderRef  string `json:"order_ref"`
	OfficerID uint   `json:"officer_id"`
}

type AutoAssignResponse struct {
	Considered int              `json:"considered"`
	Assigned   []AutoAssignment `json:"assigned"`
	Skipped    int              `json:"skipped"`
	NoOfficers bool             `json:"no_officers"`
}
