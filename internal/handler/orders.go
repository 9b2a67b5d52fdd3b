package handler

import (
	"net/http"

	"qist/internal/dto"
	"qist/internal/middleware"
	"qist/internal/service"

	"github.com/gin-gonic/gin"
)

type OrdersHandler struct{ svc service.OrderService }

func NewOrdersHandler(svc service.OrderService) *OrdersHandler { return &OrdersHandler{svc: svc} }

// Create godoc
// @Summary Create an order
// @Description Rejects a second open order for the same whatsapp number and product on the same day.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateOrderRequest true "Order"
// @Success 201 {object} apierror.Envelope{data=dto.OrderResponse}
// @Failure 400 {object} apierror.Envelope
// @Failure 409 {object} apierror.Envelope
// @Router /v1/orders [post]
func (h *OrdersHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Order created", resp)
}

// List godoc
// @Summary List orders (offset pagination)
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param search query string false "Customer, number, ref, token, product, city or area"
// @Param status query string false "Status filter"
// @Param assigned_to query string false "Assignee username"
// @Param sortBy query string false "id, created_at, customer_name, product_name, total_amount, months, status"
// @Param sortDir query string false "asc or desc"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Success 200 {object} apierror.Envelope{data=dto.OrderListResponse}
// @Router /v1/orders [get]
func (h *OrdersHandler) List(c *gin.Context) {
	var filter dto.OrderFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

// ListCursor pages by lastId in id DESC order.
func (h *OrdersHandler) ListCursor(c *gin.Context) {
	var filter dto.OrderFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListCursor(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

func (h *OrdersHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

// Assign godoc
// @Summary Assign an order to a verification officer, or unassign it
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param body body dto.AssignOrderRequest true "user_id, or action=unassign"
// @Success 200 {object} apierror.Envelope{data=dto.OrderResponse}
// @Failure 409 {object} apierror.Envelope
// @Router /v1/orders/{id}/assign [post]
func (h *OrdersHandler) Assign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AssignOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Assign(c.Request.Context(), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	msg := "Order assigned"
	if req.Action == service.AssignActionUnassign {
		msg = "Order unassigned"
	}
	respond(c, http.StatusOK, msg, resp)
}

func (h *OrdersHandler) BulkAssign(c *gin.Context) {
	var req dto.BulkAssignRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AssignBulk(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Bulk assignment applied", resp)
}

func (h *OrdersHandler) AutoAssign(c *gin.Context) {
	resp, err := h.svc.AutoAssign(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Auto-assignment finished", resp)
}

func (h *OrdersHandler) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Order status updated", resp)
}

func (h *OrdersHandler) ListVerificationOrders(c *gin.Context) {
	resp, err := h.svc.ListVerificationOrders(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}
