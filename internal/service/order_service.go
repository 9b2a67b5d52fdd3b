package service

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"

	"qist/internal/apierror"
	"qist/internal/dto"
	"qist/internal/metrics"
	"qist/internal/model"
	"qist/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	AssignActionAssign   = "assign"
	AssignActionUnassign = "unassign"
)

var errDuplicateOrder = apierror.Conflict("Duplicate active order detected today.")

type OrderService interface {
	Create(ctx context.Context, creatorID uint, req dto.CreateOrderRequest) (*dto.OrderResponse, error)
	Get(ctx context.Context, id uint) (*dto.OrderResponse, error)
	List(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error)
	ListCursor(ctx context.Context, filter dto.OrderFilter) (*dto.OrderCursorResponse, error)
	Assign(ctx context.Context, id uint, req dto.AssignOrderRequest) (*dto.OrderResponse, error)
	AssignBulk(ctx context.Context, req dto.BulkAssignRequest) (*dto.BulkAssignResponse, error)
	AutoAssign(ctx context.Context) (*dto.AutoAssignResponse, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*dto.OrderResponse, error)
	ListVerificationOrders(ctx context.Context) ([]dto.VerificationResponse, error)
}

type orderService struct {
	orders   repository.OrderRepository
	users    repository.UserRepository
	notifier AssignmentNotifier
	loc      *time.Location
	now      func() time.Time
}

// NewOrderService builds the order engine. loc decides the business day
// used by duplicate suppression and order references.
func NewOrderService(orders repository.OrderRepository, users repository.UserRepository, notifier AssignmentNotifier, loc *time.Location) OrderService {
	if loc == nil {
		loc = time.Local
	}
	return &orderService{orders: orders, users: users, notifier: notifier, loc: loc, now: time.Now}
}

// ── Create ───────────────────────────────────────────────────────────────────

func requireText(field, value string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", apierror.ValidationField(field, field+" is required")
	}
	return v, nil
}

func requireAmount(field string, value *decimal.Decimal) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, apierror.ValidationField(field, field+" is required")
	}
	if value.IsNegative() {
		return decimal.Zero, apierror.ValidationField(field, field+" must be a non-negative number")
	}
	return *value, nil
}

// validateCreate checks presence in request field order and returns the
// normalized order.
func validateCreate(req dto.CreateOrderRequest) (*model.Order, error) {
	o := &model.Order{}
	var err error
	if o.CustomerName, err = requireText("customer_name", req.CustomerName); err != nil {
		return nil, err
	}
	if o.WhatsappNumber, err = requireText("whatsapp_number", req.WhatsappNumber); err != nil {
		return nil, err
	}
	if o.Address, err = requireText("address", req.Address); err != nil {
		return nil, err
	}
	if o.ProductName, err = requireText("product_name", req.ProductName); err != nil {
		return nil, err
	}
	if o.TotalAmount, err = requireAmount("total_amount", req.TotalAmount); err != nil {
		return nil, err
	}
	if o.AdvanceAmount, err = requireAmount("advance_amount", req.AdvanceAmount); err != nil {
		return nil, err
	}
	if o.MonthlyAmount, err = requireAmount("monthly_amount", req.MonthlyAmount); err != nil {
		return nil, err
	}
	months := strings.TrimSpace(req.Months.String())
	if months == "" {
		return nil, apierror.ValidationField("months", "months is required")
	}
	if o.Months, err = strconv.Atoi(months); err != nil || o.Months <= 0 {
		return nil, apierror.ValidationField("months", "months must be a positive integer")
	}
	if o.OrderChannel, err = requireText("order_channel", req.OrderChannel); err != nil {
		return nil, err
	}
	o.City = trimmedPtr(req.City)
	o.Area = trimmedPtr(req.Area)
	return o, nil
}

// newOrderRef formats QIST-YYYYMMDD-NNNN. Collisions are tolerated; the
// primary key and the token identify an order.
func newOrderRef(day time.Time) string {
	return fmt.Sprintf("QIST-%s-%04d", day.Format("20060102"), 1000+rand.Intn(9000))
}

// newToken returns 8 uppercase hex characters from 4 random bytes.
func newToken() (string, error) {
	b := make([]byte, 4)
	if _, err := crand.Read(b); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}

func (s *orderService) Create(ctx context.Context, creatorID uint, req dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	order, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	local := s.now().In(s.loc)
	order.CreatedOn = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	order.OrderRef = newOrderRef(local)
	if order.TokenNumber, err = newToken(); err != nil {
		return nil, err
	}
	order.Status = model.OrderStatusNew
	order.CreatedByUserID = creatorID

	err = runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		dup, err := s.orders.HasActiveDuplicate(ctx, tx, order.WhatsappNumber, order.ProductName, order.CreatedOn)
		if err != nil {
			return err
		}
		if dup {
			return errDuplicateOrder
		}
		return s.orders.Create(ctx, tx, order)
	})
	if err != nil {
		// the partial unique index catches a concurrent identical submission
		if errors.Is(err, errDuplicateOrder) || errors.Is(err, repository.ErrDuplicate) {
			metrics.DuplicateOrdersRejected.Inc()
			return nil, errDuplicateOrder
		}
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	log.Info().Str("order_ref", order.OrderRef).Uint("order_id", order.ID).Uint("created_by", creatorID).Msg("order created")
	return s.Get(ctx, order.ID)
}

// ── Read ─────────────────────────────────────────────────────────────────────

func (s *orderService) Get(ctx context.Context, id uint) (*dto.OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	resp := toOrderResponse(order)
	return &resp, nil
}

func (s *orderService) List(ctx context.Context, filter dto.OrderFilter) (*dto.OrderListResponse, error) {
	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.OrderListResponse{
		Orders:     toOrderResponses(orders),
		Pagination: dto.NewOffsetPage(filter.Page, filter.Limit, total),
	}, nil
}

func (s *orderService) ListCursor(ctx context.Context, filter dto.OrderFilter) (*dto.OrderCursorResponse, error) {
	orders, total, err := s.orders.ListAfter(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := dto.CursorPage{
		HasMore:    len(orders) == filter.Limit,
		Limit:      filter.Limit,
		Count:      len(orders),
		TotalCount: total,
	}
	if len(orders) > 0 {
		last := orders[len(orders)-1].ID
		page.NextLastID = &last
	}
	return &dto.OrderCursorResponse{Orders: toOrderResponses(orders), Pagination: page}, nil
}

func (s *orderService) ListVerificationOrders(ctx context.Context) ([]dto.VerificationResponse, error) {
	orders, err := s.orders.ListWithVerification(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VerificationResponse, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		if o.Verification == nil {
			continue
		}
		resp := toVerificationResponse(o.Verification)
		order := toOrderResponse(o)
		resp.Order = &order
		out = append(out, resp)
	}
	return out, nil
}

// ── Status ───────────────────────────────────────────────────────────────────

func (s *orderService) UpdateStatus(ctx context.Context, id uint, status string) (*dto.OrderResponse, error) {
	if !model.ValidOrderStatus(status) {
		return nil, apierror.ValidationField("status", "invalid order status")
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	if model.IsClosedOrderStatus(order.Status) {
		return nil, apierror.Conflict(fmt.Sprintf("Order is %s and can no longer change status", order.Status))
	}
	ok, err := s.orders.UpdateStatus(ctx, nil, id, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Conflict("Order can no longer change status")
	}
	return s.Get(ctx, id)
}

// ── Assignment ───────────────────────────────────────────────────────────────

// resolveOfficer loads the target user and checks the Verification Officer role.
func (s *orderService) resolveOfficer(ctx context.Context, userID *uint) (*model.User, error) {
	if userID == nil || *userID == 0 {
		return nil, apierror.ValidationField("user_id", "user_id is required")
	}
	officer, err := s.users.FindByID(ctx, *userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.ValidationField("user_id", "Invalid Verification Officer")
		}
		return nil, err
	}
	if !officer.IsVerificationOfficer() {
		return nil, apierror.ValidationField("user_id", "Invalid Verification Officer")
	}
	return officer, nil
}

func (s *orderService) Assign(ctx context.Context, id uint, req dto.AssignOrderRequest) (*dto.OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}

	if req.Action == AssignActionUnassign {
		if !order.IsAssigned() {
			return nil, apierror.Validation("Order is not assigned")
		}
		ok, err := s.orders.Unassign(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apierror.Validation("Order is not assigned")
		}
		metrics.Assignments.WithLabelValues("single", AssignActionUnassign).Inc()
		return s.Get(ctx, id)
	}

	if req.UserID == nil || *req.UserID == 0 {
		return nil, apierror.ValidationField("user_id", "user_id is required")
	}
	if order.IsAssigned() {
		return nil, apierror.Conflict("Order is already assigned")
	}
	officer, err := s.resolveOfficer(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	ok, err := s.orders.Assign(ctx, nil, id, officer.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Conflict("Order is already assigned")
	}
	metrics.Assignments.WithLabelValues("single", AssignActionAssign).Inc()
	order.AssignedToUserID = &officer.ID
	s.notifier.NotifyAssignment(ctx, officer, order)
	return s.Get(ctx, id)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinIDs(ids []uint) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}

// AssignBulk applies one action to a batch. For assign, the whole batch is
// rejected when any order is missing or already assigned; unassign skips
// unknown orders and orders that have no assignee.
func (s *orderService) AssignBulk(ctx context.Context, req dto.BulkAssignRequest) (*dto.BulkAssignResponse, error) {
	ids := uniqueIDs(req.OrderIDs)
	if len(ids) == 0 {
		return nil, apierror.ValidationField("order_ids", "order_ids is required")
	}
	action := req.Action
	if action == "" {
		action = AssignActionAssign
	}

	var officer *model.User
	if action == AssignActionAssign {
		var err error
		if officer, err = s.resolveOfficer(ctx, req.UserID); err != nil {
			return nil, err
		}
	}

	resp := &dto.BulkAssignResponse{Action: action}
	var assigned []model.Order
	err := runTx(ctx, s.orders.DB(), func(tx *gorm.DB) error {
		locked, err := s.orders.LockByIDs(ctx, tx, ids)
		if err != nil {
			return err
		}

		if action == AssignActionUnassign {
			var targets []uint
			for _, o := range locked {
				if o.IsAssigned() {
					targets = append(targets, o.ID)
				}
			}
			// unknown ids count as skipped, like orders without an assignee
			resp.Skipped = len(ids) - len(targets)
			if len(targets) == 0 {
				return nil
			}
			n, err := s.orders.UnassignMany(ctx, tx, targets)
			resp.Affected = n
			return err
		}

		if len(locked) != len(ids) {
			found := make(map[uint]bool, len(locked))
			for _, o := range locked {
				found[o.ID] = true
			}
			var missing []uint
			for _, id := range ids {
				if !found[id] {
					missing = append(missing, id)
				}
			}
			return apierror.NotFound("Orders not found: " + joinIDs(missing))
		}

		var taken []uint
		for _, o := range locked {
			if o.IsAssigned() {
				taken = append(taken, o.ID)
			}
		}
		if len(taken) > 0 {
			return apierror.Conflict("Orders already assigned: " + joinIDs(taken))
		}
		n, err := s.orders.AssignMany(ctx, tx, ids, officer.ID)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			return apierror.Conflict("Some orders were assigned concurrently; nothing was changed")
		}
		resp.Affected = n
		assigned = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Assignments.WithLabelValues("bulk", action).Add(float64(resp.Affected))
	for i := range assigned {
		assigned[i].AssignedToUserID = &officer.ID
		s.notifier.NotifyAssignment(ctx, officer, &assigned[i])
	}
	return resp, nil
}

// AutoAssign gives every unassigned new order to the active officer with the
// fewest open assignments. Ties go to the lowest officer id. Each write is
// conditional, so concurrent sweeps never double-assign an order.
func (s *orderService) AutoAssign(ctx context.Context) (*dto.AutoAssignResponse, error) {
	pending, err := s.orders.ListPendingUnassigned(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.AutoAssignResponse{Considered: len(pending), Assigned: []dto.AutoAssignment{}}
	if len(pending) == 0 {
		return resp, nil
	}

	officers, err := s.users.ListActiveOfficers(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(officers) == 0 {
		resp.NoOfficers = true
		resp.Skipped = len(pending)
		log.Warn().Int("pending", len(pending)).Msg("auto-assign: no active verification officers")
		return resp, nil
	}
	counts, err := s.users.OpenAssignmentCounts(ctx, nil)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = map[uint]int64{}
	}

	for i := range pending {
		order := &pending[i]
		officer := &officers[0]
		for j := 1; j < len(officers); j++ {
			if counts[officers[j].ID] < counts[officer.ID] {
				officer = &officers[j]
			}
		}

		ok, err := s.orders.Assign(ctx, nil, order.ID, officer.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			resp.Skipped++
			continue
		}
		counts[officer.ID]++
		order.AssignedToUserID = &officer.ID
		resp.Assigned = append(resp.Assigned, dto.AutoAssignment{
			OrderID:   order.ID,
			OrderRef:  order.OrderRef,
			OfficerID: officer.ID,
		})
		metrics.Assignments.WithLabelValues("auto", AssignActionAssign).Inc()
		s.notifier.NotifyAssignment(ctx, officer, order)
	}

	log.Info().Int("considered", resp.Considered).Int("assigned", len(resp.Assigned)).Msg("auto-assign sweep finished")
	return resp, nil
}
