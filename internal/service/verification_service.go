package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"qist/internal/apierror"
	"qist/internal/dto"
	"qist/internal/infra"
	"qist/internal/metrics"
	"qist/internal/model"
	"qist/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type VerificationService interface {
	Start(ctx context.Context, actor *model.User, orderID uint) (*dto.VerificationResponse, error)
	Get(ctx context.Context, id uint) (*dto.VerificationResponse, error)
	GetByOrder(ctx context.Context, orderID uint) (*dto.VerificationResponse, error)
	List(ctx context.Context, filter dto.VerificationFilter) (*dto.VerificationListResponse, error)

	UpsertPurchaser(ctx context.Context, actor *model.User, id uint, req dto.PurchaserRequest) (*dto.PurchaserResponse, error)
	UpsertGrantor(ctx context.Context, actor *model.User, id uint, number int, req dto.GrantorRequest) (*dto.GrantorResponse, error)
	UpsertNextOfKin(ctx context.Context, actor *model.User, id uint, req dto.NextOfKinRequest) (*dto.NextOfKinResponse, error)
	AddLocation(ctx context.Context, actor *model.User, id uint, req dto.LocationRequest) (*dto.LocationResponse, error)

	UploadDocument(ctx context.Context, actor *model.User, id uint, in dto.UploadInput, r io.Reader) (*dto.DocumentResponse, error)
	DeleteDocument(ctx context.Context, actor *model.User, documentID uint) error

	Complete(ctx context.Context, actor *model.User, id uint) (*dto.VerificationResponse, error)
	Approve(ctx context.Context, approver *model.User, id uint, req dto.ApproveRequest) (*dto.VerificationResponse, error)
	// Report renders the PDF summary and returns its path on disk.
	Report(ctx context.Context, id uint) (string, error)
}

type verificationService struct {
	verifications repository.VerificationRepository
	orders        repository.OrderRepository
	documents     repository.DocumentRepository
	storage       infra.Storage
	minCopies     int
	reportPath    string
	now           func() time.Time
}

func NewVerificationService(
	verifications repository.VerificationRepository,
	orders repository.OrderRepository,
	documents repository.DocumentRepository,
	storage infra.Storage,
	minCopies int,
	reportPath string,
) VerificationService {
	if minCopies <= 0 {
		minCopies = 3
	}
	return &verificationService{
		verifications: verifications,
		orders:        orders,
		documents:     documents,
		storage:       storage,
		minCopies:     minCopies,
		reportPath:    reportPath,
		now:           time.Now,
	}
}

// ── Lifecycle ────────────────────────────────────────────────────────────────

func (s *verificationService) Start(ctx context.Context, actor *model.User, orderID uint) (*dto.VerificationResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "Order not found")
	}
	if model.IsClosedOrderStatus(order.Status) {
		return nil, apierror.Conflict("Cannot verify a " + order.Status + " order")
	}

	v := &model.Verification{
		OrderID:               orderID,
		VerificationOfficerID: actor.ID,
		Status:                model.VerificationStatusInProgress,
		StartTime:             s.now(),
	}
	err = runTx(ctx, s.verifications.DB(), func(tx *gorm.DB) error {
		exists, err := s.verifications.ExistsForOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if exists {
			return apierror.Conflict("Verification already exists for this order")
		}
		if err := s.verifications.Create(ctx, tx, v); err != nil {
			return err
		}
		_, err = s.orders.UpdateStatus(ctx, tx, orderID, model.OrderStatusInProgress)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierror.Conflict("Verification already exists for this order")
		}
		return nil, err
	}

	log.Info().Uint("verification_id", v.ID).Uint("order_id", orderID).Uint("officer_id", actor.ID).Msg("verification started")
	return s.Get(ctx, v.ID)
}

// shortfall lists every required type below the minimum, e.g.
// "cnic_front 1/3, signature 0/3". Empty when nothing is missing.
func shortfall(counts map[string]int64, minCopies int) string {
	var parts []string
	for _, t := range model.RequiredForCompletion {
		if n := counts[t]; n < int64(minCopies) {
			parts = append(parts, fmt.Sprintf("%s %d/%d", t, n, minCopies))
		}
	}
	return strings.Join(parts, ", ")
}

func (s *verificationService) Complete(ctx context.Context, actor *model.User, id uint) (*dto.VerificationResponse, error) {
	v, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.verifications.FindPurchaser(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Validation("Purchaser details are required before completing the verification")
		}
		return nil, err
	}
	counts, err := s.documents.CountByType(ctx, id, model.RequiredForCompletion)
	if err != nil {
		return nil, err
	}
	if missing := shortfall(counts, s.minCopies); missing != "" {
		return nil, apierror.Validation(fmt.Sprintf("minimum %d copies required: %s", s.minCopies, missing))
	}

	end := s.now()
	v.Status = model.VerificationStatusCompleted
	v.EndTime = &end
	// completion always reopens the decision
	v.IsApproved = nil
	v.AdminRemarks = nil
	v.ApprovedByUserID = nil
	v.ApprovedAt = nil

	err = runTx(ctx, s.verifications.DB(), func(tx *gorm.DB) error {
		if err := s.verifications.Update(ctx, tx, v); err != nil {
			return err
		}
		_, err := s.orders.UpdateStatus(ctx, tx, v.OrderID, model.OrderStatusCompleted)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.VerificationsCompleted.Inc()
	return s.Get(ctx, id)
}

func (s *verificationService) Approve(ctx context.Context, approver *model.User, id uint, req dto.ApproveRequest) (*dto.VerificationResponse, error) {
	if req.IsApproved == nil {
		return nil, apierror.ValidationField("is_approved", "is_approved is required")
	}
	v, err := s.verifications.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Verification not found")
	}
	if !v.IsCompleted() {
		return nil, apierror.Conflict("Verification must be completed before approval")
	}

	decision := *req.IsApproved
	at := s.now()
	v.IsApproved = &decision
	v.AdminRemarks = trimmedPtr(req.AdminRemarks)
	v.ApprovedByUserID = &approver.ID
	v.ApprovedAt = &at
	if err := s.verifications.Update(ctx, nil, v); err != nil {
		return nil, err
	}

	label := "rejected"
	if decision {
		label = "approved"
	}
	metrics.VerificationDecisions.WithLabelValues(label).Inc()
	return s.Get(ctx, id)
}

// ── Read ─────────────────────────────────────────────────────────────────────

func (s *verificationService) Get(ctx context.Context, id uint) (*dto.VerificationResponse, error) {
	v, err := s.verifications.FindGraph(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Verification not found")
	}
	resp := toVerificationResponse(v)
	return &resp, nil
}

func (s *verificationService) GetByOrder(ctx context.Context, orderID uint) (*dto.VerificationResponse, error) {
	v, err := s.verifications.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, notFoundOr(err, "Verification not found for this order")
	}
	resp := toVerificationResponse(v)
	return &resp, nil
}

func (s *verificationService) List(ctx context.Context, filter dto.VerificationFilter) (*dto.VerificationListResponse, error) {
	list, total, err := s.verifications.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := &dto.VerificationListResponse{
		Verifications: make([]dto.VerificationResponse, len(list)),
		Pagination:    dto.NewOffsetPage(filter.Page, filter.Limit, total),
	}
	for i := range list {
		resp.Verifications[i] = toVerificationResponse(&list[i])
	}
	return resp, nil
}

func (s *verificationService) Report(ctx context.Context, id uint) (string, error) {
	v, err := s.verifications.FindGraph(ctx, id)
	if err != nil {
		return "", notFoundOr(err, "Verification not found")
	}
	return infra.GenerateVerificationReport(v, s.reportPath)
}

// ── Sub-records ──────────────────────────────────────────────────────────────

// editable loads the verification and checks the actor owns it or is an
// administrator.
// editable allows the owner or an admin to change the record. Completed
// verifications stay editable; completing again reopens the decision.
func (s *verificationService) editable(ctx context.Context, actor *model.User, id uint) (*model.Verification, error) {
	v, err := s.verifications.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Verification not found")
	}
	if v.VerificationOfficerID != actor.ID && !actor.IsAdmin() {
		return nil, apierror.Forbidden("Only the verification officer or an administrator can modify this verification")
	}
	return v, nil
}

func (s *verificationService) UpsertPurchaser(ctx context.Context, actor *model.User, id uint, req dto.PurchaserRequest) (*dto.PurchaserResponse, error) {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return nil, err
	}
	p, err := s.verifications.FindPurchaser(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		p = &model.PurchaserVerification{}
	}
	p.VerificationID = id
	mergeStr(&p.Name, req.Name)
	mergeStr(&p.FatherHusbandName, req.FatherHusbandName)
	mergeStr(&p.PresentAddress, req.PresentAddress)
	mergeStr(&p.PermanentAddress, req.PermanentAddress)
	mergeStr(&p.CNICNumber, req.CNICNumber)
	mergeStr(&p.TelephoneNumber, req.TelephoneNumber)
	mergeStr(&p.EmployerName, req.EmployerName)
	mergeStr(&p.EmployerAddress, req.EmployerAddress)
	mergeStr(&p.Designation, req.Designation)
	mergeStr(&p.OfficialNumber, req.OfficialNumber)
	mergeStr(&p.YearsInCompany, req.YearsInCompany)
	mergeStr(&p.GrossSalary, req.GrossSalary)

	if err := s.verifications.UpsertPurchaser(ctx, p); err != nil {
		return nil, err
	}
	return toPurchaserResponse(p), nil
}

func (s *verificationService) UpsertGrantor(ctx context.Context, actor *model.User, id uint, number int, req dto.GrantorRequest) (*dto.GrantorResponse, error) {
	if number != 1 && number != 2 {
		return nil, apierror.ValidationField("grantor_number", "grantor number must be 1 or 2")
	}
	if _, err := s.editable(ctx, actor, id); err != nil {
		return nil, err
	}
	g, err := s.verifications.FindGrantor(ctx, id, number)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		g = &model.GrantorVerification{}
	}
	g.VerificationID = id
	g.GrantorNumber = number
	mergeStr(&g.Name, req.Name)
	mergeStr(&g.FatherHusbandName, req.FatherHusbandName)
	mergeStr(&g.PresentAddress, req.PresentAddress)
	mergeStr(&g.PermanentAddress, req.PermanentAddress)
	mergeStr(&g.CNICNumber, req.CNICNumber)
	mergeStr(&g.TelephoneNumber, req.TelephoneNumber)
	mergeStr(&g.Designation, req.Designation)
	mergeStr(&g.OfficialNumber, req.OfficialNumber)
	mergeStr(&g.OfficeAddress, req.OfficeAddress)
	mergeStr(&g.CompanyName, req.CompanyName)
	mergeStr(&g.YearsInCompany, req.YearsInCompany)
	mergeStr(&g.MonthlyIncome, req.MonthlyIncome)
	mergeStr(&g.FullResidentialAddress, req.FullResidentialAddress)
	mergeStr(&g.Relationship, req.Relationship)

	if err := s.verifications.UpsertGrantor(ctx, g); err != nil {
		return nil, err
	}
	resp := toGrantorResponse(g)
	return &resp, nil
}

func (s *verificationService) UpsertNextOfKin(ctx context.Context, actor *model.User, id uint, req dto.NextOfKinRequest) (*dto.NextOfKinResponse, error) {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return nil, err
	}
	k, err := s.verifications.FindNextOfKin(ctx, id)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		k = &model.NextOfKin{}
	}
	k.VerificationID = id
	mergeStr(&k.Name, req.Name)
	mergeStr(&k.CNICNumber, req.CNICNumber)
	mergeStr(&k.Relation, req.Relation)
	mergeStr(&k.PhoneNumber, req.PhoneNumber)

	if err := s.verifications.UpsertNextOfKin(ctx, k); err != nil {
		return nil, err
	}
	return toNextOfKinResponse(k), nil
}

func parseCoordinate(field string, raw json.Number, limit float64) (float64, error) {
	v, err := raw.Float64()
	if err != nil {
		return 0, apierror.ValidationField(field, field+" must be a number")
	}
	if v < -limit || v > limit {
		return 0, apierror.ValidationField(field, fmt.Sprintf("%s must be between %g and %g", field, -limit, limit))
	}
	return v, nil
}

func (s *verificationService) AddLocation(ctx context.Context, actor *model.User, id uint, req dto.LocationRequest) (*dto.LocationResponse, error) {
	lat, err := parseCoordinate("latitude", req.Latitude, 90)
	if err != nil {
		return nil, err
	}
	lng, err := parseCoordinate("longitude", req.Longitude, 180)
	if err != nil {
		return nil, err
	}
	var accuracy *float64
	if req.Accuracy != nil && req.Accuracy.String() != "" {
		a, err := req.Accuracy.Float64()
		if err != nil || a < 0 {
			return nil, apierror.ValidationField("accuracy", "accuracy must be a non-negative number")
		}
		accuracy = &a
	}
	if _, err := s.editable(ctx, actor, id); err != nil {
		return nil, err
	}

	l := &model.LocationTracking{
		VerificationID: id,
		Latitude:       lat,
		Longitude:      lng,
		Accuracy:       accuracy,
		Label:          trimmedPtr(req.Label),
		CapturedAt:     s.now(),
	}
	if err := s.verifications.AddLocation(ctx, l); err != nil {
		return nil, err
	}
	resp := toLocationResponse(l)
	return &resp, nil
}

// ── Documents ────────────────────────────────────────────────────────────────

func defaultLabel(documentType, personType string) string {
	if documentType == model.DocPhoto {
		return "Photo - " + personType
	}
	switch personType {
	case model.PersonPurchaser:
		return documentType + " - Purchaser"
	case model.PersonGrantor1, model.PersonGrantor2:
		return fmt.Sprintf("%s - Grantor %d", documentType, model.GrantorNumberOf(personType))
	}
	return documentType + " - Other"
}

// UploadDocument stores the file, records the document and mirrors its URL
// onto the owning purchaser or grantor slot in one transaction.
func (s *verificationService) UploadDocument(ctx context.Context, actor *model.User, id uint, in dto.UploadInput, r io.Reader) (*dto.DocumentResponse, error) {
	if !model.ValidDocumentType(in.DocumentType) {
		return nil, apierror.ValidationField("document_type", "invalid document type")
	}
	if !model.ValidPersonType(in.PersonType) {
		return nil, apierror.ValidationField("person_type", "invalid person type")
	}
	if _, err := s.editable(ctx, actor, id); err != nil {
		return nil, err
	}

	// the owning sub-record must exist before any bytes are stored
	var personID *uint
	grantorNumber := model.GrantorNumberOf(in.PersonType)
	switch {
	case in.PersonType == model.PersonPurchaser:
		p, err := s.verifications.FindPurchaser(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.Validation("Purchaser details must be saved before uploading purchaser documents")
			}
			return nil, err
		}
		personID = &p.ID
	case grantorNumber > 0:
		g, err := s.verifications.FindGrantor(ctx, id, grantorNumber)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.Validation(fmt.Sprintf("Grantor %d details must be saved before uploading their documents", grantorNumber))
			}
			return nil, err
		}
		personID = &g.ID
	}

	label := strings.TrimSpace(in.Label)
	if label == "" {
		label = defaultLabel(in.DocumentType, in.PersonType)
	}

	key := fmt.Sprintf("verifications/%d/%s%s", id, uuid.NewString(), strings.ToLower(filepath.Ext(in.FileName)))
	url, err := s.storage.Save(ctx, key, r, in.ContentType)
	if err != nil {
		return nil, err
	}

	doc := &model.VerificationDocument{
		VerificationID:   id,
		PersonType:       in.PersonType,
		PersonID:         personID,
		DocumentType:     in.DocumentType,
		FileURL:          url,
		Label:            label,
		UploadedByUserID: actor.ID,
		UploadedAt:       s.now(),
	}
	err = runTx(ctx, s.documents.DB(), func(tx *gorm.DB) error {
		if err := s.documents.Create(ctx, tx, doc); err != nil {
			return err
		}
		column, ok := model.SlotColumn(in.DocumentType)
		if !ok || personID == nil {
			return nil
		}
		return s.documents.MirrorSlot(ctx, tx, id, grantorNumber, column, url)
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			log.Warn().Err(delErr).Str("key", key).Msg("failed to remove orphaned upload")
		}
		return nil, err
	}

	metrics.DocumentsUploaded.WithLabelValues(in.DocumentType).Inc()
	resp := toDocumentResponse(doc)
	return &resp, nil
}

func (s *verificationService) DeleteDocument(ctx context.Context, actor *model.User, documentID uint) error {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		return notFoundOr(err, "Document not found")
	}
	v, err := s.verifications.FindByID(ctx, doc.VerificationID)
	if err != nil {
		return notFoundOr(err, "Verification not found")
	}
	if v.VerificationOfficerID != actor.ID && !actor.IsAdmin() {
		return apierror.Forbidden("Only the verification officer or an administrator can delete documents")
	}
	return s.documents.Delete(ctx, documentID)
}
