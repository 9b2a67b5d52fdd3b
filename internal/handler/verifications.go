package handler

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"qist/internal/apierror"
	"qist/internal/dto"
	"qist/internal/middleware"
	"qist/internal/model"
	"qist/internal/service"

	"github.com/gin-gonic/gin"
)

type VerificationsHandler struct {
	svc            service.VerificationService
	maxUploadBytes int64
}

func NewVerificationsHandler(svc service.VerificationService, maxUploadBytes int64) *VerificationsHandler {
	return &VerificationsHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

// Start godoc
// @Summary Start the verification of an order
// @Tags verifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.StartVerificationRequest true "Order"
// @Success 201 {object} apierror.Envelope{data=dto.VerificationResponse}
// @Failure 404 {object} apierror.Envelope
// @Failure 409 {object} apierror.Envelope
// @Router /v1/verifications [post]
func (h *VerificationsHandler) Start(c *gin.Context) {
	var req dto.StartVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Start(c.Request.Context(), middleware.CurrentUser(c), req.OrderID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Verification started", resp)
}

func (h *VerificationsHandler) Get(c *gin.Context) {
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

func (h *VerificationsHandler) GetByOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

func (h *VerificationsHandler) List(c *gin.Context) {
	var filter dto.VerificationFilter
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

// ── Sub-records ──────────────────────────────────────────────────────────────

func (h *VerificationsHandler) UpsertPurchaser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.PurchaserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpsertPurchaser(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Purchaser saved", resp)
}

func grantorNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || (n != 1 && n != 2) {
		c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New(http.StatusBadRequest, "grantor number must be 1 or 2"))
		return 0, false
	}
	return n, true
}

func (h *VerificationsHandler) UpsertGrantor(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, ok := grantorNumber(c)
	if !ok {
		return
	}
	var req dto.GrantorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpsertGrantor(c.Request.Context(), middleware.CurrentUser(c), id, n, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, fmt.Sprintf("Grantor %d saved", n), resp)
}

func (h *VerificationsHandler) UpsertNextOfKin(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.NextOfKinRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpsertNextOfKin(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Next of kin saved", resp)
}

func (h *VerificationsHandler) AddLocation(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.LocationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddLocation(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Location recorded", resp)
}

// ── Documents ────────────────────────────────────────────────────────────────
// All upload routes take a multipart "file" plus optional "label". The
// generic route also reads "person_type" and "document_type".

func (h *VerificationsHandler) upload(c *gin.Context, in dto.UploadInput) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New(http.StatusBadRequest, "file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	in.FileName = filepath.Base(fh.Filename)
	in.ContentType = fh.Header.Get("Content-Type")
	in.Size = fh.Size
	in.Label = c.PostForm("label")

	resp, err := h.svc.UploadDocument(c.Request.Context(), middleware.CurrentUser(c), id, in, f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Document uploaded", resp)
}

func (h *VerificationsHandler) UploadDocument(c *gin.Context) {
	h.upload(c, dto.UploadInput{
		PersonType:   c.PostForm("person_type"),
		DocumentType: c.PostForm("document_type"),
	})
}

func (h *VerificationsHandler) UploadPurchaserDocument(c *gin.Context) {
	h.upload(c, dto.UploadInput{
		PersonType:   model.PersonPurchaser,
		DocumentType: c.PostForm("document_type"),
	})
}

func (h *VerificationsHandler) UploadGrantorDocument(c *gin.Context) {
	n, ok := grantorNumber(c)
	if !ok {
		return
	}
	h.upload(c, dto.UploadInput{
		PersonType:   model.GrantorPersonType(n),
		DocumentType: c.PostForm("document_type"),
	})
}

func (h *VerificationsHandler) UploadPhoto(c *gin.Context) {
	h.upload(c, dto.UploadInput{
		PersonType:   c.DefaultPostForm("person_type", model.PersonOther),
		DocumentType: model.DocPhoto,
	})
}

func (h *VerificationsHandler) UploadSignature(c *gin.Context) {
	h.upload(c, dto.UploadInput{
		PersonType:   c.PostForm("person_type"),
		DocumentType: model.DocSignature,
	})
}

func (h *VerificationsHandler) DeleteDocument(c *gin.Context) {
	docID, ok := paramID(c, "documentId")
	if !ok {
		return
	}
	if err := h.svc.DeleteDocument(c.Request.Context(), middleware.CurrentUser(c), docID); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Document deleted", nil)
}

// ── Decision ─────────────────────────────────────────────────────────────────

// Complete godoc
// @Summary Mark a verification completed
// @Description Requires a purchaser record and the minimum copies of cnic_front, cnic_back and signature.
// @Tags verifications
// @Produce json
// @Security BearerAuth
// @Param id path int true "Verification ID"
// @Success 200 {object} apierror.Envelope{data=dto.VerificationResponse}
// @Failure 400 {object} apierror.Envelope
// @Router /v1/verifications/{id}/complete [post]
func (h *VerificationsHandler) Complete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Complete(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Verification completed", resp)
}

// Approve godoc
// @Summary Record the admin decision on a completed verification
// @Tags verifications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Verification ID"
// @Param body body dto.ApproveRequest true "Decision"
// @Success 200 {object} apierror.Envelope{data=dto.VerificationResponse}
// @Failure 409 {object} apierror.Envelope
// @Router /v1/verifications/{id}/approve [post]
func (h *VerificationsHandler) Approve(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ApproveRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Approve(c.Request.Context(), middleware.CurrentUser(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Verification decision recorded", resp)
}

func (h *VerificationsHandler) Report(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	path, err := h.svc.Report(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
