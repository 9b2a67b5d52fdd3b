package handler

import (
	"net/http"

	"qist/internal/apierror"
	"qist/internal/dto"
	"qist/internal/middleware"
	"qist/internal/service"

	"github.com/gin-gonic/gin"
)

type UsersHandler struct{ svc service.UserService }

func NewUsersHandler(svc service.UserService) *UsersHandler { return &UsersHandler{svc: svc} }

// ── Own profile ──────────────────────────────────────────────────────────────

func (h *UsersHandler) Me(c *gin.Context) {
	resp, err := h.svc.Me(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

func (h *UsersHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateProfile(c.Request.Context(), middleware.CurrentUser(c).ID, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Profile updated", resp)
}

// UploadAvatar and UploadCover accept a multipart "image" file.
func (h *UsersHandler) UploadAvatar(c *gin.Context) { h.uploadImage(c, service.ImageAvatar) }

func (h *UsersHandler) UploadCover(c *gin.Context) { h.uploadImage(c, service.ImageCover) }

func (h *UsersHandler) uploadImage(c *gin.Context, kind string) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New(http.StatusBadRequest, "image file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	resp, err := h.svc.UploadProfileImage(c.Request.Context(), middleware.CurrentUser(c).ID,
		kind, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Image uploaded", resp)
}

func (h *UsersHandler) RegisterPushToken(c *gin.Context) {
	var req dto.PushTokenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if err := h.svc.RegisterPushToken(c.Request.Context(), middleware.CurrentUser(c).ID, req.FCMToken); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Push token registered", nil)
}

// ── Administration ───────────────────────────────────────────────────────────

// List godoc
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, username, email, cnic or phone"
// @Param role_id query int false "Role filter"
// @Param status query string false "active or inactive"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Page size (default 20, max 100)"
// @Success 200 {object} apierror.Envelope{data=dto.UserListResponse}
// @Router /v1/users [get]
func (h *UsersHandler) List(c *gin.Context) {
	var filter dto.UserFilter
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

func (h *UsersHandler) Edit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.EditUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Edit(c.Request.Context(), middleware.CurrentUser(c).ID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "User updated", resp)
}

func (h *UsersHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.CurrentUser(c).ID, id); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "User deleted", nil)
}

func (h *UsersHandler) ToggleStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ToggleStatus(c.Request.Context(), middleware.CurrentUser(c).ID, id)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "User status updated", resp)
}

func (h *UsersHandler) UpdatePermissions(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePermissionsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdatePermissions(c.Request.Context(), middleware.CurrentUser(c).ID, id, req.Permissions)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Permissions updated", resp)
}

func (h *UsersHandler) ListOfficers(c *gin.Context) {
	resp, err := h.svc.ListOfficers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}

func (h *UsersHandler) ListRoles(c *gin.Context) {
	resp, err := h.svc.ListRoles(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", resp)
}
