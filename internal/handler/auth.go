package handler

import (
	"net/http"

	"qist/internal/dto"
	"qist/internal/middleware"
	"qist/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth  service.AuthService
	users service.UserService
}

func NewAuthHandler(auth service.AuthService, users service.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// LoginWeb godoc
// @Summary Staff login for the web console
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credentials"
// @Success 200 {object} apierror.Envelope{data=dto.LoginResponse}
// @Failure 401 {object} apierror.Envelope
// @Failure 403 {object} apierror.Envelope
// @Router /v1/auth/login [post]
func (h *AuthHandler) LoginWeb(c *gin.Context) { h.login(c, dto.PartitionWeb) }

// LoginApp godoc
// @Summary Verification officer login for the mobile app
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credentials and device_id"
// @Success 200 {object} apierror.Envelope{data=dto.LoginResponse}
// @Failure 401 {object} apierror.Envelope
// @Failure 403 {object} apierror.Envelope
// @Router /v1/auth/app/login [post]
func (h *AuthHandler) LoginApp(c *gin.Context) { h.login(c, dto.PartitionApp) }

func (h *AuthHandler) login(c *gin.Context, partition string) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), partition, req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Login successful", resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.CurrentUser(c).ID); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Logged out", nil)
}

// Signup godoc
// @Summary Create a staff account (Super Admin only)
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SignupRequest true "New user"
// @Success 201 {object} apierror.Envelope{data=dto.UserResponse}
// @Failure 409 {object} apierror.Envelope
// @Router /v1/auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.users.Signup(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "User created", resp)
}
