package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"qist/internal/apierror"
	"qist/internal/config"
	"qist/internal/dto"
	"qist/internal/model"
	"qist/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, partition string, req dto.LoginRequest) (*dto.LoginResponse, error)
	Logout(ctx context.Context, userID uint) error
	// Authenticate resolves a bearer token to the current stored user.
	// Role and device binding always come from the database, never from claims.
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type authService struct {
	users repository.UserRepository
	cfg   *config.Config
	now   func() time.Time
}

func NewAuthService(users repository.UserRepository, cfg *config.Config) AuthService {
	return &authService{users: users, cfg: cfg, now: time.Now}
}

func (s *authService) Login(ctx context.Context, partition string, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Unauthorized("Invalid username or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apierror.Unauthorized("Invalid username or password")
	}
	if !user.IsActive() {
		return nil, apierror.Forbidden("Account is inactive")
	}

	deviceID := ""
	switch partition {
	case dto.PartitionApp:
		if !user.IsVerificationOfficer() {
			return nil, apierror.Forbidden("Only verification officers can sign in to the app")
		}
		if req.DeviceID == nil || strings.TrimSpace(*req.DeviceID) == "" {
			return nil, apierror.ValidationField("device_id", "device_id is required")
		}
		deviceID = strings.TrimSpace(*req.DeviceID)
		// the latest login owns the device binding
		if err := s.users.UpdateFields(ctx, user.ID, map[string]interface{}{"device_id": deviceID}); err != nil {
			return nil, err
		}
		user.DeviceID = &deviceID
	default:
		if user.IsVerificationOfficer() {
			return nil, apierror.Forbidden("Verification officers must sign in through the app")
		}
	}

	token, err := s.generateToken(user.ID, deviceID)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: s.cfg.JWTExpirationHours * 3600,
		User:      toUserResponse(user),
	}, nil
}

func (s *authService) Logout(ctx context.Context, userID uint) error {
	return s.users.UpdateFields(ctx, userID, map[string]interface{}{"device_id": nil})
}

func (s *authService) Authenticate(ctx context.Context, tokenStr string) (*model.User, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, apierror.Unauthorized("Invalid or expired token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.Unauthorized("Invalid token claims")
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return nil, apierror.Unauthorized("Malformed token")
	}

	user, err := s.users.FindByID(ctx, uint(rawID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Unauthorized("User no longer exists")
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, apierror.Forbidden("Account is inactive")
	}

	if deviceID, _ := claims["device_id"].(string); deviceID != "" {
		if user.DeviceID == nil || *user.DeviceID != deviceID {
			return nil, apierror.Unauthorized("Session was opened on another device")
		}
	}
	return user, nil
}

func (s *authService) generateToken(userID uint, deviceID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":   userID,
		"device_id": deviceID,
		"iat":       now.Unix(),
		"exp":       now.Add(s.cfg.TokenTTL()).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
