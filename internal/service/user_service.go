package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"qist/internal/apierror"
	"qist/internal/dto"
	"qist/internal/infra"
	"qist/internal/model"
	"qist/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Profile image kinds accepted by UploadProfileImage.
const (
	ImageAvatar = "avatar"
	ImageCover  = "cover"
)

type UserService interface {
	Signup(ctx context.Context, req dto.SignupRequest) (*dto.UserResponse, error)
	Me(ctx context.Context, userID uint) (*dto.UserResponse, error)
	UpdateProfile(ctx context.Context, userID uint, req dto.UpdateProfileRequest) (*dto.UserResponse, error)
	UploadProfileImage(ctx context.Context, userID uint, kind, fileName, contentType string, r io.Reader) (*dto.UserResponse, error)
	RegisterPushToken(ctx context.Context, userID uint, token string) error

	List(ctx context.Context, filter dto.UserFilter) (*dto.UserListResponse, error)
	Edit(ctx context.Context, actorID, id uint, req dto.EditUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, actorID, id uint) error
	ToggleStatus(ctx context.Context, actorID, id uint) (*dto.UserResponse, error)
	UpdatePermissions(ctx context.Context, actorID, id uint, perms map[string]interface{}) (*dto.UserResponse, error)
	ListOfficers(ctx context.Context) ([]dto.OfficerWorkload, error)
	ListRoles(ctx context.Context) ([]dto.RoleResponse, error)
}

type userService struct {
	users   repository.UserRepository
	roles   repository.RoleRepository
	storage infra.Storage
}

func NewUserService(users repository.UserRepository, roles repository.RoleRepository, storage infra.Storage) UserService {
	return &userService{users: users, roles: roles, storage: storage}
}

// uniqueField pairs a unique user column with its candidate value.
type uniqueField struct {
	name  string
	value *string
}

// checkUnique returns a field-named 409 for the first value already held by
// another user.
func (s *userService) checkUnique(ctx context.Context, excludeID uint, fields ...uniqueField) error {
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		taken, err := s.users.IsTaken(ctx, f.name, *f.value, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return apierror.ConflictField(f.name, f.name+" already exists")
		}
	}
	return nil
}

// userWriteErr turns a unique-index violation raced past checkUnique into
// the same field-named conflict.
func userWriteErr(err error) error {
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		field := dup.Field("users")
		return apierror.ConflictField(field, field+" already exists")
	}
	return err
}

func (s *userService) Signup(ctx context.Context, req dto.SignupRequest) (*dto.UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	fullName := strings.TrimSpace(req.FullName)
	if username == "" {
		return nil, apierror.ValidationField("username", "username is required")
	}
	if fullName == "" {
		return nil, apierror.ValidationField("full_name", "full_name is required")
	}
	email, cnic, phone := trimmedPtr(req.Email), trimmedPtr(req.CNIC), trimmedPtr(req.Phone)

	if err := s.checkUnique(ctx, 0,
		uniqueField{"username", &username},
		uniqueField{"email", email},
		uniqueField{"cnic", cnic},
		uniqueField{"phone", phone},
	); err != nil {
		return nil, err
	}

	role, err := s.roles.FindByID(ctx, req.RoleID)
	if err != nil {
		return nil, notFoundOr(err, "Role not found")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &model.User{
		FullName:     fullName,
		Username:     username,
		Email:        email,
		CNIC:         cnic,
		Phone:        phone,
		PasswordHash: hash,
		RoleID:       role.ID,
		Status:       model.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, userWriteErr(err)
	}
	user.Role = role
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) Me(ctx context.Context, userID uint) (*dto.UserResponse, error) {
	return s.reload(ctx, userID)
}

func (s *userService) reload(ctx context.Context, id uint) (*dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, req dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	fields := map[string]interface{}{}
	if fn := trimmedPtr(req.FullName); fn != nil {
		fields["full_name"] = *fn
	}
	email, phone := trimmedPtr(req.Email), trimmedPtr(req.Phone)
	if err := s.checkUnique(ctx, userID, uniqueField{"email", email}, uniqueField{"phone", phone}); err != nil {
		return nil, err
	}
	if email != nil {
		fields["email"] = *email
	}
	if phone != nil {
		fields["phone"] = *phone
	}
	if req.Bio != nil {
		fields["bio"] = strings.TrimSpace(*req.Bio)
	}
	if len(fields) > 0 {
		if err := s.users.UpdateFields(ctx, userID, fields); err != nil {
			return nil, userWriteErr(err)
		}
	}
	return s.reload(ctx, userID)
}

func (s *userService) UploadProfileImage(ctx context.Context, userID uint, kind, fileName, contentType string, r io.Reader) (*dto.UserResponse, error) {
	column := map[string]string{ImageAvatar: "avatar_url", ImageCover: "cover_image_url"}[kind]
	if column == "" {
		return nil, apierror.Validation("unknown image kind")
	}
	key := fmt.Sprintf("users/%d/%s-%s%s", userID, kind, uuid.NewString(), strings.ToLower(filepath.Ext(fileName)))
	url, err := s.storage.Save(ctx, key, r, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateFields(ctx, userID, map[string]interface{}{column: url}); err != nil {
		return nil, err
	}
	return s.reload(ctx, userID)
}

func (s *userService) RegisterPushToken(ctx context.Context, userID uint, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apierror.ValidationField("fcm_token", "fcm_token is required")
	}
	return s.users.UpdateFields(ctx, userID, map[string]interface{}{"fcm_token": token})
}

// ── Admin operations ─────────────────────────────────────────────────────────

func (s *userService) List(ctx context.Context, filter dto.UserFilter) (*dto.UserListResponse, error) {
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := &dto.UserListResponse{
		Users:      make([]dto.UserResponse, len(users)),
		Pagination: dto.NewOffsetPage(filter.Page, filter.Limit, total),
	}
	for i := range users {
		resp.Users[i] = toUserResponse(&users[i])
	}
	return resp, nil
}

func (s *userService) Edit(ctx context.Context, actorID, id uint, req dto.EditUserRequest) (*dto.UserResponse, error) {
	if actorID == id {
		return nil, apierror.Forbidden("You cannot edit your own account")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	username := trimmedPtr(req.Username)
	email, cnic, phone := trimmedPtr(req.Email), trimmedPtr(req.CNIC), trimmedPtr(req.Phone)
	if err := s.checkUnique(ctx, id,
		uniqueField{"username", username},
		uniqueField{"email", email},
		uniqueField{"cnic", cnic},
		uniqueField{"phone", phone},
	); err != nil {
		return nil, err
	}

	if fn := trimmedPtr(req.FullName); fn != nil {
		user.FullName = *fn
	}
	if username != nil {
		user.Username = *username
	}
	if email != nil {
		user.Email = email
	}
	if cnic != nil {
		user.CNIC = cnic
	}
	if phone != nil {
		user.Phone = phone
	}
	if req.RoleID != nil && *req.RoleID != user.RoleID {
		role, err := s.roles.FindByID(ctx, *req.RoleID)
		if err != nil {
			return nil, notFoundOr(err, "Role not found")
		}
		user.RoleID = role.ID
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, userWriteErr(err)
	}
	return s.reload(ctx, id)
}

func (s *userService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return apierror.Forbidden("You cannot delete your own account")
	}
	err := s.users.Delete(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierror.NotFound("User not found")
	case errors.Is(err, repository.ErrForeignKey):
		return apierror.Conflict("User is referenced by orders or verifications and cannot be deleted")
	}
	return err
}

func (s *userService) ToggleStatus(ctx context.Context, actorID, id uint) (*dto.UserResponse, error) {
	if actorID == id {
		return nil, apierror.Forbidden("You cannot change the status of your own account")
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	fields := map[string]interface{}{"status": model.UserStatusActive}
	if user.IsActive() {
		fields["status"] = model.UserStatusInactive
		fields["device_id"] = nil
	}
	if err := s.users.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *userService) UpdatePermissions(ctx context.Context, actorID, id uint, perms map[string]interface{}) (*dto.UserResponse, error) {
	if actorID == id {
		return nil, apierror.Forbidden("You cannot change your own permissions")
	}
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	if err := s.users.UpdateFields(ctx, id, map[string]interface{}{"permissions": datatypes.JSONMap(perms)}); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

func (s *userService) ListOfficers(ctx context.Context) ([]dto.OfficerWorkload, error) {
	officers, err := s.users.ListActiveOfficers(ctx, nil)
	if err != nil {
		return nil, err
	}
	counts, err := s.users.OpenAssignmentCounts(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OfficerWorkload, len(officers))
	for i, o := range officers {
		out[i] = dto.OfficerWorkload{
			ID:              o.ID,
			FullName:        o.FullName,
			Username:        o.Username,
			Phone:           o.Phone,
			OpenAssignments: counts[o.ID],
		}
	}
	return out, nil
}

func (s *userService) ListRoles(ctx context.Context) ([]dto.RoleResponse, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RoleResponse, len(roles))
	for i, r := range roles {
		out[i] = dto.RoleResponse{ID: r.ID, Name: r.Name, Permissions: r.Permissions}
	}
	return out, nil
}
