package dto

// Login partitions. Web clients serve staff; the app serves field officers.
const (
	PartitionWeb = "web"
	PartitionApp = "app"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Username string  `json:"username"  validate:"required,min=1"`
	Password string  `json:"password"  validate:"required,min=1"`
	DeviceID *string `json:"device_id" validate:"omitempty,max=255"`
}

type SignupRequest struct {
	FullName string  `json:"full_name" validate:"required,min=2,max=150"`
	Username string  `json:"username"  validate:"required,min=3,max=100"`
	Password string  `json:"password"  validate:"required,min=6"`
	RoleID   uint    `json:"role_id"   validate:"required"`
	Email    *string `json:"email"     validate:"omitempty,email"`
	CNIC     *string `json:"cnic"      validate:"omitempty,max=20"`
	Phone    *string `json:"phone"     validate:"omitempty,max=20"`
}

type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=150"`
	Email    *string `json:"email"     validate:"omitempty,email"`
	Phone    *string `json:"phone"     validate:"omitempty,max=20"`
	Bio      *string `json:"bio"       validate:"omitempty,max=1000"`
}

type PushTokenRequest struct {
	FCMToken string `json:"fcm_token" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type RoleResponse struct {
	ID          uint                   `json:"id"`
	Name        string                 `json:"name"`
	Permissions map[string]interface{} `json:"permissions"`
}

type UserResponse struct {
	ID            uint                   `json:"id"`
	FullName      string                 `json:"full_name"`
	Username      string                 `json:"username"`
	Email         *string                `json:"email"`
	CNIC          *string                `json:"cnic"`
	Phone         *string                `json:"phone"`
	Status        string                 `json:"status"`
	Role          *RoleResponse          `json:"role"`
	Bio           *string                `json:"bio"`
	AvatarURL     *string                `json:"avatar_url"`
	CoverImageURL *string                `json:"cover_image_url"`
	Permissions   map[string]interface{} `json:"permissions"`
	CreatedAt     string                 `json:"created_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresIn int          `json:"expires_in"` // seconds
	User      UserResponse `json:"user"`
}
