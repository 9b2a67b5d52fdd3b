package dto

// UserFilter is bound from the query string of GET /v1/users.
type UserFilter struct {
	Search string `form:"search"`
	RoleID uint   `form:"role_id"`
	Status string `form:"status" validate:"omitempty,oneof=active inactive"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

type EditUserRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=2,max=150"`
	Username *string `json:"username"  validate:"omitempty,min=3,max=100"`
	Email    *string `json:"email"     validate:"omitempty,email"`
	CNIC     *string `json:"cnic"      validate:"omitempty,max=20"`
	Phone    *string `json:"phone"     validate:"omitempty,max=20"`
	RoleID   *uint   `json:"role_id"`
	Password *string `json:"password"  validate:"omitempty,min=6"`
}

type UpdatePermissionsRequest struct {
	Permissions map[string]interface{} `json:"permissions" validate:"required"`
}

type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination OffsetPage     `json:"pagination"`
}

// OfficerWorkload is an active verification officer with the number of
// orders currently assigned and still open.
type OfficerWorkload struct {
	ID              uint    `json:"id"`
	FullName        string  `json:"full_name"`
	Username        string  `json:"username"`
	Phone           *string `json:"phone"`
	OpenAssignments int64   `json:"open_assignments"`
}
