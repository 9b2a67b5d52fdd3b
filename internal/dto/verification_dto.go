package dto

import "encoding/json"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type StartVerificationRequest struct {
	OrderID uint `json:"order_id" validate:"required"`
}

type PurchaserRequest struct {
	Name              *string `json:"name"`
	FatherHusbandName *string `json:"father_husband_name"`
	PresentAddress    *string `json:"present_address"`
	PermanentAddress  *string `json:"permanent_address"`
	CNICNumber        *string `json:"cnic_number"`
	TelephoneNumber   *string `json:"telephone_number"`
	EmployerName      *string `json:"employer_name"`
	EmployerAddress   *string `json:"employer_address"`
	Designation       *string `json:"designation"`
	OfficialNumber    *string `json:"official_number"`
	YearsInCompany    *string `json:"years_in_company"`
	GrossSalary       *string `json:"gross_salary"`
}

type GrantorRequest struct {
	Name                   *string `json:"name"`
	FatherHusbandName      *string `json:"father_husband_name"`
	PresentAddress         *string `json:"present_address"`
	PermanentAddress       *string `json:"permanent_address"`
	CNICNumber             *string `json:"cnic_number"`
	TelephoneNumber        *string `json:"telephone_number"`
	Designation            *string `json:"designation"`
	OfficialNumber         *string `json:"official_number"`
	OfficeAddress          *string `json:"office_address"`
	CompanyName            *string `json:"company_name"`
	YearsInCompany         *string `json:"years_in_company"`
	MonthlyIncome          *string `json:"monthly_income"`
	FullResidentialAddress *string `json:"full_residential_address"`
	Relationship           *string `json:"relationship"`
}

type NextOfKinRequest struct {
	Name        *string `json:"name"`
	CNICNumber  *string `json:"cnic_number"`
	Relation    *string `json:"relation"`
	PhoneNumber *string `json:"phone_number"`
}

// LocationRequest accepts coordinates as JSON numbers or numeric strings.
type LocationRequest struct {
	Latitude  json.Number  `json:"latitude"`
	Longitude json.Number  `json:"longitude"`
	Accuracy  *json.Number `json:"accuracy"`
	Label     *string      `json:"label"`
}

type ApproveRequest struct {
	IsApproved   *bool   `json:"is_approved"   validate:"required"`
	AdminRemarks *string `json:"admin_remarks" validate:"omitempty,max=2000"`
}

// UploadInput is assembled by the upload handlers from the multipart form.
type UploadInput struct {
	PersonType   string
	DocumentType string
	Label        string
	FileName     string
	ContentType  string
	Size         int64
}

// VerificationFilter is bound from the query string of GET /v1/verifications.
type VerificationFilter struct {
	Status   string `form:"status"   validate:"omitempty,oneof=in_progress completed"`
	Approval string `form:"approval" validate:"omitempty,oneof=pending approved rejected"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=10" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DocumentSlotsResponse struct {
	CNICFrontURL   *string `json:"cnic_front_url"`
	CNICBackURL    *string `json:"cnic_back_url"`
	UtilityBillURL *string `json:"utility_bill_url"`
	ServiceCardURL *string `json:"service_card_url"`
	SignatureURL   *string `json:"signature_url"`
}

type PurchaserResponse struct {
	ID uint `json:"id"`
	PurchaserRequest
	DocumentSlotsResponse
}

type GrantorResponse struct {
	ID            uint `json:"id"`
	GrantorNumber int  `json:"grantor_number"`
	GrantorRequest
	DocumentSlotsResponse
}

type NextOfKinResponse struct {
	ID uint `json:"id"`
	NextOfKinRequest
}

type LocationResponse struct {
	ID         uint     `json:"id"`
	Latitude   float64  `json:"latitude"`
	Longitude  float64  `json:"longitude"`
	Accuracy   *float64 `json:"accuracy"`
	Label      *string  `json:"label"`
	CapturedAt string   `json:"captured_at"`
}

type DocumentResponse struct {
	ID             uint   `json:"id"`
	VerificationID uint   `json:"verification_id"`
	PersonType     string `json:"person_type"`
	PersonID       *uint  `json:"person_id"`
	DocumentType   string `json:"document_type"`
	FileURL        string `json:"file_url"`
	Label          string `json:"label"`
	UploadedAt     string `json:"uploaded_at"`
}

type VerificationResponse struct {
	ID                  uint               `json:"id"`
	OrderID             uint               `json:"order_id"`
	Order               *OrderResponse     `json:"order,omitempty"`
	VerificationOfficer *UserRef           `json:"verification_officer"`
	Status              string             `json:"status"`
	StartTime           string             `json:"start_time"`
	EndTime             *string            `json:"end_time"`
	IsApproved          *bool              `json:"is_approved"`
	AdminRemarks        *string            `json:"admin_remarks"`
	ApprovedBy          *UserRef           `json:"approved_by"`
	ApprovedAt          *string            `json:"approved_at"`
	Purchaser           *PurchaserResponse `json:"purchaser"`
	Grantors            []GrantorResponse  `json:"grantors"`
	NextOfKin           *NextOfKinResponse `json:"next_of_kin"`
	Locations           []LocationResponse `json:"locations"`
	Documents           []DocumentResponse `json:"documents"`
}

type VerificationListResponse struct {
	Verifications []VerificationResponse `json:"verifications"`
	Pagination    OffsetPage             `json:"pagination"`
}
