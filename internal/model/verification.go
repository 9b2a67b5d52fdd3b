package model

import "time"

const (
	VerificationStatusInProgress = "in_progress"
	VerificationStatusCompleted  = "completed"
)

// Verification is the field check of one order. OrderID is unique.
// IsApproved is nil while the decision is pending.
type Verification struct {
	ID                    uint `gorm:"primaryKey"`
	OrderID               uint `gorm:"uniqueIndex:uni_verifications_order_id;not null"`
	Order                 *Order
	VerificationOfficerID uint   `gorm:"not null;index"`
	VerificationOfficer   *User  `gorm:"foreignKey:VerificationOfficerID"`
	Status                string `gorm:"type:varchar(20);not null;default:in_progress"`
	StartTime             time.Time
	EndTime               *time.Time
	IsApproved            *bool
	AdminRemarks          *string
	ApprovedByUserID      *uint
	ApprovedBy            *User `gorm:"foreignKey:ApprovedByUserID"`
	ApprovedAt            *time.Time

	Purchaser *PurchaserVerification `gorm:"foreignKey:VerificationID"`
	Grantors  []GrantorVerification  `gorm:"foreignKey:VerificationID"`
	NextOfKin *NextOfKin             `gorm:"foreignKey:VerificationID"`
	Locations []LocationTracking     `gorm:"foreignKey:VerificationID"`
	Documents []VerificationDocument `gorm:"foreignKey:VerificationID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v *Verification) IsCompleted() bool { return v.Status == VerificationStatusCompleted }

// PurchaserVerification holds the buyer's details. One per verification.
type PurchaserVerification struct {
	ID                uint `gorm:"primaryKey"`
	VerificationID    uint `gorm:"uniqueIndex:uni_purchaser_verifications_verification_id;not null"`
	Name              *string
	FatherHusbandName *string
	PresentAddress    *string
	PermanentAddress  *string
	CNICNumber        *string `gorm:"column:cnic_number"`
	TelephoneNumber   *string
	EmployerName      *string
	EmployerAddress   *string
	Designation       *string
	OfficialNumber    *string
	YearsInCompany    *string
	GrossSalary       *string
	DocumentSlots     `gorm:"embedded"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// GrantorVerification holds one guarantor, numbered 1 or 2.
type GrantorVerification struct {
	ID                     uint `gorm:"primaryKey"`
	VerificationID         uint `gorm:"uniqueIndex:uni_grantor_verifications_slot;not null"`
	GrantorNumber          int  `gorm:"uniqueIndex:uni_grantor_verifications_slot;not null"`
	Name                   *string
	FatherHusbandName      *string
	PresentAddress         *string
	PermanentAddress       *string
	CNICNumber             *string `gorm:"column:cnic_number"`
	TelephoneNumber        *string
	Designation            *string
	OfficialNumber         *string
	OfficeAddress          *string
	CompanyName            *string
	YearsInCompany         *string
	MonthlyIncome          *string
	FullResidentialAddress *string
	Relationship           *string
	DocumentSlots          `gorm:"embedded"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NextOfKin is the emergency contact. One per verification.
type NextOfKin struct {
	ID             uint `gorm:"primaryKey"`
	VerificationID uint `gorm:"uniqueIndex:uni_next_of_kins_verification_id;not null"`
	Name           *string
	CNICNumber     *string `gorm:"column:cnic_number"`
	Relation       *string
	PhoneNumber    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// LocationTracking is an append-only GPS sample.
type LocationTracking struct {
	ID             uint    `gorm:"primaryKey"`
	VerificationID uint    `gorm:"not null;index"`
	Latitude       float64 `gorm:"not null"`
	Longitude      float64 `gorm:"not null"`
	Accuracy       *float64
	Label          *string
	CapturedAt     time.Time `gorm:"not null;index"`
}

// TableName keeps the historical table name.
func (LocationTracking) TableName() string { return "location_tracking" }

// VerificationDocument is an append-only upload record.
type VerificationDocument struct {
	ID               uint   `gorm:"primaryKey"`
	VerificationID   uint   `gorm:"not null;index"`
	PersonType       string `gorm:"type:varchar(20);not null"`
	PersonID         *uint
	DocumentType     string `gorm:"type:varchar(20);not null;index"`
	FileURL          string `gorm:"not null"`
	Label            string
	UploadedByUserID uint `gorm:"not null"`
	UploadedAt       time.Time
}
