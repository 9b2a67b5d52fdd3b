package service

import (
	"time"

	"qist/internal/dto"
	"qist/internal/model"
)

// ── Model → DTO mapping ──────────────────────────────────────────────────────

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:            u.ID,
		FullName:      u.FullName,
		Username:      u.Username,
		Email:         u.Email,
		CNIC:          u.CNIC,
		Phone:         u.Phone,
		Status:        u.Status,
		Bio:           u.Bio,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		Permissions:   u.EffectivePermissions(),
		CreatedAt:     formatTime(u.CreatedAt),
	}
	if u.Role != nil {
		resp.Role = &dto.RoleResponse{ID: u.Role.ID, Name: u.Role.Name, Permissions: u.Role.Permissions}
	}
	return resp
}

func toUserRef(u *model.User) *dto.UserRef {
	if u == nil {
		return nil
	}
	return &dto.UserRef{ID: u.ID, FullName: u.FullName, Username: u.Username}
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:             o.ID,
		OrderRef:       o.OrderRef,
		TokenNumber:    o.TokenNumber,
		CustomerName:   o.CustomerName,
		WhatsappNumber: o.WhatsappNumber,
		Address:        o.Address,
		City:           o.City,
		Area:           o.Area,
		ProductName:    o.ProductName,
		TotalAmount:    o.TotalAmount,
		AdvanceAmount:  o.AdvanceAmount,
		MonthlyAmount:  o.MonthlyAmount,
		Months:         o.Months,
		OrderChannel:   o.OrderChannel,
		Status:         o.Status,
		CreatedBy:      toUserRef(o.CreatedBy),
		AssignedTo:     toUserRef(o.AssignedTo),
		CreatedAt:      formatTime(o.CreatedAt),
		UpdatedAt:      formatTime(o.UpdatedAt),
	}
}

func toOrderResponses(orders []model.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

func toSlotsResponse(s model.DocumentSlots) dto.DocumentSlotsResponse {
	return dto.DocumentSlotsResponse{
		CNICFrontURL:   s.CNICFrontURL,
		CNICBackURL:    s.CNICBackURL,
		UtilityBillURL: s.UtilityBillURL,
		ServiceCardURL: s.ServiceCardURL,
		SignatureURL:   s.SignatureURL,
	}
}

func toPurchaserResponse(p *model.PurchaserVerification) *dto.PurchaserResponse {
	if p == nil {
		return nil
	}
	return &dto.PurchaserResponse{
		ID: p.ID,
		PurchaserRequest: dto.PurchaserRequest{
			Name:              p.Name,
			FatherHusbandName: p.FatherHusbandName,
			PresentAddress:    p.PresentAddress,
			PermanentAddress:  p.PermanentAddress,
			CNICNumber:        p.CNICNumber,
			TelephoneNumber:   p.TelephoneNumber,
			EmployerName:      p.EmployerName,
			EmployerAddress:   p.EmployerAddress,
			Designation:       p.Designation,
			OfficialNumber:    p.OfficialNumber,
			YearsInCompany:    p.YearsInCompany,
			GrossSalary:       p.GrossSalary,
		},
		DocumentSlotsResponse: toSlotsResponse(p.DocumentSlots),
	}
}

func toGrantorResponse(g *model.GrantorVerification) dto.GrantorResponse {
	return dto.GrantorResponse{
		ID:            g.ID,
		GrantorNumber: g.GrantorNumber,
		GrantorRequest: dto.GrantorRequest{
			Name:                   g.Name,
			FatherHusbandName:      g.FatherHusbandName,
			PresentAddress:         g.PresentAddress,
			PermanentAddress:       g.PermanentAddress,
			CNICNumber:             g.CNICNumber,
			TelephoneNumber:        g.TelephoneNumber,
			Designation:            g.Designation,
			OfficialNumber:         g.OfficialNumber,
			OfficeAddress:          g.OfficeAddress,
			CompanyName:            g.CompanyName,
			YearsInCompany:         g.YearsInCompany,
			MonthlyIncome:          g.MonthlyIncome,
			FullResidentialAddress: g.FullResidentialAddress,
			Relationship:           g.Relationship,
		},
		DocumentSlotsResponse: toSlotsResponse(g.DocumentSlots),
	}
}

func toNextOfKinResponse(k *model.NextOfKin) *dto.NextOfKinResponse {
	if k == nil {
		return nil
	}
	return &dto.NextOfKinResponse{
		ID: k.ID,
		NextOfKinRequest: dto.NextOfKinRequest{
			Name:        k.Name,
			CNICNumber:  k.CNICNumber,
			Relation:    k.Relation,
			PhoneNumber: k.PhoneNumber,
		},
	}
}

func toLocationResponse(l *model.LocationTracking) dto.LocationResponse {
	return dto.LocationResponse{
		ID:         l.ID,
		Latitude:   l.Latitude,
		Longitude:  l.Longitude,
		Accuracy:   l.Accuracy,
		Label:      l.Label,
		CapturedAt: formatTime(l.CapturedAt),
	}
}

func toDocumentResponse(d *model.VerificationDocument) dto.DocumentResponse {
	return dto.DocumentResponse{
		ID:             d.ID,
		VerificationID: d.VerificationID,
		PersonType:     d.PersonType,
		PersonID:       d.PersonID,
		DocumentType:   d.DocumentType,
		FileURL:        d.FileURL,
		Label:          d.Label,
		UploadedAt:     formatTime(d.UploadedAt),
	}
}

func toVerificationResponse(v *model.Verification) dto.VerificationResponse {
	resp := dto.VerificationResponse{
		ID:                  v.ID,
		OrderID:             v.OrderID,
		VerificationOfficer: toUserRef(v.VerificationOfficer),
		Status:              v.Status,
		StartTime:           formatTime(v.StartTime),
		EndTime:             formatTimePtr(v.EndTime),
		IsApproved:          v.IsApproved,
		AdminRemarks:        v.AdminRemarks,
		ApprovedBy:          toUserRef(v.ApprovedBy),
		ApprovedAt:          formatTimePtr(v.ApprovedAt),
		Purchaser:           toPurchaserResponse(v.Purchaser),
		NextOfKin:           toNextOfKinResponse(v.NextOfKin),
		Grantors:            make([]dto.GrantorResponse, len(v.Grantors)),
		Locations:           make([]dto.LocationResponse, len(v.Locations)),
		Documents:           make([]dto.DocumentResponse, len(v.Documents)),
	}
	if v.Order != nil {
		o := toOrderResponse(v.Order)
		resp.Order = &o
	}
	for i := range v.Grantors {
		resp.Grantors[i] = toGrantorResponse(&v.Grantors[i])
	}
	for i := range v.Locations {
		resp.Locations[i] = toLocationResponse(&v.Locations[i])
	}
	for i := range v.Documents {
		resp.Documents[i] = toDocumentResponse(&v.Documents[i])
	}
	return resp
}
