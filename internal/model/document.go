package model

// Document types accepted on upload.
const (
	DocCNICFront   = "cnic_front"
	DocCNICBack    = "cnic_back"
	DocUtilityBill = "utility_bill"
	DocServiceCard = "service_card"
	DocSignature   = "signature"
	DocPhoto       = "photo"
	DocOther       = "other"
)

// Person types a document can belong to.
const (
	PersonPurchaser = "purchaser"
	PersonGrantor1  = "grantor1"
	PersonGrantor2  = "grantor2"
	PersonOther     = "other"
)

var documentTypes = map[string]bool{
	DocCNICFront: true, DocCNICBack: true, DocUtilityBill: true, DocServiceCard: true,
	DocSignature: true, DocPhoto: true, DocOther: true,
}

var personTypes = map[string]bool{
	PersonPurchaser: true, PersonGrantor1: true, PersonGrantor2: true, PersonOther: true,
}

func ValidDocumentType(t string) bool { return documentTypes[t] }

func ValidPersonType(t string) bool { return personTypes[t] }

// GrantorNumberOf returns 1 or 2 for grantor person types and 0 otherwise.
func GrantorNumberOf(personType string) int {
	switch personType {
	case PersonGrantor1:
		return 1
	case PersonGrantor2:
		return 2
	}
	return 0
}

// GrantorPersonType is the inverse of GrantorNumberOf.
func GrantorPersonType(n int) string {
	if n == 2 {
		return PersonGrantor2
	}
	return PersonGrantor1
}

// DocumentSlots are the per-type URL columns shared by the purchaser and
// grantor tables. They mirror the latest upload of each type.
type DocumentSlots struct {
	CNICFrontURL   *string `gorm:"column:cnic_front_url"`
	CNICBackURL    *string `gorm:"column:cnic_back_url"`
	UtilityBillURL *string `gorm:"column:utility_bill_url"`
	ServiceCardURL *string `gorm:"column:service_card_url"`
	SignatureURL   *string `gorm:"column:signature_url"`
}

type documentSlot struct {
	column string
	field  func(*DocumentSlots) **string
}

var documentSlotMap = map[string]documentSlot{
	DocCNICFront:   {"cnic_front_url", func(s *DocumentSlots) **string { return &s.CNICFrontURL }},
	DocCNICBack:    {"cnic_back_url", func(s *DocumentSlots) **string { return &s.CNICBackURL }},
	DocUtilityBill: {"utility_bill_url", func(s *DocumentSlots) **string { return &s.UtilityBillURL }},
	DocServiceCard: {"service_card_url", func(s *DocumentSlots) **string { return &s.ServiceCardURL }},
	DocSignature:   {"signature_url", func(s *DocumentSlots) **string { return &s.SignatureURL }},
}

// SlotColumn returns the column mirrored for documentType, if any.
func SlotColumn(documentType string) (string, bool) {
	slot, ok := documentSlotMap[documentType]
	return slot.column, ok
}

// Mirror stores url in the slot for documentType. It reports false when
// the type has no slot.
func (s *DocumentSlots) Mirror(documentType, url string) bool {
	slot, ok := documentSlotMap[documentType]
	if !ok {
		return false
	}
	u := url
	*slot.field(s) = &u
	return true
}

// RequiredForCompletion lists the document types counted by completion.
var RequiredForCompletion = []string{DocCNICFront, DocCNICBack, DocSignature}
