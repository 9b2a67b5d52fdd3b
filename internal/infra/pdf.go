package infra

// pdf.go: verification summary report rendered with go-pdf/fpdf.
// One A4 page per verification:
//   - order header (reference, token, customer, product, terms)
//   - purchaser, grantor and next-of-kin details
//   - document counts per type and the approval state
//
// The output file is saved to storagePath/verification_{id}.pdf.

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"qist/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateVerificationReport renders v (loaded with its full graph) and
// returns the path of the written file.
func GenerateVerificationReport(v *model.Verification, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("verification_%d.pdf", v.ID))

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(contentW, 8, "Qist Verification Report", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	// ── Order ─────────────────────────────────────────────────────────────────
	if o := v.Order; o != nil {
		section(pdf, contentW, "Order")
		row(pdf, contentW, "Reference", o.OrderRef)
		row(pdf, contentW, "Token", o.TokenNumber)
		row(pdf, contentW, "Customer", o.CustomerName)
		row(pdf, contentW, "WhatsApp", o.WhatsappNumber)
		row(pdf, contentW, "Address", o.Address)
		row(pdf, contentW, "Product", o.ProductName)
		row(pdf, contentW, "Total / Advance", o.TotalAmount.StringFixed(2)+" / "+o.AdvanceAmount.StringFixed(2))
		row(pdf, contentW, "Monthly x Months", fmt.Sprintf("%s x %d", o.MonthlyAmount.StringFixed(2), o.Months))
		row(pdf, contentW, "Status", o.Status)
	}

	// ── Verification ─────────────────────────────────────────────────────────
	section(pdf, contentW, "Verification")
	if v.VerificationOfficer != nil {
		row(pdf, contentW, "Officer", v.VerificationOfficer.FullName)
	}
	row(pdf, contentW, "Status", v.Status)
	row(pdf, contentW, "Started", v.StartTime.Format("02/01/2006 15:04"))
	if v.EndTime != nil {
		row(pdf, contentW, "Completed", v.EndTime.Format("02/01/2006 15:04"))
	}
	row(pdf, contentW, "Decision", decisionLabel(v.IsApproved))
	if v.AdminRemarks != nil {
		row(pdf, contentW, "Remarks", *v.AdminRemarks)
	}

	if p := v.Purchaser; p != nil {
		section(pdf, contentW, "Purchaser")
		row(pdf, contentW, "Name", deref(p.Name))
		row(pdf, contentW, "Father/Husband", deref(p.FatherHusbandName))
		row(pdf, contentW, "CNIC", deref(p.CNICNumber))
		row(pdf, contentW, "Telephone", deref(p.TelephoneNumber))
		row(pdf, contentW, "Present address", deref(p.PresentAddress))
		row(pdf, contentW, "Employer", deref(p.EmployerName))
		row(pdf, contentW, "Gross salary", deref(p.GrossSalary))
	}

	for _, g := range v.Grantors {
		section(pdf, contentW, fmt.Sprintf("Grantor %d", g.GrantorNumber))
		row(pdf, contentW, "Name", deref(g.Name))
		row(pdf, contentW, "CNIC", deref(g.CNICNumber))
		row(pdf, contentW, "Telephone", deref(g.TelephoneNumber))
		row(pdf, contentW, "Relationship", deref(g.Relationship))
		row(pdf, contentW, "Monthly income", deref(g.MonthlyIncome))
	}

	if k := v.NextOfKin; k != nil {
		section(pdf, contentW, "Next of kin")
		row(pdf, contentW, "Name", deref(k.Name))
		row(pdf, contentW, "Relation", deref(k.Relation))
		row(pdf, contentW, "Phone", deref(k.PhoneNumber))
	}

	// ── Documents ────────────────────────────────────────────────────────────
	section(pdf, contentW, "Documents")
	counts := make(map[string]int)
	for _, d := range v.Documents {
		counts[d.DocumentType]++
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		row(pdf, contentW, t, fmt.Sprintf("%d", counts[t]))
	}
	row(pdf, contentW, "Location samples", fmt.Sprintf("%d", len(v.Locations)))

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func section(pdf *fpdf.Fpdf, w float64, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(w, 7, title, "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func row(pdf *fpdf.Fpdf, w float64, label, value string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(w*0.3, 5, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(w*0.7, 5, value, "", 1, "L", false, 0, "")
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func decisionLabel(approved *bool) string {
	switch {
	case approved == nil:
		return "pending"
	case *approved:
		return "approved"
	default:
		return "rejected"
	}
}
