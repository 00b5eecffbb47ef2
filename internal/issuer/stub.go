package issuer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/edvin/backoffice/internal/model"
)

var titles = map[model.CertificateType]string{
	model.CertTypeFederalPolice: "Criminal Record Certificate - Federal Police",
	model.CertTypeStatePolice:   "Criminal Record Certificate - State Civil Police",
	model.CertTypeFederalCourt:  "Criminal Record Certificate - Federal Courts",
	model.CertTypeStateCourt:    "Criminal Record Certificate - State Courts",
}

// Title is the human readable name of a certificate type.
func Title(t model.CertificateType) string {
	if title, ok := titles[t]; ok {
		return title
	}
	return string(t)
}

// StubRenderer produces a clearly labeled placeholder PDF instead of
// contacting the issuing authority.
type StubRenderer struct {
	now func() time.Time
}

func NewStubRenderer() *StubRenderer {
	return &StubRenderer{now: time.Now}
}

func (s *StubRenderer) Render(ctx context.Context, req Request) ([]byte, error) {
	t := req.Record.Type
	if err := CheckCustomer(t, req.Customer); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Integration(t, "render cancelled", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(Title(t), true)
	pdf.SetCreator("backoffice certificate stub", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(200, 0, 0)
	pdf.CellFormat(0, 12, "SPECIMEN - NOT AN OFFICIAL DOCUMENT", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr(Title(t)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Certificate request: %d", req.Record.ID),
		fmt.Sprintf("Name: %s", req.Customer.FullName),
		fmt.Sprintf("CPF: %s", maskCPF(*req.Customer.CPF)),
	}
	if req.Customer.BirthDate != nil {
		lines = append(lines, fmt.Sprintf("Birth date: %s", req.Customer.BirthDate.Format("2006-01-02")))
	}
	if req.Customer.MotherName != nil {
		lines = append(lines, fmt.Sprintf("Mother's name: %s", *req.Customer.MotherName))
	}
	lines = append(lines, fmt.Sprintf("Generated at: %s", s.now().UTC().Format(time.RFC3339)))
	for _, line := range lines {
		pdf.CellFormat(0, 7, tr(line), "", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, "This placeholder was generated because the issuer for this certificate "+
		"type runs in stub mode. It carries no legal value.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, Integration(t, "generate placeholder pdf", err)
	}
	return buf.Bytes(), nil
}

// maskCPF keeps only the last two digits of a government id.
func maskCPF(cpf string) string {
	if len(cpf) <= 2 {
		return "**"
	}
	masked := make([]byte, len(cpf))
	for i := range cpf {
		switch {
		case i >= len(cpf)-2:
			masked[i] = cpf[i]
		case cpf[i] == '.' || cpf[i] == '-':
			masked[i] = cpf[i]
		default:
			masked[i] = '*'
		}
	}
	return string(masked)
}
