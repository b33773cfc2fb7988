package payroll

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

// PayslipStorage writes rendered payslips to a local directory served under
// PublicBaseURL.
type PayslipStorage struct {
	Dir           string
	PublicBaseURL string
}

func (s PayslipStorage) Save(name string, content []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), content, 0o644); err != nil {
		return "", err
	}
	return strings.TrimRight(s.PublicBaseURL, "/") + "/" + name, nil
}

func payslipFileName(run PayrollRun, p Payslip) string {
	ref := p.EmployeeID.String()
	if p.Employee != nil && p.Employee.EmployeeNumber != "" {
		ref = p.Employee.EmployeeNumber
	}
	return fmt.Sprintf("%s-%s.pdf", run.RunCode, ref)
}

func renderPayslipPDF(run PayrollRun, p Payslip) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	if p.Employee != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Employee: %s (%s)", p.Employee.FullName, p.Employee.EmployeeNumber))
		pdf.Ln(6)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Run: %s  Entity: %s  Period: %s", run.RunCode, run.Entity, run.PeriodLabel()))
	pdf.Ln(10)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
	}
	line := func(item LineItem) {
		pdf.CellFormat(120, 6, item.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, item.Amount.StringFixed(2), "", 1, "R", false, 0, "")
	}

	section("Earnings")
	line(LineItem{Name: "Base Salary", Amount: p.Earnings.BaseSalary})
	for _, group := range [][]LineItem{p.Earnings.Allowances, p.Earnings.Bonuses, p.Earnings.Benefits, p.Earnings.Refunds} {
		for _, item := range group {
			line(item)
		}
	}
	pdf.Ln(4)

	section("Deductions")
	for _, group := range [][]LineItem{p.Deductions.Taxes, p.Deductions.Insurances, p.Deductions.Penalties} {
		for _, item := range group {
			line(item)
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	line(LineItem{Name: "Total Gross", Amount: p.TotalGross})
	line(LineItem{Name: "Total Deductions", Amount: p.TotalDeductions})
	line(LineItem{Name: "Net Pay", Amount: p.NetPay})

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GeneratePayslipPDFs renders every payslip of the run that has no PDF yet
// and returns how many were written.
func (s *service) GeneratePayslipPDFs(ctx context.Context, companyID, runID string) (int, error) {
	run, err := s.repo.FindRunByID(ctx, companyID, runID)
	if err != nil {
		return 0, err
	}

	payslips, err := s.repo.FindPayslips(ctx, companyID, runID)
	if err != nil {
		return 0, err
	}

	generated := 0
	for _, p := range payslips {
		if p.PDFURL != nil && *p.PDFURL != "" {
			continue
		}

		content, err := renderPayslipPDF(*run, p)
		if err != nil {
			return generated, fmt.Errorf("render payslip %s: %w", p.ID, err)
		}
		url, err := s.payslips.Save(payslipFileName(*run, p), content)
		if err != nil {
			return generated, fmt.Errorf("store payslip %s: %w", p.ID, err)
		}
		if err := s.repo.UpdatePayslipPDF(ctx, companyID, p.ID.String(), url, s.now()); err != nil {
			return generated, err
		}
		generated++
	}

	s.log(ctx).Info("payslip pdfs generated", zap.String("run_id", runID), zap.Int("count", generated))
	return generated, nil
}
