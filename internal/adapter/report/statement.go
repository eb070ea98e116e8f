package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

// MonthlyStatementPDF renders a one-page A4 statement for a user's month.
func MonthlyStatementPDF(a domain.MonthlyActivity, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(brand+" Monthly Statement", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, brand+" MONTHLY STATEMENT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Month       : " + a.Month.In(loc).Format("January 2006"),
		"Name        : " + a.Username,
		"Email       : " + a.Email,
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(95, 9, "Total Visits", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 9, "Total Spent", "1", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(95, 9, fmt.Sprintf("%d", a.Visits), "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 9, formatAmount(a.TotalSpent), "1", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Amounts cover sessions that ended during the month.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render statement pdf: %w", err)
	}

	return buf.Bytes(), nil
}
