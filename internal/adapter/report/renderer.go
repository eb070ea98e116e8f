package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

const brand = "ParkZone"

var reminderTmpl = template.Must(template.New("reminder").Parse(`
<h3>Hi {{.Username}},</h3>
<p>This is a reminder that you have an active parking session.</p>
<ul>
	<li><strong>Location:</strong> {{.LotName}}</li>
	<li><strong>Spot Number:</strong> {{.SpotNumber}}</li>
	<li><strong>Parked Since:</strong> {{.ParkedSince}}</li>
</ul>
<p>Don't forget to release your spot when you leave!</p>
<p>Regards,<br>Team {{.Brand}}</p>
`))

var monthlyTmpl = template.Must(template.New("monthly").Parse(`
<div style="font-family: Arial, sans-serif; padding: 20px; border: 1px solid #ddd;">
	<h2 style="color: #4f46e5;">{{.Brand}} Monthly Report</h2>
	<p>Hi <strong>{{.Username}}</strong>,</p>
	<p>Here is your parking summary for <strong>{{.Month}}</strong>.</p>
	<table style="width: 100%; border-collapse: collapse; margin-top: 20px;">
		<tr style="background-color: #f8f9fa;">
			<th style="padding: 10px; border: 1px solid #ddd;">Total Visits</th>
			<th style="padding: 10px; border: 1px solid #ddd;">Total Spent</th>
		</tr>
		<tr>
			<td style="padding: 10px; border: 1px solid #ddd; text-align: center;">{{.Visits}}</td>
			<td style="padding: 10px; border: 1px solid #ddd; text-align: center;">{{.Spent}}</td>
		</tr>
	</table>
	<p style="margin-top: 20px;">Your statement is attached.</p>
	<p>Keep Parking Smart!</p>
</div>
`))

// Renderer turns core report rows into deliverable messages.
type Renderer struct {
	loc *time.Location
}

func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{loc: loc}
}

func (r *Renderer) Reminder(rem domain.Reminder) (domain.Message, error) {
	parkedSince := rem.ParkedAt.In(r.loc).Format("02-01-2006 03:04 PM")

	var html bytes.Buffer
	err := reminderTmpl.Execute(&html, map[string]any{
		"Brand":       brand,
		"Username":    rem.Username,
		"LotName":     rem.LotName,
		"SpotNumber":  rem.SpotNumber,
		"ParkedSince": parkedSince,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("render reminder: %w", err)
	}

	return domain.Message{
		To:       rem.Email,
		Subject:  brand + " Reminder: You have an active parking spot",
		HTMLBody: html.String(),
		TextBody: fmt.Sprintf("Hi %s, you are parked at %s, spot %d, since %s. Don't forget to release your spot when you leave.",
			rem.Username, rem.LotName, rem.SpotNumber, parkedSince),
	}, nil
}

// MonthlyReport renders the summary mail with its PDF statement attached.
func (r *Renderer) MonthlyReport(a domain.MonthlyActivity) (domain.Message, error) {
	month := a.Month.In(r.loc).Format("January 2006")
	spent := formatAmount(a.TotalSpent)

	var html bytes.Buffer
	err := monthlyTmpl.Execute(&html, map[string]any{
		"Brand":    brand,
		"Username": a.Username,
		"Month":    month,
		"Visits":   a.Visits,
		"Spent":    spent,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("render monthly report: %w", err)
	}

	pdf, err := MonthlyStatementPDF(a, r.loc)
	if err != nil {
		return domain.Message{}, err
	}

	return domain.Message{
		To:       a.Email,
		Subject:  fmt.Sprintf("Your %s Report - %s", brand, month),
		HTMLBody: html.String(),
		TextBody: fmt.Sprintf("Hi %s, in %s you parked %d times and spent %s.", a.Username, month, a.Visits, spent),
		Attachments: []domain.Attachment{{
			Filename:    fmt.Sprintf("statement-%s.pdf", a.Month.In(r.loc).Format("2006-01")),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	}, nil
}

// Export wraps a finished CSV export for the admin who requested it.
func (r *Renderer) Export(to string, csv []byte, rows int, at time.Time) domain.Message {
	return domain.Message{
		To:       to,
		Subject:  "Parking Reservations Export",
		TextBody: fmt.Sprintf("Please find the attached CSV report (%d reservations).", rows),
		Attachments: []domain.Attachment{{
			Filename:    fmt.Sprintf("reservations-%s.csv", at.In(r.loc).Format("20060102-150405")),
			ContentType: "text/csv",
			Data:        csv,
		}},
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("INR %.2f", v)
}
