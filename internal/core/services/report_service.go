package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
)

var exportHeader = []string{"ID", "User ID", "Spot ID", "Parked At", "Left At", "Cost", "Remarks"}

// ReportService produces the rows behind reminders, monthly summaries and
// the reservation export. It never delivers anything itself.
type ReportService struct {
	store    ports.Store
	enqueuer ports.ExportEnqueuer
	clock    clock.Clock
	loc      *time.Location
	log      *zap.Logger
}

func NewReportService(store ports.Store, enqueuer ports.ExportEnqueuer, clk clock.Clock, loc *time.Location, log *zap.Logger) *ReportService {
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportService{
		store:    store,
		enqueuer: enqueuer,
		clock:    clk,
		loc:      loc,
		log:      log.Named("reports"),
	}
}

// ActiveReminders lists users who have been parked for longer than olderThan.
func (s *ReportService) ActiveReminders(ctx context.Context, olderThan time.Duration) ([]domain.Reminder, error) {
	before := s.clock.Now().UTC().Add(-olderThan)
	return s.store.Reservations().ListActiveParkedBefore(ctx, before)
}

// PreviousMonth is the first instant of the month before the current one.
func (s *ReportService) PreviousMonth() time.Time {
	now := s.clock.Now().In(s.loc)
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, -1, 0)
}

// MonthlySummaries aggregates reservations that ended within month's
// calendar month. Users without activity are left out.
func (s *ReportService) MonthlySummaries(ctx context.Context, month time.Time) ([]domain.MonthlyActivity, error) {
	local := month.In(s.loc)
	from := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 1, 0)

	rows, err := s.store.Analytics().MonthlyActivity(ctx, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.MonthlyActivity, 0, len(rows))
	for _, row := range rows {
		if row.Visits == 0 {
			continue
		}
		row.Month = from
		row.TotalSpent = roundCents(row.TotalSpent)
		summaries = append(summaries, row)
	}
	return summaries, nil
}

// RequestExport queues a full reservation export for the calling admin.
func (s *ReportService) RequestExport(ctx context.Context, identity domain.Identity) (string, error) {
	if err := requireAdmin(identity); err != nil {
		return "", err
	}
	taskID, err := s.enqueuer.EnqueueExport(ctx, identity.SubjectID)
	if err != nil {
		return "", fmt.Errorf("enqueue export: %w", err)
	}
	s.log.Info("export requested",
		zap.String("task_id", taskID),
		zap.String("requested_by", identity.SubjectID.String()),
	)
	return taskID, nil
}

// Recipient resolves the user an export or report is addressed to.
func (s *ReportService) Recipient(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.store.Users().GetByID(ctx, userID, ports.LockNone)
}

// ExportReservations writes every reservation as CSV, newest first.
func (s *ReportService) ExportReservations(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}

	rows := 0
	err := s.store.Reservations().Each(ctx, func(r domain.Reservation) error {
		rows++
		return cw.Write(exportRecord(r))
	})
	if err != nil {
		return rows, fmt.Errorf("export reservations: %w", err)
	}

	cw.Flush()
	return rows, cw.Error()
}

func exportRecord(r domain.Reservation) []string {
	record := []string{
		r.ID.String(),
		r.UserID.String(),
		r.SpotID.String(),
		r.ParkedAt.UTC().Format(time.RFC3339),
		"",
		"",
		"",
	}
	if r.LeftAt != nil {
		record[4] = r.LeftAt.UTC().Format(time.RFC3339)
	}
	if r.Cost != nil {
		record[5] = strconv.FormatFloat(*r.Cost, 'f', 2, 64)
	}
	if r.Remarks != nil {
		record[6] = *r.Remarks
	}
	return record
}
