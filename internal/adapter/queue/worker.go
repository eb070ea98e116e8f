package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/adapter/report"
	"github.com/srgjo27/scalable_parking/internal/core/domain"
	"github.com/srgjo27/scalable_parking/internal/core/ports"
	"github.com/srgjo27/scalable_parking/internal/core/services"
	"github.com/srgjo27/scalable_parking/internal/platform/clock"
)

type WorkerConfig struct {
	Reports       *services.ReportService
	Renderer      *report.Renderer
	Notifier      ports.Notifier
	Clock         clock.Clock
	ReminderAfter time.Duration
	Log           *zap.Logger
}

// Worker handles the export, reminder and monthly report tasks.
type Worker struct {
	reports       *services.ReportService
	renderer      *report.Renderer
	notifier      ports.Notifier
	clock         clock.Clock
	reminderAfter time.Duration
	log           *zap.Logger

	completed metric.Int64Counter
	failed    metric.Int64Counter
	sent      metric.Int64Counter
}

func NewWorker(cfg WorkerConfig) *Worker {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System{}
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = report.NewRenderer(time.UTC)
	}
	if cfg.ReminderAfter == 0 {
		cfg.ReminderAfter = 24 * time.Hour
	}

	w := &Worker{
		reports:       cfg.Reports,
		renderer:      renderer,
		notifier:      cfg.Notifier,
		clock:         clk,
		reminderAfter: cfg.ReminderAfter,
		log:           log.Named("worker"),
	}

	meter := otel.Meter("scalable-parking-worker")
	var err error
	if w.completed, err = meter.Int64Counter("jobs.completed", metric.WithDescription("Total number of jobs completed successfully")); err != nil {
		w.log.Error("failed to create jobs completed counter", zap.Error(err))
	}
	if w.failed, err = meter.Int64Counter("jobs.failed", metric.WithDescription("Total number of jobs failed")); err != nil {
		w.log.Error("failed to create jobs failed counter", zap.Error(err))
	}
	if w.sent, err = meter.Int64Counter("notifications.sent", metric.WithDescription("Messages handed to the notifier")); err != nil {
		w.log.Error("failed to create notifications counter", zap.Error(err))
	}

	return w
}

func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeExportReservations, w.HandleExport)
	mux.HandleFunc(TypeParkingReminders, w.HandleReminders)
	mux.HandleFunc(TypeMonthlyReport, w.HandleMonthlyReport)
}

// HandleExport renders the reservation CSV and sends it to the requesting admin.
func (w *Worker) HandleExport(ctx context.Context, task *asynq.Task) (err error) {
	var payload ExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		w.record(ctx, task.Type(), err)
		return fmt.Errorf("decode export payload: %v: %w", err, asynq.SkipRetry)
	}

	parentCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(payload.TraceContext))
	ctx, span := tracer.Start(parentCtx, "job.export")
	defer func() {
		w.finish(ctx, span, task.Type(), err)
		span.End()
	}()
	span.SetAttributes(attribute.String("job.requested_by", payload.RequestedBy.String()))

	recipient, err := w.reports.Recipient(ctx, payload.RequestedBy)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("export requester %s: %v: %w", payload.RequestedBy, err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	rows, err := w.reports.ExportReservations(ctx, &buf)
	if err != nil {
		return err
	}

	msg := w.renderer.Export(recipient.Email, buf.Bytes(), rows, w.clock.Now())
	if err := w.notifier.Notify(ctx, msg); err != nil {
		return fmt.Errorf("deliver export: %w", err)
	}
	w.countSent(ctx, task.Type(), 1)

	w.log.Info("export delivered", zap.String("to", recipient.Email), zap.Int("rows", rows))
	return nil
}

// HandleReminders notifies users who have been parked longer than the
// reminder threshold. A failed delivery is logged and skipped.
func (w *Worker) HandleReminders(ctx context.Context, task *asynq.Task) (err error) {
	ctx, span := tracer.Start(ctx, "job.reminders")
	defer func() {
		w.finish(ctx, span, task.Type(), err)
		span.End()
	}()

	reminders, err := w.reports.ActiveReminders(ctx, w.reminderAfter)
	if err != nil {
		return err
	}

	sent := 0
	for _, rem := range reminders {
		msg, err := w.renderer.Reminder(rem)
		if err != nil {
			return err
		}
		if err := w.notifier.Notify(ctx, msg); err != nil {
			w.log.Warn("reminder delivery failed", zap.String("to", rem.Email), zap.Error(err))
			continue
		}
		sent++
	}
	w.countSent(ctx, task.Type(), sent)

	span.SetAttributes(attribute.Int("job.sent", sent))
	w.log.Info("reminders sent", zap.Int("sent", sent), zap.Int("eligible", len(reminders)))
	return nil
}

// HandleMonthlyReport sends every active user the previous month's summary.
func (w *Worker) HandleMonthlyReport(ctx context.Context, task *asynq.Task) (err error) {
	ctx, span := tracer.Start(ctx, "job.monthly_report")
	defer func() {
		w.finish(ctx, span, task.Type(), err)
		span.End()
	}()

	month := w.reports.PreviousMonth()
	summaries, err := w.reports.MonthlySummaries(ctx, month)
	if err != nil {
		return err
	}

	sent := 0
	for _, summary := range summaries {
		msg, err := w.renderer.MonthlyReport(summary)
		if err != nil {
			return err
		}
		if err := w.notifier.Notify(ctx, msg); err != nil {
			w.log.Warn("monthly report delivery failed", zap.String("to", summary.Email), zap.Error(err))
			continue
		}
		sent++
	}
	w.countSent(ctx, task.Type(), sent)

	span.SetAttributes(attribute.Int("job.sent", sent))
	w.log.Info("monthly reports sent", zap.String("month", month.Format("2006-01")), zap.Int("sent", sent))
	return nil
}

func (w *Worker) finish(ctx context.Context, span trace.Span, jobType string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	w.record(ctx, jobType, err)
}

func (w *Worker) record(ctx context.Context, jobType string, err error) {
	attrs := metric.WithAttributes(attribute.String("job.type", jobType))
	if err != nil {
		if w.failed != nil {
			w.failed.Add(ctx, 1, attrs)
		}
		return
	}
	if w.completed != nil {
		w.completed.Add(ctx, 1, attrs)
	}
}

func (w *Worker) countSent(ctx context.Context, jobType string, n int) {
	if w.sent != nil && n > 0 {
		w.sent.Add(ctx, int64(n), metric.WithAttributes(attribute.String("job.type", jobType)))
	}
}
