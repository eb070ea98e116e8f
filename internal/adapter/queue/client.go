package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("scalable-parking-queue")

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client enqueues background tasks on asynq.
type Client struct {
	client taskEnqueuer
	log    *zap.Logger
}

func NewClient(redisAddr string, log *zap.Logger) *Client {
	return newClient(asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}), log)
}

func newClient(client taskEnqueuer, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{client: client, log: log.Named("queue")}
}

func (c *Client) Close() error {
	if closer, ok := c.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) EnqueueExport(ctx context.Context, requestedBy uuid.UUID) (string, error) {
	ctx, span := tracer.Start(ctx, "job.enqueue.export")
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	payload, err := json.Marshal(ExportPayload{RequestedBy: requestedBy, TraceContext: carrier})
	if err != nil {
		return "", fmt.Errorf("encode export payload: %w", err)
	}

	task := asynq.NewTask(TypeExportReservations, payload, asynq.MaxRetry(3), asynq.Queue(DefaultQueue))
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("enqueue %s: %w", TypeExportReservations, err)
	}

	span.SetAttributes(
		attribute.String("job.id", info.ID),
		attribute.String("job.queue", info.Queue),
	)
	c.log.Info("job enqueued",
		zap.String("job_id", info.ID),
		zap.String("job_type", TypeExportReservations),
		zap.String("requested_by", requestedBy.String()),
	)

	return info.ID, nil
}
