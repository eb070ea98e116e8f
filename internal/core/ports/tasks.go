package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

type ExportEnqueuer interface {
	EnqueueExport(ctx context.Context, requestedBy uuid.UUID) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, msg domain.Message) error
}
