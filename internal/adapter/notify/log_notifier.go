package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/srgjo27/scalable_parking/internal/core/domain"
)

// LogNotifier records outgoing messages instead of delivering them. It stands
// in for a mail gateway in development and in the worker by default.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, msg domain.Message) error {
	attachments := make([]string, 0, len(msg.Attachments))
	size := 0
	for _, a := range msg.Attachments {
		attachments = append(attachments, a.Filename)
		size += len(a.Data)
	}

	n.log.Info("notification",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("text", msg.TextBody),
		zap.Strings("attachments", attachments),
		zap.Int("attachment_bytes", size),
	)

	return nil
}
