package notify

import (
	"context"

	"go.uber.org/zap"
)

type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n Notification) {
	l.log.Warn(n.Message,
		zap.String("notification_id", n.ID),
		zap.String("kind", string(n.Kind)),
		zap.Int64("product_id", n.ProductID),
	)
}
