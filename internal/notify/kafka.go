package notify

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes notifications as JSON, keyed by product id.
type KafkaNotifier struct {
	writer messageWriter
	log    *zap.Logger
}

func NewKafkaNotifier(log *zap.Logger, topic string, brokers ...string) *KafkaNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warn("failed to publish notifications", zap.Int("count", len(messages)), zap.Error(err))
			}
		},
	}
	return &KafkaNotifier{writer: w, log: log}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		k.log.Warn("failed to marshal notification", zap.String("notification_id", n.ID), zap.Error(err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(n.ProductID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}
	// the request context may already be done once the toast is raised
	if err := k.writer.WriteMessages(context.WithoutCancel(ctx), msg); err != nil {
		k.log.Warn("failed to publish notification", zap.String("notification_id", n.ID), zap.Error(err))
	}
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
