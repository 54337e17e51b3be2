package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer the notifier needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes notifications as JSON to a Kafka topic, keyed by
// destination so one user's events land on one partition.
type KafkaNotifier struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaNotifier builds a notifier over writer.
func NewKafkaNotifier(writer messageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, now: time.Now}
}

// Send encodes and publishes the message.
func (n *KafkaNotifier) Send(ctx context.Context, message Message) error {
	payload, err := sonic.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(message.Destination),
		Value: payload,
		Time:  n.now(),
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(message.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
