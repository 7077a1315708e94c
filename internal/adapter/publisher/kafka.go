// Package publisher mirrors accepted samples onto a Kafka topic.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/douoai/jijin/internal/domain/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	topic  string
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(topic, &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	})
}

func newKafkaPublisher(topic string, w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{topic: topic, writer: w}
}

func (p *KafkaPublisher) Name() string { return "kafka:" + p.topic }

// SavePrice публикует строку как JSON, ключ - timestamp в миллисекундах.
func (p *KafkaPublisher) SavePrice(ctx context.Context, rec model.PriceRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal price: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(rec.Timestamp, 10)),
		Value: payload,
		Time:  time.UnixMilli(rec.Timestamp),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
