package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"bulletin_scraper/internal/domain"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Kafka struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

func NewKafka(cfg KafkaConfig, logger *slog.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: no topic configured")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka publisher ready", "brokers", cfg.Brokers, "topic", cfg.Topic)

	return newKafkaWithWriter(writer, cfg.Topic, logger), nil
}

func newKafkaWithWriter(w messageWriter, topic string, logger *slog.Logger) *Kafka {
	return &Kafka{writer: w, topic: topic, logger: logger}
}

// Publish writes one message keyed by item id, so updates of an item stay
// on one partition.
func (k *Kafka) Publish(ctx context.Context, item *domain.BulletinItem) error {
	body, err := encode(item)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(item.ID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "content_type", Value: []byte("application/json")},
			{Key: "action", Value: []byte(ActionCreate)},
			{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}

	k.logger.Debug("published item", "id", item.ID, "topic", k.topic)

	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
