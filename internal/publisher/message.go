package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"bulletin_scraper/internal/domain"
)

const (
	DriverNone     = "none"
	DriverRabbitMQ = "rabbitmq"
	DriverKafka    = "kafka"
)

const ActionCreate = "create"

type Publisher interface {
	Publish(ctx context.Context, item *domain.BulletinItem) error
	Close() error
}

// ItemPayload is the wire form of a stored bulletin item.
type ItemPayload struct {
	ID                   int64               `json:"id"`
	Title                string              `json:"title"`
	AIHeadline           *string             `json:"ai_headline,omitempty"`
	Content              string              `json:"content"`
	Category             domain.Category     `json:"category"`
	IsFeedback           bool                `json:"is_feedback"`
	IsDonation           bool                `json:"is_donation"`
	IsFromStudent        bool                `json:"is_from_student"`
	HasSpecificTargeting bool                `json:"has_specific_targeting"`
	Date                 *string             `json:"date,omitempty"`
	YearGroups           *string             `json:"year_groups,omitempty"`
	Attachments          []domain.Attachment `json:"attachments"`
	Metadata             domain.Metadata     `json:"metadata"`
	ScrapedAt            time.Time           `json:"scraped_at"`
}

type ItemMessage struct {
	Action    string      `json:"action"`
	Item      ItemPayload `json:"item"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewItemMessage(item *domain.BulletinItem) ItemMessage {
	attachments := item.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return ItemMessage{
		Action: ActionCreate,
		Item: ItemPayload{
			ID:                   item.ID,
			Title:                item.Title,
			AIHeadline:           item.AIHeadline,
			Content:              item.Content,
			Category:             item.Category,
			IsFeedback:           item.IsFeedback,
			IsDonation:           item.IsDonation,
			IsFromStudent:        item.IsFromStudent,
			HasSpecificTargeting: item.HasSpecificTargeting,
			Date:                 item.Date,
			YearGroups:           item.YearGroups,
			Attachments:          attachments,
			Metadata:             item.Metadata,
			ScrapedAt:            item.ScrapedAt,
		},
		Timestamp: time.Now().UTC(),
	}
}

func encode(item *domain.BulletinItem) ([]byte, error) {
	body, err := json.Marshal(NewItemMessage(item))
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	return body, nil
}

// New builds the publisher selected by driver. The none driver yields a nil
// Publisher.
func New(driver string, rabbitCfg Config, kafkaCfg KafkaConfig, logger *slog.Logger) (Publisher, error) {
	switch driver {
	case "", DriverNone:
		return nil, nil
	case DriverRabbitMQ:
		p, err := NewRabbitMQ(rabbitCfg, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case DriverKafka:
		p, err := NewKafka(kafkaCfg, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown publisher driver %q", driver)
	}
}
