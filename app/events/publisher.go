package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// NotificationEvent is published for every accepted webhook item.
type NotificationEvent struct {
	EventCode         string    `json:"event_code"`
	PspReference      string    `json:"psp_reference"`
	MerchantReference string    `json:"merchant_reference"`
	ShopperReference  string    `json:"shopper_reference,omitempty"`
	Success           bool      `json:"success"`
	Reason            string    `json:"reason,omitempty"`
	AmountValue       int64     `json:"amount_value"`
	AmountCurrency    string    `json:"amount_currency,omitempty"`
	ReceivedAt        time.Time `json:"received_at"`
}

type Publisher interface {
	PublishNotification(ctx context.Context, event NotificationEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublishBatchTimeout bounds how long a write waits for a batch to fill.
// Webhooks publish while the processor waits for the acknowledgement.
const PublishBatchTimeout = 10 * time.Millisecond

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokersCSV, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(ParseBrokers(brokersCSV)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: PublishBatchTimeout,
	}}
}

func (p *KafkaPublisher) PublishNotification(ctx context.Context, event NotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PspReference),
		Value: data,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishNotification(context.Context, NotificationEvent) error { return nil }

func (NopPublisher) Close() error { return nil }

// NewPublisher returns a Kafka publisher, or a no-op one when brokersCSV is
// empty.
func NewPublisher(brokersCSV, topic string) Publisher {
	if len(ParseBrokers(brokersCSV)) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(brokersCSV, topic)
}

func ParseBrokers(brokersCSV string) []string {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
