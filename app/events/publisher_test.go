package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestParseBrokers(t *testing.T) {
	got := ParseBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", got)
	}
	if len(ParseBrokers("")) != 0 {
		t.Fatal("expected no brokers")
	}
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	if _, ok := NewPublisher("", "topic").(NopPublisher); !ok {
		t.Fatal("expected NopPublisher when no brokers configured")
	}
	if _, ok := NewPublisher("localhost:9092", "topic").(*KafkaPublisher); !ok {
		t.Fatal("expected KafkaPublisher when brokers configured")
	}
}

func TestKafkaPublisherFlushesQuickly(t *testing.T) {
	p := NewKafkaPublisher("localhost:9092", "topic")
	writer, ok := p.writer.(*kafka.Writer)
	if !ok {
		t.Fatalf("expected *kafka.Writer, got %T", p.writer)
	}
	if writer.BatchTimeout != PublishBatchTimeout {
		t.Fatalf("expected batch timeout %s, got %s", PublishBatchTimeout, writer.BatchTimeout)
	}
	_ = p.Close()
}

func TestKafkaPublisherKeysByPspReference(t *testing.T) {
	writer := &fakeWriter{}
	p := &KafkaPublisher{writer: writer}

	event := NotificationEvent{EventCode: "AUTHORISATION", PspReference: "PSP1", Success: true, ReceivedAt: time.Now().UTC()}
	if err := p.PublishNotification(context.Background(), event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(writer.messages) != 1 || string(writer.messages[0].Key) != "PSP1" {
		t.Fatalf("unexpected messages: %+v", writer.messages)
	}

	var decoded NotificationEvent
	if err := json.Unmarshal(writer.messages[0].Value, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.EventCode != "AUTHORISATION" || !decoded.Success {
		t.Fatalf("unexpected payload: %+v", decoded)
	}

	_ = p.Close()
	if !writer.closed {
		t.Fatal("expected writer to be closed")
	}
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaPublisher{writer: &fakeWriter{err: boom}}

	if err := p.PublishNotification(context.Background(), NotificationEvent{PspReference: "PSP1"}); !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
}
