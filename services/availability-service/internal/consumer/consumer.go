// Package consumer applies booking events from Kafka to the availability read side.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotboard/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TopicBooked    = "booking.appointment.booked.v1"
	TopicCancelled = "booking.appointment.cancelled.v1"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Deduper records event ids; Record reports false for an id already seen. Forget releases
// an id whose handler failed so the redelivery is applied.
type Deduper interface {
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Reader is the subset of *kafka.Reader the consumer drives.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Config struct {
	Brokers []string
	GroupID string
	Topics  []string
}

type Consumer struct {
	reader     Reader
	logger     *slog.Logger
	inbox      Deduper
	handler    Handler
	retryDelay time.Duration
}

// New subscribes the consumer group to every topic in cfg. inbox may be nil, in which case
// redeliveries are handled again; invalidation is idempotent so that is safe.
func New(logger *slog.Logger, inbox Deduper, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return NewWithReader(logger, inbox, reader, handler)
}

func NewWithReader(logger *slog.Logger, inbox Deduper, reader Reader, handler Handler) *Consumer {
	return &Consumer{
		reader:     reader,
		logger:     logger,
		inbox:      inbox,
		handler:    handler,
		retryDelay: time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)

	if c.inbox != nil {
		ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
		if err != nil {
			c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
			span.RecordError(err)
			span.SetStatus(codes.Error, "inbox")
			return
		}
		if !ok {
			c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return
		}
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler")
		if c.inbox != nil {
			if err := c.inbox.Forget(ctxSpan, meta.EventID); err != nil {
				c.logger.Error("inbox forget failed", "err", err, "event_id", meta.EventID)
			}
		}
	}
}

// Invalidator drops cached busy snapshots.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type appointmentEvent struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

// InvalidateOnBooking returns a handler that invalidates cached busy intervals whenever an
// appointment is booked or cancelled. Malformed payloads are logged and dropped.
func InvalidateOnBooking(inv Invalidator, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload appointmentEvent
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.AppointmentID == "" {
			logger.Error("missing appointment_id", "topic", msg.Topic)
			return nil
		}
		if err := inv.Invalidate(ctx); err != nil {
			return err
		}
		logger.Info("busy cache invalidated",
			"topic", msg.Topic,
			"appointment_id", payload.AppointmentID,
			"start_time", payload.StartTime,
			"end_time", payload.EndTime,
		)
		return nil
	}
}
