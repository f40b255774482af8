// Package kafkax holds the Kafka conventions shared by consumers: event identity headers,
// trace propagation and broker readiness.
package kafkax

import (
	"strconv"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// EventMeta identifies a consumed message for dedupe and logging.
type EventMeta struct {
	EventID   string
	EventType string
}

// ExtractEventMeta reads the identity headers. A message without an event_id header is
// identified by its topic/partition/offset position. The key is never used: producers key
// by aggregate, so unrelated events about one appointment share it. A missing event_type
// falls back to the topic.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, HeaderEventID),
		EventType: HeaderValue(msg.Headers, HeaderEventType),
	}
	if meta.EventID == "" {
		meta.EventID = msg.Topic + "/" + strconv.Itoa(msg.Partition) + "/" + strconv.FormatInt(msg.Offset, 10)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

// HeaderValue returns the first header named key, or "".
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
