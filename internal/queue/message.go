package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldType       = "type"
	fieldPayload    = "payload"
	fieldEnqueuedAt = "enqueued_at"
)

type Message struct {
	ID         string
	Type       string
	Payload    json.RawMessage
	EnqueuedAt time.Time
}

func (m Message) Decode(out any) error {
	if err := json.Unmarshal(m.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

func decodeMessage(msg redis.XMessage) (Message, error) {
	out := Message{ID: msg.ID}

	taskType, ok := msg.Values[fieldType].(string)
	if !ok || taskType == "" {
		return out, fmt.Errorf("message %s has no type", msg.ID)
	}
	out.Type = taskType

	if raw, ok := msg.Values[fieldPayload].(string); ok && raw != "" {
		out.Payload = json.RawMessage(raw)
	}
	if raw, ok := msg.Values[fieldEnqueuedAt].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			out.EnqueuedAt = ts
		}
	}
	return out, nil
}
