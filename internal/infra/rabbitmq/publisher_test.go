package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeWrapsPayload(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	body, err := encode("concept.created", at, map[string]string{"conceptId": "c1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got struct {
		Type       string            `json:"type"`
		OccurredAt time.Time         `json:"occurredAt"`
		Payload    map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "concept.created" || !got.OccurredAt.Equal(at) || got.Payload["conceptId"] != "c1" {
		t.Fatalf("unexpected envelope: %+v", got)
	}
}

func TestEncodeRejectsUnmarshalablePayload(t *testing.T) {
	if _, err := encode("x", time.Now(), func() {}); err == nil {
		t.Fatalf("expected marshal error")
	}
}
