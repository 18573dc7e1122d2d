package amqp

import (
	"testing"
	"time"
)

func TestTransactionSyncMessageRoundTrip(t *testing.T) {
	msg := NewTransactionSyncMessage("alice", 42)
	if msg.MessageID == "" {
		t.Fatal("messageId not set")
	}
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got, err := TransactionSyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.UserID != "alice" || got.TransactionID != 42 || got.MessageID != msg.MessageID {
		t.Errorf("round trip = %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp.Truncate(time.Nanosecond)) {
		t.Errorf("timestamp = %v, want %v", got.Timestamp, msg.Timestamp)
	}
}

func TestTransactionSyncMessageRejectsGarbage(t *testing.T) {
	if _, err := TransactionSyncMessageFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestMessageIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewTransactionSyncMessage("alice", 1).MessageID
		if seen[id] {
			t.Fatalf("duplicate message id %s", id)
		}
		seen[id] = true
	}
}
