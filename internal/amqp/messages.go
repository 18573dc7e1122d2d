package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionSyncMessage asks the export worker to sync one ledger row. It
// carries only identifiers; the worker reads the current row from the
// database so a stale message can never overwrite newer data.
type TransactionSyncMessage struct {
	MessageID     string    `json:"messageId"`
	UserID        string    `json:"userId"`
	TransactionID int64     `json:"transactionId"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(userID string, transactionID int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		MessageID:     uuid.NewString(),
		UserID:        userID,
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
