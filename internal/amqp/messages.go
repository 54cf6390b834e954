package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseArchiveMessage asks the archive worker to append one expense
// to the yearly CSV archive. It carries only identifiers; the worker
// loads the full row from the database so it always archives the
// latest version.
type ExpenseArchiveMessage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseArchiveMessage(id, userID int64) *ExpenseArchiveMessage {
	return &ExpenseArchiveMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseArchiveMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseArchiveMessageFromJSON(data []byte) (*ExpenseArchiveMessage, error) {
	var msg ExpenseArchiveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
