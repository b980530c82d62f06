package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried on the feed.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// RecordChange is the compact message published after every successful
// write. It carries only the id, version and operation; the mirror worker
// fetches the full row from the database when it needs it.
type RecordChange struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChange(id, version int64, op string) *RecordChange {
	return &RecordChange{
		ID:        id,
		Version:   version,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *RecordChange) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangeFromJSON(data []byte) (*RecordChange, error) {
	var msg RecordChange
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
