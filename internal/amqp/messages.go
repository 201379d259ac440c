package amqp

import (
	"encoding/json"
	"time"
)

// Entity names carried in change messages.
const (
	EntityTransaction = "transaction"
	EntityAccount     = "account"
	EntityAsset       = "asset"
	EntityLoan        = "loan"
	EntityState       = "state" // whole-state events: restore, reset
)

// ChangeMessage is the lightweight event published after every local
// mutation. It carries only what the snapshot worker needs to decide a
// backup is due; the worker reads the full state from the database.
type ChangeMessage struct {
	Entity    string    `json:"entity"`
	Op        string    `json:"op"`
	ID        int64     `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(entity, op string, id int64) *ChangeMessage {
	return &ChangeMessage{
		Entity:    entity,
		Op:        op,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
