// Package models defines the core data types shared by the word store,
// the cache and the transport layers.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeOp identifies the kind of mutation that produced a ChangeEvent.
type ChangeOp string

// Mutation kinds emitted by the word store.
const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ValidOps lists the accepted ChangeOp values.
var ValidOps = []ChangeOp{OpCreate, OpUpdate, OpDelete}

// Word is a single sensitive word row as held by the store.
type Word struct {
	ID   int64  `json:"id"`
	Word string `json:"word"`
}

// ChangeEvent is emitted once per successful store mutation. It is also the
// JSON payload published on the notification channel.
type ChangeEvent struct {
	Op     ChangeOp  `json:"op"`
	ID     int64     `json:"id"`
	Origin string    `json:"origin,omitempty"` // instance that performed the write
	At     time.Time `json:"at"`
}

// NewChangeEvent stamps an event for op on id with the current UTC time.
func NewChangeEvent(op ChangeOp, id int64, origin string) ChangeEvent {
	return ChangeEvent{
		Op:     op,
		ID:     id,
		Origin: origin,
		At:     time.Now().UTC(),
	}
}

// Valid reports whether Op is one of ValidOps.
func (e ChangeEvent) Valid() bool {
	for _, op := range ValidOps {
		if e.Op == op {
			return true
		}
	}
	return false
}

// String renders the event for log lines, e.g. "update#42".
func (e ChangeEvent) String() string {
	return fmt.Sprintf("%s#%d", e.Op, e.ID)
}

// Marshal encodes the event as JSON.
func (e ChangeEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// NewInstanceID returns a random identifier for this process, used as the
// Origin of the events it publishes.
func NewInstanceID() string {
	return uuid.NewString()
}
