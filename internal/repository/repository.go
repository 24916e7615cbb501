package repository

import (
	"context"
	"errors"
)

// Slot names one piece of persisted checkout state within a session.
type Slot string

const (
	SlotCart      Slot = "cart"
	SlotDraft     Slot = "checkout_draft"
	SlotLastOrder Slot = "last_order"
)

var ErrSlotNotFound = errors.New("slot not found")

// Commit is a set of slot writes and deletes applied all-or-nothing.
type Commit struct {
	Writes  map[Slot][]byte
	Deletes []Slot
}

// deletes returns the slots to delete that are not also written; a write
// wins over a delete of the same slot.
func (c Commit) deletes() []Slot {
	out := make([]Slot, 0, len(c.Deletes))
	for _, s := range c.Deletes {
		if _, ok := c.Writes[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func (c Commit) empty() bool {
	return len(c.Writes) == 0 && len(c.Deletes) == 0
}

// SessionRepository stores serialized slots per browsing session. Values are
// always read in full and rewritten in full.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string, slot Slot) ([]byte, error)
	Put(ctx context.Context, sessionID string, slot Slot, data []byte) error
	Apply(ctx context.Context, sessionID string, commit Commit) error
	Close() error
}
