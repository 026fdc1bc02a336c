package tracker

import (
	"strings"

	"github.com/dyluth/bandstand/pkg/realtime"
	"github.com/google/uuid"
)

// Presence tracks how many distinct participants a channel currently has.
type Presence struct {
	count int
}

// Sync replaces the count with the size of the latest membership snapshot.
func (p *Presence) Sync(state realtime.PresenceState) int {
	p.count = len(state)
	return p.count
}

// Leave resets the count after this view leaves the channel.
func (p *Presence) Leave() {
	p.count = 0
}

// Count returns the number of participants in the last snapshot.
func (p *Presence) Count() int {
	return p.count
}

// NewPresenceKey returns a random session-scoped participant key, e.g. "user-3f9a1c0b2".
func NewPresenceKey() string {
	return "user-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
}
