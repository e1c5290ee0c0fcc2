// pkg/tracking/mailbox.go
package tracking

import (
	"sync"
	"time"
)

// Mailbox is a single-slot handoff between the detector and the game loop.
// A new detection overwrites any unread one; Take reads and clears the slot
// and never waits.
type Mailbox struct {
	mu       sync.Mutex
	slot     Detection
	full     bool
	posted   uint64
	dropped  uint64
	lastPost time.Time
}

// NewMailbox creates an empty mailbox
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Post stores d, replacing an unread detection
func (m *Mailbox) Post(d Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.full {
		m.dropped++
	}
	m.slot = d
	m.full = true
	m.posted++
	m.lastPost = time.Now()
}

// Take returns the latest detection and empties the slot
func (m *Mailbox) Take() (Detection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.full {
		return Detection{}, false
	}
	d := m.slot
	m.slot = Detection{}
	m.full = false
	return d, true
}

// Stats returns how many detections were posted and how many were
// overwritten before being read.
func (m *Mailbox) Stats() (posted, dropped uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posted, m.dropped
}

// LastPost returns when a detection last arrived; zero if none ever did
func (m *Mailbox) LastPost() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPost
}
