package video

import (
	"sync"
	"time"
)

// Slot is a single-frame mailbox. Publish overwrites whatever is
// there, so readers always see the newest frame and slow readers
// simply miss frames.
type Slot struct {
	mu sync.RWMutex

	frame    Frame
	has      bool
	consumed bool
	seq      uint64

	totalDrops uint64
}

// SlotStats are the mailbox counters.
type SlotStats struct {
	Published  uint64    `json:"published"`
	TotalDrops uint64    `json:"total_drops"`
	LastFrame  time.Time `json:"last_frame"`
}

// NewSlot creates an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Publish stores a new frame, assigning its sequence number.
func (s *Slot) Publish(jpeg []byte, width, height int) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.has && !s.consumed {
		s.totalDrops++
	}

	s.seq++
	s.frame = Frame{
		Seq:      s.seq,
		JPEG:     jpeg,
		Width:    width,
		Height:   height,
		Captured: time.Now(),
	}
	s.has = true
	s.consumed = false
	return s.frame
}

// Latest implements Source. The JPEG slice is shared and must be
// treated as read-only.
func (s *Slot) Latest() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.has {
		return Frame{}, false
	}
	s.consumed = true
	return s.frame, true
}

// Stats returns the mailbox counters.
func (s *Slot) Stats() SlotStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SlotStats{
		Published:  s.seq,
		TotalDrops: s.totalDrops,
		LastFrame:  s.frame.Captured,
	}
}
