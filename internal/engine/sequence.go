package engine

import "sync/atomic"

// Sequence hands out strictly increasing insertion numbers.
// It is safe for concurrent use.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence whose next value is start+1.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next number.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last number handed out.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
