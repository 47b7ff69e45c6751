package settings

import (
	"sync/atomic"
	"time"
)

// Store is the state shared between the settings callback and the control
// loop: the loop delay and a wake signal. Writes go through Validator.
type Store struct {
	delayMS atomic.Int32
	wake    chan struct{}
}

// NewStore returns a Store holding delayMS. The initial value is not range
// checked; use Validator.Apply for external input.
func NewStore(delayMS int32) *Store {
	s := &Store{wake: make(chan struct{}, 1)}
	s.delayMS.Store(delayMS)
	return s
}

// DelayMS returns the current loop delay in milliseconds.
func (s *Store) DelayMS() int32 { return s.delayMS.Load() }

// Delay returns the current loop delay.
func (s *Store) Delay() time.Duration {
	return time.Duration(s.delayMS.Load()) * time.Millisecond
}

// Wake returns the channel that receives a value after the delay changed.
// Several changes before the loop looks collapse into one wake.
func (s *Store) Wake() <-chan struct{} { return s.wake }

func (s *Store) setDelayMS(ms int32) {
	s.delayMS.Store(ms)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
