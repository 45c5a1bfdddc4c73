package timex

import (
	"sync/atomic"
	"time"
)

// Clock returns the current wall-clock time as Unix seconds.
type Clock func() int64

// Wall is the default Clock.
func Wall() int64 { return time.Now().Unix() }

// Fixed returns a Clock pinned to sec. Used by simulators and tests.
func Fixed(sec int64) Clock { return func() int64 { return sec } }

// Manual is a Clock source advanced by hand.
type Manual struct{ sec atomic.Int64 }

func NewManual(sec int64) *Manual {
	m := &Manual{}
	m.sec.Store(sec)
	return m
}

func (m *Manual) Now() int64            { return m.sec.Load() }
func (m *Manual) Advance(d int64) int64 { return m.sec.Add(d) }
func (m *Manual) Clock() Clock          { return m.Now }
