// Package window locates registration windows: the instants at which the
// ledger resets its per-window registration allowance.
package window

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// Window is one registration opportunity.
type Window struct {
	Cycle uint
	// Target is the boundary height, 0 when the window was not located by height.
	Target   uint64
	Opens    time.Time
	Deadline time.Time
	// Synced is false when the window could not be located and the race
	// fires immediately instead.
	Synced bool
}

// Launch returns the launch time of the i-th staggered slot: one slot per
// successive block, each started lead before its block.
func (w Window) Launch(slot int, blockTime, lead time.Duration) time.Time {
	return w.Opens.Add(time.Duration(slot)*blockTime - lead)
}

func (w Window) Expired(now time.Time) bool {
	return !now.Before(w.Deadline)
}

// implement zap.ObjectMarshaler interface.
func (w Window) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint("cycle", w.Cycle)
	if w.Target != 0 {
		enc.AddUint64("target", w.Target)
	}
	enc.AddTime("opens", w.Opens)
	enc.AddTime("deadline", w.Deadline)
	enc.AddBool("synced", w.Synced)
	return nil
}

// NextBoundary returns the smallest multiple of period that is >= height.
// A zero period has no boundaries and yields height.
func NextBoundary(height, period uint64) uint64 {
	if period == 0 {
		return height
	}
	return height + (period-height%period)%period
}

// NextAnchor advances anchor by whole cycles until it lies strictly after now.
// An anchor already in the future is returned unchanged.
func NextAnchor(anchor, now time.Time, cycle time.Duration) time.Time {
	if cycle <= 0 || anchor.After(now) {
		return anchor
	}
	n := now.Sub(anchor)/cycle + 1
	return anchor.Add(n * cycle)
}
