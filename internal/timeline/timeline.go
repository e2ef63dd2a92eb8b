// Package timeline converts human time units into discrete simulation ticks.
//
// A Tick is the unit the storyboard evaluates against. One tick is one
// millisecond of simulated time; the kernel decides how many ticks pass
// between two steps. Every function here is pure.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Tick is a point in simulated time, counted in Resolution units since the
// start of the run.
type Tick int64

// Resolution is the simulated duration of a single tick.
const Resolution = time.Millisecond

// MaxTick is the latest tick whose Duration does not overflow.
const MaxTick = Tick(math.MaxInt64 / int64(Resolution))

// ErrOutOfRange is returned when a time does not fit between -MaxTick and
// MaxTick.
var ErrOutOfRange = errors.New("time out of range")

// Seconds converts n seconds into ticks, rounding to the nearest tick.
func Seconds(n float64) Tick {
	return Tick(math.Round(n * float64(time.Second/Resolution)))
}

// ParseSeconds converts n seconds into ticks like Seconds, failing with
// ErrOutOfRange when n is not finite or lies beyond MaxTick.
func ParseSeconds(n float64) (Tick, error) {
	ticks := math.Round(n * float64(time.Second/Resolution))
	if math.IsNaN(ticks) || math.Abs(ticks) > float64(MaxTick) {
		return 0, fmt.Errorf("%g seconds: %w", n, ErrOutOfRange)
	}
	return Tick(ticks), nil
}

// Milliseconds converts n milliseconds into ticks, rounding to the nearest tick.
func Milliseconds(n float64) Tick {
	return Tick(math.Round(n * float64(time.Millisecond/Resolution)))
}

// FromDuration converts a Go duration into ticks, truncating sub-tick precision.
func FromDuration(d time.Duration) Tick {
	return Tick(d / Resolution)
}

// ParseTick parses a Go duration string ("10s", "15000ms", "1m30s") into ticks.
func ParseTick(s string) (Tick, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse tick %q: %w", s, err)
	}
	return FromDuration(d), nil
}

// Duration returns the simulated duration represented by t.
func (t Tick) Duration() time.Duration {
	return time.Duration(t) * Resolution
}

// Seconds returns t as fractional seconds.
func (t Tick) Seconds() float64 {
	return t.Duration().Seconds()
}

func (t Tick) String() string {
	return t.Duration().String()
}
