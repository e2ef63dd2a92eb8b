package ir

import (
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/roach88/storyboard/internal/timeline"
)

// EffectKind tags an Effect variant.
type EffectKind string

// Effect kinds. This set is closed.
const (
	EffectSignal         EffectKind = "signal"
	EffectSpeedScale     EffectKind = "speed_scale"
	EffectLaneChange     EffectKind = "lane_change"
	EffectLaneChangeMode EffectKind = "lane_change_mode"
)

// MaxLaneChangeMode is the largest valid lane-change mode: twelve
// maneuver-permission bits.
const MaxLaneChangeMode = 0xFFF

// Effect is a stateless actuation command. Applying one is an idempotent
// "set" on a single vehicle attribute, never a delta.
type Effect interface {
	Kind() EffectKind
	isEffect()
}

// Signal sets the vehicle's active warning signal.
type Signal struct {
	kind string
}

// NewSignal builds a signal effect. kind must be registered in known.
func NewSignal(kind string, known SignalSet) (Signal, error) {
	if !known.Has(kind) {
		return Signal{}, configErrorf("signal", "unknown signal kind %q (known: %s)", kind, strings.Join(known.Kinds(), ", "))
	}
	return Signal{kind: kind}, nil
}

func (e Signal) SignalKind() string { return e.kind }
func (Signal) Kind() EffectKind { return EffectSignal }
func (Signal) isEffect() {}

// SpeedScale sets the vehicle's speed multiplier. 1.0 leaves speed unchanged.
type SpeedScale struct {
	factor float64
}

// NewSpeedScale builds a speed-multiplier effect.
func NewSpeedScale(factor float64) (SpeedScale, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 0 {
		return SpeedScale{}, configErrorf("speed", "factor %v must be finite and non-negative", factor)
	}
	return SpeedScale{factor: factor}, nil
}

func (e SpeedScale) Factor() float64 { return e.factor }
func (SpeedScale) Kind() EffectKind { return EffectSpeedScale }
func (SpeedScale) isEffect() {}

// LaneChange commands a maneuver toward Lane, to complete within Duration.
// Re-issuing it restarts the maneuver.
type LaneChange struct {
	lane     int
	duration timeline.Tick
}

// NewLaneChange builds a lane-change effect.
func NewLaneChange(lane int, duration timeline.Tick) (LaneChange, error) {
	if lane < 0 {
		return LaneChange{}, configErrorf("laneChange.lane", "lane index %d is negative", lane)
	}
	if duration < 0 {
		return LaneChange{}, configErrorf("laneChange.duration", "duration %s is negative", duration)
	}
	return LaneChange{lane: lane, duration: duration}, nil
}

func (e LaneChange) Lane() int { return e.lane }
func (e LaneChange) Duration() timeline.Tick { return e.duration }
func (LaneChange) Kind() EffectKind { return EffectLaneChange }
func (LaneChange) isEffect() {}

// LaneChangeMode replaces the vehicle's lane-change permission bits.
type LaneChangeMode struct {
	mask int
}

// NewLaneChangeMode builds a lane-change-mode effect.
func NewLaneChangeMode(mask int) (LaneChangeMode, error) {
	if mask < 0 || mask > MaxLaneChangeMode {
		return LaneChangeMode{}, configErrorf("laneChangeMode", "mask %d outside 0..%d", mask, MaxLaneChangeMode)
	}
	return LaneChangeMode{mask: mask}, nil
}

func (e LaneChangeMode) Mask() int { return e.mask }
func (LaneChangeMode) Kind() EffectKind { return EffectLaneChangeMode }
func (LaneChangeMode) isEffect() {}

// SignalSet is the registry of signal kinds a scenario may emit.
// The zero value knows no kinds.
type SignalSet struct {
	kinds map[string]struct{}
}

// Default signal kinds, one per DEN use case.
const (
	SignalEVW  = "EVW"  // emergency vehicle warning
	SignalRWW  = "RWW"  // road works warning
	SignalEEBL = "EEBL" // emergency electronic brake light
	SignalSVW  = "SVW"  // stationary vehicle warning
	SignalFCW  = "FCW"  // forward collision warning
	SignalDM   = "DM"   // disaster management
)

// DefaultSignals returns the built-in signal registry.
func DefaultSignals() SignalSet {
	return SignalSet{}.With(SignalEVW, SignalRWW, SignalEEBL, SignalSVW, SignalFCW, SignalDM)
}

// With returns a copy of s extended with kinds. Blank kinds are ignored.
func (s SignalSet) With(kinds ...string) SignalSet {
	out := SignalSet{kinds: make(map[string]struct{}, len(s.kinds)+len(kinds))}
	for k := range s.kinds {
		out.kinds[k] = struct{}{}
	}
	for _, k := range kinds {
		if strings.TrimSpace(k) == "" {
			continue
		}
		out.kinds[k] = struct{}{}
	}
	return out
}

// Has reports whether kind is registered.
func (s SignalSet) Has(kind string) bool {
	_, ok := s.kinds[kind]
	return ok
}

// Kinds returns the registered kinds in sorted order.
func (s SignalSet) Kinds() []string {
	kinds := lo.Keys(s.kinds)
	slices.Sort(kinds)
	return kinds
}
