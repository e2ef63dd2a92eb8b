package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/vehicle"
)

// Outcome is the result of one actuation.
type Outcome string

const (
	// OutcomeApplied means the kernel accepted the command.
	OutcomeApplied Outcome = "applied"
	// OutcomeDeparted means the vehicle left between query and actuation.
	OutcomeDeparted Outcome = "departed"
	// OutcomeFailed means the kernel rejected the command.
	OutcomeFailed Outcome = "failed"
)

// Actuation records one effect applied to one vehicle.
type Actuation struct {
	Vehicle string        `json:"vehicle"`
	Effect  ir.EffectKind `json:"effect"`
	Value   string        `json:"value"`
	Outcome Outcome       `json:"outcome"`
	Error   string        `json:"error,omitempty"`
}

// Apply applies effects to vehicles through act. Vehicles are visited in the
// given order and each receives every effect in declaration order. One
// Actuation is returned per (vehicle, effect) pair.
//
// A failing actuation never stops the rest: a departed vehicle is recorded as
// OutcomeDeparted and any other error as OutcomeFailed.
func Apply(effects []ir.Effect, vehicles []string, act vehicle.Actuator) []Actuation {
	out := make([]Actuation, 0, len(effects)*len(vehicles))
	for _, id := range vehicles {
		for _, eff := range effects {
			a := Actuation{Vehicle: id, Effect: eff.Kind(), Value: EffectValue(eff), Outcome: OutcomeApplied}
			if err := applyOne(eff, id, act); err != nil {
				a.Outcome = OutcomeFailed
				if errors.Is(err, vehicle.ErrDeparted) {
					a.Outcome = OutcomeDeparted
				}
				a.Error = err.Error()
			}
			out = append(out, a)
		}
	}
	return out
}

func applyOne(eff ir.Effect, id string, act vehicle.Actuator) error {
	switch e := eff.(type) {
	case ir.Signal:
		return act.SetSignal(id, e.SignalKind())
	case ir.SpeedScale:
		return act.SetSpeedFactor(id, e.Factor())
	case ir.LaneChange:
		return act.ChangeLane(id, e.Lane(), e.Duration())
	case ir.LaneChangeMode:
		return act.SetLaneChangeMode(id, e.Mask())
	default:
		panic(fmt.Sprintf("engine: unknown effect %T", eff))
	}
}

// EffectValue renders the value an effect sets, for logs and the firing
// record.
func EffectValue(eff ir.Effect) string {
	switch e := eff.(type) {
	case ir.Signal:
		return e.SignalKind()
	case ir.SpeedScale:
		return strconv.FormatFloat(e.Factor(), 'g', -1, 64)
	case ir.LaneChange:
		return fmt.Sprintf("lane=%d duration=%s", e.Lane(), e.Duration())
	case ir.LaneChangeMode:
		return strconv.Itoa(e.Mask())
	default:
		panic(fmt.Sprintf("engine: unknown effect %T", eff))
	}
}
