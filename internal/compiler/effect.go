package compiler

import (
	"cuelang.org/go/cue"

	"github.com/roach88/storyboard/internal/ir"
)

var effectForms = []string{"signal", "speed", "laneChange", "laneChangeMode"}

// CompileEffect compiles one effect. Signal kinds are checked against known.
func CompileEffect(v cue.Value, field string, known ir.SignalSet) (ir.Effect, error) {
	form, body, err := singleKey(v, field, effectForms)
	if err != nil {
		return nil, err
	}
	field = field + "." + form

	var (
		eff  ir.Effect
		eerr error
	)
	switch form {
	case "signal":
		kind, err := stringValue(body, field)
		if err != nil {
			return nil, err
		}
		eff, eerr = ir.NewSignal(kind, known)
	case "speed":
		factor, err := numberValue(body, field)
		if err != nil {
			return nil, err
		}
		eff, eerr = ir.NewSpeedScale(factor)
	case "laneChange":
		laneVal, ok := lookup(body, "lane")
		if !ok {
			return nil, &CompileError{Field: field + ".lane", Message: "is required", Pos: body.Pos()}
		}
		lane, err := intValue(laneVal, field+".lane")
		if err != nil {
			return nil, err
		}
		durVal, ok := lookup(body, "duration")
		if !ok {
			return nil, &CompileError{Field: field + ".duration", Message: "is required", Pos: body.Pos()}
		}
		duration, err := timeValue(durVal, field+".duration")
		if err != nil {
			return nil, err
		}
		eff, eerr = ir.NewLaneChange(lane, duration)
	case "laneChangeMode":
		mask, err := intValue(body, field)
		if err != nil {
			return nil, err
		}
		eff, eerr = ir.NewLaneChangeMode(mask)
	}
	if eerr != nil {
		return nil, wrapConfigError(field, body.Pos(), eerr)
	}
	return eff, nil
}
