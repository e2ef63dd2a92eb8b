package compiler

import (
	"fmt"
	"math"
	"regexp"

	"github.com/paulmach/orb/planar"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

// Validation error codes (E101-E112)
const (
	ErrNoStories           = "E101" // scenario has no stories
	ErrDuplicateStoryName  = "E102" // two stories share a name
	ErrNoEffects           = "E103" // story has no effects, or a nil effect
	ErrNoCondition         = "E104" // story has no condition
	ErrTimeOnlyMatched     = "E105" // time-only condition targets matched vehicles
	ErrEmptySelect         = "E106" // select targets name no identifiers
	ErrUnknownPolicy       = "E107" // policy is not single-shot, retriggerable or continuous
	ErrUnsatisfiableTime   = "E108" // conjunction of disjoint time constraints
	ErrReservedName        = "E109" // name collides with generated story ids
	ErrDegeneratePolygon   = "E110" // polygon encloses no area
	ErrContinuousLaneShift = "E111" // continuous story restarts a lane change every tick
	ErrMalformedNode       = "E112" // condition or effect not built by its constructor
)

// ValidationError represents a scenario validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var reservedName = regexp.MustCompile(`^story-\d+$`)

// Validate checks a scenario for problems the constructors cannot see on
// their own: cross-story conflicts, unsatisfiable conditions and nodes built
// without constructors. Returns all errors found (does not fail-fast).
func Validate(sc ir.Scenario) []ValidationError {
	var errs []ValidationError

	// E101
	if len(sc.Stories) == 0 {
		errs = append(errs, ValidationError{
			Field:   "stories",
			Message: "scenario has no stories",
			Code:    ErrNoStories,
		})
	}

	names := make(map[string]int)
	for i, s := range sc.Stories {
		field := fmt.Sprintf("stories[%d]", i)

		if s.Name != "" {
			// E102
			if first, ok := names[s.Name]; ok {
				errs = append(errs, ValidationError{
					Field:   field + ".name",
					Message: fmt.Sprintf("duplicate story name %q (first used by stories[%d])", s.Name, first),
					Code:    ErrDuplicateStoryName,
				})
			} else {
				names[s.Name] = i
			}
			// E109
			if reservedName.MatchString(s.Name) {
				errs = append(errs, ValidationError{
					Field:   field + ".name",
					Message: fmt.Sprintf("name %q is reserved for unnamed stories", s.Name),
					Code:    ErrReservedName,
				})
			}
		}

		errs = append(errs, validateStory(s, field)...)
	}
	return errs
}

func validateStory(s ir.Story, field string) []ValidationError {
	var errs []ValidationError

	// E104
	if s.When == nil {
		errs = append(errs, ValidationError{
			Field:   field + ".when",
			Message: "story has no condition",
			Code:    ErrNoCondition,
		})
	} else {
		errs = append(errs, validateCondition(s.When, field+".when")...)
	}

	// E103
	if len(s.Then) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".then",
			Message: "story has no effects",
			Code:    ErrNoEffects,
		})
	}
	for i, e := range s.Then {
		efield := fmt.Sprintf("%s.then[%d]", field, i)
		if e == nil {
			errs = append(errs, ValidationError{Field: efield, Message: "effect is nil", Code: ErrNoEffects})
			continue
		}
		errs = append(errs, validateEffect(e, efield)...)

		// E111
		if _, ok := e.(ir.LaneChange); ok && s.Policy == ir.PolicyContinuous {
			errs = append(errs, ValidationError{
				Field:   efield,
				Message: "a continuous story re-issues its lane change every tick, so the maneuver never completes",
				Code:    ErrContinuousLaneShift,
			})
		}
	}

	// E107
	if _, err := ir.ParsePolicy(string(s.Policy)); err != nil {
		errs = append(errs, ValidationError{
			Field:   field + ".policy",
			Message: fmt.Sprintf("unknown policy %q", s.Policy),
			Code:    ErrUnknownPolicy,
		})
	}

	switch s.Targets.Mode {
	case ir.TargetsMatched:
		// E105
		if s.When != nil && len(ir.VehicleLeaves(s.When)) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".targets",
				Message: "time-only condition matches no vehicles; declare all, none or select targets",
				Code:    ErrTimeOnlyMatched,
			})
		}
	case ir.TargetsSelect:
		// E106
		if s.Targets.Select.Empty() {
			errs = append(errs, ValidationError{
				Field:   field + ".targets.select",
				Message: "select names no identifiers",
				Code:    ErrEmptySelect,
			})
		}
	}
	return errs
}

func validateCondition(cond ir.Condition, field string) []ValidationError {
	var errs []ValidationError
	malformed := func(format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: ErrMalformedNode})
	}

	switch c := cond.(type) {
	case ir.TimeWindow:
		if c.Until() <= c.From() {
			malformed("time window [%s, %s) is empty", c.From(), c.Until())
		}
	case ir.CarSet:
		if c.IDs().Empty() {
			malformed("car set names no identifiers")
		}
	case ir.Polygon:
		vertices := c.Vertices()
		if len(vertices) < 3 {
			malformed("polygon has %d vertices", len(vertices))
			break
		}
		// E110
		if planar.Area(c.Ring()) == 0 {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "polygon encloses no area",
				Code:    ErrDegeneratePolygon,
			})
		}
	case ir.And:
		if c.Left() == nil || c.Right() == nil {
			malformed("and node is missing an operand")
			break
		}
		errs = append(errs, validateCondition(c.Left(), field+".left")...)
		errs = append(errs, validateCondition(c.Right(), field+".right")...)
		// E108
		l, lok := timeSpan(c.Left())
		r, rok := timeSpan(c.Right())
		if lok && rok && l.nonEmpty() && r.nonEmpty() && !l.intersect(r).nonEmpty() {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("time constraints %s and %s never overlap", l, r),
				Code:    ErrUnsatisfiableTime,
			})
		}
	case ir.Or:
		if c.Left() == nil || c.Right() == nil {
			malformed("or node is missing an operand")
			break
		}
		errs = append(errs, validateCondition(c.Left(), field+".left")...)
		errs = append(errs, validateCondition(c.Right(), field+".right")...)
	}
	return errs
}

func validateEffect(eff ir.Effect, field string) []ValidationError {
	switch e := eff.(type) {
	case ir.Signal:
		if e.SignalKind() == "" {
			return []ValidationError{{Field: field, Message: "signal has no kind", Code: ErrMalformedNode}}
		}
	case ir.LaneChange:
		if e.Lane() < 0 || e.Duration() < 0 {
			return []ValidationError{{Field: field, Message: "lane change has a negative lane or duration", Code: ErrMalformedNode}}
		}
	case ir.LaneChangeMode:
		if e.Mask() < 0 || e.Mask() > ir.MaxLaneChangeMode {
			return []ValidationError{{Field: field, Message: fmt.Sprintf("mask %d outside 0..%d", e.Mask(), ir.MaxLaneChangeMode), Code: ErrMalformedNode}}
		}
	}
	return nil
}

// span is a half-open tick interval [from, until). An until of
// math.MaxInt64 means unbounded.
type span struct {
	from, until timeline.Tick
}

func (s span) intersect(o span) span {
	return span{from: max(s.from, o.from), until: min(s.until, o.until)}
}

func (s span) nonEmpty() bool { return s.from < s.until }

func (s span) String() string {
	if s.until == math.MaxInt64 {
		return fmt.Sprintf("[%s, ∞)", s.from)
	}
	return fmt.Sprintf("[%s, %s)", s.from, s.until)
}

// timeSpan returns the ticks on which a purely temporal condition can hold.
// For an Or the span is the hull of both sides, which over-approximates but
// never reports a satisfiable tree as unsatisfiable. ok is false when the
// tree contains a vehicle leaf.
func timeSpan(cond ir.Condition) (span, bool) {
	switch c := cond.(type) {
	case ir.TimeAtOrAfter:
		return span{from: c.At(), until: math.MaxInt64}, true
	case ir.TimeWindow:
		return span{from: c.From(), until: c.Until()}, true
	case ir.And:
		l, lok := timeSpan(c.Left())
		r, rok := timeSpan(c.Right())
		return l.intersect(r), lok && rok
	case ir.Or:
		l, lok := timeSpan(c.Left())
		r, rok := timeSpan(c.Right())
		return span{from: min(l.from, r.from), until: max(l.until, r.until)}, lok && rok
	}
	return span{}, false
}
