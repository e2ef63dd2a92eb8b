package ir

import "fmt"

// Policy selects how a story responds to its condition over time.
type Policy string

const (
	// PolicySingleShot fires on the first rising edge and never again.
	PolicySingleShot Policy = "single-shot"
	// PolicyRetriggerable fires on every rising edge.
	PolicyRetriggerable Policy = "retriggerable"
	// PolicyContinuous fires on every tick the condition holds.
	PolicyContinuous Policy = "continuous"
)

// ParsePolicy parses a policy name. The empty string selects PolicySingleShot.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicySingleShot, nil
	case PolicySingleShot, PolicyRetriggerable, PolicyContinuous:
		return Policy(s), nil
	default:
		return "", configErrorf("policy", "unknown policy %q (want single-shot, retriggerable or continuous)", s)
	}
}

// TargetMode selects which vehicles a firing story acts on.
type TargetMode string

const (
	// TargetsMatched acts on the vehicles currently matched by the vehicle
	// leaves of the story's condition.
	TargetsMatched TargetMode = "matched"
	// TargetsAll acts on every present vehicle.
	TargetsAll TargetMode = "all"
	// TargetsNone acts on nobody. The firing is still recorded.
	TargetsNone TargetMode = "none"
	// TargetsSelect acts on the vehicles matched by an explicit identifier set.
	TargetsSelect TargetMode = "select"
)

// Targets is the target-set rule of a story. The zero value means "derive
// from the condition" and is resolved by NewStory.
type Targets struct {
	Mode   TargetMode
	Select IdentifierSet
}

// MatchedTargets, AllTargets and NoTargets are the parameterless rules.
var (
	MatchedTargets = Targets{Mode: TargetsMatched}
	AllTargets     = Targets{Mode: TargetsAll}
	NoTargets      = Targets{Mode: TargetsNone}
)

// SelectTargets acts on the vehicles matched by ids.
func SelectTargets(ids IdentifierSet) Targets {
	return Targets{Mode: TargetsSelect, Select: ids}
}

// Story is the immutable spec of one condition-to-effects binding.
type Story struct {
	Name    string
	When    Condition
	Then    []Effect
	Policy  Policy
	Targets Targets
}

// StoryOption configures NewStory.
type StoryOption func(*Story)

// WithName names the story. Names become story ids on a board.
func WithName(name string) StoryOption {
	return func(s *Story) { s.Name = name }
}

// WithPolicy sets the firing policy.
func WithPolicy(p Policy) StoryOption {
	return func(s *Story) { s.Policy = p }
}

// WithTargets sets the target-set rule.
func WithTargets(t Targets) StoryOption {
	return func(s *Story) { s.Targets = t }
}

// NewStory validates and builds a story. The effect list is copied.
//
// When no targets are given, a condition with vehicle leaves targets the
// matched vehicles; a condition without any (time-only) has no implied
// vehicles and must declare its targets.
func NewStory(when Condition, then []Effect, opts ...StoryOption) (Story, error) {
	s := Story{When: when, Policy: PolicySingleShot}
	for _, opt := range opts {
		opt(&s)
	}
	s.Then = append([]Effect(nil), then...)

	if s.Policy == "" {
		s.Policy = PolicySingleShot
	}
	if s.Targets.Mode == "" && when != nil {
		if len(VehicleLeaves(when)) == 0 {
			return Story{}, configErrorf("targets", "story %s has a time-only condition and must declare its targets", s.label())
		}
		s.Targets = MatchedTargets
	}
	if s.Targets.Mode != TargetsSelect {
		s.Targets.Select = IdentifierSet{}
	}
	if err := s.Validate(); err != nil {
		return Story{}, err
	}
	return s, nil
}

// Validate checks a story with no defaults applied: the policy and target
// mode must be set explicitly. Stories built by NewStory always pass.
func (s Story) Validate() error {
	if s.When == nil {
		return configErrorf("when", "condition is required")
	}
	if len(s.Then) == 0 {
		return configErrorf("then", "story %s has no effects", s.label())
	}
	for i, e := range s.Then {
		if e == nil {
			return configErrorf(fmt.Sprintf("then[%d]", i), "effect is nil")
		}
	}

	switch s.Policy {
	case PolicySingleShot, PolicyRetriggerable, PolicyContinuous:
	case "":
		return configErrorf("policy", "story %s has no policy", s.label())
	default:
		return configErrorf("policy", "unknown policy %q (want single-shot, retriggerable or continuous)", s.Policy)
	}

	switch s.Targets.Mode {
	case TargetsMatched:
		if len(VehicleLeaves(s.When)) == 0 {
			return configErrorf("targets", "story %s targets matched vehicles but its condition matches none", s.label())
		}
	case TargetsAll, TargetsNone:
	case TargetsSelect:
		if s.Targets.Select.Empty() {
			return configErrorf("targets.select", "story %s selects no identifiers", s.label())
		}
	case "":
		return configErrorf("targets", "story %s has no target mode", s.label())
	default:
		return configErrorf("targets", "unknown target mode %q", s.Targets.Mode)
	}
	return nil
}

func (s Story) label() string {
	if s.Name == "" {
		return "(unnamed)"
	}
	return fmt.Sprintf("%q", s.Name)
}

// Scenario is an ordered list of stories. Order is registration order.
type Scenario struct {
	Name    string
	Stories []Story
}
