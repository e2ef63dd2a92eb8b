package ir

import (
	"fmt"
	"strconv"
)

// Describe* functions render IR values as plain maps of strings, ints, bools,
// lists and maps. The result feeds canonical hashing and the compile output.
// Floats are rendered as shortest decimal strings since canonical JSON
// forbids them.

// DescribeCondition renders a condition tree. A nil condition renders as nil.
func DescribeCondition(cond Condition) map[string]any {
	if cond == nil {
		return nil
	}
	m := map[string]any{"kind": string(cond.Kind())}
	switch c := cond.(type) {
	case TimeAtOrAfter:
		m["at"] = int64(c.at)
	case TimeWindow:
		m["from"] = int64(c.from)
		m["until"] = int64(c.until)
	case CarSet:
		m["ids"] = stringList(c.ids.ids)
	case Polygon:
		verts := make([]any, len(c.vertices))
		for i, v := range c.vertices {
			verts[i] = []any{formatFloat(v.X), formatFloat(v.Y)}
		}
		m["vertices"] = verts
	case SpeedGreater:
		m["threshold"] = formatFloat(c.threshold)
	case And:
		m["left"] = DescribeCondition(c.left)
		m["right"] = DescribeCondition(c.right)
	case Or:
		m["left"] = DescribeCondition(c.left)
		m["right"] = DescribeCondition(c.right)
	default:
		panic(fmt.Sprintf("ir: unknown condition %T", cond))
	}
	return m
}

// DescribeEffect renders a single effect.
func DescribeEffect(eff Effect) map[string]any {
	m := map[string]any{"kind": string(eff.Kind())}
	switch e := eff.(type) {
	case Signal:
		m["signal"] = e.kind
	case SpeedScale:
		m["factor"] = formatFloat(e.factor)
	case LaneChange:
		m["lane"] = e.lane
		m["duration"] = int64(e.duration)
	case LaneChangeMode:
		m["mask"] = e.mask
	default:
		panic(fmt.Sprintf("ir: unknown effect %T", eff))
	}
	return m
}

// DescribeTargets renders a target-set rule.
func DescribeTargets(t Targets) map[string]any {
	m := map[string]any{"mode": string(t.Mode)}
	if t.Mode == TargetsSelect {
		m["select"] = stringList(t.Select.ids)
	}
	return m
}

// DescribeStory renders a story spec.
func DescribeStory(s Story) map[string]any {
	then := make([]any, len(s.Then))
	for i, e := range s.Then {
		then[i] = DescribeEffect(e)
	}
	return map[string]any{
		"name":    s.Name,
		"when":    DescribeCondition(s.When),
		"then":    then,
		"policy":  string(s.Policy),
		"targets": DescribeTargets(s.Targets),
	}
}

// DescribeScenario renders a scenario, stories in order.
func DescribeScenario(sc Scenario) map[string]any {
	stories := make([]any, len(sc.Stories))
	for i, s := range sc.Stories {
		stories[i] = DescribeStory(s)
	}
	return map[string]any{
		"name":    sc.Name,
		"stories": stories,
	}
}

func stringList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
