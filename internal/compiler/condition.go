package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/storyboard/internal/ir"
	"github.com/roach88/storyboard/internal/timeline"
)

var conditionForms = []string{"time", "cars", "polygon", "speedAbove", "and", "or", "ref"}

// conditions compiles condition trees, resolving references to the named
// conditions of a scenario. Each named condition is compiled once and shared
// by every tree that references it.
type conditions struct {
	defs     map[string]cue.Value
	compiled map[string]ir.Condition
}

func newConditions(defs map[string]cue.Value) *conditions {
	return &conditions{defs: defs, compiled: make(map[string]ir.Condition)}
}

// CompileCondition compiles a single condition tree that contains no
// references.
func CompileCondition(v cue.Value) (ir.Condition, error) {
	return newConditions(nil).compile(v, "when")
}

func (c *conditions) compile(v cue.Value, field string) (ir.Condition, error) {
	form, body, err := singleKey(v, field, conditionForms)
	if err != nil {
		return nil, err
	}
	field = field + "." + form

	var (
		cond ir.Condition
		cerr error
	)
	switch form {
	case "time":
		return compileTime(body, field)
	case "cars":
		ids, err := stringList(body, field)
		if err != nil {
			return nil, err
		}
		set, err := ir.NewIdentifierSet(ids...)
		if err != nil {
			return nil, wrapConfigError(field, body.Pos(), err)
		}
		cond, cerr = ir.NewCarSet(set)
	case "polygon":
		vertices, err := compileVertices(body, field)
		if err != nil {
			return nil, err
		}
		cond, cerr = ir.NewPolygon(vertices)
	case "speedAbove":
		threshold, err := numberValue(body, field)
		if err != nil {
			return nil, err
		}
		cond, cerr = ir.NewSpeedGreater(threshold)
	case "and", "or":
		return c.compileJunction(form, body, field)
	case "ref":
		name, err := stringValue(body, field)
		if err != nil {
			return nil, err
		}
		return c.resolve(name, body.Pos())
	}
	if cerr != nil {
		return nil, wrapConfigError(field, body.Pos(), cerr)
	}
	return cond, nil
}

// compileJunction folds an n-ary and/or list left into binary nodes:
// [a, b, c] becomes op(op(a, b), c).
func (c *conditions) compileJunction(form string, v cue.Value, field string) (ir.Condition, error) {
	elems, err := listValues(v, field)
	if err != nil {
		return nil, err
	}
	if len(elems) < 2 {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("needs at least 2 operands, got %d", len(elems)),
			Pos:     v.Pos(),
		}
	}

	acc, err := c.compile(elems[0], fmt.Sprintf("%s[0]", field))
	if err != nil {
		return nil, err
	}
	for i, e := range elems[1:] {
		next, err := c.compile(e, fmt.Sprintf("%s[%d]", field, i+1))
		if err != nil {
			return nil, err
		}
		if form == "and" {
			acc, err = ir.NewAnd(acc, next)
		} else {
			acc, err = ir.NewOr(acc, next)
		}
		if err != nil {
			return nil, wrapConfigError(field, v.Pos(), err)
		}
	}
	return acc, nil
}

// resolve compiles a named condition on first use. Reference cycles are
// rejected before compilation starts, so the recursion terminates.
func (c *conditions) resolve(name string, pos token.Pos) (ir.Condition, error) {
	if cond, ok := c.compiled[name]; ok {
		return cond, nil
	}
	def, ok := c.defs[name]
	if !ok {
		return nil, &CompileError{
			Field:   "ref",
			Message: fmt.Sprintf("unknown condition %q", name),
			Pos:     pos,
		}
	}
	cond, err := c.compile(def, "conditions."+name)
	if err != nil {
		return nil, err
	}
	c.compiled[name] = cond
	return cond, nil
}

func compileTime(v cue.Value, field string) (ir.Condition, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: field, Message: "must be a struct with from and optional until", Pos: v.Pos()}
	}
	fromVal, ok := lookup(v, "from")
	if !ok {
		return nil, &CompileError{Field: field + ".from", Message: "is required", Pos: v.Pos()}
	}
	from, err := timeValue(fromVal, field+".from")
	if err != nil {
		return nil, err
	}

	var (
		cond ir.Condition
		cerr error
	)
	if untilVal, ok := lookup(v, "until"); ok {
		var until timeline.Tick
		until, err = timeValue(untilVal, field+".until")
		if err != nil {
			return nil, err
		}
		cond, cerr = ir.NewTimeWindow(from, until)
	} else {
		cond, cerr = ir.NewTimeAtOrAfter(from)
	}
	if cerr != nil {
		return nil, wrapConfigError(field, v.Pos(), cerr)
	}
	return cond, nil
}

func compileVertices(v cue.Value, field string) ([]ir.Coord, error) {
	elems, err := listValues(v, field)
	if err != nil {
		return nil, err
	}
	vertices := make([]ir.Coord, 0, len(elems))
	for i, e := range elems {
		vfield := fmt.Sprintf("%s[%d]", field, i)
		pair, err := listValues(e, vfield)
		if err != nil {
			return nil, err
		}
		if len(pair) != 2 {
			return nil, &CompileError{Field: vfield, Message: fmt.Sprintf("vertex must be [x, y], got %d values", len(pair)), Pos: e.Pos()}
		}
		x, err := numberValue(pair[0], vfield+".x")
		if err != nil {
			return nil, err
		}
		y, err := numberValue(pair[1], vfield+".y")
		if err != nil {
			return nil, err
		}
		vertices = append(vertices, ir.Coord{X: x, Y: y})
	}
	return vertices, nil
}
