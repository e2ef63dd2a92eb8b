package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/storyboard/internal/ir"
)

// CompileScenario compiles a scenario value into IR.
//
// The value has an optional name, an optional list of extra signal kinds, an
// optional struct of named conditions and a required non-empty list of
// stories. Stories keep their declaration order.
func CompileScenario(v cue.Value) (ir.Scenario, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return ir.Scenario{}, formatCUEError(err)
	}

	var sc ir.Scenario
	if nameVal, ok := lookup(v, "name"); ok {
		name, err := stringValue(nameVal, "name")
		if err != nil {
			return ir.Scenario{}, err
		}
		sc.Name = name
	}

	known := ir.DefaultSignals()
	if sigVal, ok := lookup(v, "signals"); ok {
		extra, err := stringList(sigVal, "signals")
		if err != nil {
			return ir.Scenario{}, err
		}
		known = known.With(extra...)
	}

	defs, err := namedConditions(v)
	if err != nil {
		return ir.Scenario{}, err
	}
	if err := checkRefs(defs); err != nil {
		return ir.Scenario{}, err
	}
	conds := newConditions(defs)

	storiesVal, ok := lookup(v, "stories")
	if !ok {
		return ir.Scenario{}, &CompileError{Field: "stories", Message: "is required", Pos: v.Pos()}
	}
	elems, err := listValues(storiesVal, "stories")
	if err != nil {
		return ir.Scenario{}, err
	}
	if len(elems) == 0 {
		return ir.Scenario{}, &CompileError{Field: "stories", Message: "must not be empty", Pos: storiesVal.Pos()}
	}
	for i, e := range elems {
		story, err := compileStory(e, fmt.Sprintf("stories[%d]", i), conds, known)
		if err != nil {
			return ir.Scenario{}, err
		}
		sc.Stories = append(sc.Stories, story)
	}
	return sc, nil
}

// CompileSource compiles CUE source text. filename is used in positions.
func CompileSource(filename string, src []byte) (ir.Scenario, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return ir.Scenario{}, formatCUEError(err)
	}
	return CompileScenario(v)
}

func namedConditions(v cue.Value) (map[string]cue.Value, error) {
	defs := make(map[string]cue.Value)
	condVal, ok := lookup(v, "conditions")
	if !ok {
		return defs, nil
	}
	if condVal.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "conditions", Message: "must be a struct of named conditions", Pos: condVal.Pos()}
	}
	iter, err := condVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		defs[iter.Label()] = iter.Value()
	}
	return defs, nil
}

func compileStory(v cue.Value, field string, conds *conditions, known ir.SignalSet) (ir.Story, error) {
	if v.IncompleteKind() != cue.StructKind {
		return ir.Story{}, &CompileError{Field: field, Message: "must be a struct", Pos: v.Pos()}
	}

	var opts []ir.StoryOption
	if nameVal, ok := lookup(v, "name"); ok {
		name, err := stringValue(nameVal, field+".name")
		if err != nil {
			return ir.Story{}, err
		}
		opts = append(opts, ir.WithName(name))
	}

	whenVal, ok := lookup(v, "when")
	if !ok {
		return ir.Story{}, &CompileError{Field: field + ".when", Message: "is required", Pos: v.Pos()}
	}
	when, err := conds.compile(whenVal, field+".when")
	if err != nil {
		return ir.Story{}, err
	}

	thenVal, ok := lookup(v, "then")
	if !ok {
		return ir.Story{}, &CompileError{Field: field + ".then", Message: "is required", Pos: v.Pos()}
	}
	elems, err := listValues(thenVal, field+".then")
	if err != nil {
		return ir.Story{}, err
	}
	then := make([]ir.Effect, 0, len(elems))
	for i, e := range elems {
		eff, err := CompileEffect(e, fmt.Sprintf("%s.then[%d]", field, i), known)
		if err != nil {
			return ir.Story{}, err
		}
		then = append(then, eff)
	}

	if policyVal, ok := lookup(v, "policy"); ok {
		s, err := stringValue(policyVal, field+".policy")
		if err != nil {
			return ir.Story{}, err
		}
		policy, err := ir.ParsePolicy(s)
		if err != nil {
			return ir.Story{}, wrapConfigError(field+".policy", policyVal.Pos(), err)
		}
		opts = append(opts, ir.WithPolicy(policy))
	}

	if targetsVal, ok := lookup(v, "targets"); ok {
		targets, err := compileTargets(targetsVal, field+".targets")
		if err != nil {
			return ir.Story{}, err
		}
		opts = append(opts, ir.WithTargets(targets))
	}

	story, err := ir.NewStory(when, then, opts...)
	if err != nil {
		return ir.Story{}, wrapConfigError(field, v.Pos(), err)
	}
	return story, nil
}

// compileTargets accepts "matched", "all", "none" or {select: [ids...]}.
func compileTargets(v cue.Value, field string) (ir.Targets, error) {
	if v.IncompleteKind() == cue.StringKind {
		s, err := stringValue(v, field)
		if err != nil {
			return ir.Targets{}, err
		}
		switch ir.TargetMode(s) {
		case ir.TargetsMatched:
			return ir.MatchedTargets, nil
		case ir.TargetsAll:
			return ir.AllTargets, nil
		case ir.TargetsNone:
			return ir.NoTargets, nil
		}
		return ir.Targets{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown target mode %q (want matched, all, none or {select: [...]})", s),
			Pos:     v.Pos(),
		}
	}

	_, body, err := singleKey(v, field, []string{"select"})
	if err != nil {
		return ir.Targets{}, err
	}
	ids, err := stringList(body, field+".select")
	if err != nil {
		return ir.Targets{}, err
	}
	set, err := ir.NewIdentifierSet(ids...)
	if err != nil {
		return ir.Targets{}, wrapConfigError(field+".select", body.Pos(), err)
	}
	return ir.SelectTargets(set), nil
}
