package compiler

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"

	"github.com/roach88/storyboard/internal/timeline"
)

// singleKey returns the only field of struct v. Tagged unions in the scenario
// language are structs with exactly one key drawn from forms.
func singleKey(v cue.Value, field string, forms []string) (string, cue.Value, error) {
	if v.IncompleteKind() != cue.StructKind {
		return "", cue.Value{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must be a struct with exactly one of: %s", strings.Join(forms, ", ")),
			Pos:     v.Pos(),
		}
	}
	iter, err := v.Fields()
	if err != nil {
		return "", cue.Value{}, formatCUEError(err)
	}
	var labels []string
	var val cue.Value
	for iter.Next() {
		labels = append(labels, iter.Label())
		val = iter.Value()
	}
	if len(labels) != 1 {
		return "", cue.Value{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("must have exactly one of %s, got %d keys %v", strings.Join(forms, ", "), len(labels), labels),
			Pos:     v.Pos(),
		}
	}
	if !slices.Contains(forms, labels[0]) {
		return "", cue.Value{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unknown form %q, want one of: %s", labels[0], strings.Join(forms, ", ")),
			Pos:     v.Pos(),
		}
	}
	return labels[0], val, nil
}

func stringValue(v cue.Value, field string) (string, error) {
	if v.IncompleteKind() != cue.StringKind {
		return "", &CompileError{Field: field, Message: "must be a string", Pos: v.Pos()}
	}
	s, err := v.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func numberValue(v cue.Value, field string) (float64, error) {
	switch v.IncompleteKind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		return float64(n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		return f, nil
	default:
		return 0, &CompileError{Field: field, Message: "must be a number", Pos: v.Pos()}
	}
}

func intValue(v cue.Value, field string) (int, error) {
	if v.IncompleteKind() != cue.IntKind {
		return 0, &CompileError{Field: field, Message: "must be an integer", Pos: v.Pos()}
	}
	n, err := v.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// timeValue accepts a Go duration string ("10s", "15000ms") or a number of
// seconds.
func timeValue(v cue.Value, field string) (timeline.Tick, error) {
	if v.IncompleteKind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return 0, formatCUEError(err)
		}
		t, err := timeline.ParseTick(s)
		if err != nil {
			return 0, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos(), Err: err}
		}
		return t, nil
	}
	n, err := numberValue(v, field)
	if err != nil {
		return 0, &CompileError{Field: field, Message: "must be a duration string or a number of seconds", Pos: v.Pos()}
	}
	t, err := timeline.ParseSeconds(n)
	if err != nil {
		return 0, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos(), Err: err}
	}
	return t, nil
}

func listValues(v cue.Value, field string) ([]cue.Value, error) {
	if v.IncompleteKind() != cue.ListKind {
		return nil, &CompileError{Field: field, Message: "must be a list", Pos: v.Pos()}
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []cue.Value
	for iter.Next() {
		out = append(out, iter.Value())
	}
	return out, nil
}

func stringList(v cue.Value, field string) ([]string, error) {
	elems, err := listValues(v, field)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(elems))
	for i, e := range elems {
		s, err := stringValue(e, fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// lookup returns the field at path and whether it exists.
func lookup(v cue.Value, path string) (cue.Value, bool) {
	f := v.LookupPath(cue.ParsePath(path))
	return f, f.Exists()
}
