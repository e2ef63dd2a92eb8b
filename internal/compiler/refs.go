package compiler

import (
	"fmt"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"github.com/samber/lo"
)

// refGraph maps a named condition to the named conditions it references.
type refGraph map[string][]string

// buildRefGraph collects the ref edges of every named condition. Edges are
// sorted so cycle paths are reported deterministically.
func buildRefGraph(defs map[string]cue.Value) refGraph {
	graph := make(refGraph, len(defs))
	for name, def := range defs {
		var refs []string
		collectRefs(def, &refs)
		slices.Sort(refs)
		graph[name] = slices.Compact(refs)
	}
	return graph
}

// collectRefs appends every `ref: "name"` found anywhere under v.
func collectRefs(v cue.Value, refs *[]string) {
	switch v.IncompleteKind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return
		}
		for iter.Next() {
			if iter.Label() == "ref" {
				if s, err := iter.Value().String(); err == nil {
					*refs = append(*refs, s)
				}
				continue
			}
			collectRefs(iter.Value(), refs)
		}
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return
		}
		for iter.Next() {
			collectRefs(iter.Value(), refs)
		}
	}
}

// checkRefs rejects references to undefined conditions and reference cycles.
//
// Cycles are found with Tarjan's algorithm: every strongly connected
// component with more than one node, or a single node with a self-loop, is
// a cycle. A condition tree must be finite, so any cycle is an error.
func checkRefs(defs map[string]cue.Value) error {
	graph := buildRefGraph(defs)

	for _, name := range sortedNames(graph) {
		for _, ref := range graph[name] {
			if _, ok := graph[ref]; !ok {
				return &CompileError{
					Field:   "conditions." + name,
					Message: fmt.Sprintf("references unknown condition %q", ref),
					Pos:     defs[name].Pos(),
				}
			}
		}
	}

	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || slices.Contains(graph[scc[0]], scc[0]) {
			path := cyclePath(scc, graph)
			return &CompileError{
				Field:   "conditions." + path[0],
				Message: fmt.Sprintf("reference cycle: %s", strings.Join(path, " → ")),
				Pos:     defs[path[0]].Pos(),
			}
		}
	}
	return nil
}

func sortedNames(graph refGraph) []string {
	names := lo.Keys(graph)
	slices.Sort(names)
	return names
}

// tarjanSCC returns the strongly connected components of graph, visiting
// roots in name order.
func tarjanSCC(graph refGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, ok := graph[w]; !ok {
				continue
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range sortedNames(graph) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cyclePath returns a cycle through scc starting and ending at its
// smallest name, e.g. [a b a].
func cyclePath(scc []string, graph refGraph) []string {
	members := lo.SliceToMap(scc, func(n string) (string, bool) { return n, true })
	start := slices.Min(scc)
	visited := map[string]bool{start: true}

	var walk func(n string, path []string) []string
	walk = func(n string, path []string) []string {
		if slices.Contains(graph[n], start) {
			return append(path, start)
		}
		for _, w := range graph[n] {
			if members[w] && !visited[w] {
				visited[w] = true
				if p := walk(w, append(path, w)); p != nil {
					return p
				}
			}
		}
		return nil
	}
	return walk(start, []string{start})
}
