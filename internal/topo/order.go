// Package topo orders the services in a build by their declared
// dependencies (§4.4) and rejects cyclic dependency sets. Grounded on the
// pure-function shape of oriys/nova's internal/workflow/dag.go (no
// external I/O, deterministic on its input, single exported entry point) —
// but the algorithm itself differs: dag.go validates with Kahn's
// in-degree method, while this component is specified as DFS with
// three-colour marking, so the walk below is written from scratch rather
// than ported.
package topo

import (
	"strings"

	"github.com/oriys/snapshotbuilder/internal/domain"
)

type color int

const (
	white color = iota // unvisited
	gray               // visiting (on the current DFS stack)
	black              // visited (fully processed)
)

// Order returns a permutation of the keys of scans such that for every
// service S, every declared dependency D that is also a key of scans
// precedes S in the result. declaredDeps supplies each service id's
// declared dependency ids as a list (ProcessedScan.Dependencies); entries
// are trimmed and empty ones skipped. Iteration over scans is driven by
// seedOrder so the
// result is deterministic for a fixed request ordering.
func Order(seedOrder []string, scans map[string]*domain.ProcessedScan, declaredDeps map[string][]string) ([]string, error) {
	colors := make(map[string]color, len(scans))
	result := make([]string, 0, len(scans))

	var visit func(id string) error
	visit = func(id string) error {
		switch colors[id] {
		case black:
			return nil
		case gray:
			return &domain.CyclicDependencyError{ServiceID: id}
		}

		colors[id] = gray
		for _, dep := range declaredDeps[id] {
			dep = strings.TrimSpace(dep)
			if dep == "" {
				continue
			}
			if _, inBuild := scans[dep]; !inBuild {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}
		colors[id] = black
		result = append(result, id)
		return nil
	}

	for _, id := range seedOrder {
		if _, ok := scans[id]; !ok {
			continue
		}
		if colors[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}

	return result, nil
}
