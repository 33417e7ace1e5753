// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package env

import (
	"fmt"
	"strings"

	"kmkit.sh/internal/errs"
)

// ReferenceError is returned when a template refers to a variable that is
// neither a root nor a derived variable.
type ReferenceError struct {
	Variable  string
	Reference string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s references undefined variable %s", e.Variable, e.Reference)
}

func (e *ReferenceError) Unwrap() error {
	return errs.ErrUndefinedReference
}

// CycleError is returned when derived variables reference each other in a
// loop. Path starts and ends with the same variable.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("variables reference each other in a cycle: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return errs.ErrCyclicReference
}

// graph holds the derived variables and the references between them. Roots
// are leaves and never appear as nodes.
type graph struct {
	// nodes in authored order
	nodes []string

	// deps maps a derived variable to the distinct derived variables it
	// references, in order of first appearance.
	deps map[string][]string

	// dependents is the reverse of deps.
	dependents map[string][]string
}

func newGraph(roots map[string]bool, derived []string, exprs map[string]*expr) (*graph, error) {
	isDerived := make(map[string]bool, len(derived))
	for _, name := range derived {
		isDerived[name] = true
	}

	g := &graph{
		nodes:      derived,
		deps:       make(map[string][]string, len(derived)),
		dependents: make(map[string][]string, len(derived)),
	}

	for _, name := range derived {
		seen := map[string]bool{}
		for _, ref := range exprs[name].refs {
			switch {
			case seen[ref], roots[ref]:
				continue
			case !isDerived[ref]:
				return nil, &ReferenceError{Variable: name, Reference: ref}
			}

			seen[ref] = true
			g.deps[name] = append(g.deps[name], ref)
			g.dependents[ref] = append(g.dependents[ref], name)
		}
	}

	return g, nil
}

// order returns the derived variables such that every variable comes after
// the variables it references (Kahn's algorithm). Ties are broken by authored
// order so the result is deterministic.
func (g *graph) order() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, name := range g.nodes {
		indegree[name] = len(g.deps[name])
	}

	queue := make([]string, 0, len(g.nodes))
	for _, name := range g.nodes {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)

		for _, dependent := range g.dependents[name] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(order) < len(g.nodes) {
		return nil, g.cycle(indegree)
	}

	return order, nil
}

// cycle extracts one cycle among the variables Kahn's algorithm could not
// order. Every such variable still depends on another one of them, so
// following dependencies must eventually revisit a variable.
func (g *graph) cycle(indegree map[string]int) error {
	var start string
	for _, name := range g.nodes {
		if indegree[name] > 0 {
			start = name
			break
		}
	}

	index := map[string]int{}
	path := []string{}
	for name := start; ; {
		if i, ok := index[name]; ok {
			return &CycleError{Path: append(path[i:], name)}
		}

		index[name] = len(path)
		path = append(path, name)

		for _, dep := range g.deps[name] {
			if indegree[dep] > 0 {
				name = dep
				break
			}
		}
	}
}
