// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package env resolves the paths of an installed driver kit. A handful of root
// variables (the kit version and the kit folder) are expanded into derived
// variables whose templates reference roots or other derived variables with
// `${name}`.
package env

import (
	"context"
	"fmt"

	"kmkit.sh/internal/errs"
	"kmkit.sh/internal/set"
	"kmkit.sh/log"
)

// Variable is a named literal value supplied by the user.
type Variable struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Template is a derived variable: a name and a template string which may
// reference other variables.
type Template struct {
	Name     string `yaml:"name" json:"name"`
	Template string `yaml:"template" json:"template"`
}

func validName(name string) bool {
	if name == "" {
		return false
	}

	for _, r := range name {
		if !isNameRune(r) {
			return false
		}
	}

	return true
}

// Resolve expands every template against the roots and the other templates.
// It is pure: no filesystem or process environment is consulted, and equal
// inputs yield equal mappings. On error no mapping is returned.
func Resolve(roots []Variable, templates []Template) (*Mapping, error) {
	m := &Mapping{
		names:  make([]string, 0, len(roots)+len(templates)),
		values: make(map[string]string, len(roots)+len(templates)),
		refs:   make(map[string][]string, len(templates)),
		roots:  len(roots),
	}

	isRoot := make(map[string]bool, len(roots))
	for _, root := range roots {
		if !validName(root.Name) {
			return nil, fmt.Errorf("invalid root variable name %q: %w", root.Name, errs.ErrInvalid)
		}
		if isRoot[root.Name] {
			return nil, fmt.Errorf("root variable %s defined twice: %w", root.Name, errs.ErrInvalid)
		}

		isRoot[root.Name] = true
		m.names = append(m.names, root.Name)
		m.values[root.Name] = root.Value
	}

	derived := make([]string, 0, len(templates))
	exprs := make(map[string]*expr, len(templates))
	for _, t := range templates {
		if !validName(t.Name) {
			return nil, fmt.Errorf("invalid variable name %q: %w", t.Name, errs.ErrInvalid)
		}
		if isRoot[t.Name] {
			return nil, fmt.Errorf("derived variable %s shadows a root variable: %w", t.Name, errs.ErrInvalid)
		}
		if _, ok := exprs[t.Name]; ok {
			return nil, fmt.Errorf("derived variable %s defined twice: %w", t.Name, errs.ErrInvalid)
		}

		e, err := parseTemplate(t.Name, t.Template)
		if err != nil {
			return nil, err
		}

		exprs[t.Name] = e
		derived = append(derived, t.Name)
		m.names = append(m.names, t.Name)
	}

	g, err := newGraph(isRoot, derived, exprs)
	if err != nil {
		return nil, err
	}

	order, err := g.order()
	if err != nil {
		return nil, err
	}

	lookup := func(name string) string { return m.values[name] }
	for _, name := range order {
		m.values[name] = exprs[name].expand(lookup)
		m.refs[name] = set.NewStringSet(exprs[name].refs...).ToSlice()
	}

	return m, nil
}

// Resolver collects root variables and templates from several sources before
// resolving them. Each Resolver owns copies of its inputs, so independent
// resolvers may run concurrently.
type Resolver struct {
	namespace string
	roots     []Variable
	templates []Template
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver) error

// NewResolver applies the options in order.
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{namespace: DefaultNamespace}

	for _, o := range opts {
		if err := o(r); err != nil {
			return nil, fmt.Errorf("could not apply resolver option: %w", err)
		}
	}

	return r, nil
}

// WithNamespace sets the prefix of the well-known variable names. It must
// precede options which depend on it.
func WithNamespace(namespace string) ResolverOption {
	return func(r *Resolver) error {
		if !validName(namespace) {
			return fmt.Errorf("invalid namespace %q: %w", namespace, errs.ErrInvalid)
		}

		r.namespace = namespace
		return nil
	}
}

// WithRoots appends root variables.
func WithRoots(roots ...Variable) ResolverOption {
	return func(r *Resolver) error {
		r.roots = append(r.roots, roots...)
		return nil
	}
}

// WithTemplates appends derived variables.
func WithTemplates(templates ...Template) ResolverOption {
	return func(r *Resolver) error {
		r.templates = append(r.templates, templates...)
		return nil
	}
}

// WithOverrides replaces templates with the same name and appends the rest.
func WithOverrides(templates ...Template) ResolverOption {
	return func(r *Resolver) error {
		r.templates = Override(r.templates, templates...)
		return nil
	}
}

// Namespace returns the prefix of the well-known variable names.
func (r *Resolver) Namespace() string {
	return r.namespace
}

// Resolve expands the collected variables.
func (r *Resolver) Resolve(ctx context.Context) (*Mapping, error) {
	ctx = log.WithStage(ctx, "resolve")

	log.G(ctx).
		WithField("roots", len(r.roots)).
		WithField("templates", len(r.templates)).
		Debug("resolving kit paths")

	m, err := Resolve(r.roots, r.templates)
	if err != nil {
		return nil, err
	}

	for _, name := range m.Names() {
		v, _ := m.Lookup(name)
		log.G(ctx).WithField("value", v).Trace(name)
	}

	return m, nil
}

// Override returns base with every template of the same name replaced by the
// one in overrides; unknown overrides are appended in their given order.
func Override(base []Template, overrides ...Template) []Template {
	out := append([]Template(nil), base...)

	index := make(map[string]int, len(out))
	for i, t := range out {
		index[t.Name] = i
	}

	for _, t := range overrides {
		if i, ok := index[t.Name]; ok {
			out[i] = t
			continue
		}

		index[t.Name] = len(out)
		out = append(out, t)
	}

	return out
}
