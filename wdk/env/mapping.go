// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package env

import (
	"encoding/json"
	"fmt"

	"kmkit.sh/internal/errs"
	"kmkit.sh/internal/set"
)

// Mapping is the fully expanded result of a resolution. Iteration follows the
// authored order: root variables first, then derived variables. A Mapping is
// never modified after Resolve returns it.
type Mapping struct {
	names  []string
	values map[string]string
	refs   map[string][]string
	roots  int
}

// Lookup returns the expanded value of a variable.
func (m *Mapping) Lookup(name string) (string, bool) {
	if m == nil {
		return "", false
	}

	v, ok := m.values[name]
	return v, ok
}

// Get returns the expanded value of a variable or an error wrapping
// errs.ErrNotFound.
func (m *Mapping) Get(name string) (string, error) {
	v, ok := m.Lookup(name)
	if !ok {
		return "", fmt.Errorf("variable %s: %w", name, errs.ErrNotFound)
	}

	return v, nil
}

// Names returns all variable names in authored order.
func (m *Mapping) Names() []string {
	if m == nil {
		return nil
	}

	return append([]string(nil), m.names...)
}

// Roots returns the names of the root variables.
func (m *Mapping) Roots() []string {
	if m == nil {
		return nil
	}

	return append([]string(nil), m.names[:m.roots]...)
}

// Derived returns the names of the derived variables.
func (m *Mapping) Derived() []string {
	if m == nil {
		return nil
	}

	return append([]string(nil), m.names[m.roots:]...)
}

// IsRoot reports whether name is a root variable.
func (m *Mapping) IsRoot(name string) bool {
	for _, n := range m.Roots() {
		if n == name {
			return true
		}
	}

	return false
}

// References returns the distinct variables the template of name referenced
// directly, in order of first appearance. Roots have none.
func (m *Mapping) References(name string) []string {
	if m == nil {
		return nil
	}

	return append([]string(nil), m.refs[name]...)
}

// Len returns the number of variables.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}

	return len(m.names)
}

// Map returns a copy of the mapping as a plain map.
func (m *Mapping) Map() map[string]string {
	out := make(map[string]string, m.Len())
	for _, name := range m.Names() {
		out[name] = m.values[name]
	}

	return out
}

// MarshalJSON renders the mapping as an object whose keys keep the authored
// order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, name := range m.Names() {
		if i > 0 {
			buf = append(buf, ',')
		}

		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}

		v, err := json.Marshal(m.values[name])
		if err != nil {
			return nil, err
		}

		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}

	return append(buf, '}'), nil
}

// Select returns a mapping holding only the named variables, in authored
// order. Unknown names are an error wrapping errs.ErrNotFound.
func (m *Mapping) Select(names ...string) (*Mapping, error) {
	for _, name := range names {
		if _, err := m.Get(name); err != nil {
			return nil, err
		}
	}

	want := set.NewStringSet(names...)

	out := &Mapping{
		values: map[string]string{},
		refs:   map[string][]string{},
	}

	for i, name := range m.names {
		if !want.Contains(name) {
			continue
		}

		out.names = append(out.names, name)
		out.values[name] = m.values[name]
		if refs, ok := m.refs[name]; ok {
			out.refs[name] = refs
		}
		if i < m.roots {
			out.roots++
		}
	}

	return out, nil
}
