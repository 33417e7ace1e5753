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

const eof = -1

// TemplateError describes a malformed template string.
type TemplateError struct {
	Name   string
	Offset int
	Reason string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template of %s: %s at byte offset %d", e.Name, e.Reason, e.Offset)
}

func (e *TemplateError) Unwrap() error {
	return errs.ErrInvalid
}

// expr is a parsed template. It alternates literal text and references,
// always starting and ending with a (possibly empty) literal, so that
// len(literals) == len(refs)+1.
type expr struct {
	literals []string
	refs     []string
}

// expand concatenates the literals and the values of the references.
func (e *expr) expand(lookup func(string) string) string {
	var b strings.Builder
	for i, ref := range e.refs {
		b.WriteString(e.literals[i])
		b.WriteString(lookup(ref))
	}
	b.WriteString(e.literals[len(e.literals)-1])

	return b.String()
}

type parseState struct {
	name    string
	str     string
	pending strings.Builder
	start   int
	result  *expr
}

type stateFunc func(*parseState, int, rune) (stateFunc, error)

func (ps *parseState) fail(i int, reason string) error {
	return &TemplateError{Name: ps.name, Offset: i, Reason: reason}
}

func (ps *parseState) pushLiteral() {
	ps.result.literals = append(ps.result.literals, ps.pending.String())
	ps.pending.Reset()
}

func (ps *parseState) pushRef(ref string) {
	ps.pushLiteral()
	ps.result.refs = append(ps.result.refs, ref)
}

func isNameRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_'
}

// parseTemplate splits a template into literals and references. `${name}`
// references a variable and `$$` is a literal dollar sign. Any other use of
// `$`, including the bare `$name` form, is an error.
func parseTemplate(name, str string) (*expr, error) {
	result := &expr{
		literals: make([]string, 0, strings.Count(str, "$")+1),
	}

	if !strings.Contains(str, "$") {
		result.literals = append(result.literals, str)
		return result, nil
	}

	ps := &parseState{name: name, str: str, result: result}
	state := parseLiteralState

	var err error
	for i, r := range str {
		if state, err = state(ps, i, r); err != nil {
			return nil, err
		}
	}

	if _, err = state(ps, len(str), eof); err != nil {
		return nil, err
	}

	return result, nil
}

func parseLiteralState(ps *parseState, i int, r rune) (stateFunc, error) {
	switch r {
	case '$':
		return parseDollarState, nil
	case eof:
		ps.pushLiteral()
		return nil, nil
	default:
		ps.pending.WriteRune(r)
		return parseLiteralState, nil
	}
}

func parseDollarState(ps *parseState, i int, r rune) (stateFunc, error) {
	switch {
	case r == '$':
		ps.pending.WriteByte('$')
		return parseLiteralState, nil
	case r == '{':
		ps.start = i + 1
		return parseBracesState, nil
	case r != eof && isNameRune(r):
		return nil, ps.fail(i, "bare variable reference, use '${...}' or '$$'")
	case r == eof:
		return nil, ps.fail(i, "unexpected end of template after '$'")
	default:
		return nil, ps.fail(i, fmt.Sprintf("invalid character %q after '$'", r))
	}
}

func parseBracesState(ps *parseState, i int, r rune) (stateFunc, error) {
	switch {
	case r == '}':
		if i == ps.start {
			return nil, ps.fail(i, "empty variable name")
		}
		ps.pushRef(ps.str[ps.start:i])
		return parseLiteralState, nil
	case r == eof:
		return nil, ps.fail(i, "missing closing '}'")
	case isNameRune(r):
		return parseBracesState, nil
	default:
		return nil, ps.fail(i, fmt.Sprintf("invalid character %q in variable name", r))
	}
}

// References returns the names referenced by a template in order of
// appearance, including repeats.
func References(template string) ([]string, error) {
	e, err := parseTemplate("", template)
	if err != nil {
		return nil, err
	}

	return append([]string(nil), e.refs...), nil
}
