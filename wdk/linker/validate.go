// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package linker

import (
	"fmt"
	"strings"

	"kmkit.sh/internal/errs"
	"kmkit.sh/wdk/arch"
)

// EntryPointError reports a missing, repeated or wrong entry point.
type EntryPointError struct {
	// Entries holds the value of every entry directive found.
	Entries []string
	err     error
}

func (e *EntryPointError) Error() string {
	switch {
	case len(e.Entries) == 0:
		return fmt.Sprintf("profile has no /ENTRY directive, expected /ENTRY:%s", EntryPoint)
	case len(e.Entries) > 1:
		return fmt.Sprintf("profile has %d /ENTRY directives (%s), expected exactly one", len(e.Entries), strings.Join(e.Entries, ", "))
	default:
		return fmt.Sprintf("entry point %s must be the framework stub %s", e.Entries[0], EntryPoint)
	}
}

func (e *EntryPointError) Unwrap() error {
	return e.err
}

// OrderError reports a directive placed after one it must precede.
type OrderError struct {
	Index     int
	Directive Directive
	After     Directive
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("directive %d %s (%s) follows %s (%s)", e.Index, e.Directive, e.Directive.Class, e.After, e.After.Class)
}

func (e *OrderError) Unwrap() error {
	return errs.ErrOutOfOrder
}

// InstructionSetError reports instruction sets a profile leaves enabled.
type InstructionSetError struct {
	Arch    arch.Architecture
	Missing []string
}

func (e *InstructionSetError) Error() string {
	return fmt.Sprintf("%s profile does not disable %s", e.Arch, strings.Join(e.Missing, ", "))
}

func (e *InstructionSetError) Unwrap() error {
	return errs.ErrMissingInstructionSetRestriction
}

// DirectiveError reports a mandatory directive which is either absent or
// undone by another directive of the profile.
type DirectiveError struct {
	// Required is the mandatory directive.
	Required Directive
	// Conflict is the directive undoing it, if any.
	Conflict *Directive
}

func (e *DirectiveError) Error() string {
	if e.Conflict != nil {
		return fmt.Sprintf("directive %s (%s) undoes mandatory %s", e.Conflict, e.Conflict.Class, e.Required)
	}

	return fmt.Sprintf("profile has no %s directive", e.Required)
}

func (e *DirectiveError) Unwrap() error {
	if e.Conflict != nil {
		return errs.ErrConflictingDirective
	}

	return errs.ErrMissingDirective
}

// requirement is a directive every profile carries. matches tells a directive
// of the same option which satisfies it, undoes tells any linker directive
// which reverts it.
type requirement struct {
	directive Directive
	matches   func(Directive) bool
	undoes    func(Directive) bool
}

// splitValue returns the part of a directive value before the first comma and
// the rest.
func splitValue(v string) (string, string) {
	head, tail, _ := strings.Cut(v, ",")
	return head, tail
}

var requirements = []requirement{
	{
		directive: Link(ClassDiagnostics, "/WX", ""),
		matches:   func(d Directive) bool { return d.Value == "" },
		undoes:    func(d Directive) bool { return d.option() == "WX" && d.Value != "" },
	},
	{
		directive: Link(ClassABI, "/NODEFAULTLIB", ""),
		matches:   func(d Directive) bool { return d.Value == "" },
		undoes:    func(d Directive) bool { return d.option() == "DEFAULTLIB" },
	},
	{
		directive: Link(ClassSubsystem, "/SUBSYSTEM", "NATIVE"),
		matches: func(d Directive) bool {
			name, _ := splitValue(d.Value)
			return strings.EqualFold(name, "NATIVE")
		},
		undoes: func(d Directive) bool {
			name, _ := splitValue(d.Value)
			return d.option() == "SUBSYSTEM" && !strings.EqualFold(name, "NATIVE")
		},
	},
	{
		directive: Link(ClassSubsystem, "/DRIVER", ""),
		matches:   func(Directive) bool { return true },
		undoes:    func(Directive) bool { return false },
	},
	{
		directive: Link(ClassSectionLayout, "/SECTION", "INIT,d"),
		matches: func(d Directive) bool {
			name, attrs := splitValue(d.Value)
			return strings.EqualFold(name, "INIT") && attrs == "d"
		},
		undoes: func(d Directive) bool {
			name, attrs := splitValue(d.Value)
			return d.option() == "SECTION" && strings.EqualFold(name, "INIT") && attrs != "d"
		},
	},
}

// Validate checks a directive list against the structural rules of a kernel
// mode binary. The entry point is checked first, then the mandatory
// directives, the class order and finally the instruction-set restriction.
func Validate(ds []Directive, a arch.Architecture) error {
	if err := validateEntryPoint(ds); err != nil {
		return err
	}

	if err := validateRequired(ds); err != nil {
		return err
	}

	if err := validateOrder(ds); err != nil {
		return err
	}

	return validateInstructionSet(ds, a)
}

func validateEntryPoint(ds []Directive) error {
	var entries []string
	for _, d := range ds {
		if d.isEntryPoint() {
			entries = append(entries, d.Value)
		}
	}

	switch {
	case len(entries) == 0:
		return &EntryPointError{err: errs.ErrMissingEntryPoint}
	case len(entries) > 1:
		return &EntryPointError{Entries: entries, err: errs.ErrDuplicateEntryPoint}
	case entries[0] != EntryPoint:
		return &EntryPointError{Entries: entries, err: errs.ErrInvalidEntryPoint}
	}

	return nil
}

func validateRequired(ds []Directive) error {
	for _, req := range requirements {
		found := false

		for _, d := range ds {
			if d.Tool != ToolLinker {
				continue
			}

			if req.undoes(d) {
				conflict := d
				return &DirectiveError{Required: req.directive, Conflict: &conflict}
			}

			if d.option() == req.directive.option() && req.matches(d) {
				found = true
			}
		}

		if !found {
			return &DirectiveError{Required: req.directive}
		}
	}

	return nil
}

func validateOrder(ds []Directive) error {
	optimized := -1
	for i, d := range ds {
		if i > 0 && d.Class < ds[i-1].Class {
			return &OrderError{Index: i, Directive: d, After: ds[i-1]}
		}

		if d.isSectionMerge() && optimized >= 0 {
			return &OrderError{Index: i, Directive: d, After: ds[optimized]}
		}

		if d.isOptimization() && optimized < 0 {
			optimized = i
		}
	}

	return nil
}

func validateInstructionSet(ds []Directive, a arch.Architecture) error {
	if a.IsZero() {
		a = arch.Amd64
	}

	disabled := map[string]bool{}
	for _, d := range ds {
		if !d.isTargetFeature() {
			continue
		}

		for _, f := range strings.Split(d.Value, ",") {
			f = strings.TrimSpace(f)
			switch {
			case strings.HasPrefix(f, "-"):
				disabled[f[1:]] = true
			case strings.HasPrefix(f, "+"):
				delete(disabled, f[1:])
			}
		}
	}

	var missing []string
	for _, f := range a.DisabledFeatures() {
		if !disabled[f] {
			missing = append(missing, f)
		}
	}

	if len(missing) > 0 {
		return &InstructionSetError{Arch: a, Missing: missing}
	}

	return nil
}
