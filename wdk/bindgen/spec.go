// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package bindgen describes the request handed to a native binding
// generator: the macros predefined before any kit header, the ordered header
// chain and the include directories the headers are searched in.
package bindgen

import (
	"fmt"

	"kmkit.sh/internal/errs"
	"kmkit.sh/wdk/arch"
	"kmkit.sh/wdk/kit"
)

// Macro is a preprocessor definition. An empty Value defines the name alone.
type Macro struct {
	Name  string `yaml:"name" json:"name" toml:"name"`
	Value string `yaml:"value,omitempty" json:"value,omitempty" toml:"value"`
}

// String renders the macro as a `#define` line without the newline.
func (m Macro) String() string {
	if m.Value == "" {
		return "#define " + m.Name
	}

	return "#define " + m.Name + " " + m.Value
}

// Header is the name of a kit header, as written between angle brackets.
type Header string

const (
	// VersionHeader gives meaning to the ceiling symbols and is always
	// included right after the macros.
	VersionHeader Header = "sdkddkver.h"

	// DeprecatedAlias is predefined so that the kernel headers accept the
	// deprecated-declaration annotation.
	DeprecatedAlias = "DECLSPEC_DEPRECATED_DDK"
)

// DefaultHeaders is the header chain of a framework driver. Each header
// relies on declarations of the ones before it.
var DefaultHeaders = []Header{
	"ntifs.h",     // security descriptors
	"ntddk.h",     // basic kernel types
	"wdm.h",       // driver model
	"wdf.h",       // driver framework
	"wdfdriver.h", // framework entry glue
}

// Spec is the configuration of a binding request for one architecture and
// one API version ceiling.
type Spec struct {
	arch        arch.Architecture
	ceiling     kit.Ceiling
	ntddi       string
	winnt       string
	headers     []Header
	macros      []Macro
	includeDirs []string
	allowlist   *Allowlist
}

// Option configures a Spec.
type Option func(*Spec) error

// New builds a Spec. Without WithHeaders the default header chain is used and
// without WithVersionCeiling the default ceiling.
func New(opts ...Option) (*Spec, error) {
	s := &Spec{
		ceiling: kit.DefaultCeiling,
	}

	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, fmt.Errorf("could not apply binding option: %w", err)
		}
	}

	if s.headers == nil {
		s.headers = append([]Header(nil), DefaultHeaders...)
	}

	return s, nil
}

// WithArchitecture sets the target architecture whose macro selects the
// branches of the kit headers.
func WithArchitecture(a arch.Architecture) Option {
	return func(s *Spec) error {
		s.arch = a
		return nil
	}
}

// WithVersionCeiling caps the declarations the generator exposes.
func WithVersionCeiling(c kit.Ceiling) Option {
	return func(s *Spec) error {
		if c.Name == "" {
			return fmt.Errorf("empty API version ceiling: %w", errs.ErrInvalid)
		}

		s.ceiling = c
		return nil
	}
}

// WithCeilingSymbols overrides the symbols assigned to NTDDI_VERSION and
// _WIN32_WINNT. An empty string keeps the symbol derived from the ceiling.
func WithCeilingSymbols(ntddi, winnt string) Option {
	return func(s *Spec) error {
		for _, sym := range []string{ntddi, winnt} {
			if sym != "" && !validIdentifier(sym) {
				return fmt.Errorf("invalid ceiling symbol %q: %w", sym, errs.ErrInvalid)
			}
		}

		s.ntddi = ntddi
		s.winnt = winnt
		return nil
	}
}

// WithHeaders sets the ordered header list. The order is kept verbatim and
// duplicates are not removed.
func WithHeaders(headers ...Header) Option {
	return func(s *Spec) error {
		for _, h := range headers {
			if h == "" {
				return fmt.Errorf("empty header name: %w", errs.ErrInvalid)
			}
		}

		s.headers = append([]Header{}, headers...)
		return nil
	}
}

// WithMacros appends macros emitted after the mandatory ones.
func WithMacros(macros ...Macro) Option {
	return func(s *Spec) error {
		for _, m := range macros {
			if !validIdentifier(m.Name) {
				return fmt.Errorf("invalid macro name %q: %w", m.Name, errs.ErrInvalid)
			}
		}

		s.macros = append(s.macros, macros...)
		return nil
	}
}

// WithIncludeDirs appends header search directories, searched in order.
func WithIncludeDirs(dirs ...string) Option {
	return func(s *Spec) error {
		s.includeDirs = append(s.includeDirs, dirs...)
		return nil
	}
}

// WithAllowlist limits the generated bindings to the listed items.
func WithAllowlist(a *Allowlist) Option {
	return func(s *Spec) error {
		s.allowlist = a
		return nil
	}
}

// Ceiling returns the configured API version ceiling.
func (s *Spec) Ceiling() kit.Ceiling {
	return s.ceiling
}

// NTDDIVersion returns the symbol assigned to NTDDI_VERSION.
func (s *Spec) NTDDIVersion() string {
	if s.ntddi != "" {
		return s.ntddi
	}

	return s.ceiling.NTDDISymbol()
}

// WinNTVersion returns the symbol assigned to _WIN32_WINNT and WINVER.
func (s *Spec) WinNTVersion() string {
	if s.winnt != "" {
		return s.winnt
	}

	return s.ceiling.WinNTSymbol()
}

// Diverges reports whether the two ceiling symbols no longer express the
// same release.
func (s *Spec) Diverges() bool {
	return s.NTDDIVersion() != s.ceiling.NTDDISymbol() ||
		s.WinNTVersion() != s.ceiling.WinNTSymbol()
}

// Headers returns a copy of the ordered header list.
func (s *Spec) Headers() []Header {
	return append([]Header(nil), s.headers...)
}

// Request emits the binding request. The architecture macro comes first,
// followed by the deprecated alias, the ceiling macros and the caller's
// macros.
func (s *Spec) Request() (*Request, error) {
	if s.arch.IsZero() {
		return nil, fmt.Errorf("binding request has no target architecture: %w", errs.ErrMissingArchitectureMacro)
	}

	macros := []Macro{
		{Name: s.arch.Macro()},
		{Name: DeprecatedAlias, Value: "DECLSPEC_DEPRECATED"},
		{Name: "NTDDI_VERSION", Value: s.NTDDIVersion()},
		{Name: "_WIN32_WINNT", Value: s.WinNTVersion()},
		{Name: "WINVER", Value: s.WinNTVersion()},
	}

	mandatory := make(map[string]bool, len(macros))
	for _, m := range macros {
		mandatory[m.Name] = true
	}

	for _, m := range s.macros {
		if mandatory[m.Name] {
			return nil, fmt.Errorf("macro %s is already defined by the request: %w", m.Name, errs.ErrInvalid)
		}
		macros = append(macros, m)
	}

	return &Request{
		Arch:        s.arch,
		Macros:      macros,
		Headers:     append([]Header{VersionHeader}, s.headers...),
		IncludeDirs: append([]string(nil), s.includeDirs...),
		Allowlist:   s.allowlist,
	}, nil
}

func validIdentifier(name string) bool {
	if name == "" || name[0] >= '0' && name[0] <= '9' {
		return false
	}

	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}

	return true
}
