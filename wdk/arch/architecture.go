// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package arch describes the processor architectures a kernel-mode driver can
// be built for, and the per-architecture facts the binding request and the
// linker profile depend on.
package arch

import (
	"fmt"
	"strings"

	"kmkit.sh/internal/errs"
)

// Architecture is an immutable description of a build target.
type Architecture struct {
	name     string
	macro    string
	libDir   string
	triple   string
	disabled []string
	enabled  []string
}

var (
	// Amd64 is the 64-bit x86 architecture.
	Amd64 = Architecture{
		name:   "amd64",
		macro:  "_AMD64_",
		libDir: "x64",
		triple: "x86_64-pc-windows-msvc",
		disabled: []string{
			"mmx", "sse", "sse2", "sse3", "ssse3", "sse4.1", "sse4.2", "avx", "avx2",
		},
		enabled: []string{"soft-float"},
	}

	// Arm64 is the 64-bit ARM architecture.
	Arm64 = Architecture{
		name:     "arm64",
		macro:    "_ARM64_",
		libDir:   "arm64",
		triple:   "aarch64-pc-windows-msvc",
		disabled: []string{"neon", "fp-armv8"},
	}

	architectures = []Architecture{Amd64, Arm64}
)

// Parse returns the architecture with the given name. Common aliases used by
// other toolchains are accepted.
func Parse(name string) (Architecture, error) {
	if len(name) == 0 {
		return Architecture{}, fmt.Errorf("cannot omit architecture name: %w", errs.ErrInvalid)
	}

	switch strings.ToLower(name) {
	case "amd64", "x86_64", "x64":
		return Amd64, nil
	case "arm64", "aarch64":
		return Arm64, nil
	}

	return Architecture{}, fmt.Errorf("unknown architecture: %s: %w", name, errs.ErrNotFound)
}

// Names returns the canonical names of all known architectures.
func Names() []string {
	names := make([]string, len(architectures))
	for i, a := range architectures {
		names[i] = a.name
	}

	return names
}

// IsZero reports whether the architecture was never set.
func (a Architecture) IsZero() bool {
	return a.name == ""
}

// Name returns the canonical name.
func (a Architecture) Name() string {
	return a.name
}

// String implements fmt.Stringer
func (a Architecture) String() string {
	return a.name
}

// Macro returns the preprocessor symbol the kit headers branch on.
func (a Architecture) Macro() string {
	return a.macro
}

// LibDir returns the directory name used for this architecture under the
// kit's library folders.
func (a Architecture) LibDir() string {
	return a.libDir
}

// Triple returns the compiler target triple.
func (a Architecture) Triple() string {
	return a.triple
}

// DisabledFeatures returns the vector and floating-point instruction set
// extensions whose register state the kernel does not preserve across
// context switches.
func (a Architecture) DisabledFeatures() []string {
	return append([]string(nil), a.disabled...)
}

// TargetFeatures renders the codegen feature string which turns off every
// disabled feature and turns on the replacements.
func (a Architecture) TargetFeatures() string {
	features := make([]string, 0, len(a.disabled)+len(a.enabled))
	for _, f := range a.disabled {
		features = append(features, "-"+f)
	}
	for _, f := range a.enabled {
		features = append(features, "+"+f)
	}

	return strings.Join(features, ",")
}
