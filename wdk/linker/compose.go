// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package linker composes the ordered flag profile that makes a linked
// binary loadable as a kernel-mode driver.
package linker

import (
	"fmt"

	"github.com/google/shlex"

	"kmkit.sh/internal/errs"
	"kmkit.sh/wdk/arch"
	"kmkit.sh/wdk/env"
)

// EntryPoint is the framework stub which sets up the driver framework before
// it calls the driver's own DriverEntry.
const EntryPoint = "FxDriverEntry"

// DefaultLibraries are the import libraries of a framework driver, in the
// order the vendor samples link them.
var DefaultLibraries = []string{
	"BufferOverflowK.lib",
	"ntoskrnl.lib",
	"wdfldr.lib",
	"wdfdriverentry.lib",
	"wdmsec.lib",
}

// VendorPathError is returned when the path mapping lacks a library
// directory the profile links against.
type VendorPathError struct {
	Variable string
}

func (e *VendorPathError) Error() string {
	return fmt.Sprintf("library path %s is not set", e.Variable)
}

func (e *VendorPathError) Unwrap() error {
	return errs.ErrMissingVendorPath
}

type composer struct {
	namespace  string
	arch       arch.Architecture
	libraries  []string
	extra      []string
	directives []Directive
	watched    []string
}

// Option configures Compose.
type Option func(*composer) error

// WithNamespace sets the namespace of the library path variables.
func WithNamespace(namespace string) Option {
	return func(c *composer) error {
		if namespace == "" {
			return fmt.Errorf("empty namespace: %w", errs.ErrInvalid)
		}

		c.namespace = namespace
		return nil
	}
}

// WithArchitecture selects the instruction sets to disable. Defaults to
// amd64.
func WithArchitecture(a arch.Architecture) Option {
	return func(c *composer) error {
		c.arch = a
		return nil
	}
}

// WithLibraries replaces the default import libraries.
func WithLibraries(libs ...string) Option {
	return func(c *composer) error {
		c.libraries = append([]string{}, libs...)
		return nil
	}
}

// WithExtra appends raw linker arguments after the mandatory directives.
func WithExtra(args ...string) Option {
	return func(c *composer) error {
		c.extra = append(c.extra, args...)
		return nil
	}
}

// WithExtraArgs splits a command line with shell quoting rules and appends
// the arguments. Backslashes escape, so Windows paths need single quotes.
func WithExtraArgs(line string) Option {
	return func(c *composer) error {
		args, err := shlex.Split(line)
		if err != nil {
			return fmt.Errorf("could not split extra linker arguments %q: %w", line, err)
		}

		c.extra = append(c.extra, args...)
		return nil
	}
}

// WithDirectives replaces the composed directives with a caller-authored
// list. The list is validated but never reordered, and the mapping must still
// provide the library directories.
func WithDirectives(ds ...Directive) Option {
	return func(c *composer) error {
		c.directives = append([]Directive{}, ds...)
		return nil
	}
}

// WithWatchedFiles names input files of the profile, such as the dotenv file
// the kit paths were read from. A build script reruns when one changes.
func WithWatchedFiles(paths ...string) Option {
	return func(c *composer) error {
		c.watched = append(c.watched, paths...)
		return nil
	}
}

// Compose builds and validates the profile of a framework driver. The kernel
// mode and framework library directories are read from m.
func Compose(m *env.Mapping, opts ...Option) (*Profile, error) {
	c := &composer{
		namespace: env.DefaultNamespace,
		arch:      arch.Amd64,
		libraries: append([]string(nil), DefaultLibraries...),
	}

	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, fmt.Errorf("could not apply linker option: %w", err)
		}
	}

	if c.arch.IsZero() {
		c.arch = arch.Amd64
	}

	libPaths, err := c.libraryPaths(m)
	if err != nil {
		return nil, err
	}

	ds := c.directives
	if ds == nil {
		ds = c.mandatory(libPaths)
	}

	for _, arg := range c.extra {
		ds = append(ds, ParseLinkArg(ClassExtra, arg))
	}

	if err := Validate(ds, c.arch); err != nil {
		return nil, err
	}

	return &Profile{Arch: c.arch, directives: ds, watched: c.watched}, nil
}

// libraryPaths returns the kernel mode and framework library directories.
func (c *composer) libraryPaths(m *env.Mapping) ([]string, error) {
	var libPaths []string
	for _, role := range []string{env.RoleLibKM64, env.RoleLibFramework64} {
		name := env.Name(c.namespace, role)

		v, ok := m.Lookup(name)
		if !ok || v == "" {
			return nil, &VendorPathError{Variable: name}
		}

		libPaths = append(libPaths, v)
	}

	return libPaths, nil
}

func (c *composer) mandatory(libPaths []string) []Directive {
	ds := []Directive{
		Link(ClassDiagnostics, "/WX", ""),
		Link(ClassABI, "/NODEFAULTLIB", ""),
	}

	for _, p := range libPaths {
		ds = append(ds, Link(ClassABI, "/LIBPATH", p))
	}

	for _, lib := range c.libraries {
		ds = append(ds, Link(ClassABI, lib, ""))
	}

	ds = append(ds,
		Link(ClassSubsystem, "/SUBSYSTEM", "NATIVE"),
		Link(ClassSubsystem, "/DRIVER", ""),
		Link(ClassSubsystem, "/DYNAMICBASE", ""),
		Link(ClassSubsystem, "/MANIFEST", "NO"),

		Link(ClassSectionLayout, "/MERGE", ".edata=.rdata"),
		Link(ClassSectionLayout, "/MERGE", "_TEXT=.text"),
		Link(ClassSectionLayout, "/MERGE", "_PAGE=PAGE"),
		Link(ClassSectionLayout, "/SECTION", "INIT,d"),
		Link(ClassSectionLayout, "/OPT", "REF"),
		Link(ClassSectionLayout, "/OPT", "ICF"),

		Link(ClassEntryPoint, "/ENTRY", EntryPoint),

		Codegen(ClassInstructionSet, "target-feature", c.arch.TargetFeatures()),
	)

	return ds
}
