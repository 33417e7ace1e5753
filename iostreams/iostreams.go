// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package iostreams

import (
	"bytes"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// IOStreams bundles the standard streams of the running process so that
// commands can be exercised against in-memory buffers.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	colorEnabled bool
	stdoutIsTTY  bool
	stdoutTTYSet bool
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// System returns the streams attached to the current process.
func System() *IOStreams {
	stdoutIsTTY := isTerminal(os.Stdout)

	return &IOStreams{
		In:           os.Stdin,
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
		colorEnabled: EnvColorForced() || (!EnvColorDisabled() && stdoutIsTTY),
		stdoutIsTTY:  stdoutIsTTY,
		stdoutTTYSet: true,
	}
}

// Test returns streams backed by buffers, along with the buffers for
// inspection.
func Test() (*IOStreams, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	in := &bytes.Buffer{}
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	return &IOStreams{
		In:           in,
		Out:          out,
		ErrOut:       errOut,
		stdoutTTYSet: true,
	}, in, out, errOut
}

// IsStdoutTTY reports whether standard output is an interactive terminal.
func (s *IOStreams) IsStdoutTTY() bool {
	if s.stdoutTTYSet {
		return s.stdoutIsTTY
	}

	if f, ok := s.Out.(*os.File); ok {
		return isTerminal(f)
	}

	return false
}

// SetStdoutTTY overrides terminal detection.
func (s *IOStreams) SetStdoutTTY(isTTY bool) {
	s.stdoutIsTTY = isTTY
	s.stdoutTTYSet = true
}

// SetColorEnabled overrides color detection.
func (s *IOStreams) SetColorEnabled(enabled bool) {
	s.colorEnabled = enabled
}

// ColorEnabled reports whether output may contain escape sequences.
func (s *IOStreams) ColorEnabled() bool {
	return s.colorEnabled
}

// ColorScheme returns a scheme honouring ColorEnabled.
func (s *IOStreams) ColorScheme() *ColorScheme {
	return NewColorScheme(s.ColorEnabled())
}
