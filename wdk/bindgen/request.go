// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package bindgen

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"kmkit.sh/internal/errs"
	"kmkit.sh/wdk/arch"
)

// HeaderError is returned when a header cannot be found in any include
// directory.
type HeaderError struct {
	Header   Header
	Searched []string
}

func (e *HeaderError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("cannot locate header %s: no include directories", e.Header)
	}

	return fmt.Sprintf("cannot locate header %s in %s", e.Header, strings.Join(e.Searched, ", "))
}

func (e *HeaderError) Unwrap() error {
	return errs.ErrUnresolvedHeaderPath
}

// Request is an emitted binding request. Macros are defined before the first
// header; headers are included in order.
type Request struct {
	Arch        arch.Architecture `json:"-" yaml:"-"`
	Macros      []Macro           `json:"macros" yaml:"macros"`
	Headers     []Header          `json:"headers" yaml:"headers"`
	IncludeDirs []string          `json:"include_dirs" yaml:"include_dirs"`
	Allowlist   *Allowlist        `json:"-" yaml:"-"`
}

// WriteTo renders the request as the C header handed to the generator.
func (r *Request) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	for _, m := range r.Macros {
		fmt.Fprintln(cw, m.String())
	}

	fmt.Fprintln(cw)

	for _, h := range r.Headers {
		fmt.Fprintf(cw, "#include <%s>\n", h)
	}

	if cw.err != nil {
		return cw.n, cw.err
	}

	return cw.n, cw.w.Flush()
}

// ClangArgs returns the preprocessor arguments, one `-I` per include
// directory in search order.
func (r *Request) ClangArgs() []string {
	args := make([]string, 0, len(r.IncludeDirs))
	for _, dir := range r.IncludeDirs {
		args = append(args, "-I"+dir)
	}

	return args
}

// GeneratorArgs returns the command line of the binding generator for the
// rendered header at path. Generator flags precede `--`, the preprocessor
// arguments follow it.
func (r *Request) GeneratorArgs(path string) []string {
	args := []string{
		path,
		"--use-core",
		"--ctypes-prefix", "::libc",
		"--default-enum-style", "newtype",
		"--no-layout-tests",
	}

	args = append(args, r.Allowlist.args()...)
	args = append(args, "--")
	args = append(args, r.ClangArgs()...)

	if !r.Arch.IsZero() {
		args = append(args, "--target="+r.Arch.Triple())
	}

	return args
}

// Locate finds every header in the include directories, searched in order,
// and returns the path of each. It stops at the first header that cannot be
// found.
func (r *Request) Locate(fs afero.Fs) ([]string, error) {
	paths := make([]string, 0, len(r.Headers))

	for _, h := range r.Headers {
		found := ""
		for _, dir := range r.IncludeDirs {
			p := joinPath(dir, string(h))

			ok, err := afero.Exists(fs, p)
			if err != nil {
				return nil, fmt.Errorf("could not stat %s: %w", p, err)
			}
			if ok {
				found = p
				break
			}
		}

		if found == "" {
			return nil, &HeaderError{
				Header:   h,
				Searched: append([]string(nil), r.IncludeDirs...),
			}
		}

		paths = append(paths, found)
	}

	return paths, nil
}

// joinPath keeps the separator style of dir so that kit paths written with
// backslashes stay valid on the host that wrote them.
func joinPath(dir, name string) string {
	if strings.Contains(dir, `\`) && !strings.Contains(dir, "/") {
		return strings.TrimRight(dir, `\`) + `\` + name
	}

	return filepath.Join(dir, name)
}

type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	if cw.err != nil {
		return 0, cw.err
	}

	n, err := cw.w.Write(p)
	cw.n += int64(n)
	cw.err = err

	return n, err
}
