// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kit

import (
	"fmt"
	"strings"

	"kmkit.sh/internal/errs"
)

// Ceiling is an API version ceiling. The kit headers express the same release
// in two families of symbols: `NTDDI_*` for kernel headers and
// `_WIN32_WINNT_*` for the shared SDK headers.
type Ceiling struct {
	// Name is the release suffix shared by both symbol families, e.g. `WIN10`.
	Name string

	// NTDDI is the numeric value of NTDDI_<Name>.
	NTDDI uint32

	// WinNT is the name of the _WIN32_WINNT_* symbol the release maps to.
	// Feature updates of one release share the same symbol.
	WinNT string
}

// DefaultCeiling is the ceiling used when none is configured.
var DefaultCeiling = MustParseCeiling("WIN10")

var ceilings = []Ceiling{
	{Name: "WIN7", NTDDI: 0x06010000, WinNT: "WIN7"},
	{Name: "WIN8", NTDDI: 0x06020000, WinNT: "WIN8"},
	{Name: "WINBLUE", NTDDI: 0x06030000, WinNT: "WINBLUE"},
	{Name: "WIN10", NTDDI: 0x0A000000, WinNT: "WIN10"},
	{Name: "WIN10_TH2", NTDDI: 0x0A000001, WinNT: "WIN10"},
	{Name: "WIN10_RS1", NTDDI: 0x0A000002, WinNT: "WIN10"},
	{Name: "WIN10_RS2", NTDDI: 0x0A000003, WinNT: "WIN10"},
	{Name: "WIN10_RS3", NTDDI: 0x0A000004, WinNT: "WIN10"},
	{Name: "WIN10_RS4", NTDDI: 0x0A000005, WinNT: "WIN10"},
	{Name: "WIN10_RS5", NTDDI: 0x0A000006, WinNT: "WIN10"},
	{Name: "WIN10_19H1", NTDDI: 0x0A000007, WinNT: "WIN10"},
	{Name: "WIN10_VB", NTDDI: 0x0A000008, WinNT: "WIN10"},
	{Name: "WIN10_MN", NTDDI: 0x0A000009, WinNT: "WIN10"},
	{Name: "WIN10_FE", NTDDI: 0x0A00000A, WinNT: "WIN10"},
	{Name: "WIN10_CO", NTDDI: 0x0A00000B, WinNT: "WIN10"},
	{Name: "WIN10_NI", NTDDI: 0x0A00000C, WinNT: "WIN10"},
}

// ParseCeiling returns the ceiling with the given name. Both the bare release
// name and its `NTDDI_` form are accepted, case-insensitively.
func ParseCeiling(name string) (Ceiling, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	n = strings.TrimPrefix(n, "NTDDI_")

	for _, c := range ceilings {
		if c.Name == n {
			return c, nil
		}
	}

	return Ceiling{}, fmt.Errorf("unknown API version ceiling %q: %w", name, errs.ErrNotFound)
}

// MustParseCeiling is ParseCeiling which panics on unknown names.
func MustParseCeiling(name string) Ceiling {
	c, err := ParseCeiling(name)
	if err != nil {
		panic(err)
	}

	return c
}

// CeilingNames returns the names of all known ceilings, oldest first.
func CeilingNames() []string {
	names := make([]string, len(ceilings))
	for i, c := range ceilings {
		names[i] = c.Name
	}

	return names
}

// NTDDISymbol returns the kernel header family symbol, e.g. NTDDI_WIN10.
func (c Ceiling) NTDDISymbol() string {
	return "NTDDI_" + c.Name
}

// WinNTSymbol returns the shared header family symbol, e.g.
// _WIN32_WINNT_WIN10.
func (c Ceiling) WinNTSymbol() string {
	return "_WIN32_WINNT_" + c.WinNT
}
