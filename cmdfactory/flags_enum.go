// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package cmdfactory

import (
	"fmt"
	"slices"
	"strings"
)

// EnumFlag is a flag value restricted to a closed set of choices.
type EnumFlag[T fmt.Stringer] struct {
	Allowed []T
	Value   T
}

// NewEnumFlag returns a flag accepting the allowed values, set to d.
func NewEnumFlag[T fmt.Stringer](allowed []T, d T) *EnumFlag[T] {
	return &EnumFlag[T]{
		Allowed: allowed,
		Value:   d,
	}
}

func (a *EnumFlag[T]) String() string {
	return a.Value.String()
}

// Names lists the allowed choices.
func (a *EnumFlag[T]) Names() []string {
	names := make([]string, len(a.Allowed))
	for i := range a.Allowed {
		names[i] = a.Allowed[i].String()
	}

	return names
}

// Set selects the choice named p, ignoring case.
func (a *EnumFlag[T]) Set(p string) error {
	if i := slices.IndexFunc(a.Allowed, func(opt T) bool {
		return strings.EqualFold(opt.String(), p)
	}); i >= 0 {
		a.Value = a.Allowed[i]
		return nil
	}

	return fmt.Errorf("%s is not included in: %s", p, strings.Join(a.Names(), ", "))
}

// Type lists the choices, so that help output reads `--format table|json`.
func (a *EnumFlag[T]) Type() string {
	return strings.Join(a.Names(), "|")
}
