// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package env

import (
	"fmt"
	"strings"

	"kmkit.sh/internal/errs"
	"kmkit.sh/wdk/arch"
	"kmkit.sh/wdk/kit"
)

// DefaultNamespace prefixes the variable names the kernel crates' build
// scripts look up.
const DefaultNamespace = "KM_RS_WDK"

// Roles of the well-known variables. The variable name is the namespace and
// the role joined by an underscore.
const (
	RoleVersion          = "VERSION"
	RoleRoot             = "ROOT"
	RoleInclude          = "INCLUDE"
	RoleLib              = "LIB"
	RoleIncludeShared    = "INCLUDE_SHARED"
	RoleIncludeKM        = "INCLUDE_KM"
	RoleLibKM64          = "LIB_KM_64"
	RoleFrameworkVersion = "KMDF_VERSION"
	RoleIncludeFramework = "INCLUDE_WDM_KMDF"
	RoleLibFramework64   = "LIB_KMDF_64"
	RoleBin64            = "BIN_64"
)

// Name joins a namespace and a role.
func Name(namespace, role string) string {
	return namespace + "_" + role
}

// Layout describes where a kit installs its headers, libraries and tools.
type Layout struct {
	Namespace        string
	Arch             arch.Architecture
	FrameworkVersion string

	// Separator joins path components, `\` when empty.
	Separator string
}

// DefaultLayout is the amd64 layout under the default namespace.
func DefaultLayout() Layout {
	return Layout{
		Namespace:        DefaultNamespace,
		Arch:             arch.Amd64,
		FrameworkVersion: kit.DefaultFrameworkVersion,
		Separator:        `\`,
	}
}

// Name returns the variable name for a role in this layout's namespace.
func (l Layout) Name(role string) string {
	ns := l.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}

	return Name(ns, role)
}

func (l Layout) ref(role string) string {
	return "${" + l.Name(role) + "}"
}

func (l Layout) join(parts ...string) string {
	sep := l.Separator
	if sep == "" {
		sep = `\`
	}

	return strings.Join(parts, sep)
}

// Roots validates the kit version and returns the two root variables.
func (l Layout) Roots(version, root string) ([]Variable, error) {
	if _, err := kit.ParseVersion(version); err != nil {
		return nil, err
	}

	if root == "" {
		return nil, fmt.Errorf("kit root folder %s is empty: %w", l.Name(RoleRoot), errs.ErrInvalid)
	}

	return []Variable{
		{Name: l.Name(RoleVersion), Value: version},
		{Name: l.Name(RoleRoot), Value: strings.TrimRight(root, `\/`)},
	}, nil
}

// Templates returns the derived variables of the layout, each referencing the
// roots or an earlier template.
func (l Layout) Templates() ([]Template, error) {
	a := l.Arch
	if a.IsZero() {
		a = arch.Amd64
	}

	fw := l.FrameworkVersion
	if fw == "" {
		fw = kit.DefaultFrameworkVersion
	}

	v, err := kit.ParseFrameworkVersion(fw)
	if err != nil {
		return nil, err
	}

	root := l.ref(RoleRoot)
	version := l.ref(RoleVersion)

	return []Template{
		{Name: l.Name(RoleInclude), Template: l.join(root, "Include", version)},
		{Name: l.Name(RoleLib), Template: l.join(root, "Lib", version)},
		{Name: l.Name(RoleIncludeShared), Template: l.join(l.ref(RoleInclude), "shared")},
		{Name: l.Name(RoleIncludeKM), Template: l.join(l.ref(RoleInclude), "km")},
		{Name: l.Name(RoleLibKM64), Template: l.join(l.ref(RoleLib), "km", a.LibDir())},
		{Name: l.Name(RoleFrameworkVersion), Template: kit.FrameworkDir(v)},
		{Name: l.Name(RoleIncludeFramework), Template: l.join(root, "Include", "wdf", "kmdf", l.ref(RoleFrameworkVersion))},
		{Name: l.Name(RoleLibFramework64), Template: l.join(root, "Lib", "wdf", "kmdf", a.LibDir(), l.ref(RoleFrameworkVersion))},
		{Name: l.Name(RoleBin64), Template: l.join(root, "bin", version, a.LibDir())},
	}, nil
}

// IncludeDirs returns the header search path of a binding request, in the
// order the headers expect: shared, kernel-mode, then framework headers.
func (l Layout) IncludeDirs(m *Mapping) ([]string, error) {
	return l.lookupAll(m, RoleIncludeShared, RoleIncludeKM, RoleIncludeFramework)
}

// LibDirs returns the library search path of a linker profile.
func (l Layout) LibDirs(m *Mapping) ([]string, error) {
	return l.lookupAll(m, RoleLibKM64, RoleLibFramework64)
}

func (l Layout) lookupAll(m *Mapping, roles ...string) ([]string, error) {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		v, err := m.Get(l.Name(role))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}
