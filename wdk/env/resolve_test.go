// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package env

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmkit.sh/internal/errs"
	"kmkit.sh/wdk/arch"
)

func defaultMapping(t *testing.T) *Mapping {
	t.Helper()

	l := DefaultLayout()
	roots, err := l.Roots("10.0.22621.0", `C:\Kits\10`)
	require.NoError(t, err)

	templates, err := l.Templates()
	require.NoError(t, err)

	m, err := Resolve(roots, templates)
	require.NoError(t, err)

	return m
}

func TestResolveDefaultLayout(t *testing.T) {
	m := defaultMapping(t)

	expected := map[string]string{
		"KM_RS_WDK_VERSION":          "10.0.22621.0",
		"KM_RS_WDK_ROOT":             `C:\Kits\10`,
		"KM_RS_WDK_INCLUDE":          `C:\Kits\10\Include\10.0.22621.0`,
		"KM_RS_WDK_LIB":              `C:\Kits\10\Lib\10.0.22621.0`,
		"KM_RS_WDK_INCLUDE_SHARED":   `C:\Kits\10\Include\10.0.22621.0\shared`,
		"KM_RS_WDK_INCLUDE_KM":       `C:\Kits\10\Include\10.0.22621.0\km`,
		"KM_RS_WDK_LIB_KM_64":        `C:\Kits\10\Lib\10.0.22621.0\km\x64`,
		"KM_RS_WDK_KMDF_VERSION":     "1.33",
		"KM_RS_WDK_INCLUDE_WDM_KMDF": `C:\Kits\10\Include\wdf\kmdf\1.33`,
		"KM_RS_WDK_LIB_KMDF_64":      `C:\Kits\10\Lib\wdf\kmdf\x64\1.33`,
		"KM_RS_WDK_BIN_64":           `C:\Kits\10\bin\10.0.22621.0\x64`,
	}

	assert.Equal(t, expected, m.Map())
	assert.Equal(t, []string{"KM_RS_WDK_VERSION", "KM_RS_WDK_ROOT"}, m.Roots())
	assert.True(t, m.IsRoot("KM_RS_WDK_ROOT"))
	assert.False(t, m.IsRoot("KM_RS_WDK_LIB"))
}

func TestResolveArm64Layout(t *testing.T) {
	l := DefaultLayout()
	l.Arch = arch.Arm64
	l.Separator = "/"

	roots, err := l.Roots("10.0.22621.0", "/opt/wdk/")
	require.NoError(t, err)
	templates, err := l.Templates()
	require.NoError(t, err)

	m, err := Resolve(roots, templates)
	require.NoError(t, err)

	v, _ := m.Lookup("KM_RS_WDK_LIB_KM_64")
	assert.Equal(t, "/opt/wdk/Lib/10.0.22621.0/km/arm64", v)
}

func TestResolveIsIdempotent(t *testing.T) {
	a := defaultMapping(t)
	b := defaultMapping(t)

	assert.Equal(t, a.Names(), b.Names())
	assert.Equal(t, a.Map(), b.Map())
}

func TestResolveEveryVariableOnce(t *testing.T) {
	m := defaultMapping(t)

	seen := map[string]int{}
	for _, name := range m.Names() {
		seen[name]++
	}

	assert.Len(t, seen, 11)
	for name, n := range seen {
		assert.Equal(t, 1, n, name)
	}
}

func TestResolveOutOfOrderTemplates(t *testing.T) {
	m, err := Resolve(
		[]Variable{{Name: "R", Value: "r"}},
		[]Template{
			{Name: "C", Template: "${B}/c"},
			{Name: "B", Template: "${A}/b"},
			{Name: "A", Template: "${R}/a"},
		},
	)
	require.NoError(t, err)

	v, _ := m.Lookup("C")
	assert.Equal(t, "r/a/b/c", v)
	assert.Equal(t, []string{"R", "C", "B", "A"}, m.Names())
	assert.Equal(t, []string{"B"}, m.References("C"))
}

func TestResolveLongChain(t *testing.T) {
	const depth = 500

	templates := make([]Template, 0, depth)
	for i := depth; i > 0; i-- {
		templates = append(templates, Template{
			Name:     fmt.Sprintf("V%d", i),
			Template: fmt.Sprintf("${V%d}x", i-1),
		})
	}

	m, err := Resolve([]Variable{{Name: "V0", Value: ""}}, templates)
	require.NoError(t, err)

	v, _ := m.Lookup(fmt.Sprintf("V%d", depth))
	assert.Len(t, v, depth)
}

func TestResolveCycles(t *testing.T) {
	testCases := []struct {
		desc      string
		templates []Template
		path      []string
	}{
		{
			desc:      "self reference",
			templates: []Template{{Name: "A", Template: "${A}"}},
			path:      []string{"A", "A"},
		},
		{
			desc: "two variables",
			templates: []Template{
				{Name: "A", Template: "${B}"},
				{Name: "B", Template: "${A}"},
			},
			path: []string{"A", "B", "A"},
		},
		{
			desc: "long cycle behind an acyclic prefix",
			templates: []Template{
				{Name: "OK", Template: "${R}"},
				{Name: "P", Template: "${OK}${C1}"},
				{Name: "C1", Template: "${C2}"},
				{Name: "C2", Template: "${C3}"},
				{Name: "C3", Template: "${C4}"},
				{Name: "C4", Template: "${C1}"},
			},
			path: []string{"C1", "C2", "C3", "C4", "C1"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			m, err := Resolve([]Variable{{Name: "R", Value: "r"}}, tc.templates)
			assert.Nil(t, m)
			require.True(t, errs.IsCyclicReferenceError(err), "%v", err)

			var cerr *CycleError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tc.path, cerr.Path)
		})
	}
}

func TestResolveUndefinedReference(t *testing.T) {
	m, err := Resolve(
		[]Variable{{Name: "R", Value: "r"}},
		[]Template{{Name: "A", Template: `${R}\${MISSING}`}},
	)
	assert.Nil(t, m)
	require.True(t, errs.IsUndefinedReferenceError(err))

	var rerr *ReferenceError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "A", rerr.Variable)
	assert.Equal(t, "MISSING", rerr.Reference)
}

func TestResolveInvalidInputs(t *testing.T) {
	testCases := []struct {
		desc      string
		roots     []Variable
		templates []Template
	}{
		{
			desc:  "duplicate root",
			roots: []Variable{{Name: "R"}, {Name: "R"}},
		},
		{
			desc:      "template shadows root",
			roots:     []Variable{{Name: "R"}},
			templates: []Template{{Name: "R", Template: "x"}},
		},
		{
			desc:      "duplicate template",
			templates: []Template{{Name: "A", Template: "x"}, {Name: "A", Template: "y"}},
		},
		{
			desc:      "invalid name",
			templates: []Template{{Name: "A-B", Template: "x"}},
		},
		{
			desc:      "malformed template",
			templates: []Template{{Name: "A", Template: "${"}},
		},
		{
			desc:      "bare reference",
			roots:     []Variable{{Name: "A", Value: "x"}},
			templates: []Template{{Name: "B", Template: "$A/y"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := Resolve(tc.roots, tc.templates)
			assert.True(t, errs.IsInvalidError(err), "%v", err)
		})
	}
}

func TestResolverOptions(t *testing.T) {
	l := DefaultLayout()
	l.Namespace = "WDK"

	roots, err := l.Roots("10.0.19041.0", `D:\WDK`)
	require.NoError(t, err)
	templates, err := l.Templates()
	require.NoError(t, err)

	r, err := NewResolver(
		WithNamespace("WDK"),
		WithRoots(roots...),
		WithTemplates(templates...),
		WithOverrides(Template{Name: "WDK_KMDF_VERSION", Template: "1.31"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "WDK", r.Namespace())

	m, err := r.Resolve(context.Background())
	require.NoError(t, err)

	v, _ := m.Lookup("WDK_LIB_KMDF_64")
	assert.Equal(t, `D:\WDK\Lib\wdf\kmdf\x64\1.31`, v)
}

func TestResolverRejectsBadNamespace(t *testing.T) {
	_, err := NewResolver(WithNamespace("bad namespace"))
	assert.True(t, errs.IsInvalidError(err))
}

func TestLayoutRootsValidatesVersion(t *testing.T) {
	_, err := DefaultLayout().Roots("22621", `C:\Kits\10`)
	assert.True(t, errs.IsInvalidError(err))

	_, err = DefaultLayout().Roots("10.0.22621.0", "")
	assert.True(t, errs.IsInvalidError(err))
}

func TestLayoutDirs(t *testing.T) {
	m := defaultMapping(t)

	inc, err := DefaultLayout().IncludeDirs(m)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`C:\Kits\10\Include\10.0.22621.0\shared`,
		`C:\Kits\10\Include\10.0.22621.0\km`,
		`C:\Kits\10\Include\wdf\kmdf\1.33`,
	}, inc)

	_, err = DefaultLayout().LibDirs(&Mapping{})
	assert.True(t, errs.IsNotFoundError(err))
}

func TestOverride(t *testing.T) {
	out := Override(
		[]Template{{Name: "A", Template: "a"}, {Name: "B", Template: "b"}},
		Template{Name: "B", Template: "bb"},
		Template{Name: "C", Template: "c"},
	)

	assert.Equal(t, []Template{
		{Name: "A", Template: "a"},
		{Name: "B", Template: "bb"},
		{Name: "C", Template: "c"},
	}, out)
}

func TestMappingMarshalJSONKeepsOrder(t *testing.T) {
	m, err := Resolve(
		[]Variable{{Name: "Z", Value: `C:\z`}},
		[]Template{{Name: "A", Template: "${Z}"}},
	)
	require.NoError(t, err)

	b, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"Z":"C:\\z","A":"C:\\z"}`, string(b))
}

func TestMappingSelect(t *testing.T) {
	m, err := Resolve(
		[]Variable{{Name: "R", Value: "r"}, {Name: "S", Value: "s"}},
		[]Template{{Name: "A", Template: "${R}/a"}, {Name: "B", Template: "${A}/b"}},
	)
	require.NoError(t, err)

	sub, err := m.Select("B", "R")
	require.NoError(t, err)

	assert.Equal(t, []string{"R", "B"}, sub.Names())
	assert.Equal(t, []string{"R"}, sub.Roots())
	assert.Equal(t, []string{"A"}, sub.References("B"))

	v, err := sub.Get("B")
	require.NoError(t, err)
	assert.Equal(t, "r/a/b", v)

	_, err = m.Select("NOPE")
	assert.True(t, errs.IsNotFoundError(err))
}
