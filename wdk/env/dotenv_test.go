// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package env

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmkit.sh/internal/errs"
)

func TestWriteDotenv(t *testing.T) {
	m, err := Resolve(
		[]Variable{{Name: "KM_RS_WDK_ROOT", Value: `C:\Kits\10`}},
		[]Template{{Name: "KM_RS_WDK_BIN_64", Template: `${KM_RS_WDK_ROOT}\bin`}},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDotenv(&buf, m))

	assert.Equal(t, "KM_RS_WDK_ROOT='C:\\Kits\\10'\nKM_RS_WDK_BIN_64='C:\\Kits\\10\\bin'\n", buf.String())
}

func TestDotenvRoundTrip(t *testing.T) {
	m := defaultMapping(t)

	var buf bytes.Buffer
	require.NoError(t, WriteDotenv(&buf, m))

	vars, err := ReadDotenv(&buf)
	require.NoError(t, err)
	require.Len(t, vars, m.Len())

	for _, v := range vars {
		expected, ok := m.Lookup(v.Name)
		require.True(t, ok, v.Name)
		assert.Equal(t, expected, v.Value, v.Name)
	}
}

func TestReadDotenvSortsByName(t *testing.T) {
	vars, err := ReadDotenv(strings.NewReader("# kit\nB='2'\nA='1'\n"))
	require.NoError(t, err)

	assert.Equal(t, []Variable{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}}, vars)
}

func TestReadDotenvRejectsGarbage(t *testing.T) {
	_, err := ReadDotenv(strings.NewReader("this is not a dotenv file\n"))
	assert.Error(t, err)
}

func TestDotenvRoundTripQuotes(t *testing.T) {
	m, err := Resolve([]Variable{
		{Name: "KM_RS_WDK_ROOT", Value: `C:\Users\O'Brien\$Kits\n1`},
		{Name: "KM_RS_WDK_VERSION", Value: `C:\Users\O'Neil\new`},
		{Name: "KM_RS_WDK_BIN_64", Value: `C:\Kits\10\bin\`},
	}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDotenv(&buf, m))

	vars, err := ReadDotenv(&buf)
	require.NoError(t, err)

	assert.Equal(t, []Variable{
		{Name: "KM_RS_WDK_BIN_64", Value: `C:\Kits\10\bin\`},
		{Name: "KM_RS_WDK_ROOT", Value: `C:\Users\O'Brien\$Kits\n1`},
		{Name: "KM_RS_WDK_VERSION", Value: `C:\Users\O'Neil\new`},
	}, vars)
}

func TestWriteDotenvRejectsUnrepresentableValues(t *testing.T) {
	for _, value := range []string{"a\nb", "O'Brien # kit", " O'Brien", "'quoted'\\"} {
		t.Run(value, func(t *testing.T) {
			m, err := Resolve([]Variable{{Name: "KM_RS_WDK_ROOT", Value: value}}, nil)
			require.NoError(t, err)

			err = WriteDotenv(&bytes.Buffer{}, m)
			assert.True(t, errs.IsInvalidError(err), "%v", err)
		})
	}
}

func TestReadDotenvDoesNotExpand(t *testing.T) {
	t.Setenv("KM_RS_WDK_HOST", `C:\Host`)

	vars, err := ReadDotenv(strings.NewReader(strings.Join([]string{
		`A=${KM_RS_WDK_HOST}\x`,
		`B="${A}\y"`,
		`C='${A}'`,
		`D=$$`,
		`E="first`,
		`${A}"`,
	}, "\n")))
	require.NoError(t, err)

	assert.Equal(t, []Variable{
		{Name: "A", Value: `${KM_RS_WDK_HOST}\x`},
		{Name: "B", Value: `${A}y`},
		{Name: "C", Value: `${A}`},
		{Name: "D", Value: `$$`},
		{Name: "E", Value: "first\n${A}"},
	}, vars)
}

func TestLayoutFromDotenv(t *testing.T) {
	vars, err := ReadDotenv(strings.NewReader(strings.Join([]string{
		"KM_RS_WDK_VERSION=10.0.22621.0",
		`KM_RS_WDK_ROOT='C:\Kits\10'`,
		`KM_RS_WDK_INCLUDE_KM=${KM_RS_WDK_INCLUDE}\km-$$1`,
		"PATH=/usr/bin",
	}, "\n")))
	require.NoError(t, err)

	version, root, overrides := DefaultLayout().FromDotenv(vars)
	assert.Equal(t, "10.0.22621.0", version)
	assert.Equal(t, `C:\Kits\10`, root)
	assert.Equal(t, []Template{{Name: "KM_RS_WDK_INCLUDE_KM", Template: `${KM_RS_WDK_INCLUDE}\km-$$1`}}, overrides)

	templates, err := DefaultLayout().Templates()
	require.NoError(t, err)
	roots, err := DefaultLayout().Roots(version, root)
	require.NoError(t, err)

	m, err := Resolve(roots, Override(templates, overrides...))
	require.NoError(t, err)

	v, _ := m.Lookup("KM_RS_WDK_INCLUDE_KM")
	assert.Equal(t, `C:\Kits\10\Include\10.0.22621.0\km-$1`, v)
}

func TestLayoutFromDotenvUndefinedReference(t *testing.T) {
	t.Setenv("KM_RS_WDK_NOPE", "from the process")

	vars, err := ReadDotenv(strings.NewReader(
		"KM_RS_WDK_VERSION=10.0.22621.0\nKM_RS_WDK_ROOT='C:\\Kits\\10'\nKM_RS_WDK_BIN_64=${KM_RS_WDK_NOPE}\\bin\n",
	))
	require.NoError(t, err)

	version, root, overrides := DefaultLayout().FromDotenv(vars)

	templates, err := DefaultLayout().Templates()
	require.NoError(t, err)
	roots, err := DefaultLayout().Roots(version, root)
	require.NoError(t, err)

	_, err = Resolve(roots, Override(templates, overrides...))
	assert.True(t, errs.IsUndefinedReferenceError(err), "%v", err)
}
