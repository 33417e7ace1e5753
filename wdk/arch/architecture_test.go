// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package arch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmkit.sh/internal/errs"
)

func TestParse(t *testing.T) {
	for _, name := range []string{"amd64", "x86_64", "X64"} {
		a, err := Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, Amd64, a)
	}

	a, err := Parse("aarch64")
	require.NoError(t, err)
	assert.Equal(t, "arm64", a.Name())
	assert.Equal(t, "_ARM64_", a.Macro())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("")
	assert.True(t, errs.IsInvalidError(err))

	_, err = Parse("mips")
	assert.True(t, errs.IsNotFoundError(err))
}

func TestTargetFeatures(t *testing.T) {
	assert.Equal(t,
		"-mmx,-sse,-sse2,-sse3,-ssse3,-sse4.1,-sse4.2,-avx,-avx2,+soft-float",
		Amd64.TargetFeatures(),
	)
	assert.Equal(t, "-neon,-fp-armv8", Arm64.TargetFeatures())
}

func TestDisabledFeaturesIsACopy(t *testing.T) {
	f := Amd64.DisabledFeatures()
	f[0] = "changed"
	assert.Equal(t, "mmx", Amd64.DisabledFeatures()[0])
}

func TestZero(t *testing.T) {
	assert.True(t, Architecture{}.IsZero())
	assert.False(t, Amd64.IsZero())
	assert.Equal(t, []string{"amd64", "arm64"}, Names())
}
