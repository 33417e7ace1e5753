// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package tree

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmkit.sh/config"
	"kmkit.sh/iostreams"
	"kmkit.sh/wdk/env"
)

func TestTree(t *testing.T) {
	m, err := env.Resolve(
		[]env.Variable{{Name: "R", Value: "r"}},
		[]env.Template{
			{Name: "A", Template: "${R}/a"},
			{Name: "L", Template: "lit"},
			{Name: "B", Template: "${A}/b"},
		},
	)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(Tree("amd64", m), "\n"), "\n")

	require.Len(t, lines, 5)
	assert.Equal(t, "amd64 (4 variables)", lines[0])
	assert.Contains(t, lines[1], "R = r (root)")
	assert.Contains(t, lines[2], "A = r/a")
	assert.NotContains(t, lines[2], "(root)")
	assert.Contains(t, lines[3], "B = r/a/b")
	assert.Contains(t, lines[4], "L = lit")
	assert.NotContains(t, lines[4], "(root)")
}

func TestTreeRun(t *testing.T) {
	cm, err := config.NewConfigManager()
	require.NoError(t, err)

	io, _, out, _ := iostreams.Test()
	ctx := config.WithConfigManager(context.Background(), cm)
	ctx = iostreams.WithIOStreams(ctx, io)

	require.NoError(t, (&TreeOptions{}).Run(ctx, nil))

	assert.True(t, strings.HasPrefix(out.String(), "amd64 (11 variables)\n"))
	assert.Contains(t, out.String(), `KM_RS_WDK_KMDF_VERSION = 1.33`)
}
