// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package env

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/config"
	"kmkit.sh/internal/errs"
	"kmkit.sh/iostreams"
	wdkenv "kmkit.sh/wdk/env"
)

func testContext(t *testing.T) (context.Context, *bytes.Buffer) {
	t.Helper()

	cm, err := config.NewConfigManager()
	require.NoError(t, err)
	cm.Config.WDK.Root = `C:\Kits\10`

	io, _, out, _ := iostreams.Test()
	ctx := config.WithConfigManager(context.Background(), cm)

	return iostreams.WithIOStreams(ctx, io), out
}

func newOptions(format Format) *EnvOptions {
	return &EnvOptions{
		Format: cmdfactory.NewEnumFlag(Formats(), format),
		fs:     afero.NewMemMapFs(),
	}
}

func TestRunDotenvSelection(t *testing.T) {
	ctx, out := testContext(t)

	require.NoError(t, newOptions(FormatDotenv).Run(ctx, []string{"KM_RS_WDK_INCLUDE_KM", "KM_RS_WDK_ROOT"}))

	assert.Equal(t,
		"KM_RS_WDK_ROOT='C:\\Kits\\10'\n"+
			"KM_RS_WDK_INCLUDE_KM='C:\\Kits\\10\\Include\\10.0.22621.0\\km'\n",
		out.String(),
	)
}

func TestRunUnknownName(t *testing.T) {
	ctx, _ := testContext(t)

	err := newOptions(FormatTable).Run(ctx, []string{"KM_RS_WDK_NOPE"})
	require.Error(t, err)

	var flagErr *cmdfactory.FlagError
	assert.ErrorAs(t, err, &flagErr)
	assert.True(t, errs.IsNotFoundError(err))
}

func TestRunJSON(t *testing.T) {
	ctx, out := testContext(t)

	require.NoError(t, newOptions(FormatJSON).Run(ctx, nil))

	var vars map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &vars))
	assert.Len(t, vars, 11)
	assert.Equal(t, "1.33", vars["KM_RS_WDK_KMDF_VERSION"])
}

func TestRunYAMLKeepsOrder(t *testing.T) {
	ctx, out := testContext(t)

	require.NoError(t, newOptions(FormatYAML).Run(ctx, []string{"KM_RS_WDK_KMDF_VERSION", "KM_RS_WDK_VERSION"}))

	var doc yaml.Node
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))

	body := doc.Content[0]
	require.Len(t, body.Content, 4)
	assert.Equal(t, "KM_RS_WDK_VERSION", body.Content[0].Value)
	assert.Equal(t, "10.0.22621.0", body.Content[1].Value)
	assert.Equal(t, "KM_RS_WDK_KMDF_VERSION", body.Content[2].Value)
	assert.Equal(t, "!!str", body.Content[3].Tag)
}

func TestRunTable(t *testing.T) {
	ctx, out := testContext(t)

	require.NoError(t, newOptions(FormatTable).Run(ctx, []string{"KM_RS_WDK_BIN_64"}))

	assert.Contains(t, out.String(), "NAME")
	assert.Contains(t, out.String(), `KM_RS_WDK_BIN_64`)
	assert.Contains(t, out.String(), `C:\Kits\10\bin\10.0.22621.0\x64`)
}

func TestRunOutputFile(t *testing.T) {
	ctx, out := testContext(t)

	opts := newOptions(FormatDotenv)
	opts.Output = "/src/driver/.env"

	require.NoError(t, opts.Run(ctx, nil))
	assert.Empty(t, out.String())

	f, err := opts.fs.Open("/src/driver/.env")
	require.NoError(t, err)
	defer f.Close()

	vars, err := wdkenv.ReadDotenv(f)
	require.NoError(t, err)
	assert.Len(t, vars, 11)
}

func TestNewCmd(t *testing.T) {
	cmd := NewCmd()

	assert.Equal(t, "env", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("format"))

	sub, _, err := cmd.Find([]string{"tree"})
	require.NoError(t, err)
	assert.Equal(t, "tree", sub.Name())
}
