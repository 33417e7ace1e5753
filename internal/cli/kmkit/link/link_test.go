// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package link

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/config"
	"kmkit.sh/internal/errs"
	"kmkit.sh/iostreams"
	"kmkit.sh/log"
	"kmkit.sh/wdk/arch"
)

func testContext(t *testing.T, mutate func(*config.Config)) (context.Context, *bytes.Buffer) {
	t.Helper()

	cm, err := config.NewConfigManager()
	require.NoError(t, err)

	cm.Config.WDK.Root = `C:\Kits\10`
	if mutate != nil {
		mutate(cm.Config)
	}

	io, _, out, _ := iostreams.Test()
	ctx := config.WithConfigManager(context.Background(), cm)

	return iostreams.WithIOStreams(ctx, io), out
}

func newOptions(format Format) *LinkOptions {
	return &LinkOptions{
		Format: cmdfactory.NewEnumFlag(Formats(), format),
		fs:     afero.NewMemMapFs(),
	}
}

func lines(out *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func TestRunArgs(t *testing.T) {
	ctx, out := testContext(t, nil)

	require.NoError(t, newOptions(FormatArgs).Run(ctx, nil))

	args := lines(out)
	assert.Equal(t, "/WX", args[0])
	assert.Equal(t, "/ENTRY:FxDriverEntry", args[len(args)-1])
	assert.Contains(t, args, `/LIBPATH:C:\Kits\10\Lib\10.0.22621.0\km\x64`)
}

func TestRunRustFlags(t *testing.T) {
	ctx, out := testContext(t, nil)

	require.NoError(t, newOptions(FormatRustFlags).Run(ctx, nil))

	flags := lines(out)
	assert.Equal(t, "-C", flags[0])
	assert.Equal(t, "link-arg=/WX", flags[1])
	assert.True(t, strings.HasPrefix(flags[len(flags)-1], "target-feature=-mmx"))
}

func TestNewCmdDefaultsToRustFlags(t *testing.T) {
	cmd := NewCmd()

	format := cmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "rustflags", format.DefValue)
}

func TestRunDefaultFormatKeepsInstructionSetRestriction(t *testing.T) {
	ctx, out := testContext(t, nil)

	logger, hook := test.NewNullLogger()
	ctx = log.WithLogger(ctx, logrus.NewEntry(logger))

	format := NewCmd().Flags().Lookup("format").DefValue
	require.NoError(t, newOptions(Format(format)).Run(ctx, nil))

	assert.Contains(t, lines(out), "target-feature="+arch.Amd64.TargetFeatures())
	assert.Empty(t, hook.AllEntries())
}

func TestRunArgsWarnsAboutInstructionSetRestriction(t *testing.T) {
	ctx, out := testContext(t, nil)

	logger, hook := test.NewNullLogger()
	ctx = log.WithLogger(ctx, logrus.NewEntry(logger))

	require.NoError(t, newOptions(FormatArgs).Run(ctx, nil))

	for _, arg := range lines(out) {
		assert.NotContains(t, arg, "target-feature")
	}
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, FormatArgs, hook.LastEntry().Data["format"])
}

func TestRunBuildScriptWatchesDotenvFile(t *testing.T) {
	ctx, out := testContext(t, func(c *config.Config) {
		c.WDK.EnvFile = "/src/driver/.env"
	})

	opts := newOptions(FormatBuildScript)
	require.NoError(t, afero.WriteFile(opts.fs, "/src/driver/.env", []byte("KM_RS_WDK_KMDF_VERSION='1.33'\n"), 0o600))

	require.NoError(t, opts.Run(ctx, nil))
	assert.Equal(t, "cargo:rerun-if-changed=/src/driver/.env", lines(out)[0])
}

func TestRunBuildScript(t *testing.T) {
	ctx, out := testContext(t, nil)

	require.NoError(t, newOptions(FormatBuildScript).Run(ctx, nil))

	assert.Equal(t, []string{
		`cargo:rustc-link-search=C:\Kits\10\Lib\10.0.22621.0\km\x64`,
		`cargo:rustc-link-search=C:\Kits\10\Lib\wdf\kmdf\x64\1.33`,
	}, lines(out))
}

func TestRunCargoAllArchitectures(t *testing.T) {
	ctx, _ := testContext(t, func(c *config.Config) {
		c.Arch = []string{"amd64", "arm64"}
	})

	opts := newOptions(FormatCargo)
	opts.Output = "/src/driver/.cargo/config.toml"
	require.NoError(t, opts.Run(ctx, nil))

	data, err := afero.ReadFile(opts.fs, "/src/driver/.cargo/config.toml")
	require.NoError(t, err)

	var cfg struct {
		Target map[string]struct {
			RustFlags []string `toml:"rustflags"`
		} `toml:"target"`
	}
	_, err = toml.Decode(string(data), &cfg)
	require.NoError(t, err)

	assert.Len(t, cfg.Target, 2)
	assert.Contains(t, cfg.Target["aarch64-pc-windows-msvc"].RustFlags, "target-feature=-neon,-fp-armv8")
}

func TestRunJSON(t *testing.T) {
	ctx, out := testContext(t, func(c *config.Config) {
		c.Arch = []string{"arm64", "amd64"}
	})

	require.NoError(t, newOptions(FormatJSON).Run(ctx, nil))

	var profiles []struct {
		Arch string `json:"arch"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &profiles))
	require.Len(t, profiles, 2)
	assert.Equal(t, "arm64", profiles[0].Arch)
	assert.Equal(t, "amd64", profiles[1].Arch)
}

func TestRunSingleArchitectureFormat(t *testing.T) {
	ctx, _ := testContext(t, func(c *config.Config) {
		c.Arch = []string{"amd64", "arm64"}
	})

	err := newOptions(FormatArgs).Run(ctx, nil)

	var flagErr *cmdfactory.FlagError
	assert.ErrorAs(t, err, &flagErr)
}

func TestRunInvalidProfile(t *testing.T) {
	ctx, out := testContext(t, func(c *config.Config) {
		c.Link.ExtraArgs = "/ENTRY:DriverEntry"
	})

	err := newOptions(FormatArgs).Run(ctx, nil)
	assert.True(t, errs.IsDuplicateEntryPointError(err))
	assert.Empty(t, out.String())
}
