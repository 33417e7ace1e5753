// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"kmkit.sh/internal/errs"
	"kmkit.sh/wdk/env"
)

func TestNewDefaultConfig(t *testing.T) {
	c, err := NewDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "fancy", c.Log.Type)
	assert.Equal(t, 10, c.Log.MaxSize)
	assert.Equal(t, "10.0.22621.0", c.WDK.Version)
	assert.Equal(t, `C:\Program Files (x86)\Windows Kits\10`, c.WDK.Root)
	assert.Equal(t, "KM_RS_WDK", c.WDK.Namespace)
	assert.Equal(t, `\`, c.WDK.Separator)
	assert.Equal(t, []string{"amd64"}, c.Arch)
	assert.Equal(t, "WIN10", c.Bindgen.Ceiling)
	assert.NoError(t, c.Validate())
}

func TestDefault(t *testing.T) {
	assert.Equal(t, "info", Default("log.level"))
	assert.Equal(t, "1.33", Default("wdk.kmdf_version"))
	assert.Equal(t, "", Default("wdk.nope"))
	assert.Equal(t, "", Default("log.level.deeper"))
}

func TestAllowedValues(t *testing.T) {
	assert.Contains(t, AllowedValues("log.type"), "json")
	assert.Contains(t, AllowedValues("arch"), "arm64")
	assert.Empty(t, AllowedValues("wdk.root"))
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		desc   string
		mutate func(*Config)
	}{
		{desc: "bad version", mutate: func(c *Config) { c.WDK.Version = "10.0" }},
		{desc: "empty root", mutate: func(c *Config) { c.WDK.Root = "" }},
		{desc: "no arch", mutate: func(c *Config) { c.Arch = nil }},
		{desc: "bad framework", mutate: func(c *Config) { c.WDK.FrameworkVersion = "2.0" }},
		{desc: "bad log type", mutate: func(c *Config) { c.Log.Type = "pretty" }},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			c, err := NewDefaultConfig()
			require.NoError(t, err)

			tc.mutate(c)
			assert.True(t, errs.IsInvalidError(c.Validate()))
		})
	}

	c, err := NewDefaultConfig()
	require.NoError(t, err)
	c.Arch = []string{"riscv64"}
	err = c.Validate()
	assert.True(t, errs.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "amd64, arm64")

	c.Arch = []string{"amd64"}
	c.Bindgen.Ceiling = "WIN95"
	err = c.Validate()
	assert.True(t, errs.IsNotFoundError(err))
	assert.Contains(t, err.Error(), "WIN10_NI")
}

func TestYamlFeeder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/kmkit/config.yaml", []byte(`
log:
  level: debug
wdk:
  root: 'D:\WDK'
  variables:
    - name: KM_RS_WDK_BIN_64
      template: '${KM_RS_WDK_ROOT}\tools'
arch: [amd64, arm64]
`), 0o600))

	cm, err := NewConfigManager(WithFs(fs), WithFile("/etc/kmkit/config.yaml", false))
	require.NoError(t, err)

	c := cm.Config
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "fancy", c.Log.Type)
	assert.Equal(t, `D:\WDK`, c.WDK.Root)
	assert.Equal(t, "10.0.22621.0", c.WDK.Version)
	assert.Equal(t, []string{"amd64", "arm64"}, c.Arch)
	assert.Equal(t, []env.Template{{Name: "KM_RS_WDK_BIN_64", Template: `${KM_RS_WDK_ROOT}\tools`}}, c.WDK.Variables)
}

func TestWithFileRejectsExtension(t *testing.T) {
	_, err := NewConfigManager(WithFs(afero.NewMemMapFs()), WithFile("/etc/kmkit/config.toml", false))
	assert.Error(t, err)

	_, err = NewConfigManager(WithFs(afero.NewMemMapFs()), WithFile("/etc/kmkit/config", false))
	assert.Error(t, err)
}

func TestWithFileForceCreate(t *testing.T) {
	fs := afero.NewMemMapFs()

	cm, err := NewConfigManager(WithFs(fs), WithFile("/home/u/.config/kmkit/config.yaml", true))
	require.NoError(t, err)
	assert.Equal(t, "/home/u/.config/kmkit/config.yaml", cm.ConfigFile)

	data, err := afero.ReadFile(fs, "/home/u/.config/kmkit/config.yaml")
	require.NoError(t, err)

	var c Config
	require.NoError(t, yaml.Unmarshal(data, &c))
	assert.Equal(t, "10.0.22621.0", c.WDK.Version)
}

func TestYamlFeederWriteMergeKeepsUnknownKeys(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/c.yaml", []byte("custom:\n  owner: drivers\nlog:\n  level: trace\n  color: auto\n"), 0o600))

	c, err := NewDefaultConfig()
	require.NoError(t, err)
	c.Log.Level = "warn"

	require.NoError(t, YamlFeeder{File: "/c.yaml", Fs: fs}.Write(c, true))

	data, err := afero.ReadFile(fs, "/c.yaml")
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &out))

	assert.Equal(t, map[string]interface{}{"owner": "drivers"}, out["custom"])
	logSection := out["log"].(map[string]interface{})
	assert.Equal(t, "warn", logSection["level"])
	assert.Equal(t, "auto", logSection["color"])
}

func TestEnvFeeder(t *testing.T) {
	t.Setenv("KMKIT_LOG_LEVEL", "trace")
	t.Setenv("KMKIT_LOG_TIMESTAMPS", "true")
	t.Setenv("KMKIT_LOG_MAX_SIZE", "42")
	t.Setenv("KM_RS_WDK_ROOT", `E:\Kits\10`)
	t.Setenv("KMKIT_ARCH", "amd64,arm64")

	c, err := NewDefaultConfig()
	require.NoError(t, err)
	require.NoError(t, EnvFeeder{}.Feed(c))

	assert.Equal(t, "trace", c.Log.Level)
	assert.True(t, c.Log.Timestamps)
	assert.Equal(t, 42, c.Log.MaxSize)
	assert.Equal(t, `E:\Kits\10`, c.WDK.Root)
	assert.Equal(t, []string{"amd64", "arm64"}, c.Arch)

	// Untouched by the environment
	assert.Equal(t, "fancy", c.Log.Type)
	assert.Equal(t, "10.0.22621.0", c.WDK.Version)
}

func TestDotenvFeeder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/driver/.env", []byte(
		"KM_RS_WDK_VERSION='10.0.19041.0'\n"+
			"KM_RS_WDK_ROOT='C:\\Kits\\10'\n"+
			"KM_RS_WDK_BIN_64='C:\\tools'\n"+
			"UNRELATED='x'\n",
	), 0o600))

	c, err := NewDefaultConfig()
	require.NoError(t, err)
	c.WDK.EnvFile = "/src/driver/.env"

	require.NoError(t, DotenvFeeder{Fs: fs}.Feed(c))

	assert.Equal(t, "10.0.19041.0", c.WDK.Version)
	assert.Equal(t, `C:\Kits\10`, c.WDK.Root)
	assert.Equal(t, []env.Template{{Name: "KM_RS_WDK_BIN_64", Template: `C:\tools`}}, c.WDK.Variables)
}

func TestDotenvFeederKeepsReferences(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/.env", []byte(
		"KM_RS_WDK_INCLUDE_KM=${KM_RS_WDK_INCLUDE}\\km\n",
	), 0o600))
	t.Setenv("KM_RS_WDK_INCLUDE", `Z:\leaked`)

	c, err := NewDefaultConfig()
	require.NoError(t, err)
	c.WDK.EnvFile = "/.env"

	require.NoError(t, DotenvFeeder{Fs: fs}.Feed(c))

	assert.Equal(t, []env.Template{{Name: "KM_RS_WDK_INCLUDE_KM", Template: `${KM_RS_WDK_INCLUDE}\km`}}, c.WDK.Variables)
}

func TestDotenvFeederMissingFile(t *testing.T) {
	c, err := NewDefaultConfig()
	require.NoError(t, err)

	assert.NoError(t, DotenvFeeder{File: "/nope/.env", Fs: afero.NewMemMapFs()}.Feed(c))
	assert.Equal(t, "10.0.22621.0", c.WDK.Version)
}

func TestFeederPrecedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/c.yaml", []byte("wdk:\n  version: 10.0.17763.0\n  root: 'A:\\file'\n  env_file: /.env\nlog:\n  type: json\n"), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/.env", []byte("KM_RS_WDK_ROOT='B:\\dotenv'\n"), 0o600))
	t.Setenv("KMKIT_LOG_TYPE", "basic")

	cm, err := NewConfigManager(
		WithFs(fs),
		WithFile("/c.yaml", false),
		WithDotenv(),
		WithEnv(),
	)
	require.NoError(t, err)

	assert.Equal(t, "10.0.17763.0", cm.Config.WDK.Version)
	assert.Equal(t, `B:\dotenv`, cm.Config.WDK.Root)
	assert.Equal(t, "basic", cm.Config.Log.Type)
	assert.Equal(t, "info", cm.Config.Log.Level)
}

func TestFromContext(t *testing.T) {
	c := FromContext(context.Background())
	assert.Equal(t, "info", c.Log.Level)

	cm, err := NewConfigManager()
	require.NoError(t, err)
	cm.Config.Log.Level = "debug"

	ctx := WithConfigManager(context.Background(), cm)
	assert.Equal(t, "debug", G(ctx).Log.Level)
}

func TestDefaultConfigFile(t *testing.T) {
	t.Setenv(KMKIT_CONFIG_DIR, "/etc/kmkit")
	assert.Equal(t, "/etc/kmkit/config.yaml", DefaultConfigFile())

	t.Setenv(KMKIT_CONFIG_DIR, "")
	t.Setenv(XDG_CONFIG_HOME, "/home/u/.config")
	assert.Equal(t, "/home/u/.config/kmkit/config.yaml", DefaultConfigFile())

	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}
