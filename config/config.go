// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package config holds the kmkit configuration and the feeders which populate
// it from defaults, a YAML file, a dotenv file and the environment.
package config

import (
	"fmt"
	"slices"
	"strings"

	"kmkit.sh/internal/errs"
	"kmkit.sh/log"
	"kmkit.sh/wdk/arch"
	"kmkit.sh/wdk/bindgen"
	"kmkit.sh/wdk/env"
	"kmkit.sh/wdk/kit"
)

type Config struct {
	NoColor bool `yaml:"no_color" env:"KMKIT_NO_COLOR" long:"no-color" usage:"Disable colored output"`

	Log struct {
		Level      string `yaml:"level" env:"KMKIT_LOG_LEVEL" long:"log-level" usage:"Log level verbosity" default:"info"`
		Timestamps bool   `yaml:"timestamps" env:"KMKIT_LOG_TIMESTAMPS" long:"log-timestamps" usage:"Enable log timestamps"`
		Type       string `yaml:"type" env:"KMKIT_LOG_TYPE" long:"log-type" usage:"Log type" default:"fancy"`
		File       string `yaml:"file,omitempty" env:"KMKIT_LOG_FILE" long:"log-file" usage:"Also write logs to this file"`
		MaxSize    int    `yaml:"max_size" env:"KMKIT_LOG_MAX_SIZE" usage:"Size in megabytes before the log file is rotated" default:"10" noattribute:"true"`
		MaxBackups int    `yaml:"max_backups" env:"KMKIT_LOG_MAX_BACKUPS" usage:"Number of rotated log files to keep" default:"3" noattribute:"true"`
		MaxAge     int    `yaml:"max_age" env:"KMKIT_LOG_MAX_AGE" usage:"Days to keep rotated log files" default:"28" noattribute:"true"`
		Compress   bool   `yaml:"compress" env:"KMKIT_LOG_COMPRESS" usage:"Compress rotated log files" noattribute:"true"`
	} `yaml:"log"`

	WDK struct {
		Version          string         `yaml:"version" env:"KM_RS_WDK_VERSION" long:"wdk-version" usage:"Kit version, e.g. 10.0.22621.0" default:"10.0.22621.0"`
		Root             string         `yaml:"root" env:"KM_RS_WDK_ROOT" long:"wdk-root" usage:"Kit root folder" default:"C:\\Program Files (x86)\\Windows Kits\\10"`
		Namespace        string         `yaml:"namespace" env:"KMKIT_WDK_NAMESPACE" long:"wdk-namespace" usage:"Prefix of the kit variable names" default:"KM_RS_WDK"`
		FrameworkVersion string         `yaml:"kmdf_version" env:"KMKIT_WDK_KMDF_VERSION" long:"kmdf-version" usage:"Driver framework version" default:"1.33"`
		Separator        string         `yaml:"separator" env:"KMKIT_WDK_SEPARATOR" long:"path-separator" usage:"Separator joining kit path components" default:"\\"`
		EnvFile          string         `yaml:"env_file" env:"KMKIT_WDK_ENV_FILE" long:"env-file" usage:"Dotenv file with kit variables" default:".env"`
		Variables        []env.Template `yaml:"variables,omitempty" noattribute:"true"`
	} `yaml:"wdk"`

	Arch []string `yaml:"arch" env:"KMKIT_ARCH" long:"arch" usage:"Target architectures" default:"amd64"`

	Bindgen struct {
		Ceiling   string          `yaml:"ceiling" env:"KMKIT_BINDGEN_CEILING" long:"ceiling" usage:"API version ceiling" default:"WIN10"`
		NTDDI     string          `yaml:"ntddi_version,omitempty" env:"KMKIT_BINDGEN_NTDDI_VERSION" usage:"Override of the NTDDI_VERSION symbol" noattribute:"true"`
		WinNT     string          `yaml:"win32_winnt,omitempty" env:"KMKIT_BINDGEN_WIN32_WINNT" usage:"Override of the _WIN32_WINNT symbol" noattribute:"true"`
		Headers   []string        `yaml:"headers,omitempty" noattribute:"true"`
		Macros    []bindgen.Macro `yaml:"macros,omitempty" noattribute:"true"`
		Allowlist string          `yaml:"allowlist,omitempty" env:"KMKIT_BINDGEN_ALLOWLIST" long:"allowlist" usage:"TOML file limiting the generated bindings"`
	} `yaml:"bindgen"`

	Link struct {
		Libraries []string `yaml:"libraries,omitempty" env:"KMKIT_LINK_LIBRARIES" usage:"Import libraries replacing the defaults" noattribute:"true"`
		ExtraArgs string   `yaml:"extra_args,omitempty" env:"KMKIT_LINK_EXTRA_ARGS" long:"link-extra-args" usage:"Extra linker arguments, split with shell quoting"`
	} `yaml:"link"`
}

type ConfigDetail struct {
	Key           string
	Description   string
	AllowedValues []string
}

// Descriptions of each configuration parameter as well as valid values
var configDetails = []ConfigDetail{
	{
		Key:           "log.level",
		Description:   "Set the logging verbosity",
		AllowedValues: log.LevelNames(),
	},
	{
		Key:           "log.type",
		Description:   "Set the logging output style",
		AllowedValues: log.LoggerTypeNames(),
	},
	{
		Key:         "log.timestamps",
		Description: "Show timestamps with log output",
	},
	{
		Key:         "wdk.version",
		Description: "the installed kit version, in the kit's A.B.C.D directory format",
	},
	{
		Key:         "wdk.root",
		Description: "the folder the kit is installed in",
	},
	{
		Key:           "arch",
		Description:   "the architectures to prepare builds for",
		AllowedValues: arch.Names(),
	},
	{
		Key:           "bindgen.ceiling",
		Description:   "the newest API release bindings are generated for",
		AllowedValues: kit.CeilingNames(),
	},
}

func ConfigDetails() []ConfigDetail {
	return configDetails
}

// AllowedValues returns the accepted values of a key, empty when any value
// is accepted.
func AllowedValues(key string) []string {
	for _, details := range ConfigDetails() {
		if details.Key == key {
			return details.AllowedValues
		}
	}

	return []string{}
}

// Validate checks the values which have a closed set of choices.
func (c *Config) Validate() error {
	if _, err := kit.ParseVersion(c.WDK.Version); err != nil {
		return fmt.Errorf("wdk.version: %w", err)
	}

	if c.WDK.Root == "" {
		return fmt.Errorf("wdk.root is empty: %w", errs.ErrInvalid)
	}

	if _, err := kit.ParseFrameworkVersion(c.WDK.FrameworkVersion); err != nil {
		return fmt.Errorf("wdk.kmdf_version: %w", err)
	}

	if len(c.Arch) == 0 {
		return fmt.Errorf("no target architecture: %w", errs.ErrInvalid)
	}

	for _, name := range c.Arch {
		if _, err := arch.Parse(name); err != nil {
			return fmt.Errorf("arch: %w, expected one of %s", err, strings.Join(AllowedValues("arch"), ", "))
		}
	}

	if _, err := kit.ParseCeiling(c.Bindgen.Ceiling); err != nil {
		return fmt.Errorf("bindgen.ceiling: %w, expected one of %s", err, strings.Join(AllowedValues("bindgen.ceiling"), ", "))
	}

	if allowed := AllowedValues("log.type"); !slices.ContainsFunc(allowed, func(v string) bool {
		return strings.EqualFold(v, c.Log.Type)
	}) {
		return fmt.Errorf("log.type %q is not one of %s: %w", c.Log.Type, strings.Join(allowed, ", "), errs.ErrInvalid)
	}

	return nil
}

// Layout returns the kit layout for one architecture.
func (c *Config) Layout(a arch.Architecture) env.Layout {
	return env.Layout{
		Namespace:        c.WDK.Namespace,
		Arch:             a,
		FrameworkVersion: c.WDK.FrameworkVersion,
		Separator:        c.WDK.Separator,
	}
}

// Architectures parses the configured architectures.
func (c *Config) Architectures() ([]arch.Architecture, error) {
	archs := make([]arch.Architecture, 0, len(c.Arch))
	for _, name := range c.Arch {
		a, err := arch.Parse(name)
		if err != nil {
			return nil, err
		}
		archs = append(archs, a)
	}

	return archs, nil
}
