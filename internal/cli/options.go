// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file expect in compliance with the License.
package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/config"
	"kmkit.sh/iostreams"
)

type CliOptions struct {
	IOStreams     *iostreams.IOStreams
	Logger        *logrus.Entry
	ConfigManager *config.ConfigManager
}

type CliOption func(*CliOptions) error

// WithConfigManager sets a previously instantiated ConfigManager to be used
// as part of the CLI options.
func WithConfigManager(cfgm *config.ConfigManager) CliOption {
	return func(copts *CliOptions) error {
		copts.ConfigManager = cfgm
		return nil
	}
}

// WithDefaultConfigManager instantiates a configuration manager fed by the
// user's config file, the kit dotenv file and the environment, in that
// order, and attributes its fields as flags of cmd. Flags are applied last
// when the command line is parsed.
func WithDefaultConfigManager(cmd *cobra.Command) CliOption {
	return func(copts *CliOptions) error {
		if copts.ConfigManager != nil {
			return nil
		}

		cfgm, err := config.NewConfigManager(
			config.WithDefaultConfigFile(),
			config.WithDotenv(),
			config.WithEnv(),
		)
		if err != nil {
			return err
		}

		// Attribute all configuration flags and command-line argument values
		if err := cmdfactory.AttributeFlags(cmd, cfgm.Config); err != nil {
			return err
		}

		copts.ConfigManager = cfgm

		return nil
	}
}

// WithIOStreams sets a previously instantiated iostreams.IOStreams structure to
// be used within the command.
func WithIOStreams(io *iostreams.IOStreams) CliOption {
	return func(copts *CliOptions) error {
		copts.IOStreams = io
		return nil
	}
}

// WithDefaultIOStreams instantiates new IO streams using environmental
// variables and host-provided configuration.
func WithDefaultIOStreams() CliOption {
	return func(copts *CliOptions) error {
		if copts.IOStreams != nil {
			return nil
		}

		io := iostreams.System()

		if copts.ConfigManager != nil && copts.ConfigManager.Config.NoColor {
			io.SetColorEnabled(false)
		}

		copts.IOStreams = io

		return nil
	}
}

// WithDefaultLogger sets up the built in logger based on the configuration
// found in the ConfigManager.
func WithDefaultLogger() CliOption {
	return func(copts *CliOptions) error {
		if copts.Logger != nil {
			return nil
		}

		var cfg *config.Config
		if copts.ConfigManager != nil {
			cfg = copts.ConfigManager.Config
		} else {
			var err error
			if cfg, err = config.NewDefaultConfig(); err != nil {
				return err
			}
		}

		logger, err := NewLogger(cfg, copts.IOStreams)
		if err != nil {
			return err
		}

		copts.Logger = logger

		return nil
	}
}
