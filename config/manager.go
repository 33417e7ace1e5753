// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// ConfigManager uses the package facilities, there should be at least one
// instance of it. It holds the configuration feeders and structs.
type ConfigManager struct {
	Config     *Config
	ConfigFile string
	Feeders    []Feeder
	fs         afero.Fs
}

type ConfigManagerOption func(cm *ConfigManager) error

// WithFs sets the filesystem the file based feeders added after it use.
func WithFs(fs afero.Fs) ConfigManagerOption {
	return func(cm *ConfigManager) error {
		cm.fs = fs
		return nil
	}
}

func WithFeeder(feeder Feeder) ConfigManagerOption {
	return func(cm *ConfigManager) error {
		cm.AddFeeder(feeder)
		return nil
	}
}

// WithFile adds a YAML file feeder. With forceCreate, a missing file is
// written with the current configuration.
func WithFile(file string, forceCreate bool) ConfigManagerOption {
	return func(cm *ConfigManager) error {
		switch filepath.Ext(file) {
		case ".yaml", ".yml":
		case "":
			return fmt.Errorf("unknown file extension for config file: %s", file)
		default:
			return fmt.Errorf("unsupported file extension: %s", file)
		}

		yml := YamlFeeder{File: file, Fs: cm.fs}

		_, err := cm.fs.Stat(file)
		if os.IsNotExist(err) {
			if !forceCreate {
				return nil
			}

			if err := yml.Write(cm.Config, false); err != nil {
				return fmt.Errorf("could not write initial config: %v", err)
			}
		}

		cm.ConfigFile = file
		return WithFeeder(yml)(cm)
	}
}

func WithDefaultConfigFile() ConfigManagerOption {
	return func(cm *ConfigManager) error {
		return WithFile(DefaultConfigFile(), false)(cm)
	}
}

// WithDotenv adds the dotenv feeder reading wdk.env_file.
func WithDotenv() ConfigManagerOption {
	return func(cm *ConfigManager) error {
		return WithFeeder(DotenvFeeder{Fs: cm.fs})(cm)
	}
}

// WithEnv adds the environment feeder.
func WithEnv() ConfigManagerOption {
	return WithFeeder(EnvFeeder{})
}

// NewConfigManager seeds the defaults, applies the options and feeds the
// configuration with every feeder in order.
func NewConfigManager(opts ...ConfigManagerOption) (*ConfigManager, error) {
	cm := &ConfigManager{fs: afero.NewOsFs()}

	c, err := NewDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("could not seed default values for config: %s", err)
	}

	cm.Config = c

	for _, o := range opts {
		if err := o(cm); err != nil {
			return nil, fmt.Errorf("could not apply config manager option: %v", err)
		}
	}

	// Feed the config, pass the manager anyway if this fails, we still have
	// defaults
	if err := cm.Feed(); err != nil {
		return cm, fmt.Errorf("could not feed config: %v", err)
	}

	return cm, nil
}

// AddFeeder adds a feeder that provides configuration data.
func (cm *ConfigManager) AddFeeder(f Feeder) *ConfigManager {
	cm.Feeders = append(cm.Feeders, f)
	return cm
}

// Feed binds configuration data from added feeders to the added structs.
func (cm *ConfigManager) Feed() error {
	for _, f := range cm.Feeders {
		if err := f.Feed(cm.Config); err != nil {
			return fmt.Errorf("failed to feed config: %w", err)
		}
	}

	return nil
}

func (cm *ConfigManager) Write(merge bool) error {
	for _, f := range cm.Feeders {
		if err := f.Write(cm.Config, merge); err != nil {
			return err
		}
	}

	return nil
}
