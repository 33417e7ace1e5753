// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvFeeder feeds using environment variables. Each field is read from the
// variable named by its `env` tag.
type EnvFeeder struct{}

// Feed the environment variables into the given configuration.
func (f EnvFeeder) Feed(cfg *Config) error {
	v := viper.New()

	for key, name := range envBindings(reflect.TypeOf(Config{}), "") {
		if err := v.BindEnv(key, name); err != nil {
			return errors.Wrapf(err, "could not bind %s", name)
		}
	}

	err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		return errors.Wrap(err, "could not decode environment")
	}

	return nil
}

// Do nothing, we do not set the environment variables based on the
// given interface.
func (f EnvFeeder) Write(cfg *Config, merge bool) error {
	return nil
}

// envBindings maps the dotted YAML key of every field with an `env` tag to
// the variable name.
func envBindings(t reflect.Type, prefix string) map[string]string {
	bindings := map[string]string{}

	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)

		key := yamlName(f)
		if key == "" || key == "-" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}

		if f.Type.Kind() == reflect.Struct {
			for k, name := range envBindings(f.Type, key) {
				bindings[k] = name
			}
			continue
		}

		if name := f.Tag.Get("env"); name != "" {
			bindings[strings.ToLower(key)] = name
		}
	}

	return bindings
}
