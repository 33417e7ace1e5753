// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// NewDefaultConfig returns a configuration holding the `default` tag values.
func NewDefaultConfig() (*Config, error) {
	c := &Config{}

	if err := setDefaults(c); err != nil {
		return nil, fmt.Errorf("could not set defaults for config: %s", err)
	}

	return c, nil
}

func setDefaults(s interface{}) error {
	return setDefaultValue(reflect.ValueOf(s), "")
}

func setDefaultValue(v reflect.Value, def string) error {
	if v.Kind() != reflect.Ptr {
		return fmt.Errorf("not a pointer value")
	}

	v = reflect.Indirect(v)

	switch v.Kind() {
	case reflect.Int:
		if len(def) > 0 {
			i, err := strconv.ParseInt(def, 10, 64)
			if err != nil {
				return fmt.Errorf("could not parse default integer value: %s", err)
			}
			v.SetInt(i)
		}

	case reflect.String:
		if len(def) > 0 {
			v.SetString(def)
		}

	case reflect.Bool:
		if len(def) > 0 {
			b, err := strconv.ParseBool(def)
			if err != nil {
				return fmt.Errorf("could not parse default boolean value: %s", err)
			}
			v.SetBool(b)
		} else {
			v.SetBool(false)
		}

	case reflect.Slice:
		// Comma separated defaults for string lists only
		if len(def) > 0 && v.Type().Elem().Kind() == reflect.String {
			v.Set(reflect.ValueOf(strings.Split(def, ",")))
		}

	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			def = v.Type().Field(i).Tag.Get("default")
			if err := setDefaultValue(
				v.Field(i).Addr(),
				def,
			); err != nil {
				return err
			}
		}

	default:
		return nil
	}

	return nil
}

// Default returns the default of a dotted key, e.g. `log.level`, or an empty
// string when the key is unknown or has no default.
func Default(key string) string {
	field, ok := findField(reflect.TypeOf(Config{}), strings.Split(key, "."))
	if !ok {
		return ""
	}

	return field.Tag.Get("default")
}

func findField(t reflect.Type, path []string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if yamlName(f) != path[0] {
			continue
		}

		if len(path) == 1 {
			return f, true
		}

		if f.Type.Kind() != reflect.Struct {
			return reflect.StructField{}, false
		}

		return findField(f.Type, path[1:])
	}

	return reflect.StructField{}, false
}

func yamlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	return name
}
