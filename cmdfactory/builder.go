// SPDX-License-Identifier: Apache-2.0
// Copyright 2022 Acorn Labs, Inc; All rights reserved.
// Copyright 2022 Unikraft GmbH; All rights reserved.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
package cmdfactory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"kmkit.sh/log"
)

var caseRegexp = regexp.MustCompile("([a-z])([A-Z])")

type PersistentPreRunnable interface {
	PersistentPre(cmd *cobra.Command, args []string) error
}

type PreRunnable interface {
	Pre(cmd *cobra.Command, args []string) error
}

type Runnable interface {
	Run(ctx context.Context, args []string) error
}

type fieldInfo struct {
	FieldType  reflect.StructField
	FieldValue reflect.Value
}

func fields(obj any) []fieldInfo {
	var objValue reflect.Value
	ptrValue := reflect.ValueOf(obj)
	if ptrValue.Kind() == reflect.Ptr {
		objValue = ptrValue.Elem()
	} else {
		objValue = ptrValue
	}

	var result []fieldInfo

	for i := 0; i < objValue.NumField(); i++ {
		fieldType := objValue.Type().Field(i)
		if fieldType.Anonymous && fieldType.Type.Kind() == reflect.Struct {
			result = append(result, fields(objValue.Field(i).Addr().Interface())...)
		} else if !fieldType.Anonymous {
			result = append(result, fieldInfo{
				FieldValue: objValue.Field(i),
				FieldType:  fieldType,
			})
		}
	}

	return result
}

// Name derives the command name of a Runnable from its type, e.g.
// `EnvTreeCommand` becomes `env-tree`.
func Name(obj any) string {
	ptrValue := reflect.ValueOf(obj)
	objValue := ptrValue.Elem()
	commandName := strings.Replace(objValue.Type().Name(), "Command", "", 1)
	commandName, _ = name(commandName, "", "")
	return commandName
}

// Main executes the given command and returns the process exit code.
func Main(ctx context.Context, cmd *cobra.Command) int {
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		if HasFailed() {
			return ExitFailure
		}
		return ExitOK
	}

	code := ExitCode(err)
	if code != ExitCancelled && !errors.Is(err, ErrSilent) {
		log.G(ctx).Error(err)
	}

	return code
}

// flagValue is the initial value of a flag. A value already held by the
// field, e.g. from a configuration file, wins over the `default` tag and the
// variable named by the `env` tag wins over both.
func flagValue(field reflect.StructField, v reflect.Value) string {
	value := field.Tag.Get("default")

	if !v.IsZero() {
		switch v.Kind() {
		case reflect.Slice:
			parts := make([]string, v.Len())
			for i := range parts {
				parts[i] = fmt.Sprint(v.Index(i).Interface())
			}
			value = strings.Join(parts, ",")
		default:
			value = fmt.Sprint(v.Interface())
		}
	}

	if envName := field.Tag.Get("env"); envName != "" {
		if envValue := os.Getenv(envName); envValue != "" {
			value = envValue
		}
	}

	return value
}

func splitValue(value string) []string {
	if value == "" {
		return nil
	}

	return strings.Split(value, ",")
}

// AttributeFlags associates a given struct with public attributes and a set of
// tags with the provided cobra command so as to enable dynamic population of
// CLI flags.
func AttributeFlags(c *cobra.Command, obj any, args ...string) error {
	for _, info := range fields(obj) {
		fieldType := info.FieldType
		v := info.FieldValue

		if !fieldType.IsExported() {
			continue
		}

		// Any structure attribute which has the tag `noattribute:"true"` is skipped
		if fieldType.Tag.Get("noattribute") == "true" {
			continue
		}

		if fieldType.Type.Kind() == reflect.Struct {
			if !v.CanAddr() {
				continue
			}

			// Recursively set nested structs
			if err := AttributeFlags(c, v.Addr().Interface(), args...); err != nil {
				return err
			}
			continue
		}

		name, alias := name(fieldType.Name, fieldType.Tag.Get("long"), fieldType.Tag.Get("short"))
		usage := fieldType.Tag.Get("usage")
		value := flagValue(fieldType, v)

		flags := c.PersistentFlags()
		if fieldType.Tag.Get("local") == "true" {
			flags = c.Flags()
		}

		// Custom values, e.g. *EnumFlag, are registered as they are
		if fv, ok := v.Interface().(pflag.Value); ok && v.Kind() == reflect.Pointer && !v.IsNil() {
			if envName := fieldType.Tag.Get("env"); envName != "" {
				if envValue := os.Getenv(envName); envValue != "" {
					if err := fv.Set(envValue); err != nil {
						return fmt.Errorf("%s: %w", envName, err)
					}
				}
			}
			flags.VarP(fv, name, alias, usage)
		} else {
			switch fieldType.Type.Kind() {
			case reflect.Int:
				i := 0
				if value != "" {
					var err error
					if i, err = strconv.Atoi(value); err != nil {
						return fmt.Errorf("invalid value %q of flag %s: %w", value, name, err)
					}
				}
				flags.IntVarP(v.Addr().Interface().(*int), name, alias, i, usage)

			case reflect.String:
				flags.StringVarP(v.Addr().Interface().(*string), name, alias, value, usage)

			case reflect.Bool:
				b := false
				if value != "" {
					var err error
					if b, err = strconv.ParseBool(value); err != nil {
						return fmt.Errorf("invalid value %q of flag %s: %w", value, name, err)
					}
				}
				flags.BoolVarP(v.Addr().Interface().(*bool), name, alias, b, usage)

			case reflect.Slice:
				ptr, ok := v.Addr().Interface().(*[]string)
				if !ok {
					return fmt.Errorf("unsupported slice flag %s: mark it noattribute", name)
				}
				if fieldType.Tag.Get("split") == "false" {
					flags.StringArrayVarP(ptr, name, alias, splitValue(value), usage)
				} else {
					flags.StringSliceVarP(ptr, name, alias, splitValue(value), usage)
				}

			default:
				continue
			}
		}

		if envName := fieldType.Tag.Get("env"); envName != "" {
			if err := flags.SetAnnotation(name, annotationEnv, []string{envName}); err != nil {
				return err
			}
		}

		if fieldType.Tag.Get("hidden") == "true" {
			if err := flags.MarkHidden(name); err != nil {
				return err
			}
		}
	}

	return nil
}

// New populates a cobra.Command object by extracting args from struct tags of the
// Runnable obj passed.  Also the Run method is assigned to the RunE of the command.
func New(obj Runnable, cmd cobra.Command) (*cobra.Command, error) {
	c := cmd
	if c.Use == "" {
		c.Use = fmt.Sprintf("%s [SUBCOMMAND] [FLAGS]", Name(obj))
	}

	if p, ok := obj.(PersistentPreRunnable); ok {
		c.PersistentPreRunE = p.PersistentPre
	}

	if p, ok := obj.(PreRunnable); ok {
		c.PreRunE = p.Pre
	}

	c.SilenceErrors = true
	c.SilenceUsage = true
	c.DisableFlagsInUseLine = true
	c.InitDefaultHelpFlag()

	if obj != nil {
		c.RunE = func(cmd *cobra.Command, args []string) error {
			return obj.Run(cmd.Context(), args)
		}

		// Parse the attributes of this object into addressable flags for this command
		if err := AttributeFlags(&c, obj); err != nil {
			return nil, err
		}
	}

	// Set help and usage methods
	c.SetHelpFunc(rootHelpFunc)
	c.SetUsageFunc(rootUsageFunc)
	c.SetFlagErrorFunc(rootFlagErrorFunc)

	return &c, nil
}

func name(name, setName, short string) (string, string) {
	if setName != "" {
		return setName, short
	}
	parts := strings.Split(name, "_")
	i := len(parts) - 1
	name = caseRegexp.ReplaceAllString(parts[i], "$1-$2")
	name = strings.ToLower(name)
	result := append([]string{name}, parts[0:i]...)
	for i := 0; i < len(result); i++ {
		result[i] = strings.ToLower(result[i])
	}
	if short == "" && len(result) > 1 {
		short = result[1]
	}
	return result[0], short
}
