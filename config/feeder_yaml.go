// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// YamlFeeder feeds using a YAML file.
type YamlFeeder struct {
	File string

	// Fs is the filesystem holding File, the host filesystem when nil.
	Fs afero.Fs
}

func (f YamlFeeder) fs() afero.Fs {
	if f.Fs == nil {
		return afero.NewOsFs()
	}

	return f.Fs
}

func (f YamlFeeder) Feed(cfg *Config) error {
	file, err := f.fs().Open(filepath.Clean(f.File))
	if err != nil {
		return errors.Wrap(err, "cannot open yaml file")
	}

	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}

	// File is empty, ignore
	if stat.Size() == 0 {
		return nil
	}

	if err = yaml.NewDecoder(file).Decode(cfg); err != nil {
		return errors.Wrapf(err, "cannot feed config file %s", f.File)
	}

	return nil
}

func (f YamlFeeder) Write(cfg *Config, merge bool) error {
	if len(f.File) == 0 {
		return fmt.Errorf("filename for YAML cannot be empty")
	}

	fs := f.fs()

	if err := fs.MkdirAll(filepath.Dir(f.File), 0o771); err != nil {
		return errors.Wrap(err, "could not create config directory")
	}

	file, err := fs.OpenFile(f.File, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return errors.Wrap(err, "could not open file")
	}

	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrap(err, "could not read file")
	}

	from := yaml.Node{}
	if err := yaml.Unmarshal(data, &from); err != nil {
		return errors.Wrap(err, "could not unmarshal YAML")
	}

	yml, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	into := yaml.Node{}
	if err := yaml.Unmarshal(yml, &into); err != nil {
		return err
	}

	// When kind is 0, it is an uninitialized YAML structure (aka empty file)
	if from.Kind != 0 && merge {
		if err := keepUnknownKeys(&from, &into); err != nil {
			return errors.Wrap(err, "could not update config")
		}
	}

	if err := file.Truncate(0); err != nil {
		return err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	enc := yaml.NewEncoder(file)
	enc.SetIndent(2)
	if err := enc.Encode(&into); err != nil {
		return err
	}

	return enc.Close()
}

// keepUnknownKeys copies the mapping keys of from which into lacks. Values
// present in both are taken from into.
func keepUnknownKeys(from, into *yaml.Node) error {
	if from.Kind != into.Kind {
		return fmt.Errorf("cannot merge nodes of different kinds")
	}

	switch from.Kind {
	case yaml.DocumentNode:
		if len(from.Content) == 0 || len(into.Content) == 0 {
			return nil
		}
		return keepUnknownKeys(from.Content[0], into.Content[0])

	case yaml.MappingNode:
		for i := 0; i < len(from.Content); i += 2 {
			key := from.Content[i]

			j := mappingIndex(into, key.Value)
			if j < 0 {
				into.Content = append(into.Content, from.Content[i:i+2]...)
				continue
			}

			if from.Content[i+1].Kind == yaml.MappingNode && into.Content[j+1].Kind == yaml.MappingNode {
				if err := keepUnknownKeys(from.Content[i+1], into.Content[j+1]); err != nil {
					return fmt.Errorf("at key %s: %w", key.Value, err)
				}
			}
		}
	}

	return nil
}

func mappingIndex(n *yaml.Node, key string) int {
	for j := 0; j < len(n.Content); j += 2 {
		if n.Content[j].Kind == yaml.ScalarNode && n.Content[j].Value == key {
			return j
		}
	}

	return -1
}
