// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	wdkenv "kmkit.sh/wdk/env"
)

// DotenvFeeder feeds the kit variables of a dotenv file, as read by the
// kernel crates' build scripts. The version and root variables set
// wdk.version and wdk.root, other variables of the namespace become literal
// overrides of the derived variables. A missing file is not an error.
type DotenvFeeder struct {
	// File is the dotenv file, wdk.env_file when empty.
	File string

	// Fs is the filesystem holding File, the host filesystem when nil.
	Fs afero.Fs
}

func (f DotenvFeeder) Feed(cfg *Config) error {
	file := f.File
	if file == "" {
		file = cfg.WDK.EnvFile
	}
	if file == "" {
		return nil
	}

	fs := f.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	r, err := fs.Open(filepath.Clean(file))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return errors.Wrapf(err, "cannot open dotenv file %s", file)
	}

	defer r.Close()

	vars, err := wdkenv.ReadDotenv(r)
	if err != nil {
		return errors.Wrapf(err, "cannot feed dotenv file %s", file)
	}

	layout := wdkenv.Layout{Namespace: cfg.WDK.Namespace}
	version, root, overrides := layout.FromDotenv(vars)

	if version != "" {
		cfg.WDK.Version = version
	}
	if root != "" {
		cfg.WDK.Root = root
	}

	cfg.WDK.Variables = wdkenv.Override(cfg.WDK.Variables, overrides...)

	return nil
}

// Do nothing, the dotenv file is written by `kmkit env --format dotenv`.
func (f DotenvFeeder) Write(cfg *Config, merge bool) error {
	return nil
}
