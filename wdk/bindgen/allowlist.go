// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package bindgen

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"kmkit.sh/internal/errs"
)

// EnumStyles selects how the generator renders individual enums. Enums not
// listed use the newtype style.
type EnumStyles struct {
	Bitfield   []string `toml:"bitfield_enums"`
	Constified []string `toml:"constified_enums"`
	Rustified  []string `toml:"rustified_enums"`
	Newtype    []string `toml:"newtype_enums"`
}

// Lists names the functions, types and variables bindings are generated for.
// Items may be regular expressions understood by the generator.
type Lists struct {
	Functions []string `toml:"allowed_functions"`
	Vars      []string `toml:"allowed_vars"`
	Types     []string `toml:"allowed_types"`
}

// Allowlist restricts the generated bindings to an explicit kernel API
// surface.
type Allowlist struct {
	Enums      EnumStyles `toml:"enums"`
	Allowlists Lists      `toml:"allowlists"`
}

// ReadAllowlist decodes an allowlist from TOML. Unknown keys are rejected so
// that a misspelt list does not silently widen the generated surface.
func ReadAllowlist(r io.Reader) (*Allowlist, error) {
	a := &Allowlist{}

	md, err := toml.NewDecoder(r).Decode(a)
	if err != nil {
		return nil, errors.Wrap(err, "could not decode allowlist")
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("unknown allowlist keys %s: %w", strings.Join(keys, ", "), errs.ErrInvalid)
	}

	return a, nil
}

// LoadAllowlist reads an allowlist file from fs.
func LoadAllowlist(fs afero.Fs, path string) (*Allowlist, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open allowlist %s", path)
	}
	defer f.Close()

	return ReadAllowlist(f)
}

// Empty reports whether nothing is allowed, in which case the generator
// emits every declaration reachable from the headers.
func (a *Allowlist) Empty() bool {
	return a == nil ||
		len(a.Allowlists.Functions)+len(a.Allowlists.Types)+len(a.Allowlists.Vars) == 0
}

// args renders the generator flags in file order: allowlists first, then the
// per-enum styles.
func (a *Allowlist) args() []string {
	if a == nil {
		return nil
	}

	var args []string
	add := func(flag string, items []string) {
		for _, item := range items {
			args = append(args, flag, item)
		}
	}

	add("--allowlist-function", a.Allowlists.Functions)
	add("--allowlist-type", a.Allowlists.Types)
	add("--allowlist-var", a.Allowlists.Vars)
	add("--bitfield-enum", a.Enums.Bitfield)
	add("--constified-enum", a.Enums.Constified)
	add("--rustified-enum", a.Enums.Rustified)
	add("--newtype-enum", a.Enums.Newtype)

	return args
}
