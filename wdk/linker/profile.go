// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package linker

import (
	"encoding/json"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"kmkit.sh/wdk/arch"
)

// Profile is a validated, ordered directive list for one architecture.
type Profile struct {
	Arch       arch.Architecture
	directives []Directive
	watched    []string
}

// Directives returns a copy of the directives in order.
func (p *Profile) Directives() []Directive {
	return append([]Directive(nil), p.directives...)
}

// Args returns the linker arguments, in order. Code generation directives
// are not linker arguments and are left out.
func (p *Profile) Args() []string {
	args := make([]string, 0, len(p.directives))
	for _, d := range p.directives {
		if d.Tool == ToolLinker {
			args = append(args, d.String())
		}
	}

	return args
}

// RustFlags renders every directive as a compiler flag pair, linker
// arguments through `link-arg`.
func (p *Profile) RustFlags() []string {
	flags := make([]string, 0, 2*len(p.directives))
	for _, d := range p.directives {
		switch d.Tool {
		case ToolCodegen:
			flags = append(flags, "-C", d.String())
		default:
			flags = append(flags, "-C", "link-arg="+d.String())
		}
	}

	return flags
}

// BuildScript returns the build script instructions rerunning the script
// when a watched file changes and adding every library directory of the
// profile to the link search path.
func (p *Profile) BuildScript() []string {
	var lines []string
	for _, path := range p.watched {
		lines = append(lines, "cargo:rerun-if-changed="+path)
	}

	for _, d := range p.directives {
		if d.Tool == ToolLinker && d.option() == "LIBPATH" {
			lines = append(lines, "cargo:rustc-link-search="+d.Value)
		}
	}

	return lines
}

type cargoTarget struct {
	RustFlags []string `toml:"rustflags"`
}

type cargoConfig struct {
	Target map[string]cargoTarget `toml:"target"`
}

// WriteCargoConfig writes a cargo configuration passing the profile to the
// compiler when building for the profile's target triple.
func (p *Profile) WriteCargoConfig(w io.Writer) error {
	return WriteCargoConfig(w, p)
}

// WriteCargoConfig writes one cargo configuration holding a target table per
// profile.
func WriteCargoConfig(w io.Writer, profiles ...*Profile) error {
	cfg := cargoConfig{Target: make(map[string]cargoTarget, len(profiles))}
	for _, p := range profiles {
		cfg.Target[p.Arch.Triple()] = cargoTarget{RustFlags: p.RustFlags()}
	}

	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return errors.Wrap(err, "could not encode cargo configuration")
	}

	return nil
}

// MarshalJSON renders the profile as its architecture and directives.
func (p *Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Arch       string      `json:"arch"`
		Directives []Directive `json:"directives"`
	}{
		Arch:       p.Arch.Name(),
		Directives: p.directives,
	})
}
