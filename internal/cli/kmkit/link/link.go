// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package link

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/config"
	"kmkit.sh/internal/cli"
	"kmkit.sh/log"
	"kmkit.sh/wdk/linker"
	"kmkit.sh/wdk/pipeline"
)

// Format selects how the linker profiles are rendered.
type Format string

const (
	FormatArgs        = Format("args")
	FormatRustFlags   = Format("rustflags")
	FormatCargo       = Format("cargo")
	FormatJSON        = Format("json")
	FormatBuildScript = Format("buildscript")
)

func (f Format) String() string { return string(f) }

// Formats lists every Format.
func Formats() []Format {
	return []Format{FormatArgs, FormatRustFlags, FormatCargo, FormatJSON, FormatBuildScript}
}

// carriesCodegen reports whether the format renders the code generation
// directives disabling the instruction sets the kernel does not save.
func (f Format) carriesCodegen() bool {
	return f == FormatRustFlags || f == FormatCargo || f == FormatJSON
}

// multiArch reports whether the format can hold the profiles of several
// architectures.
func (f Format) multiArch() bool {
	return f == FormatCargo || f == FormatJSON
}

type LinkOptions struct {
	Format *cmdfactory.EnumFlag[Format] `long:"format" short:"f" usage:"Output format" local:"true"`
	Output string                       `long:"output" short:"o" usage:"Write to this file instead of standard output" local:"true"`

	fs afero.Fs
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&LinkOptions{
		Format: cmdfactory.NewEnumFlag(Formats(), FormatRustFlags),
	}, cobra.Command{
		Short: "Compose the kernel-mode linker profile",
		Use:   "link [FLAGS]",
		Args:  cmdfactory.NoArgsQuoteReminder,
		Long: heredoc.Doc(`
			Compose and validate the linker directives of a framework driver:
			native subsystem, no default libraries, the framework entry stub,
			section merges and the instruction sets the kernel does not save.

			The cargo and json formats hold every configured architecture,
			the other formats render exactly one. The args and buildscript
			formats only hold linker arguments: pass the instruction-set
			restriction to the compiler some other way when using them.
		`),
		Example: heredoc.Doc(`
			# Print the compiler flags, linker arguments included
			$ kmkit link

			# Print the bare linker arguments
			$ kmkit link --format args

			# Write a cargo configuration for both architectures
			$ kmkit link --arch amd64,arm64 --format cargo --output .cargo/config.toml

			# Emit build script instructions
			$ kmkit link --format buildscript
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *LinkOptions) Run(ctx context.Context, _ []string) error {
	cfg := config.G(ctx)
	format := opts.Format.Value

	if len(cfg.Arch) > 1 && !format.multiArch() {
		return cmdfactory.FlagErrorf("--format %s renders one architecture, %d are configured: pass a single --arch", format, len(cfg.Arch))
	}

	results, err := pipeline.RunAll(ctx, cfg, pipeline.WithFs(opts.fs))
	if err != nil {
		return err
	}

	profiles := make([]*linker.Profile, len(results))
	for i, res := range results {
		profiles[i] = res.Profile
	}

	if !format.carriesCodegen() {
		log.G(ctx).
			WithField("format", format).
			Warn("output leaves out the instruction-set restriction, pass it to the compiler separately")
	}

	out, err := cli.Output(ctx, opts.fs, opts.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	return Render(out, format, profiles...)
}

// Render writes the profiles in the given format. Formats which hold a
// single architecture render the first profile.
func Render(w io.Writer, format Format, profiles ...*linker.Profile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("no linker profile to render")
	}

	var lines []string

	switch format {
	case FormatCargo:
		return linker.WriteCargoConfig(w, profiles...)

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)

	case FormatArgs:
		lines = profiles[0].Args()

	case FormatRustFlags:
		lines = profiles[0].RustFlags()

	case FormatBuildScript:
		lines = profiles[0].BuildScript()

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	return nil
}
