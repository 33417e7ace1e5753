// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package bindgen

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
	"kmkit.sh/wdk/bindgen"
	"kmkit.sh/wdk/pipeline"
)

// Format selects how the binding request is rendered.
type Format string

const (
	FormatHeader = Format("header")
	FormatArgs   = Format("args")
	FormatJSON   = Format("json")
)

func (f Format) String() string { return string(f) }

// Formats lists every Format.
func Formats() []Format {
	return []Format{FormatHeader, FormatArgs, FormatJSON}
}

type BindgenOptions struct {
	Check  bool                         `long:"check" usage:"Fail when a header is missing from the kit" local:"true"`
	Format *cmdfactory.EnumFlag[Format] `long:"format" short:"f" usage:"Output format" local:"true"`
	Header string                       `long:"header" usage:"Path of the rendered header passed to the generator" default:"wrapper.h" local:"true"`
	Output string                       `long:"output" short:"o" usage:"Write to this file instead of standard output" local:"true"`

	fs afero.Fs
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&BindgenOptions{
		Format: cmdfactory.NewEnumFlag(Formats(), FormatHeader),
	}, cobra.Command{
		Short: "Emit the binding generator request",
		Use:   "bindgen [FLAGS]",
		Args:  cmdfactory.NoArgsQuoteReminder,
		Long: heredoc.Doc(`
			Emit the request handed to the binding generator for the first
			configured architecture: the architecture macro, the API version
			ceiling macros and the ordered kit headers.

			With --check, every header is looked up in the kit include
			directories first.
		`),
		Example: heredoc.Doc(`
			# Render the wrapper header
			$ kmkit bindgen --output src/wrapper.h

			# Print the generator command line for a Windows 10 1809 ceiling
			$ kmkit bindgen --ceiling WIN10_RS5 --format args --header src/wrapper.h
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *BindgenOptions) Run(ctx context.Context, _ []string) error {
	cfg := config.G(ctx)

	if opts.fs == nil {
		opts.fs = afero.NewOsFs()
	}

	a, err := cli.PrimaryArch(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, cfg, a, pipeline.WithFs(opts.fs))
	if err != nil {
		return err
	}

	if opts.Check {
		paths, err := res.Request.Locate(opts.fs)
		if err != nil {
			return err
		}

		for i, p := range paths {
			log.G(ctx).WithField("path", p).Debugf("found %s", res.Request.Headers[i])
		}
	}

	out, err := cli.Output(ctx, opts.fs, opts.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	return opts.render(out, res.Request)
}

func (opts *BindgenOptions) render(w io.Writer, req *bindgen.Request) error {
	switch opts.Format.Value {
	case FormatHeader:
		_, err := req.WriteTo(w)
		return err

	case FormatArgs:
		for _, arg := range req.GeneratorArgs(opts.Header) {
			if _, err := fmt.Fprintln(w, arg); err != nil {
				return err
			}
		}
		return nil

	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(req)
	}

	return fmt.Errorf("unknown format: %s", opts.Format)
}
