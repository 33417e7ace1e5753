// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package env

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MakeNowJust/heredoc"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/config"
	"kmkit.sh/internal/cli"
	"kmkit.sh/internal/cli/kmkit/env/tree"
	wdkenv "kmkit.sh/wdk/env"
	"kmkit.sh/wdk/pipeline"
)

// Format selects how the resolved variables are rendered.
type Format string

const (
	FormatTable  = Format("table")
	FormatDotenv = Format("dotenv")
	FormatJSON   = Format("json")
	FormatYAML   = Format("yaml")
)

func (f Format) String() string { return string(f) }

// Formats lists every Format.
func Formats() []Format {
	return []Format{FormatTable, FormatDotenv, FormatJSON, FormatYAML}
}

type EnvOptions struct {
	Format *cmdfactory.EnumFlag[Format] `long:"format" short:"f" usage:"Output format" local:"true"`
	Output string                       `long:"output" short:"o" usage:"Write to this file instead of standard output" local:"true"`

	fs afero.Fs
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&EnvOptions{
		Format: cmdfactory.NewEnumFlag(Formats(), FormatTable),
	}, cobra.Command{
		Short: "Resolve the kit path variables",
		Use:   "env [FLAGS] [NAME...]",
		Long: heredoc.Doc(`
			Resolve the kit path variables of the first configured architecture.

			The kit version and root folder come from the configuration, the
			dotenv file or the environment. Every other variable is expanded
			from its template, after the variables it references.
		`),
		Example: heredoc.Doc(`
			# Show every variable
			$ kmkit env

			# Write a dotenv file for the build scripts of the kernel crates
			$ kmkit env --format dotenv --output .env

			# Print two variables as JSON
			$ kmkit env -f json KM_RS_WDK_INCLUDE_KM KM_RS_WDK_LIB_KM_64
		`),
	})
	if err != nil {
		panic(err)
	}

	cmd.AddCommand(tree.NewCmd())

	return cmd
}

func (opts *EnvOptions) Run(ctx context.Context, args []string) error {
	cfg := config.G(ctx)

	a, err := cli.PrimaryArch(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, cfg, a, pipeline.WithFs(opts.fs))
	if err != nil {
		return err
	}

	m := res.Mapping
	if len(args) > 0 {
		if m, err = m.Select(args...); err != nil {
			return cmdfactory.FlagErrorWrap(err)
		}
	}

	out, err := cli.Output(ctx, opts.fs, opts.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	return Render(out, opts.Format.Value, m)
}

// Render writes the mapping in the given format.
func Render(w io.Writer, format Format, m *wdkenv.Mapping) error {
	switch format {
	case FormatTable:
		return renderTable(w, m)
	case FormatDotenv:
		return wdkenv.WriteDotenv(w, m)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case FormatYAML:
		return renderYAML(w, m)
	}

	return fmt.Errorf("unknown format: %s", format)
}

func renderTable(w io.Writer, m *wdkenv.Mapping) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Value"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, name := range m.Names() {
		v, _ := m.Lookup(name)
		table.Append([]string{name, v})
	}

	table.Render()

	return nil
}

// renderYAML keeps the authored order, which a map would lose.
func renderYAML(w io.Writer, m *wdkenv.Mapping) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}

	for _, name := range m.Names() {
		v, _ := m.Lookup(name)
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v},
		)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}

	return enc.Close()
}
