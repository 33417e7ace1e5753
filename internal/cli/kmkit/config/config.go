// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package config

import (
	"context"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/config"
	"kmkit.sh/iostreams"
)

type ConfigOptions struct{}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&ConfigOptions{}, cobra.Command{
		Short: "List the configuration keys",
		Use:   "config",
		Args:  cmdfactory.NoArgsQuoteReminder,
		Long: heredoc.Docf(`
			List the configuration keys with their defaults and accepted values.

			Keys are read from %s, then from the dotenv file named by
			wdk.env_file, then from the environment and finally from flags.
		`, config.DefaultConfigFile()),
		Example: heredoc.Doc(`
			$ kmkit config
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *ConfigOptions) Run(ctx context.Context, _ []string) error {
	table := tablewriter.NewWriter(iostreams.G(ctx).Out)
	table.SetHeader([]string{"Key", "Default", "Allowed values", "Description"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, detail := range config.ConfigDetails() {
		table.Append([]string{
			detail.Key,
			config.Default(detail.Key),
			strings.Join(detail.AllowedValues, ", "),
			detail.Description,
		})
	}

	table.Render()

	return nil
}
