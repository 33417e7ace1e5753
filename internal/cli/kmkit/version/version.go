// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package version

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/internal/version"
	"kmkit.sh/iostreams"
)

type VersionOptions struct {
	JSON bool `long:"json" usage:"Print the build information as JSON" local:"true"`
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&VersionOptions{}, cobra.Command{
		Short:   "Show kmkit version information",
		Use:     "version [FLAGS]",
		Aliases: []string{"v"},
		Args:    cmdfactory.NoArgsQuoteReminder,
		Long:    "Show kmkit version information.",
		Example: heredoc.Doc(`
			# Show kmkit version information
			$ kmkit version

			# As JSON, e.g. for a build log
			$ kmkit version --json
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *VersionOptions) Run(ctx context.Context, _ []string) error {
	out := iostreams.G(ctx).Out

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(version.Get())
	}

	_, err := fmt.Fprintf(out, "kmkit %s\n", version.Get())
	return err
}
