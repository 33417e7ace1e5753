// SPDX-License-Identifier: MIT
// Copyright (c) 2019, 2019 GitHub Inc.
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the MIT License (the "License").
// You may not use this file expect in compliance with the License.
package cmdfactory

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// NoArgsQuoteReminder rejects positional arguments. Kit folders usually
// contain spaces, so a stray argument next to a value flag is most likely the
// tail of an unquoted path and the error names the flags to quote.
func NoArgsQuoteReminder(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}

	msg := fmt.Sprintf("unexpected argument %q", args[0])
	if len(args) > 1 {
		msg = fmt.Sprintf("unexpected arguments %q", args)
	}

	var valueFlags []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Value.Type() != "bool" {
			valueFlags = append(valueFlags, "--"+f.Name)
		}
	})

	if len(valueFlags) > 0 {
		msg += fmt.Sprintf("; quote the value of %s if it contains spaces", strings.Join(valueFlags, ", "))
	}

	return FlagErrorf("%s", msg)
}
