// SPDX-License-Identifier: MIT
// Copyright (c) 2019 GitHub Inc.
// Copyright (c) 2022 Unikraft GmbH.
package cmdfactory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/muesli/reflow/dedent"
	"github.com/muesli/reflow/indent"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"kmkit.sh/iostreams"
)

const (
	// AnnotationHelpHidden hides a command from the help listings.
	AnnotationHelpHidden = "help:hidden"

	// annotationEnv records on a flag the variable it is also read from.
	annotationEnv = "kmkit:env"
)

type helpSection struct {
	title string
	body  string
}

func visibleSubcommands(cmd *cobra.Command) []*cobra.Command {
	var cmds []*cobra.Command
	for _, c := range cmd.Commands() {
		if _, ok := c.Annotations[AnnotationHelpHidden]; ok || c.Hidden || c.Short == "" {
			continue
		}
		cmds = append(cmds, c)
	}

	return cmds
}

// envUsages lists the environment variables backing the flags of cmd, sorted
// by variable name.
func envUsages(cmd *cobra.Command) string {
	vars := map[string]string{}
	visit := func(f *pflag.Flag) {
		if env, ok := f.Annotations[annotationEnv]; ok && len(env) > 0 && !f.Hidden {
			vars[env[0]] = "--" + f.Name
		}
	}

	cmd.LocalFlags().VisitAll(visit)
	cmd.InheritedFlags().VisitAll(visit)

	names := make([]string, 0, len(vars))
	pad := 0
	for name := range vars {
		names = append(names, name)
		pad = max(pad, len(name))
	}
	sort.Strings(names)

	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = rpad(name, pad+2) + vars[name]
	}

	return strings.Join(lines, "\n")
}

func helpSections(cmd *cobra.Command) []helpSection {
	long := cmd.Long
	if long == "" {
		long = cmd.Short
	}

	sections := []helpSection{
		{"", long},
		{"USAGE", cmd.UseLine()},
		{"ALIASES", strings.Join(cmd.Aliases, " ")},
	}

	subcommands := visibleSubcommands(cmd)
	pad := 0
	for _, c := range subcommands {
		pad = max(pad, len(c.Name()))
	}

	usages := make([]string, len(subcommands))
	for i, c := range subcommands {
		usages[i] = rpad(c.Name(), pad+2) + c.Short
	}

	return append(sections,
		helpSection{"SUBCOMMANDS", strings.Join(usages, "\n")},
		helpSection{"FLAGS", dedent.String(cmd.LocalFlags().FlagUsages())},
		helpSection{"INHERITED FLAGS", dedent.String(cmd.InheritedFlags().FlagUsages())},
		helpSection{"ENVIRONMENT", envUsages(cmd)},
		helpSection{"EXAMPLES", cmd.Example},
	)
}

func rootHelpFunc(cmd *cobra.Command, args []string) {
	if isRootCmd(cmd.Parent()) && len(args) >= 2 && !slices.Contains(args, "--help") && !slices.Contains(args, "-h") {
		nestedSuggestFunc(cmd, args[1])
		hasFailed = true
		return
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := iostreams.G(ctx).Out
	cs := iostreams.G(ctx).ColorScheme()

	for _, s := range helpSections(cmd) {
		body := strings.Trim(s.body, "\r\n")
		if body == "" {
			continue
		}

		if s.title == "" {
			fmt.Fprintln(out, body)
		} else {
			fmt.Fprintln(out, cs.Bold(s.title))
			fmt.Fprintln(out, indent.String(body, 2))
		}

		fmt.Fprintln(out)
	}
}

func rootUsageFunc(cmd *cobra.Command) error {
	cmd.Printf("Usage:  %s\n", cmd.UseLine())

	if subcommands := visibleSubcommands(cmd); len(subcommands) > 0 {
		cmd.Print("\nAvailable commands:\n")
		for _, c := range subcommands {
			cmd.Printf("  %s\n", c.Name())
		}
	} else if flagUsages := cmd.LocalFlags().FlagUsagesWrapped(80); flagUsages != "" {
		cmd.Print("\nFlags:\n")
		cmd.Print(indent.String(dedent.String(flagUsages), 2))
	}

	cmd.Printf("\nRun '%s --help' for more information.\n", cmd.CommandPath())

	return nil
}

func rootFlagErrorFunc(_ *cobra.Command, err error) error {
	if err == pflag.ErrHelp {
		return err
	}
	return FlagErrorWrap(err)
}

var hasFailed bool

// HasFailed signals that the main process should exit with non-zero status
func HasFailed() bool {
	return hasFailed
}

// nestedSuggestFunc reports a mistyped subcommand of a nested command, which
// cobra only does for the root command.
func nestedSuggestFunc(cmd *cobra.Command, arg string) {
	cmd.Printf("unknown command %q for %q\n", arg, cmd.CommandPath())

	candidates := []string{"--help"}
	if arg != "help" {
		if cmd.SuggestionsMinimumDistance <= 0 {
			cmd.SuggestionsMinimumDistance = 2
		}
		candidates = cmd.SuggestionsFor(arg)
	}

	if len(candidates) > 0 {
		cmd.Print("\nDid you mean this?\n")
		for _, c := range candidates {
			cmd.Printf("\t%s\n", c)
		}
	}

	cmd.Print("\n")
	_ = rootUsageFunc(cmd)
}

func isRootCmd(cmd *cobra.Command) bool {
	return cmd != nil && !cmd.HasParent()
}

func rpad(s string, padding int) string {
	return fmt.Sprintf("%-*s", padding, s)
}
