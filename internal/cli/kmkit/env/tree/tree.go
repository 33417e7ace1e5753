// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package tree

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/config"
	"kmkit.sh/internal/cli"
	"kmkit.sh/iostreams"
	"kmkit.sh/wdk/env"
	"kmkit.sh/wdk/pipeline"
)

type TreeOptions struct {
	fs afero.Fs
}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&TreeOptions{}, cobra.Command{
		Short: "Show which variables each kit variable is derived from",
		Use:   "tree",
		Args:  cmdfactory.NoArgsQuoteReminder,
		Long: heredoc.Doc(`
			Show the resolved kit variables as a tree. Each variable is listed
			under every variable its template references.
		`),
		Example: heredoc.Doc(`
			$ kmkit env tree
		`),
	})
	if err != nil {
		panic(err)
	}

	return cmd
}

func (opts *TreeOptions) Run(ctx context.Context, _ []string) error {
	cfg := config.G(ctx)

	a, err := cli.PrimaryArch(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, cfg, a, pipeline.WithFs(opts.fs))
	if err != nil {
		return err
	}

	fmt.Fprint(iostreams.G(ctx).Out, Tree(a.Name(), res.Mapping))

	return nil
}

// Tree renders the mapping with every variable under the variables it
// references. Variables without references hang off the root, and root
// variables are marked as such.
func Tree(root string, m *env.Mapping) string {
	dependents := map[string][]string{}
	var tops []string

	for _, name := range m.Names() {
		refs := m.References(name)
		if len(refs) == 0 {
			tops = append(tops, name)
			continue
		}

		for _, ref := range refs {
			dependents[ref] = append(dependents[ref], name)
		}
	}

	tree := treeprint.NewWithRoot(fmt.Sprintf("%s (%d variables)", root, m.Len()))
	for _, name := range tops {
		addVariable(tree, m, dependents, name)
	}

	return tree.String()
}

func addVariable(tree treeprint.Tree, m *env.Mapping, dependents map[string][]string, name string) {
	v, _ := m.Lookup(name)
	label := fmt.Sprintf("%s = %s", name, v)
	if m.IsRoot(name) {
		label += " (root)"
	}

	if len(dependents[name]) == 0 {
		tree.AddNode(label)
		return
	}

	branch := tree.AddBranch(label)
	for _, dep := range dependents[name] {
		addVariable(branch, m, dependents, dep)
	}
}
