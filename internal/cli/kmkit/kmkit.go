// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2022, Unikraft GmbH and The KraftKit Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.
package kmkit

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"kmkit.sh/cmdfactory"
	"kmkit.sh/config"
	"kmkit.sh/internal/cli"
	kitversion "kmkit.sh/internal/version"
	"kmkit.sh/iostreams"
	"kmkit.sh/log"

	"kmkit.sh/internal/cli/kmkit/bindgen"
	kmconfig "kmkit.sh/internal/cli/kmkit/config"
	"kmkit.sh/internal/cli/kmkit/env"
	"kmkit.sh/internal/cli/kmkit/link"
	"kmkit.sh/internal/cli/kmkit/version"
)

type KmkitOptions struct{}

func NewCmd() *cobra.Command {
	cmd, err := cmdfactory.New(&KmkitOptions{}, cobra.Command{
		Short: "Prepare kernel-mode driver builds against a Windows Driver Kit",
		Use:   "kmkit [FLAGS] SUBCOMMAND",
		Long: heredoc.Docf(`
			Prepare kernel-mode driver builds against a Windows Driver Kit.

			kmkit resolves the kit's header and library paths, emits the binding
			generator request and composes the kernel-mode linker profile.

			Version: %s`, kitversion.Version()),
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	})
	if err != nil {
		panic(err)
	}

	cmd.AddCommand(env.NewCmd())
	cmd.AddCommand(bindgen.NewCmd())
	cmd.AddCommand(link.NewCmd())
	cmd.AddCommand(kmconfig.NewCmd())
	cmd.AddCommand(version.NewCmd())

	return cmd
}

// PersistentPre rebuilds the logger once flags have been applied to the
// configuration.
func (k *KmkitOptions) PersistentPre(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := config.G(ctx)

	if err := cfg.Validate(); err != nil {
		return cmdfactory.FlagErrorWrap(err)
	}

	if cfg.NoColor {
		iostreams.G(ctx).SetColorEnabled(false)
	}

	logger, err := cli.NewLogger(cfg, iostreams.G(ctx))
	if err != nil {
		return err
	}

	cmd.SetContext(log.WithLogger(ctx, logger))

	return nil
}

func (k *KmkitOptions) Run(_ context.Context, _ []string) error {
	return pflag.ErrHelp
}

func Main(args []string) int {
	cmd := NewCmd()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	copts := &cli.CliOptions{}

	for _, o := range []cli.CliOption{
		cli.WithDefaultConfigManager(cmd),
		cli.WithDefaultIOStreams(),
		cli.WithDefaultLogger(),
	} {
		if err := o(copts); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	ctx = config.WithConfigManager(ctx, copts.ConfigManager)
	ctx = log.WithLogger(ctx, copts.Logger)
	ctx = iostreams.WithIOStreams(ctx, copts.IOStreams)

	log.G(ctx).Debugf("kmkit %s", kitversion.Version())

	cmd.SetArgs(args)

	return cmdfactory.Main(ctx, cmd)
}
