// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
	"github.com/bureau-foundation/pkgvault/lib/registry"
)

func showCommand(stdout io.Writer) *cli.Command {
	var (
		flags storeFlags
		disk  bool
	)

	command := &cli.Command{
		Name:    "show",
		Summary: "Print a package descriptor",
		Description: `Print a package's stored descriptor as JSON.

Exits 1 without other output when the package has no descriptor, and
reports an error when the stored descriptor cannot be parsed. With
--disk, also prints the storage root's total and free bytes.`,
		Usage: "pkgvault show <package> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&disk, "disk", false, "include disk usage of the storage root")
			return flagSet
		},
	}
	command.Run = func(ctx context.Context, args []string, logger *slog.Logger) error {
		if err := command.RequireArgs(args, 1); err != nil {
			return err
		}
		st, err := flags.open(logger)
		if err != nil {
			return err
		}

		descriptor, err := st.metadata.Read(args[0])
		if errors.Is(err, registry.ErrNotFound) {
			logger.Info("package not found", "package", args[0])
			return &cli.ExitError{Code: 1}
		}
		if err != nil {
			return err
		}

		if !disk {
			return cli.WriteJSON(stdout, descriptor)
		}
		usage, err := registry.DiskUsage(st.metadata.Root())
		if err != nil {
			return fmt.Errorf("disk usage: %w", err)
		}
		return cli.WriteJSON(stdout, map[string]any{
			"descriptor": descriptor,
			"disk":       usage,
		})
	}
	return command
}
