// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
	"github.com/bureau-foundation/pkgvault/lib/registry"
)

func fetchCommand(stdout io.Writer) *cli.Command {
	var (
		flags  storeFlags
		output string
	)

	command := &cli.Command{
		Name:    "fetch",
		Summary: "Copy a stored artifact out of the store",
		Description: `Stream a stored artifact to stdout or, with -o, to a file.

Exits 1 when the artifact does not exist.`,
		Usage: "pkgvault fetch <package> <filename> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("fetch", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
			return flagSet
		},
	}
	command.Run = func(ctx context.Context, args []string, logger *slog.Logger) error {
		if err := command.RequireArgs(args, 2); err != nil {
			return err
		}
		st, err := flags.open(logger)
		if err != nil {
			return err
		}

		artifact, err := st.artifacts.Open(args[0], args[1])
		if errors.Is(err, registry.ErrNotFound) {
			logger.Info("artifact not found", "package", args[0], "filename", args[1])
			return &cli.ExitError{Code: 1}
		}
		if err != nil {
			return err
		}
		defer artifact.Close()

		destination := stdout
		if output != "" {
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer file.Close()
			destination = file
		}

		written, err := io.Copy(destination, artifact)
		if err != nil {
			return fmt.Errorf("copying artifact: %w", err)
		}
		if output != "" {
			logger.Info("artifact fetched", "package", args[0], "filename", args[1], "bytes", written, "output", output)
		}
		return nil
	}
	return command
}
