// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
	"github.com/bureau-foundation/pkgvault/lib/registry"
)

func exportCommand(stdout io.Writer) *cli.Command {
	var (
		flags  storeFlags
		output string
	)

	command := &cli.Command{
		Name:    "export",
		Summary: "Write every descriptor to a CBOR snapshot",
		Description: `Write a deterministic CBOR snapshot of every descriptor in the
store. Artifacts are not included. Writes to stdout unless -o is given.`,
		Usage: "pkgvault export [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("export", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
			return flagSet
		},
	}
	command.Run = func(ctx context.Context, args []string, logger *slog.Logger) error {
		if err := command.RequireArgs(args, 0); err != nil {
			return err
		}
		st, err := flags.open(logger)
		if err != nil {
			return err
		}

		destination := stdout
		if output != "" {
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer file.Close()
			destination = file
		}

		count, err := registry.Export(destination, st.metadata)
		if err != nil {
			return err
		}
		logger.Info("snapshot exported", "packages", count, "output", output)
		return nil
	}
	return command
}

func importCommand(stdout io.Writer, stdin io.Reader) *cli.Command {
	var flags storeFlags

	command := &cli.Command{
		Name:    "import",
		Summary: "Publish every descriptor in a CBOR snapshot",
		Description: `Publish each descriptor of a snapshot written by "pkgvault export",
replacing existing descriptors of the same packages. Use "-" to read
stdin.`,
		Usage: "pkgvault import <snapshot-file|-> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("import", pflag.ContinueOnError)
			flags.bind(flagSet)
			return flagSet
		},
	}
	command.Run = func(ctx context.Context, args []string, logger *slog.Logger) error {
		if err := command.RequireArgs(args, 1); err != nil {
			return err
		}

		var source io.Reader = stdin
		if args[0] != "-" {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening snapshot: %w", err)
			}
			defer file.Close()
			source = file
		}

		st, err := flags.open(logger)
		if err != nil {
			return err
		}
		count, err := registry.Import(source, st.coordinator)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "imported %d packages\n", count)
		return nil
	}
	return command
}
