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
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
	"github.com/bureau-foundation/pkgvault/lib/registry"
)

func publishCommand(stdout io.Writer, stdin io.Reader) *cli.Command {
	var flags storeFlags

	command := &cli.Command{
		Name:    "publish",
		Summary: "Store a package descriptor verbatim",
		Description: `Replace a package's descriptor with the given document.

The document may be JSON or JSONC (comments and trailing commas are
stripped before parsing). It must be an object; its contents are not
otherwise validated. Use "-" to read from stdin.`,
		Usage: "pkgvault publish <package> <descriptor-file|-> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("publish", pflag.ContinueOnError)
			flags.bind(flagSet)
			return flagSet
		},
	}
	command.Run = func(ctx context.Context, args []string, logger *slog.Logger) error {
		if err := command.RequireArgs(args, 2); err != nil {
			return err
		}
		pkg, source := args[0], args[1]

		data, err := readInput(source, stdin)
		if err != nil {
			return err
		}
		descriptor, err := registry.ParseDescriptor(jsonc.ToJSON(data))
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}

		st, err := flags.open(logger)
		if err != nil {
			return err
		}
		path, err := st.coordinator.Publish(pkg, descriptor)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "published %s (%d versions) to %s\n", pkg, len(descriptor.Versions()), path)
		return nil
	}
	return command
}

// readInput reads a named file, or stdin for "-".
func readInput(source string, stdin io.Reader) ([]byte, error) {
	if source == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return data, nil
}
