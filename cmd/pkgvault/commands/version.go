// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
	"github.com/bureau-foundation/pkgvault/lib/version"
)

func versionCommand(stdout io.Writer) *cli.Command {
	var jsonOutput bool

	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("version", pflag.ContinueOnError)
			flagSet.BoolVar(&jsonOutput, "json", false, "output as JSON")
			return flagSet
		},
		Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
			build := version.Current()
			if jsonOutput {
				return cli.WriteJSON(stdout, build)
			}
			fmt.Fprintf(stdout, "pkgvault %s\n  Go: %s\n  Platform: %s\n", version.Info(), build.Go, build.Platform)
			return nil
		},
	}
}
