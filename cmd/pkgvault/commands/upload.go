// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
	"github.com/bureau-foundation/pkgvault/lib/registry"
)

func uploadCommand(stdout io.Writer, stdin io.Reader) *cli.Command {
	var (
		flags      storeFlags
		name       string
		version    string
		jsonOutput bool
	)

	command := &cli.Command{
		Name:    "upload",
		Summary: "Store an artifact and bind it to a descriptor version",
		Description: `Store an artifact file and point a descriptor version's
dist.tarball at it.

The version is --version when given, else the descriptor's
dist-tags.latest, else 0.0.0. The artifact is stored under the file's
base name unless --name is given. Use "-" with --name to read stdin.`,
		Usage: "pkgvault upload <package> <file|-> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("upload", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.StringVar(&name, "name", "", "artifact filename (default: base name of <file>)")
			flagSet.StringVar(&version, "version", "", "descriptor version to bind the artifact to")
			flagSet.BoolVar(&jsonOutput, "json", false, "output as JSON")
			return flagSet
		},
	}
	command.Run = func(ctx context.Context, args []string, logger *slog.Logger) error {
		if err := command.RequireArgs(args, 2); err != nil {
			return err
		}
		pkg, source := args[0], args[1]

		filename := name
		if filename == "" {
			if source == "-" {
				return fmt.Errorf("--name is required when reading the artifact from stdin")
			}
			filename = filepath.Base(source)
		}

		var body io.Reader = stdin
		if source != "-" {
			file, err := os.Open(source)
			if err != nil {
				return fmt.Errorf("opening artifact: %w", err)
			}
			defer file.Close()
			body = file
		}

		st, err := flags.open(logger)
		if err != nil {
			return err
		}
		result, err := st.coordinator.Upload(registry.UploadRequest{
			Package:  pkg,
			Filename: filename,
			Body:     body,
			Version:  version,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return cli.WriteJSON(stdout, result)
		}
		fmt.Fprintf(stdout, "stored %s (%d bytes, blake3 %s)\n", result.Filename, result.Artifact.Size, result.Artifact.Digest)
		fmt.Fprintf(stdout, "bound to %s@%s: %s\n", pkg, result.Version, result.Tarball)
		return nil
	}
	return command
}
