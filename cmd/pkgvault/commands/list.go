// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
	"github.com/bureau-foundation/pkgvault/lib/registry"
)

// packageSummary is one row of "pkgvault list".
type packageSummary struct {
	Package  string `json:"package"`
	Versions int    `json:"versions"`
	Latest   string `json:"latest,omitempty"`
}

func summarize(all map[string]registry.Descriptor) []packageSummary {
	summaries := make([]packageSummary, 0, len(all))
	for key, descriptor := range all {
		latest, _ := descriptor.Latest()
		summaries = append(summaries, packageSummary{
			Package:  key,
			Versions: len(descriptor.Versions()),
			Latest:   latest,
		})
	}
	slices.SortFunc(summaries, func(a, b packageSummary) int {
		switch {
		case a.Package < b.Package:
			return -1
		case a.Package > b.Package:
			return 1
		}
		return 0
	})
	return summaries
}

func listCommand(stdout io.Writer) *cli.Command {
	var (
		flags      storeFlags
		jsonOutput bool
	)

	command := &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List stored packages",
		Usage:   "pkgvault list [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&jsonOutput, "json", false, "output as JSON")
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

		summaries := summarize(st.metadata.ListAll())
		if jsonOutput {
			return cli.WriteJSON(stdout, summaries)
		}
		if len(summaries) == 0 {
			fmt.Fprintln(stdout, "no packages")
			return nil
		}
		writer := tabwriter.NewWriter(stdout, 2, 0, 3, ' ', 0)
		fmt.Fprintln(writer, "PACKAGE\tVERSIONS\tLATEST")
		for _, summary := range summaries {
			latest := summary.Latest
			if latest == "" {
				latest = "-"
			}
			fmt.Fprintf(writer, "%s\t%d\t%s\n", summary.Package, summary.Versions, latest)
		}
		return writer.Flush()
	}
	return command
}

// artifactEntry is one row of "pkgvault artifacts --digest".
type artifactEntry struct {
	Filename string `json:"filename"`
	Digest   string `json:"digest"`
}

func artifactsCommand(stdout io.Writer) *cli.Command {
	var (
		flags      storeFlags
		jsonOutput bool
		withDigest bool
	)

	command := &cli.Command{
		Name:    "artifacts",
		Summary: "List a package's stored artifacts",
		Usage:   "pkgvault artifacts <package> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("artifacts", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.BoolVar(&jsonOutput, "json", false, "output as JSON")
			flagSet.BoolVar(&withDigest, "digest", false, "include each artifact's BLAKE3 digest")
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

		names, err := st.artifacts.List(args[0])
		if err != nil {
			return err
		}
		slices.Sort(names)
		if !withDigest {
			if jsonOutput {
				return cli.WriteJSON(stdout, names)
			}
			for _, name := range names {
				fmt.Fprintln(stdout, name)
			}
			return nil
		}

		entries := make([]artifactEntry, 0, len(names))
		for _, name := range names {
			digest, err := st.artifacts.Digest(args[0], name)
			if err != nil {
				return err
			}
			entries = append(entries, artifactEntry{Filename: name, Digest: digest})
		}
		if jsonOutput {
			return cli.WriteJSON(stdout, entries)
		}
		writer := tabwriter.NewWriter(stdout, 2, 0, 3, ' ', 0)
		for _, entry := range entries {
			fmt.Fprintf(writer, "%s\t%s\n", entry.Filename, entry.Digest)
		}
		return writer.Flush()
	}
	return command
}
