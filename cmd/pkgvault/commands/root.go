// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"io"
	"os"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
)

// Root builds the complete pkgvault command tree, writing command
// output to stdout.
func Root() *cli.Command {
	return newRoot(os.Stdout, os.Stdin)
}

func newRoot(stdout io.Writer, stdin io.Reader) *cli.Command {
	return &cli.Command{
		Name: "pkgvault",
		Description: `pkgvault: package metadata and artifact store.

Stores one descriptor document per package and the artifacts each
version references, under a single storage root. Serve it over HTTP
with "pkgvault serve" or manage the root directly with the other
commands.`,
		Subcommands: []*cli.Command{
			serveCommand(),
			publishCommand(stdout, stdin),
			uploadCommand(stdout, stdin),
			showCommand(stdout),
			listCommand(stdout),
			artifactsCommand(stdout),
			fetchCommand(stdout),
			exportCommand(stdout),
			importCommand(stdout, stdin),
			versionCommand(stdout),
		},
		Examples: []cli.Example{
			{
				Description: "Serve the registry using a config file",
				Command:     "pkgvault serve --config /etc/pkgvault/pkgvault.yaml",
			},
			{
				Description: "Publish a descriptor (JSON or JSONC)",
				Command:     "pkgvault publish left-pad ./left-pad.jsonc --root ./storage",
			},
			{
				Description: "Upload a tarball and bind it to version 1.3.0",
				Command:     "pkgvault upload left-pad ./left-pad-1.3.0.tgz --version 1.3.0 --root ./storage",
			},
			{
				Description: "Snapshot every descriptor to a CBOR file",
				Command:     "pkgvault export -o registry.cbor --root ./storage",
			},
		},
	}
}
