// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/pkgvault/cmd/pkgvault/cli"
	"github.com/bureau-foundation/pkgvault/lib/httpapi"
	"github.com/bureau-foundation/pkgvault/lib/service"
	"github.com/bureau-foundation/pkgvault/lib/version"
)

func serveCommand() *cli.Command {
	var (
		flags            storeFlags
		address          string
		logLevel         string
		maxArtifactBytes int64
	)

	return &cli.Command{
		Name:    "serve",
		Summary: "Run the HTTP registry server",
		Description: `Serve the store over HTTP until interrupted.

Reads are open to everyone. PUT requests require the bearer token in
server.token_file when one is configured. Logs are JSON on stderr.`,
		Usage: "pkgvault serve [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("serve", pflag.ContinueOnError)
			flags.bind(flagSet)
			flagSet.StringVar(&address, "address", "", "listen address (overrides server.address)")
			flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
			flagSet.Int64Var(&maxArtifactBytes, "max-artifact-bytes", 0, "reject uploads larger than this (0 = unlimited)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			logger, err := service.NewLogger(os.Stderr, logLevel)
			if err != nil {
				return err
			}

			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}
			shutdownTimeout, err := cfg.Server.ShutdownDuration()
			if err != nil {
				return err
			}
			token, err := cfg.Server.ReadToken()
			if err != nil {
				return err
			}
			if token == "" {
				logger.Warn("no token_file configured; uploads and publishes are unauthenticated")
			}

			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}

			handler, err := httpapi.New(httpapi.Config{
				Metadata:          st.metadata,
				Artifacts:         st.artifacts,
				Coordinator:       st.coordinator,
				Token:             token,
				AllowedOrigins:    cfg.Server.AllowedOrigins,
				RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
				Burst:             cfg.Server.RateLimit.Burst,
				MaxArtifactBytes:  maxArtifactBytes,
				Version:           version.Version,
				Logger:            logger,
			})
			if err != nil {
				return err
			}

			server := service.NewHTTPServer(service.HTTPServerConfig{
				Address:         cfg.Server.Address,
				Handler:         handler,
				ShutdownTimeout: shutdownTimeout,
				TLSCertFile:     cfg.Server.TLSCertFile,
				TLSKeyFile:      cfg.Server.TLSKeyFile,
				Logger:          logger,
			})
			logger.Info("starting pkgvault",
				"version", version.Info(),
				"environment", cfg.Environment,
				"root", cfg.Storage.Root,
				"base_url", cfg.Server.BaseURL,
				"strict_names", cfg.Storage.StrictNames,
			)
			return server.Serve(ctx)
		},
	}
}
