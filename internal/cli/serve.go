// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/moodchat/internal/config"
	"github.com/jeranaias/moodchat/internal/logging"
)

// serveFlags override the loaded configuration.
type serveFlags struct {
	host        string
	port        int
	provider    string
	model       string
	personaFile string
	watch       bool
}

func newServeCommand(g *globalFlags) *cobra.Command {
	f := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay HTTP server",
		Long: `Starts the HTTP server:

  POST /api/chat   stream a reply to {message, history}
  GET  /api/chat   current persona as {systemInstruction}
  GET  /health     provider and credential status

The provider credential is read from the config file or from GOOGLE_API_KEY,
ANTHROPIC_API_KEY or OPENAI_API_KEY. Without it the server still starts and
answers chat requests with an error document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Server.Host = f.host
			}
			if flags.Changed("port") {
				cfg.Server.Port = f.port
			}
			if flags.Changed("provider") {
				if f.provider != cfg.Gateway.Provider {
					cfg.Gateway.Provider = f.provider
					cfg.Gateway.Model = ""
					cfg.Gateway.APIKey = config.CredentialFromEnv(f.provider)
				}
			}
			if flags.Changed("model") {
				cfg.Gateway.Model = f.model
			}
			if flags.Changed("persona-file") {
				cfg.Persona.File = f.personaFile
			}
			if flags.Changed("watch") {
				cfg.Persona.Watch = f.watch
			}
			if g.verbose {
				cfg.Logging.Level = "debug"
			}
			cfg.SetDefaults()
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging.ToLogging())
			if err != nil {
				return err
			}
			defer logger.Close()

			app, err := Build(cmd.Context(), cfg, logger.Logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.Engine.Configured() {
				logger.Warn("GATEWAY_NOT_CONFIGURED",
					zap.String("provider", cfg.Gateway.Provider),
					zap.String("hint", "set the provider API key"),
				)
			}
			return app.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&f.host, "host", "", "listen host")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "listen port")
	cmd.Flags().StringVar(&f.provider, "provider", "", "model provider (gemini, anthropic, openai)")
	cmd.Flags().StringVar(&f.model, "model", "", "model id")
	cmd.Flags().StringVar(&f.personaFile, "persona-file", "", "read the startup persona from this file")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "re-apply the persona file when it changes")
	return cmd
}
