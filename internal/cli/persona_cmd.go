// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/moodchat/internal/persona"
)

func newPersonaCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Print the persona the server starts with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			text, err := StartupPersona(cfg.Persona)
			if err != nil {
				return err
			}
			if text == "" {
				text = persona.Default
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "normalize INSTRUCTION...",
		Short: "Print an instruction as a mood change would commit it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return persona.ErrEmpty
			}
			fmt.Fprintln(cmd.OutOrStdout(), persona.Normalize(text))
			return nil
		},
	})
	return cmd
}
