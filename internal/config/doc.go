// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for moodchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ServerConfig: Listen address, body limit, CORS origins
//   - GatewayConfig: Model provider, model id and credential
//   - GuardConfig: Output ceiling and repetition limits
//   - PersonaConfig: Startup persona and optional watched file
//   - LoggingConfig: Level, format and rotating file sink
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (MOODCHAT_*, provider API key variables)
//   - ~/.moodchat/config.toml
//   - ~/.moodchat/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gw, err := gateway.New(ctx, cfg.Gateway.ToGateway())
package config
