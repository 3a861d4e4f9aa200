// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/moodchat/internal/gateway"
	"github.com/jeranaias/moodchat/internal/guard"
)

// isolateEnv points HOME at an empty directory and clears every variable
// ApplyEnvOverrides reads.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, name := range []string{
		"MOODCHAT_HOST", "MOODCHAT_PORT", "MOODCHAT_PROVIDER", "MOODCHAT_MODEL",
		"MOODCHAT_API_KEY", "MOODCHAT_BASE_URL", "MOODCHAT_PERSONA_FILE",
		"MOODCHAT_LOG_LEVEL", "MOODCHAT_LOG_FILE",
		"GOOGLE_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
	} {
		t.Setenv(name, "")
	}
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// =============================================================================
// SINGLETON TESTS
// =============================================================================

// TestConfig_ConcurrentAccess tests that Global() and SetGlobal()
// can be safely called concurrently without race conditions.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup

	// 50 writers using SetGlobal, 50 readers using Global
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Version = "test"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}

	wg.Wait()
}

// TestConfig_ConcurrentReload tests concurrent ReloadGlobal and Global calls.
func TestConfig_ConcurrentReload(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	_ = Global()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ReloadGlobal(); err != nil {
				t.Errorf("ReloadGlobal() failed: %v", err)
			}
		}()
	}
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Global()
	require.NotNil(t, cfg)
	require.Same(t, cfg, Global())
	require.Equal(t, 3000, cfg.Server.Port)
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolateEnv(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	c := Default()
	c.Gateway.Model = "custom-model"
	SetGlobal(c)

	require.Equal(t, "custom-model", Global().Gateway.Model)
}

// =============================================================================
// DEFAULT TESTS
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, 3000, cfg.Server.Port)
	require.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	require.Equal(t, gateway.ProviderGemini, cfg.Gateway.Provider)
	require.Empty(t, cfg.Gateway.Model)
	require.Equal(t, 800, cfg.Guard.MaxChars)
	require.Equal(t, 11, cfg.Guard.RepeatRun)
	require.Equal(t, "י", cfg.Guard.ScriptChar)
	require.Equal(t, 15, cfg.Guard.ScriptRun)
	require.False(t, cfg.Guard.SharedBudget)
	require.Equal(t, "127.0.0.1:3000", cfg.Server.Addr())

	cfg.SetDefaults()
	require.Equal(t, "gemini-2.0-flash", cfg.Gateway.Model)
}

func TestGuardConfig_ToGuard(t *testing.T) {
	got, err := Default().Guard.ToGuard()
	require.NoError(t, err)
	require.Equal(t, guard.DefaultConfig(), got)

	bad := Default().Guard
	bad.ScriptChar = "ab"
	_, err = bad.ToGuard()
	require.Error(t, err)

	bad.ScriptChar = ""
	_, err = bad.ToGuard()
	require.Error(t, err)
}

func TestConfig_Conversions(t *testing.T) {
	cfg := Default()
	cfg.Gateway.APIKey = "k"
	cfg.Gateway.BaseURL = "http://localhost:9999"

	gw := cfg.Gateway.ToGateway()
	require.Equal(t, "k", gw.APIKey)
	require.Equal(t, "http://localhost:9999", gw.BaseURL)
	require.Equal(t, cfg.Gateway.Model, gw.Model)

	lc := cfg.Logging.ToLogging()
	require.Equal(t, cfg.Logging.Level, lc.Level)
	require.Equal(t, cfg.Logging.MaxBackups, lc.MaxBackups)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{name: "port zero", modify: func(c *Config) { c.Server.Port = 0 }, field: "server.port"},
		{name: "port too high", modify: func(c *Config) { c.Server.Port = 70000 }, field: "server.port"},
		{name: "empty host", modify: func(c *Config) { c.Server.Host = "" }, field: "server.host"},
		{name: "body limit", modify: func(c *Config) { c.Server.MaxBodyBytes = 0 }, field: "server.max_body_bytes"},
		{name: "provider", modify: func(c *Config) { c.Gateway.Provider = "ollama" }, field: "gateway.provider"},
		{name: "max tokens", modify: func(c *Config) { c.Gateway.MaxTokens = -1 }, field: "gateway.max_tokens"},
		{name: "repeat run", modify: func(c *Config) { c.Guard.RepeatRun = 1 }, field: "guard"},
		{name: "script char", modify: func(c *Config) { c.Guard.ScriptChar = "יי" }, field: "guard"},
		{name: "watch without file", modify: func(c *Config) { c.Persona.Watch = true }, field: "persona.watch"},
		{name: "log level", modify: func(c *Config) { c.Logging.Level = "loud" }, field: "logging.level"},
		{name: "log format", modify: func(c *Config) { c.Logging.Format = "xml" }, field: "logging.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			require.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	require.Equal(t, "no validation errors", ValidateErrors{}.Error())

	errs := ValidateErrors{
		{Field: "a", Message: "bad"},
		{Field: "b", Message: "worse"},
	}
	require.Equal(t, "a: bad; b: worse", errs.Error())
}

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestLoadFromPath_TOML(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[server]
port = 8080

[gateway]
provider = "anthropic"

[guard]
max_chars = 400
shared_budget = true

[persona]
initial = "be a pirate"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, gateway.ProviderAnthropic, cfg.Gateway.Provider)
	require.Equal(t, gateway.DefaultAnthropicModel, cfg.Gateway.Model)
	require.Equal(t, 400, cfg.Guard.MaxChars)
	require.True(t, cfg.Guard.SharedBudget)
	require.Equal(t, 11, cfg.Guard.RepeatRun)
	require.Equal(t, "be a pirate", cfg.Persona.Initial)
}

func TestLoadFromPath_TOMLProviderDefaultModel(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[gateway]\nprovider = \"openai\"\n")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, gateway.DefaultOpenAIModel, cfg.Gateway.Model)
}

func TestLoadFromPath_UnknownKey(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[guard]\nmax_charz = 10\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "guard.max_charz")
}

func TestLoadFromPath_Invalid(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server]\nport = 99999\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.port")
}

func TestLoadFromPath_JSON(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"server": {"port": 4000}, "logging": {"level": "debug"}}`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_PrefersTOMLOverJSON(t *testing.T) {
	home := isolateEnv(t)
	dir := filepath.Join(home, ".moodchat")
	writeFile(t, filepath.Join(dir, "config.toml"), "[server]\nport = 5001\n")
	writeFile(t, filepath.Join(dir, "config.json"), `{"server": {"port": 5002}}`)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5001, cfg.Server.Port)
}

func TestLoad_FallsBackToJSON(t *testing.T) {
	home := isolateEnv(t)
	writeFile(t, filepath.Join(home, ".moodchat", "config.json"), `{"server": {"port": 5002}}`)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 5002, cfg.Server.Port)
}

func TestLoad_DefaultsWithoutFiles(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default().Server, cfg.Server)
}

func TestLoad_ReportsBrokenFile(t *testing.T) {
	home := isolateEnv(t)
	writeFile(t, filepath.Join(home, ".moodchat", "config.toml"), "[server\nport = ")

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	require.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadTOML_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \"1\"\n"), 0o644))

	require.NoError(t, LoadTOML(Default(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if info.Mode().Perm() != 0o600 && runtime.GOOS != "windows" {
		t.Errorf("permissions = %o, want 600", info.Mode().Perm())
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Guard.ScriptChar = "ו"
	cfg.Persona.Initial = "אתה פיראט"
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "# moodchat configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, 9090, loaded.Server.Port)
	require.Equal(t, "ו", loaded.Guard.ScriptChar)
	require.Equal(t, "אתה פיראט", loaded.Persona.Initial)
}

func TestSaveJSON_RoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Gateway.Provider = gateway.ProviderOpenAI
	cfg.Gateway.Model = "gpt-4o"
	require.NoError(t, SaveJSON(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", loaded.Gateway.Model)
}

// =============================================================================
// ENVIRONMENT TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MOODCHAT_HOST", "0.0.0.0")
	t.Setenv("MOODCHAT_PORT", "8181")
	t.Setenv("MOODCHAT_MODEL", "gemini-2.5-flash")
	t.Setenv("MOODCHAT_PERSONA_FILE", "/tmp/persona.txt")
	t.Setenv("MOODCHAT_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8181, cfg.Server.Port)
	require.Equal(t, "gemini-2.5-flash", cfg.Gateway.Model)
	require.Equal(t, "/tmp/persona.txt", cfg.Persona.File)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestApplyEnvOverrides_BadPortIgnored(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MOODCHAT_PORT", "eighty")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, 3000, cfg.Server.Port)
}

func TestApplyEnvOverrides_ProviderKey(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		env      map[string]string
		want     string
	}{
		{
			name: "gemini reads GOOGLE_API_KEY",
			env:  map[string]string{"GOOGLE_API_KEY": "g", "OPENAI_API_KEY": "o"},
			want: "g",
		},
		{
			name:     "anthropic reads ANTHROPIC_API_KEY",
			provider: gateway.ProviderAnthropic,
			env:      map[string]string{"GOOGLE_API_KEY": "g", "ANTHROPIC_API_KEY": "a"},
			want:     "a",
		},
		{
			name:     "openai reads OPENAI_API_KEY",
			provider: gateway.ProviderOpenAI,
			env:      map[string]string{"OPENAI_API_KEY": "o"},
			want:     "o",
		},
		{
			name: "MOODCHAT_API_KEY wins",
			env:  map[string]string{"GOOGLE_API_KEY": "g", "MOODCHAT_API_KEY": "m"},
			want: "m",
		},
		{
			name: "missing stays empty",
			want: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolateEnv(t)
			if tc.provider != "" {
				t.Setenv("MOODCHAT_PROVIDER", tc.provider)
			}
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg := Default()
			cfg.ApplyEnvOverrides()
			require.Equal(t, tc.want, cfg.Gateway.APIKey)
		})
	}
}

func TestApplyEnvOverrides_FileKeyKept(t *testing.T) {
	isolateEnv(t)
	t.Setenv("GOOGLE_API_KEY", "from-env")

	cfg := Default()
	cfg.Gateway.APIKey = "from-file"
	cfg.ApplyEnvOverrides()
	require.Equal(t, "from-file", cfg.Gateway.APIKey)
}

func TestApplyEnvOverrides_ProviderSwitchResetsModel(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MOODCHAT_PROVIDER", "anthropic")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	require.Equal(t, gateway.DefaultAnthropicModel, cfg.Gateway.Model)
}

// =============================================================================
// GET/SET TESTS
// =============================================================================

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("guard.max_chars")
	require.NoError(t, err)
	require.Equal(t, 800, v)

	require.NoError(t, cfg.Set("guard.max_chars", "500"))
	require.Equal(t, 500, cfg.Guard.MaxChars)

	require.NoError(t, cfg.Set("guard.shared_budget", "true"))
	require.True(t, cfg.Guard.SharedBudget)

	require.NoError(t, cfg.Set("gateway.api_key", "secret"))
	require.Equal(t, "secret", cfg.Gateway.APIKey)

	require.NoError(t, cfg.Set("server.cors_origins", "http://a, http://b"))
	require.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)

	require.NoError(t, cfg.Set("server.port", 4242))
	require.Equal(t, 4242, cfg.Server.Port)

	_, err = cfg.Get("guard.nope")
	require.Error(t, err)
	require.Error(t, cfg.Set("server.port.value", "1"))
	require.Error(t, cfg.Set("server.port", "abc"))
	require.Error(t, cfg.Set("", "x"))
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	require.Contains(t, keys, "server.port")
	require.Contains(t, keys, "gateway.api_key")
	require.Contains(t, keys, "guard.script_char")
	require.Contains(t, keys, "persona.watch")
	require.Contains(t, keys, "logging.max_backups")

	cfg := Default()
	for _, key := range keys {
		_, err := cfg.Get(key)
		require.NoError(t, err, key)
	}
}

// =============================================================================
// CLONE / STRING TESTS
// =============================================================================

func TestConfig_Clone(t *testing.T) {
	orig := Default()
	clone := orig.Clone()

	clone.Server.Port = 1
	clone.Server.CORSOrigins[0] = "http://evil"

	require.Equal(t, 3000, orig.Server.Port)
	require.Equal(t, "http://localhost:3000", orig.Server.CORSOrigins[0])
}

func TestConfig_StringRedactsKey(t *testing.T) {
	cfg := Default()
	cfg.Gateway.APIKey = "super-secret"

	require.NotContains(t, cfg.String(), "super-secret")
	require.Contains(t, cfg.String(), "[REDACTED]")

	out, err := cfg.TOML()
	require.NoError(t, err)
	require.NotContains(t, out, "super-secret")
	require.Contains(t, out, "max_chars = 800")

	require.Equal(t, "super-secret", cfg.Gateway.APIKey)
}

func TestCredentialFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("GOOGLE_API_KEY", "g")

	require.Equal(t, "a", CredentialFromEnv(gateway.ProviderAnthropic))
	require.Equal(t, "g", CredentialFromEnv(""))
	require.Equal(t, "", CredentialFromEnv(gateway.ProviderOpenAI))
	require.Equal(t, "", CredentialFromEnv("unknown"))

	t.Setenv("MOODCHAT_API_KEY", "m")
	require.Equal(t, "m", CredentialFromEnv(gateway.ProviderOpenAI))
}
