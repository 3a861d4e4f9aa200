// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/moodchat/internal/gateway"
	"github.com/jeranaias/moodchat/internal/guard"
	"github.com/jeranaias/moodchat/internal/logging"
	"github.com/jeranaias/moodchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete moodchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// HTTP listener
	Server ServerConfig `toml:"server" json:"server"`

	// Model provider
	Gateway GatewayConfig `toml:"gateway" json:"gateway"`

	// Output guard
	Guard GuardConfig `toml:"guard" json:"guard"`

	// Startup persona
	Persona PersonaConfig `toml:"persona" json:"persona"`

	// Logging
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Host            string   `toml:"host" json:"host"`
	Port            int      `toml:"port" json:"port"`
	MaxBodyBytes    int64    `toml:"max_body_bytes" json:"max_body_bytes"`
	ReadTimeoutSecs int      `toml:"read_timeout_secs" json:"read_timeout_secs"`
	IdleTimeoutSecs int      `toml:"idle_timeout_secs" json:"idle_timeout_secs"`
	CORSOrigins     []string `toml:"cors_origins" json:"cors_origins"`
}

// GatewayConfig selects the model provider.
type GatewayConfig struct {
	Provider string `toml:"provider" json:"provider"`

	// Model is filled with the provider's default when empty
	Model     string `toml:"model" json:"model"`
	APIKey    string `toml:"api_key" json:"api_key"`
	BaseURL   string `toml:"base_url" json:"base_url"`
	MaxTokens int    `toml:"max_tokens" json:"max_tokens"`
}

// GuardConfig contains the output guard limits.
type GuardConfig struct {
	MaxChars     int    `toml:"max_chars" json:"max_chars"`
	RepeatRun    int    `toml:"repeat_run" json:"repeat_run"`
	ScriptChar   string `toml:"script_char" json:"script_char"`
	ScriptRun    int    `toml:"script_run" json:"script_run"`
	SharedBudget bool   `toml:"shared_budget" json:"shared_budget"`
}

// PersonaConfig sets the startup persona.
type PersonaConfig struct {
	// Initial replaces the built-in default persona when set
	Initial string `toml:"initial" json:"initial"`

	// File is read at startup and takes precedence over Initial
	File string `toml:"file" json:"file"`

	// Watch re-applies File whenever it changes
	Watch bool `toml:"watch" json:"watch"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level      string `toml:"level" json:"level"`
	Format     string `toml:"format" json:"format"`
	File       string `toml:"file" json:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days"`
	Compress   bool   `toml:"compress" json:"compress"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",

		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            3000,
			MaxBodyBytes:    1 * 1024 * 1024,
			ReadTimeoutSecs: 30,
			IdleTimeoutSecs: 120,
			CORSOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},

		Gateway: GatewayConfig{
			Provider:  gateway.ProviderGemini,
			MaxTokens: gateway.DefaultMaxTokens,
		},

		Guard: GuardConfig{
			MaxChars:   guard.DefaultMaxChars,
			RepeatRun:  guard.DefaultRepeatRun,
			ScriptChar: string(guard.DefaultScriptChar),
			ScriptRun:  guard.DefaultScriptRun,
		},

		Logging: LoggingConfig{
			Level:      "info",
			Format:     logging.FormatJSON,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// ToGateway returns the gateway settings.
func (g GatewayConfig) ToGateway() gateway.Config {
	return gateway.Config{
		Provider:  g.Provider,
		Model:     g.Model,
		APIKey:    g.APIKey,
		BaseURL:   g.BaseURL,
		MaxTokens: g.MaxTokens,
	}
}

// ToGuard returns the guard limits.
func (g GuardConfig) ToGuard() (guard.Config, error) {
	r, size := utf8.DecodeRuneInString(g.ScriptChar)
	if r == utf8.RuneError || size != len(g.ScriptChar) {
		return guard.Config{}, fmt.Errorf("script_char must be exactly one character, got %q", g.ScriptChar)
	}
	cfg := guard.Config{
		MaxChars:   g.MaxChars,
		RepeatRun:  g.RepeatRun,
		ScriptChar: r,
		ScriptRun:  g.ScriptRun,
	}
	return cfg, cfg.Validate()
}

// ToLogging returns the logger settings.
func (l LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Level:      l.Level,
		Format:     l.Format,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
	}
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the moodchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".moodchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ensureSecurePermissions tightens config files to 0600.
// SECURITY: Config files may hold API keys.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			cfg = Default()
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
			} else {
				return finish(cfg)
			}
		}
	}

	// Defaults, with any load error for informational purposes.
	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// finish applies env overrides and defaults, then validates.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Written with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# moodchat configuration file")
	fmt.Fprintln(&buf, "# Generated by moodchat - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// RELIABILITY: Atomic write with fsync prevents a half-written file
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Written with 0600 permissions (owner read/write only).
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{logging.FormatJSON, logging.FormatConsole}
)

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port),
		})
	}
	if c.Server.Host == "" {
		errs = append(errs, ValidationError{Field: "server.host", Message: "must not be empty"})
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.max_body_bytes",
			Message: fmt.Sprintf("must be positive, got %d", c.Server.MaxBodyBytes),
		})
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "server", Message: "timeouts must not be negative"})
	}

	// Gateway
	if !slices.Contains(gateway.Providers(), c.Gateway.Provider) {
		errs = append(errs, ValidationError{
			Field:   "gateway.provider",
			Message: fmt.Sprintf("invalid value '%s': must be one of %s", c.Gateway.Provider, strings.Join(gateway.Providers(), ", ")),
		})
	}
	if c.Gateway.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "gateway.max_tokens",
			Message: fmt.Sprintf("must not be negative, got %d", c.Gateway.MaxTokens),
		})
	}

	// Guard
	if _, err := c.Guard.ToGuard(); err != nil {
		errs = append(errs, ValidationError{Field: "guard", Message: err.Error()})
	}

	// Persona
	if c.Persona.Watch && c.Persona.File == "" {
		errs = append(errs, ValidationError{Field: "persona.watch", Message: "requires persona.file"})
	}

	// Logging
	if !slices.Contains(validLogLevels, strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid value '%s': must be one of %s", c.Logging.Level, strings.Join(validLogLevels, ", ")),
		})
	}
	if !slices.Contains(validLogFormats, strings.ToLower(c.Logging.Format)) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid value '%s': must be one of %s", c.Logging.Format, strings.Join(validLogFormats, ", ")),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in zero values that have a default.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
	if c.Server.CORSOrigins == nil {
		c.Server.CORSOrigins = d.Server.CORSOrigins
	}

	c.Gateway.Provider = strings.ToLower(strings.TrimSpace(c.Gateway.Provider))
	if c.Gateway.Provider == "" {
		c.Gateway.Provider = d.Gateway.Provider
	}
	if c.Gateway.Model == "" {
		c.Gateway.Model = gateway.DefaultModel(c.Gateway.Provider)
	}
	if c.Gateway.MaxTokens == 0 {
		c.Gateway.MaxTokens = d.Gateway.MaxTokens
	}

	if c.Guard.MaxChars == 0 {
		c.Guard.MaxChars = d.Guard.MaxChars
	}
	if c.Guard.RepeatRun == 0 {
		c.Guard.RepeatRun = d.Guard.RepeatRun
	}
	if c.Guard.ScriptChar == "" {
		c.Guard.ScriptChar = d.Guard.ScriptChar
	}
	if c.Guard.ScriptRun == 0 {
		c.Guard.ScriptRun = d.Guard.ScriptRun
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// providerKeyEnv names the conventional API key variable per provider.
var providerKeyEnv = map[string]string{
	gateway.ProviderGemini:    "GOOGLE_API_KEY",
	gateway.ProviderAnthropic: "ANTHROPIC_API_KEY",
	gateway.ProviderOpenAI:    "OPENAI_API_KEY",
}

// CredentialFromEnv returns MOODCHAT_API_KEY, or the conventional key
// variable of provider.
func CredentialFromEnv(provider string) string {
	if key := os.Getenv("MOODCHAT_API_KEY"); key != "" {
		return key
	}
	if provider == "" {
		provider = gateway.ProviderGemini
	}
	if env, ok := providerKeyEnv[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - MOODCHAT_HOST, MOODCHAT_PORT: listen address
//   - MOODCHAT_PROVIDER: gateway.provider
//   - MOODCHAT_MODEL: gateway.model
//   - MOODCHAT_API_KEY: gateway.api_key, for any provider
//   - MOODCHAT_BASE_URL: gateway.base_url
//   - GOOGLE_API_KEY, ANTHROPIC_API_KEY, OPENAI_API_KEY: used for the
//     selected provider when no key is configured
//   - MOODCHAT_PERSONA_FILE: persona.file
//   - MOODCHAT_LOG_LEVEL, MOODCHAT_LOG_FILE: logging
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("MOODCHAT_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("MOODCHAT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if provider := os.Getenv("MOODCHAT_PROVIDER"); provider != "" {
		if provider != c.Gateway.Provider {
			// The configured model belongs to the previous provider.
			c.Gateway.Model = ""
		}
		c.Gateway.Provider = strings.ToLower(provider)
	}
	if model := os.Getenv("MOODCHAT_MODEL"); model != "" {
		c.Gateway.Model = model
	}
	if baseURL := os.Getenv("MOODCHAT_BASE_URL"); baseURL != "" {
		c.Gateway.BaseURL = baseURL
	}
	if key := os.Getenv("MOODCHAT_API_KEY"); key != "" {
		c.Gateway.APIKey = key
	} else if c.Gateway.APIKey == "" {
		c.Gateway.APIKey = CredentialFromEnv(c.Gateway.Provider)
	}

	if file := os.Getenv("MOODCHAT_PERSONA_FILE"); file != "" {
		c.Persona.File = file
	}

	if level := os.Getenv("MOODCHAT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("MOODCHAT_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "guard.max_chars").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "guard.max_chars").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup resolves a dot-notation key to a struct field.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(strVal == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.Split(f.Tag.Get("toml"), ",")[0]
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	return &clone
}

// Redacted returns a copy with secrets masked.
// SECURITY: API keys must never reach logs or terminal output.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	if safe.Gateway.APIKey != "" {
		safe.Gateway.APIKey = "[REDACTED]"
	}
	return safe
}

// String returns a JSON representation with secrets redacted.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}

// TOML returns a TOML representation with secrets redacted.
func (c *Config) TOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.String(), nil
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
