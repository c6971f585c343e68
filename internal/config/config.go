// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/jeranaias/cardchat-tui/internal/util"
)

// CurrentVersion is written into saved files and bumped by Migrate.
const CurrentVersion = "1"

// Provider kinds.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete cardchat configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Provider ProviderConfig `toml:"provider" json:"provider"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// ProviderConfig selects and configures the completion backend.
type ProviderConfig struct {
	// Kind is "openai" (any OpenAI-compatible endpoint) or "ollama".
	Kind string `toml:"kind" json:"kind"`
	// Model is passed through on every request.
	Model string `toml:"model" json:"model"`
	// APIKey authenticates against OpenAI-compatible endpoints.
	APIKey string `toml:"api_key" json:"api_key"`
	// BaseURL overrides the OpenAI endpoint (LiteLLM, vLLM, a proxy, ...).
	BaseURL string `toml:"base_url" json:"base_url"`
	// OllamaURL is the URL of the Ollama server.
	OllamaURL string `toml:"ollama_url" json:"ollama_url"`
	// TimeoutSecs bounds non-streaming calls such as model listing.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// UIConfig contains display settings. This section is reloaded live.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
	// MarkdownStyle overrides the glamour style; empty follows the theme.
	MarkdownStyle string `toml:"markdown_style" json:"markdown_style"`
	// WordWrap caps the render width; 0 follows the window.
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// ShowTimestamps prints the time next to each message header.
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
	// ShowStats prints timing under each assistant reply.
	ShowStats bool `toml:"show_stats" json:"show_stats"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	Format string `toml:"format" json:"format"`
	// File is where the TUI logs; empty means ~/.cardchat/cardchat.log.
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Provider: ProviderConfig{
			Kind:        ProviderOpenAI,
			Model:       DefaultModelFor(ProviderOpenAI),
			OllamaURL:   "http://127.0.0.1:11434",
			TimeoutSecs: 30,
		},
		UI: UIConfig{
			Theme: "auto",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultModelFor returns the model used when a config names none.
func DefaultModelFor(kind string) string {
	if strings.EqualFold(kind, ProviderOllama) {
		return "llama3.2"
	}
	return "gpt-3.5-turbo"
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the cardchat configuration directory path.
// CARDCHAT_HOME replaces ~/.cardchat when set.
func ConfigDir() (string, error) {
	if dir := os.Getenv("CARDCHAT_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".cardchat"), nil
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

// ActivePath returns the file Load would read: the TOML file if present,
// then the JSON file, otherwise the TOML path where Save would write.
func ActivePath() (string, error) {
	tomlPath, err := ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(tomlPath); err == nil {
		return tomlPath, nil
	}
	jsonPath, err := ConfigPathJSON()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath, nil
	}
	return tomlPath, nil
}

// DefaultLogPath returns ~/.cardchat/cardchat.log.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cardchat.log"), nil
}

// ensureSecurePermissions tightens config files to 0600; they may hold an
// API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
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
	path, err := ActivePath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		return LoadFromPath(path)
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Not fatal; some filesystems ignore chmod.
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
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Files ending in .json are read as JSON, anything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile loads path like LoadFromPath but without environment overrides,
// so the result can be edited and written back without leaking env values
// into the file. A missing file yields the defaults.
func ReadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	cfg, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string) (*Config, error) {
	cfg := Default()
	// Cleared so that version-less files go through Migrate.
	cfg.Version = ""

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return cfg, nil
}

// finish runs the shared tail of every load path.
func (c *Config) finish() error {
	c.ApplyEnvOverrides()
	return c.normalize()
}

func (c *Config) normalize() error {
	if err := c.Migrate(); err != nil {
		return fmt.Errorf("config migration failed: %w", err)
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to path, as JSON for .json paths and TOML otherwise.
func Save(cfg *Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path as TOML with mode 0600.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# cardchat configuration file\n")
	buf.WriteString("# Generated by cardchat - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg to path as indented JSON with mode 0600.
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
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	validKinds   = []string{ProviderOpenAI, ProviderOllama}
	validThemes  = []string{"auto", "dark", "light"}
	validFormats = []string{"json", "console"}
	// glamour's built-in style names.
	validMarkdownStyles = []string{"auto", "ascii", "dark", "dracula", "light", "notty", "pink", "tokyo-night"}
)

// Validate validates the configuration and returns any errors as
// ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Provider
	if !oneOf(c.Provider.Kind, validKinds) {
		add("provider.kind", "invalid kind '%s', must be one of: %s", c.Provider.Kind, strings.Join(validKinds, ", "))
	}
	if err := checkURL(c.Provider.OllamaURL); err != nil {
		add("provider.ollama_url", "%v", err)
	}
	if c.Provider.BaseURL != "" {
		if err := checkURL(c.Provider.BaseURL); err != nil {
			add("provider.base_url", "%v", err)
		}
	}
	if c.Provider.TimeoutSecs < 1 || c.Provider.TimeoutSecs > 600 {
		add("provider.timeout_secs", "must be 1-600, got %d", c.Provider.TimeoutSecs)
	}

	// UI
	if !oneOf(c.UI.Theme, validThemes) {
		add("ui.theme", "invalid theme '%s', must be one of: %s", c.UI.Theme, strings.Join(validThemes, ", "))
	}
	if c.UI.MarkdownStyle != "" && !oneOf(c.UI.MarkdownStyle, validMarkdownStyles) {
		add("ui.markdown_style", "unknown style '%s', must be one of: %s", c.UI.MarkdownStyle, strings.Join(validMarkdownStyles, ", "))
	}
	if c.UI.WordWrap < 0 {
		add("ui.word_wrap", "cannot be negative")
	}

	// Log
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		add("log.level", "invalid level '%s'", c.Log.Level)
	}
	if !oneOf(c.Log.Format, validFormats) {
		add("log.format", "invalid format '%s', must be one of: %s", c.Log.Format, strings.Join(validFormats, ", "))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

// SetDefaults fills zero values with defaults and normalizes case.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Provider.Kind == "" {
		c.Provider.Kind = d.Provider.Kind
	}
	c.Provider.Kind = strings.ToLower(c.Provider.Kind)
	if c.Provider.Model == "" {
		c.Provider.Model = DefaultModelFor(c.Provider.Kind)
	}
	if c.Provider.OllamaURL == "" {
		c.Provider.OllamaURL = d.Provider.OllamaURL
	}
	c.Provider.OllamaURL = strings.TrimRight(c.Provider.OllamaURL, "/")
	if c.Provider.TimeoutSecs == 0 {
		c.Provider.TimeoutSecs = d.Provider.TimeoutSecs
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	c.UI.Theme = strings.ToLower(c.UI.Theme)

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Migrate upgrades files written before versioning. Version-less files
// used "local" and "cloud" as provider kinds.
func (c *Config) Migrate() error {
	switch c.Version {
	case CurrentVersion:
		return nil
	case "", "0":
		switch strings.ToLower(c.Provider.Kind) {
		case "local":
			c.Provider.Kind = ProviderOllama
		case "cloud":
			c.Provider.Kind = ProviderOpenAI
		}
		c.Version = CurrentVersion
		return nil
	default:
		return fmt.Errorf("unsupported config version %q", c.Version)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - CARDCHAT_PROVIDER: overrides provider.kind
//   - CARDCHAT_MODEL: overrides provider.model
//   - OPENAI_API_KEY, CARDCHAT_API_KEY: override provider.api_key (the latter wins)
//   - CARDCHAT_BASE_URL: overrides provider.base_url
//   - CARDCHAT_OLLAMA_URL: overrides provider.ollama_url
//   - CARDCHAT_THEME: overrides ui.theme
//   - CARDCHAT_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if kind := os.Getenv("CARDCHAT_PROVIDER"); kind != "" {
		c.Provider.Kind = kind
	}
	if model := os.Getenv("CARDCHAT_MODEL"); model != "" {
		c.Provider.Model = model
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if key := os.Getenv("CARDCHAT_API_KEY"); key != "" {
		c.Provider.APIKey = key
	}
	if base := os.Getenv("CARDCHAT_BASE_URL"); base != "" {
		c.Provider.BaseURL = base
	}
	if u := os.Getenv("CARDCHAT_OLLAMA_URL"); u != "" {
		c.Provider.OllamaURL = u
	}
	if theme := os.Getenv("CARDCHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if level := os.Getenv("CARDCHAT_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g. "ui.theme").
// String values are converted to the field's type. The result is not
// validated; call Validate afterwards.
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

// normalizeFieldName converts snake_case or kebab-case to the Go field name,
// e.g. "api_key" becomes "ApiKey" and matches APIKey case-insensitively.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
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
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(boolVal)
			return nil
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
	return []string{
		"version",
		"provider.kind",
		"provider.model",
		"provider.api_key",
		"provider.base_url",
		"provider.ollama_url",
		"provider.timeout_secs",
		"ui.theme",
		"ui.markdown_style",
		"ui.word_wrap",
		"ui.show_timestamps",
		"ui.show_stats",
		"log.level",
		"log.format",
		"log.file",
	}
}

// Clone returns a copy of the configuration. Config holds no reference
// types, so a struct copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as indented JSON with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Provider.APIKey != "" {
		safe.Provider.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
