// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the config dir at a temp dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CARDCHAT_HOME", dir)
	for _, key := range []string{
		"CARDCHAT_PROVIDER", "CARDCHAT_MODEL", "OPENAI_API_KEY", "CARDCHAT_API_KEY",
		"CARDCHAT_BASE_URL", "CARDCHAT_OLLAMA_URL", "CARDCHAT_THEME", "CARDCHAT_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PrefersTOMLOverJSON(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "version = \"1\"\n[ui]\ntheme = \"light\"\n")
	writeFile(t, filepath.Join(dir, "config.json"), `{"ui":{"theme":"dark"}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)

	path, err := ActivePath()
	require.NoError(t, err)
	assert.Equal(t, "config.toml", filepath.Base(path))
}

func TestLoad_FallsBackToJSON(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.json"), `{"version":"1","provider":{"kind":"ollama","model":"llama3.2"}}`)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider.Kind)
	assert.Equal(t, "llama3.2", cfg.Provider.Model)
	// Untouched sections keep their defaults.
	assert.Equal(t, "auto", cfg.UI.Theme)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromPath_FullTOML(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, `
version = "1"

[provider]
kind = "openai"
model = "gpt-4o-mini"
api_key = "sk-test"
base_url = "http://localhost:4000/v1"

[ui]
theme = "Dark"
markdown_style = "dracula"
word_wrap = 100
show_timestamps = true

[log]
level = "debug"
format = "console"
file = "/tmp/cardchat.log"
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.Model)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.Equal(t, "http://localhost:4000/v1", cfg.Provider.BaseURL)
	assert.Equal(t, "dark", cfg.UI.Theme, "theme is normalized to lower case")
	assert.Equal(t, "dracula", cfg.UI.MarkdownStyle)
	assert.Equal(t, 100, cfg.UI.WordWrap)
	assert.True(t, cfg.UI.ShowTimestamps)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromPath_UnknownKeyRejected(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[ui]\ncolour = \"red\"\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.colour")
}

func TestLoadFromPath_MigratesVersionlessKinds(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[provider]\nkind = \"local\"\n")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider.Kind)
	assert.Equal(t, CurrentVersion, cfg.Version)
}

func TestLoadFromPath_UnsupportedVersion(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "version = \"9\"\n")

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config version")
}

func TestLoadTOML_FixesPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = \"1\"\n"), 0644))

	_, err := LoadFromPath(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

// =============================================================================
// ENVIRONMENT TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CARDCHAT_PROVIDER", "ollama")
	t.Setenv("CARDCHAT_MODEL", "qwen2.5")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("CARDCHAT_API_KEY", "sk-cardchat")
	t.Setenv("CARDCHAT_OLLAMA_URL", "http://gpu-box:11434/")
	t.Setenv("CARDCHAT_THEME", "light")
	t.Setenv("CARDCHAT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Provider.Kind)
	assert.Equal(t, "qwen2.5", cfg.Provider.Model)
	assert.Equal(t, "sk-cardchat", cfg.Provider.APIKey, "CARDCHAT_API_KEY wins over OPENAI_API_KEY")
	assert.Equal(t, "http://gpu-box:11434", cfg.Provider.OllamaURL)
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestApplyEnvOverrides_InvalidValueFailsValidation(t *testing.T) {
	isolate(t)
	t.Setenv("CARDCHAT_THEME", "neon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ui.theme")
}

func TestReadFile_IgnoresEnvironment(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[provider]\nmodel = \"llama3\"\n")
	t.Setenv("CARDCHAT_MODEL", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Provider.Model)
	assert.Empty(t, cfg.Provider.APIKey)
	assert.Equal(t, CurrentVersion, cfg.Version)

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", loaded.Provider.Model)
}

func TestReadFile_MissingFileGivesDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := ReadFile(filepath.Join(dir, "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad kind", func(c *Config) { c.Provider.Kind = "anthropic" }, "provider.kind"},
		{"bad ollama url", func(c *Config) { c.Provider.OllamaURL = "localhost:11434" }, "provider.ollama_url"},
		{"bad base url", func(c *Config) { c.Provider.BaseURL = "ftp://x" }, "provider.base_url"},
		{"bad timeout", func(c *Config) { c.Provider.TimeoutSecs = 0 }, "provider.timeout_secs"},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
		{"bad markdown style", func(c *Config) { c.UI.MarkdownStyle = "fancy" }, "ui.markdown_style"},
		{"negative wrap", func(c *Config) { c.UI.WordWrap = -1 }, "ui.word_wrap"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tc.field, verrs[0].Field)
		})
	}
}

func TestValidate_DefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Provider.Model = "llama3.2"
	cfg.UI.ShowStats = true
	require.NoError(t, SaveTOML(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# cardchat configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveJSON_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.UI.Theme = "light"
	require.NoError(t, SaveJSON(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "light", loaded.UI.Theme)
}

func TestSave_PicksFormatByExtension(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := Default()
	cfg.UI.Theme = "light"

	jsonPath := filepath.Join(dir, "settings.JSON")
	require.NoError(t, Save(cfg, jsonPath))
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"), "JSON expected, got %q", data)

	tomlPath := filepath.Join(dir, "config.toml")
	require.NoError(t, Save(cfg, tomlPath))
	data, err = os.ReadFile(tomlPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[ui]")

	loaded, err := LoadFromPath(tomlPath)
	require.NoError(t, err)
	assert.Equal(t, "light", loaded.UI.Theme)
}

// =============================================================================
// GET/SET TESTS
// =============================================================================

func TestGetSet_DotNotation(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("provider.model", "mistral"))
	require.NoError(t, cfg.Set("provider.api_key", "sk-x"))
	require.NoError(t, cfg.Set("ui.word_wrap", "80"))
	require.NoError(t, cfg.Set("ui.show_timestamps", "true"))
	require.NoError(t, cfg.Set("ui.word-wrap", 72))

	assert.Equal(t, "mistral", cfg.Provider.Model)
	assert.Equal(t, "sk-x", cfg.Provider.APIKey)
	assert.Equal(t, 72, cfg.UI.WordWrap)
	assert.True(t, cfg.UI.ShowTimestamps)

	v, err := cfg.Get("provider.model")
	require.NoError(t, err)
	assert.Equal(t, "mistral", v)
}

func TestGetSet_Errors(t *testing.T) {
	cfg := Default()

	_, err := cfg.Get("provider.nope")
	assert.ErrorContains(t, err, "unknown field: provider.nope")

	_, err = cfg.Get("version.major")
	assert.ErrorContains(t, err, "not a struct")

	assert.Error(t, cfg.Set("", "x"))
	assert.ErrorContains(t, cfg.Set("ui.word_wrap", "wide"), "invalid integer")
	assert.ErrorContains(t, cfg.Set("ui.show_stats", "maybe"), "invalid boolean")
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestString_RedactsAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Provider.APIKey = "sk-secret"

	s := cfg.String()
	assert.NotContains(t, s, "sk-secret")
	assert.Contains(t, s, "[REDACTED]")
	assert.Equal(t, "sk-secret", cfg.Provider.APIKey, "String must not modify the config")
}

// =============================================================================
// WATCHER TESTS
// =============================================================================

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "version = \"1\"\n[ui]\ntheme = \"dark\"\n")

	w, err := Watch(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, path, "version = \"1\"\n[ui]\ntheme = \"light\"\n")

	select {
	case change := <-w.Changes():
		require.NoError(t, change.Err)
		assert.Equal(t, "light", change.Config.UI.Theme)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
}

func TestWatcher_ReportsInvalidFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "version = \"1\"\n")

	w, err := Watch(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, path, "[ui]\ntheme = \"neon\"\n")

	select {
	case change := <-w.Changes():
		assert.Nil(t, change.Config)
		assert.Error(t, change.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "version = \"1\"\n")

	w, err := Watch(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, filepath.Join(dir, "other.toml"), "x = 1\n")

	select {
	case change := <-w.Changes():
		t.Fatalf("unexpected change: %+v", change)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_CloseClosesChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	w, err := Watch(path, 0, nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, ok := <-w.Changes()
	assert.False(t, ok)
}

func TestSetDefaults_ModelFollowsProvider(t *testing.T) {
	cfg := &Config{Provider: ProviderConfig{Kind: "Ollama"}}
	cfg.SetDefaults()
	assert.Equal(t, "llama3.2", cfg.Provider.Model)

	cfg = &Config{}
	cfg.SetDefaults()
	assert.Equal(t, "gpt-3.5-turbo", cfg.Provider.Model)
}
