// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/askai/internal/provider"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ASKAI_HOME", dir)
	for _, env := range []string{
		"ASKAI_CHAT_PROVIDER", "ASKAI_COMPLETION_PROVIDER", "ASKAI_OPENAI_KEY",
		"ASKAI_OPENROUTER_KEY", "ASKAI_GROQ_KEY", "ASKAI_GOOGLE_KEY",
		"ASKAI_CLOUDFLARE_KEY", "ASKAI_CLOUDFLARE_ACCOUNT", "ASKAI_CUSTOM_URL",
		"ASKAI_CUSTOM_KEY", "ASKAI_VAULT", "ASKAI_LOG_LEVEL",
	} {
		t.Setenv(env, "")
	}
	return dir
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, provider.NameOpenAI, cfg.Provider.Chat)
	assert.Equal(t, 96, cfg.Completion.MaxTokens)
	assert.Equal(t, "gemini-pro", cfg.Google.Model)
	assert.Equal(t, 0.5, cfg.Cloudflare.Temperature)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().OpenAI.Model, cfg.OpenAI.Model)
}

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	data := `
[provider]
chat = "Google"
completion = "groq"

[google]
api_key = "g-key"
model = "gemini-1.5-flash"

[groq]
api_key = "gsk"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	chat := cfg.ChatProvider()
	assert.Equal(t, provider.NameGoogle, chat.Provider)
	assert.Equal(t, "g-key", chat.APIKey)
	assert.Equal(t, "gemini-1.5-flash", chat.Model)
	assert.Equal(t, 1024, chat.MaxTokens)

	completion := cfg.CompletionProvider()
	assert.Equal(t, provider.NameGroq, completion.Provider)
	assert.Equal(t, 96, completion.MaxTokens)
	assert.Equal(t, "https://api.groq.com/openai/v1", completion.BaseURL)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "config.toml"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	data := `{"provider":{"chat":"cloudflare"},"cloudflare":{"api_key":"cf","account_id":"acct","model":"@cf/meta/llama-3-8b-instruct"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	pc := cfg.ChatProvider()
	assert.Equal(t, "acct", pc.AccountID)
	assert.Equal(t, "@cf/meta/llama-3-8b-instruct", pc.Model)
}

func TestLoad_BrokenFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[provider\nchat ="), 0600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, provider.NameOpenAI, cfg.Provider.Chat)
}

func TestLoad_MissingCredentialsAreNotAnError(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[provider]\nchat = \"cloudflare\"\n"), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.ChatProvider().APIKey)
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ASKAI_CHAT_PROVIDER", "openrouter")
	t.Setenv("ASKAI_OPENROUTER_KEY", "sk-or")
	t.Setenv("ASKAI_VAULT", "/notes")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.Provider.Chat)
	assert.Equal(t, "sk-or", cfg.ChatProvider().APIKey)
	assert.Equal(t, "/notes", cfg.Vault.Dir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown chat provider", func(c *Config) { c.Provider.Chat = "anthropic" }, "provider.chat"},
		{"unknown completion provider", func(c *Config) { c.Provider.Completion = "ollama" }, "provider.completion"},
		{"negative completion budget", func(c *Config) { c.Completion.MaxTokens = -1 }, "completion.max_tokens"},
		{"negative backend budget", func(c *Config) { c.Google.MaxTokens = -5 }, "google.max_tokens"},
		{"temperature", func(c *Config) { c.Cloudflare.Temperature = 3 }, "cloudflare.temperature"},
		{"base url scheme", func(c *Config) { c.Custom.BaseURL = "localhost:5001" }, "custom.base_url"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"limits", func(c *Config) { c.Limits.Burst = -1 }, "limits.burst"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			fields := make([]string, len(verrs))
			for i, v := range verrs {
				fields[i] = v.Field
			}
			assert.Contains(t, fields, tc.field)
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("openai.api_key", "sk-test"))
	require.NoError(t, cfg.Set("cloudflare.account_id", "acct"))
	require.NoError(t, cfg.Set("completion.max_tokens", "128"))
	require.NoError(t, cfg.Set("cloudflare.temperature", "0.2"))
	require.NoError(t, cfg.Set("ui.markdown", "false"))
	require.NoError(t, cfg.Set("vault.extensions", ".md, .org"))

	v, err := cfg.Get("openai.api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", v)
	assert.Equal(t, "acct", cfg.Cloudflare.AccountID)
	assert.Equal(t, 128, cfg.Completion.MaxTokens)
	assert.Equal(t, 0.2, cfg.Cloudflare.Temperature)
	assert.False(t, cfg.UI.Markdown)
	assert.Equal(t, []string{".md", ".org"}, cfg.Vault.Extensions)

	_, err = cfg.Get("openai.nope")
	assert.Error(t, err)
	_, err = cfg.Get("openai")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("completion.max_tokens", "many"))
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	assert.Contains(t, keys, "provider.chat")
	assert.Contains(t, keys, "cloudflare.account_id")
	assert.Contains(t, keys, "limits.requests_per_minute")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.Provider.Chat = provider.NameCustom
	cfg.Custom.Model = "local-llama"

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, provider.NameCustom, loaded.Provider.Chat)
	assert.Equal(t, "local-llama", loaded.Custom.Model)
	assert.Equal(t, cfg.Vault.Extensions, loaded.Vault.Extensions)
}

func TestString_MasksKeys(t *testing.T) {
	cfg := Default()
	cfg.OpenAI.APIKey = "sk-abcdefghijklmnop"
	out := cfg.String()
	assert.NotContains(t, out, "sk-abcdefghijklmnop")
	assert.True(t, strings.Contains(out, "****mnop"))
	assert.Equal(t, "sk-abcdefghijklmnop", cfg.OpenAI.APIKey, "String must not modify the config")
	assert.True(t, IsSecretKey("google.api_key"))
	assert.False(t, IsSecretKey("google.model"))
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under -race.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
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
