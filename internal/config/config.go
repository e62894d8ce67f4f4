// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/provider"
	"github.com/jeranaias/askai/internal/util"
)

// CurrentVersion is written into new config files.
const CurrentVersion = "1.0.0"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete askai configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Provider selects the backend for chat and for inline expansion.
	Provider ProviderSelection `toml:"provider" json:"provider"`

	Chat       ChatConfig       `toml:"chat" json:"chat"`
	Completion CompletionConfig `toml:"completion" json:"completion"`

	OpenAI     BackendConfig `toml:"openai" json:"openai"`
	OpenRouter BackendConfig `toml:"openrouter" json:"openrouter"`
	Groq       BackendConfig `toml:"groq" json:"groq"`
	Custom     BackendConfig `toml:"custom" json:"custom"`
	Google     BackendConfig `toml:"google" json:"google"`
	Cloudflare BackendConfig `toml:"cloudflare" json:"cloudflare"`

	Limits    LimitsConfig    `toml:"limits" json:"limits"`
	Vault     VaultConfig     `toml:"vault" json:"vault"`
	Log       LogConfig       `toml:"log" json:"log"`
	UI        UIConfig        `toml:"ui" json:"ui"`
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`
}

// ProviderSelection names the active backends.
type ProviderSelection struct {
	Chat       string `toml:"chat" json:"chat"`
	Completion string `toml:"completion" json:"completion"`
}

// ChatConfig configures the assistant conversation.
type ChatConfig struct {
	Persona string `toml:"persona" json:"persona"`
}

// CompletionConfig configures inline expansion.
type CompletionConfig struct {
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
}

// BackendConfig holds the settings of one backend. Not every backend uses
// every field: AccountID is Cloudflare only, CompletionModel is ignored
// where chat and completion share a model.
type BackendConfig struct {
	APIKey          string  `toml:"api_key" json:"api_key"`
	AccountID       string  `toml:"account_id,omitempty" json:"account_id,omitempty"`
	BaseURL         string  `toml:"base_url,omitempty" json:"base_url,omitempty"`
	Model           string  `toml:"model" json:"model"`
	CompletionModel string  `toml:"completion_model,omitempty" json:"completion_model,omitempty"`
	MaxTokens       int     `toml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature     float64 `toml:"temperature,omitempty" json:"temperature,omitempty"`
}

// LimitsConfig throttles outgoing provider requests. Zero disables the
// limiter.
type LimitsConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute" json:"requests_per_minute"`
	Burst             int `toml:"burst" json:"burst"`
}

// VaultConfig points at the notes directory.
type VaultConfig struct {
	Dir        string   `toml:"dir" json:"dir"`
	Extensions []string `toml:"extensions" json:"extensions"`
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `toml:"level" json:"level"`
	File   string `toml:"file,omitempty" json:"file,omitempty"`
	Pretty bool   `toml:"pretty" json:"pretty"`
}

// UIConfig configures the terminal front end.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme"`
	Markdown bool   `toml:"markdown" json:"markdown"`
}

// TelemetryConfig configures the local usage ledger.
type TelemetryConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled"`
	Path    string `toml:"path,omitempty" json:"path,omitempty"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with the built-in defaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Provider: ProviderSelection{
			Chat:       provider.NameOpenAI,
			Completion: provider.NameOpenAI,
		},
		Chat:       ChatConfig{Persona: model.DefaultPersona},
		Completion: CompletionConfig{MaxTokens: 96},

		OpenAI: BackendConfig{
			Model:           "gpt-3.5-turbo",
			CompletionModel: "gpt-3.5-turbo-instruct",
		},
		OpenRouter: BackendConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "microsoft/phi-3-medium-128k-instruct:free",
		},
		Groq: BackendConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "llama3-8b-8192",
		},
		Custom: BackendConfig{
			BaseURL: "http://localhost:5001/v1",
		},
		Google: BackendConfig{
			Model:     "gemini-pro",
			MaxTokens: 1024,
		},
		Cloudflare: BackendConfig{
			Model:       "thebloke/zephyr-7b-beta-awq",
			MaxTokens:   256,
			Temperature: 0.5,
		},

		Limits: LimitsConfig{RequestsPerMinute: 60, Burst: 5},
		Vault: VaultConfig{
			Dir:        ".",
			Extensions: []string{".md", ".txt"},
		},
		Log:       LogConfig{Level: "warn", Pretty: true},
		UI:        UIConfig{Theme: "dark", Markdown: true},
		Telemetry: TelemetryConfig{Enabled: true},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the askai configuration directory. ASKAI_HOME
// overrides the default of ~/.askai.
func ConfigDir() (string, error) {
	if dir := os.Getenv("ASKAI_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".askai"), nil
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

// HistoryPath returns the REPL history file.
func HistoryPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// UsagePath returns the usage ledger path, honoring telemetry.path.
func (c *Config) UsagePath() (string, error) {
	if c.Telemetry.Path != "" {
		return c.Telemetry.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "usage.db"), nil
}

// EnsureConfigDir creates the config directory with owner-only access.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file holding API keys to 0600.
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

// Load reads config.toml, else config.json, else the defaults, then applies
// environment overrides and validates. When a file exists but cannot be
// decoded, the defaults are returned together with the decode error.
func Load() (*Config, error) {
	var loadErr error

	for _, candidate := range []struct {
		path func() (string, error)
		load func(*Config, string) error
	}{
		{ConfigPathTOML, LoadTOML},
		{ConfigPathJSON, LoadJSON},
	} {
		path, err := candidate.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg := Default()
		if err := candidate.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s: %w", filepath.Base(path), err)
			continue
		}
		return finish(cfg)
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads one file, TOML unless it ends in .json.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	load := LoadTOML
	if strings.HasSuffix(path, ".json") {
		load = LoadJSON
	}
	if err := load(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes path over cfg.
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

// fillDefaults restores values a file explicitly blanked.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Provider.Chat == "" {
		cfg.Provider.Chat = defaults.Provider.Chat
	}
	if cfg.Provider.Completion == "" {
		cfg.Provider.Completion = defaults.Provider.Completion
	}
	cfg.Provider.Chat = strings.ToLower(strings.TrimSpace(cfg.Provider.Chat))
	cfg.Provider.Completion = strings.ToLower(strings.TrimSpace(cfg.Provider.Completion))

	if strings.TrimSpace(cfg.Chat.Persona) == "" {
		cfg.Chat.Persona = defaults.Chat.Persona
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = defaults.Completion.MaxTokens
	}
	if cfg.Vault.Dir == "" {
		cfg.Vault.Dir = defaults.Vault.Dir
	}
	if len(cfg.Vault.Extensions) == 0 {
		cfg.Vault.Extensions = defaults.Vault.Extensions
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML path.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

const tomlHeader = `# askai configuration file
# API keys are stored here in plain text; the file is kept at 0600.

`

// SaveTOML writes cfg atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString(tomlHeader)
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, []byte(b.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
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

// Validate checks structure only. Missing credentials are not an error
// here; each adapter reports them when a request is built.
func (c *Config) Validate() error {
	var errs ValidateErrors

	for field, name := range map[string]string{
		"provider.chat":       c.Provider.Chat,
		"provider.completion": c.Provider.Completion,
	} {
		if !provider.IsKnown(name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown provider '%s', must be one of: %s", name, strings.Join(provider.KnownNames, ", ")),
			})
		}
	}

	if c.Completion.MaxTokens < 0 {
		errs = append(errs, ValidationError{Field: "completion.max_tokens", Message: "cannot be negative"})
	}

	for _, name := range provider.KnownNames {
		b := c.Backend(name)
		if b.MaxTokens < 0 {
			errs = append(errs, ValidationError{Field: name + ".max_tokens", Message: "cannot be negative"})
		}
		if b.Temperature < 0 || b.Temperature > 2 {
			errs = append(errs, ValidationError{
				Field:   name + ".temperature",
				Message: fmt.Sprintf("must be between 0 and 2, got %g", b.Temperature),
			})
		}
		if b.BaseURL != "" {
			if u, err := url.Parse(b.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, ValidationError{
					Field:   name + ".base_url",
					Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[/path]", b.BaseURL),
				})
			}
		}
	}

	if c.Limits.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{Field: "limits.requests_per_minute", Message: "cannot be negative"})
	}
	if c.Limits.Burst < 0 {
		errs = append(errs, ValidationError{Field: "limits.burst", Message: "cannot be negative"})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: trace, debug, info, warn, error, disabled", c.Log.Level),
		})
	}

	if c.UI.Theme != "dark" && c.UI.Theme != "light" && c.UI.Theme != "auto" {
		errs = append(errs, ValidationError{Field: "ui.theme", Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)})
	}

	if len(errs) > 0 {
		sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
		return errs
	}
	return nil
}

// =============================================================================
// PROVIDER RESOLUTION
// =============================================================================

// Backend returns the settings block for a provider name. Unknown names
// get an empty block.
func (c *Config) Backend(name string) BackendConfig {
	if b := c.backendPtr(name); b != nil {
		return *b
	}
	return BackendConfig{}
}

func (c *Config) backendPtr(name string) *BackendConfig {
	switch name {
	case provider.NameOpenAI:
		return &c.OpenAI
	case provider.NameOpenRouter:
		return &c.OpenRouter
	case provider.NameGroq:
		return &c.Groq
	case provider.NameCustom:
		return &c.Custom
	case provider.NameGoogle:
		return &c.Google
	case provider.NameCloudflare:
		return &c.Cloudflare
	}
	return nil
}

// ProviderFor builds the call-time configuration for a named backend.
func (c *Config) ProviderFor(name string) provider.ProviderConfig {
	b := c.Backend(name)
	return provider.ProviderConfig{
		Provider:        name,
		BaseURL:         b.BaseURL,
		APIKey:          b.APIKey,
		AccountID:       b.AccountID,
		Model:           b.Model,
		CompletionModel: b.CompletionModel,
		MaxTokens:       b.MaxTokens,
		Temperature:     b.Temperature,
	}
}

// ChatProvider returns the configuration of the chat backend.
func (c *Config) ChatProvider() provider.ProviderConfig {
	return c.ProviderFor(c.Provider.Chat)
}

// CompletionProvider returns the configuration of the expansion backend
// with the completion token budget applied.
func (c *Config) CompletionProvider() provider.ProviderConfig {
	pc := c.ProviderFor(c.Provider.Completion)
	if c.Completion.MaxTokens > 0 {
		pc.MaxTokens = c.Completion.MaxTokens
	}
	return pc
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - ASKAI_CHAT_PROVIDER, ASKAI_COMPLETION_PROVIDER
//   - ASKAI_OPENAI_KEY, ASKAI_OPENROUTER_KEY, ASKAI_GROQ_KEY, ASKAI_GOOGLE_KEY
//   - ASKAI_CLOUDFLARE_KEY, ASKAI_CLOUDFLARE_ACCOUNT
//   - ASKAI_CUSTOM_URL, ASKAI_CUSTOM_KEY
//   - ASKAI_VAULT: overrides vault.dir
//   - ASKAI_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"ASKAI_CHAT_PROVIDER", &c.Provider.Chat},
		{"ASKAI_COMPLETION_PROVIDER", &c.Provider.Completion},
		{"ASKAI_OPENAI_KEY", &c.OpenAI.APIKey},
		{"ASKAI_OPENROUTER_KEY", &c.OpenRouter.APIKey},
		{"ASKAI_GROQ_KEY", &c.Groq.APIKey},
		{"ASKAI_GOOGLE_KEY", &c.Google.APIKey},
		{"ASKAI_CLOUDFLARE_KEY", &c.Cloudflare.APIKey},
		{"ASKAI_CLOUDFLARE_ACCOUNT", &c.Cloudflare.AccountID},
		{"ASKAI_CUSTOM_URL", &c.Custom.BaseURL},
		{"ASKAI_CUSTOM_KEY", &c.Custom.APIKey},
		{"ASKAI_VAULT", &c.Vault.Dir},
		{"ASKAI_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by dot-notation key, e.g. "google.model".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by dot-notation key. String values are converted to
// the field's type; lists are comma separated.
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
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts snake_case or kebab-case to a Go field name.
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
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.ToLower(strVal))
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns every settable key in dot notation, in file order.
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

// IsSecretKey reports whether a dot-notation key holds a credential.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, ".api_key")
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Vault.Extensions = append([]string(nil), c.Vault.Extensions...)
	return &clone
}

// Redacted returns a copy with every API key masked.
func (c *Config) Redacted() *Config {
	safe := c.Clone()
	for _, name := range provider.KnownNames {
		b := safe.backendPtr(name)
		b.APIKey = provider.ProviderConfig{APIKey: b.APIKey}.MaskedKey()
	}
	return safe
}

// String renders the config as JSON with API keys masked.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
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

// ReloadGlobal reloads the global configuration from disk.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal replaces the global configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the global state. Tests only.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
