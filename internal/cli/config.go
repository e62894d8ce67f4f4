// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command for askai.
//
// Command: config
// Short:   Show or change settings
//
// Examples:
//   askai config show                          Effective settings, keys masked
//   askai config path                          Location of the config file
//   askai config init [--force]                Write a default config.toml
//   askai config get provider.chat             One value
//   askai config set provider.chat google      Change and save one value
//   askai config set vault.extensions .md,.txt Lists are comma separated

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeranaias/askai/internal/config"
	"github.com/jeranaias/askai/internal/provider"
	"github.com/jeranaias/askai/internal/util"
)

// HandleConfigCommand dispatches the config subcommands.
func HandleConfigCommand(args Args) error {
	switch strings.ToLower(args.Subcommand) {
	case "", "show":
		return handleConfigShow(args.JSON)
	case "path":
		return handleConfigPath(args.JSON)
	case "init":
		return handleConfigInit(args.Force)
	case "get":
		return handleConfigGet(args.ConfigKey, args.JSON)
	case "set":
		return handleConfigSet(args.ConfigKey, args.ConfigVal)
	case "keys":
		for _, k := range config.GetAllKeys() {
			fmt.Println(k)
		}
		return nil
	default:
		return NewValidationErrorWithExample("subcommand", args.Subcommand, "unknown config subcommand",
			"askai config show|path|init|get|set|keys")
	}
}

// handleConfigShow prints the effective configuration, env overrides
// included.
func handleConfigShow(jsonMode bool) error {
	cfg, err := config.Load()
	if cfg == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v (showing defaults)\n", WarningStyle.Render("Warning:"), err)
	}

	if jsonMode {
		return NewJSONResponse("config show", cfg.Redacted()).Print()
	}
	writeConfig(os.Stdout, cfg)
	return nil
}

// writeConfig prints every key grouped by section, credentials masked.
func writeConfig(w io.Writer, cfg *config.Config) {
	section := ""
	for _, key := range config.GetAllKeys() {
		head, field, ok := strings.Cut(key, ".")
		if !ok {
			head, field = "", key
		}
		if head != section {
			section = head
			fmt.Fprintln(w)
			fmt.Fprintln(w, TitleStyle.Render("["+section+"]"))
		}
		value, err := cfg.Get(key)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", RenderLabel(util.PadRight(field, 16)), displayValue(key, value))
	}
	fmt.Fprintln(w)
}

func displayValue(key string, value interface{}) string {
	if config.IsSecretKey(key) {
		s, _ := value.(string)
		if s == "" {
			return DimStyle.Render("(not set)")
		}
		return ValueStyle.Render(provider.ProviderConfig{APIKey: s}.MaskedKey())
	}
	switch v := value.(type) {
	case string:
		if v == "" {
			return DimStyle.Render("(empty)")
		}
		return ValueStyle.Render(v)
	case []string:
		return ValueStyle.Render(strings.Join(v, ","))
	default:
		return ValueStyle.Render(fmt.Sprint(v))
	}
}

// handleConfigPath shows the config file path.
func handleConfigPath(jsonMode bool) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	_, statErr := os.Stat(path)
	exists := statErr == nil

	if jsonMode {
		return NewJSONResponse("config path", map[string]interface{}{
			"path":   path,
			"exists": exists,
		}).Print()
	}

	fmt.Println(path)
	if !exists {
		fmt.Fprintln(os.Stderr, DimStyle.Render("(file does not exist; create it with: askai config init)"))
	}
	return nil
}

// handleConfigInit writes the defaults to config.toml.
func handleConfigInit(force bool) error {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return NewValidationErrorWithExample("config", path, "file already exists", "askai config init --force")
	}
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}
	fmt.Printf("%s wrote %s\n", SuccessStyle.Render("[OK]"), path)
	fmt.Println(DimStyle.Render("Next: askai config set openai.api_key YOUR_KEY"))
	return nil
}

// handleConfigGet prints one value.
func handleConfigGet(key string, jsonMode bool) error {
	if key == "" {
		return ErrMissingArgument("key", "askai config get provider.chat")
	}
	cfg, err := config.Load()
	if cfg == nil {
		return err
	}
	value, err := cfg.Get(key)
	if err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "askai config keys")
	}
	if config.IsSecretKey(key) {
		s, _ := value.(string)
		value = provider.ProviderConfig{APIKey: s}.MaskedKey()
	}

	if jsonMode {
		return NewJSONResponse("config get", map[string]interface{}{"key": key, "value": value}).Print()
	}
	if list, ok := value.([]string); ok {
		fmt.Println(strings.Join(list, ","))
		return nil
	}
	fmt.Println(value)
	return nil
}

// handleConfigSet changes one value in the config file. Environment
// overrides are not applied, so they never end up on disk.
func handleConfigSet(key, value string) error {
	if key == "" {
		return ErrMissingArgument("key", "askai config set <key> <value>")
	}

	cfg, path, save, err := loadConfigFile()
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return NewValidationErrorWithExample("key", key, err.Error(), "askai config keys")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration value: %w", err)
	}
	if err := save(cfg, path); err != nil {
		return err
	}

	shown := value
	if config.IsSecretKey(key) {
		shown = provider.ProviderConfig{APIKey: value}.MaskedKey()
	}
	fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), key, shown)
	return nil
}

// loadConfigFile reads the existing config file over the defaults and
// returns the saver matching its format. Without a file, config.toml is
// used.
func loadConfigFile() (*config.Config, string, func(*config.Config, string) error, error) {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return nil, "", nil, err
	}
	jsonPath, err := config.ConfigPathJSON()
	if err != nil {
		return nil, "", nil, err
	}

	cfg := config.Default()
	switch {
	case fileExists(tomlPath):
		if err := config.LoadTOML(cfg, tomlPath); err != nil {
			return nil, "", nil, err
		}
		return cfg, tomlPath, config.SaveTOML, nil
	case fileExists(jsonPath):
		if err := config.LoadJSON(cfg, jsonPath); err != nil {
			return nil, "", nil, err
		}
		return cfg, jsonPath, config.SaveJSON, nil
	default:
		return cfg, tomlPath, config.SaveTOML, nil
	}
}

// configFilePath returns the file in use, preferring TOML.
func configFilePath() (string, error) {
	tomlPath, err := config.ConfigPathTOML()
	if err != nil {
		return "", err
	}
	if jsonPath, err := config.ConfigPathJSON(); err == nil && !fileExists(tomlPath) && fileExists(jsonPath) {
		return jsonPath, nil
	}
	return tomlPath, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}
