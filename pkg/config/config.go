/*
Package config manages TOML (or YAML) config for wordlist services.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bastiangx/wordlist/internal/utils"
	"github.com/charmbracelet/log"
)

// DefaultSplitter treats anything that is not a letter, digit or underscore as a word boundary.
const DefaultSplitter = `[^\p{L}\p{N}_]`

// Config holds the entire config structure
type Config struct {
	Index  IndexConfig  `toml:"index" yaml:"index"`
	Server ServerConfig `toml:"server" yaml:"server"`
	CLI    CliConfig    `toml:"cli" yaml:"cli"`
}

// IndexConfig controls tokenization and which documents contribute words.
type IndexConfig struct {
	WhitespaceSplitter  string `toml:"whitespace_splitter" yaml:"whitespace_splitter"`
	ShowCurrentDocument bool   `toml:"show_current_document" yaml:"show_current_document"`
	MatchCase           bool   `toml:"match_case" yaml:"match_case"`
	MinWordLength       int    `toml:"min_word_length" yaml:"min_word_length"`
	SkipNumbers         bool   `toml:"skip_numbers" yaml:"skip_numbers"`
	MaxDocumentBytes    int    `toml:"max_document_bytes" yaml:"max_document_bytes"`
}

// ServerConfig has server related options.
type ServerConfig struct {
	MaxLimit       int `toml:"max_limit" yaml:"max_limit"`
	DefaultLimit   int `toml:"default_limit" yaml:"default_limit"`
	MaxPrefix      int `toml:"max_prefix" yaml:"max_prefix"`
	QueryTimeoutMs int `toml:"query_timeout_ms" yaml:"query_timeout_ms"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit" yaml:"default_limit"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", "wordlist")
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "wordlist")
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -config flag
// 2. Default path: [UserConfigDir]/wordlist/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			WhitespaceSplitter:  DefaultSplitter,
			ShowCurrentDocument: true,
			MatchCase:           false,
			MinWordLength:       2,
			SkipNumbers:         false,
			MaxDocumentBytes:    4 << 20,
		},
		Server: ServerConfig{
			MaxLimit:       64,
			DefaultLimit:   24,
			MaxPrefix:      60,
			QueryTimeoutMs: 250,
		},
		CLI: CliConfig{
			DefaultLimit: 24,
		},
	}
}

// Validate rejects values the index cannot work with.
func (c *Config) Validate() error {
	if c.Index.WhitespaceSplitter == "" {
		return fmt.Errorf("index.whitespace_splitter must not be empty")
	}
	splitter, err := regexp.Compile(c.Index.WhitespaceSplitter)
	if err != nil {
		return fmt.Errorf("index.whitespace_splitter: %w", err)
	}
	if splitter.MatchString("") {
		return fmt.Errorf("index.whitespace_splitter %q matches the empty string", c.Index.WhitespaceSplitter)
	}
	if c.Index.MinWordLength < 1 {
		return fmt.Errorf("index.min_word_length must be at least 1, got %d", c.Index.MinWordLength)
	}
	if c.Server.MaxLimit < 1 {
		return fmt.Errorf("server.max_limit must be at least 1, got %d", c.Server.MaxLimit)
	}
	if c.Server.DefaultLimit < 1 || c.Server.DefaultLimit > c.Server.MaxLimit {
		return fmt.Errorf("server.default_limit must be within 1..%d, got %d", c.Server.MaxLimit, c.Server.DefaultLimit)
	}
	return nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML or YAML file, picked by extension.
// Values missing from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if utils.IsYAMLPath(configPath) {
		if err := utils.LoadYAMLFile(configPath, config); err != nil {
			return nil, err
		}
	} else if err := utils.LoadTOMLFile(configPath, config); err != nil {
		config = tryPartialParse(configPath)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// tryPartialParse salvages whatever sections of a broken TOML file still decode.
func tryPartialParse(configPath string) *Config {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config
	}

	if indexSection, ok := utils.ExtractSection(tempConfig, "index"); ok {
		extractIndexConfig(indexSection, &config.Index)
	}
	if serverSection, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(serverSection, &config.Server)
	}
	if cliSection, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(cliSection, &config.CLI)
	}
	return config
}

func extractIndexConfig(data map[string]any, index *IndexConfig) {
	if val, ok := utils.ExtractString(data, "whitespace_splitter"); ok {
		index.WhitespaceSplitter = val
	}
	if val, ok := utils.ExtractBool(data, "show_current_document"); ok {
		index.ShowCurrentDocument = val
	}
	if val, ok := utils.ExtractBool(data, "match_case"); ok {
		index.MatchCase = val
	}
	if val, ok := utils.ExtractInt64(data, "min_word_length"); ok {
		index.MinWordLength = val
	}
	if val, ok := utils.ExtractBool(data, "skip_numbers"); ok {
		index.SkipNumbers = val
	}
	if val, ok := utils.ExtractInt64(data, "max_document_bytes"); ok {
		index.MaxDocumentBytes = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		server.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_prefix"); ok {
		server.MaxPrefix = val
	}
	if val, ok := utils.ExtractInt64(data, "query_timeout_ms"); ok {
		server.QueryTimeoutMs = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the index toggles and saves to file.
// A rejected update leaves c untouched.
func (c *Config) Update(configPath string, showCurrent, matchCase *bool, splitter *string) error {
	updated := *c
	if showCurrent != nil {
		updated.Index.ShowCurrentDocument = *showCurrent
	}
	if matchCase != nil {
		updated.Index.MatchCase = *matchCase
	}
	if splitter != nil {
		updated.Index.WhitespaceSplitter = *splitter
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	if err := SaveConfig(&updated, configPath); err != nil {
		return err
	}
	*c = updated
	return nil
}
