// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/jeranaias/llmchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete llmchat configuration.
type Config struct {
	Version string `toml:"version" json:"version" validate:"required"`

	API     APIConfig     `toml:"api" json:"api"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
}

// APIConfig describes the OpenAI-compatible completion service.
type APIConfig struct {
	// BaseURL is the service root; "/models" and "/chat/completions" are
	// appended to it.
	BaseURL string `toml:"base_url" json:"base_url" validate:"required,http_url"`
	// APIKey is sent as a bearer token when non-empty.
	APIKey string `toml:"api_key" json:"api_key"`
	// DefaultModel is used for new sessions before any model is selected.
	DefaultModel string `toml:"default_model" json:"default_model"`
	// PreferredModel is auto-selected after the model list loads if nothing
	// else is selected and the service offers it.
	PreferredModel string `toml:"preferred_model" json:"preferred_model"`
	// ListTimeoutSecs bounds the model-list request.
	ListTimeoutSecs int `toml:"list_timeout_secs" json:"list_timeout_secs" validate:"gte=1,lte=300"`
}

// ListTimeout returns the model-list timeout as a duration.
func (a APIConfig) ListTimeout() time.Duration {
	return time.Duration(a.ListTimeoutSecs) * time.Second
}

// StorageConfig selects where the session collection is persisted.
type StorageConfig struct {
	// Backend is one of: file, sqlite, badger, postgres, memory.
	Backend string `toml:"backend" json:"backend" validate:"oneof=file sqlite badger postgres memory"`
	// DataDir holds the file, sqlite and badger stores (empty = ~/.llmchat).
	DataDir string `toml:"data_dir" json:"data_dir"`
	// PostgresURL is the connection string for the postgres backend.
	PostgresURL string `toml:"postgres_url" json:"postgres_url" validate:"required_if=Backend postgres"`
}

// ChatConfig tunes orchestrator behaviour.
type ChatConfig struct {
	// TitleWords is how many words of the first message become the title.
	TitleWords int `toml:"title_words" json:"title_words" validate:"gte=1,lte=32"`
	// ErrorMessage replaces the assistant reply when a request fails.
	ErrorMessage string `toml:"error_message" json:"error_message" validate:"required"`
}

// UIConfig contains presentation settings.
type UIConfig struct {
	Theme        string `toml:"theme" json:"theme" validate:"oneof=dark light auto"`
	Markdown     bool   `toml:"markdown" json:"markdown"`
	RenderFPS    int    `toml:"render_fps" json:"render_fps" validate:"gte=1,lte=60"`
	SidebarWidth int    `toml:"sidebar_width" json:"sidebar_width" validate:"gte=16,lte=80"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `toml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" json:"format" validate:"oneof=text json"`
	// File is the log sink (empty = ~/.llmchat/llmchat.log).
	File string `toml:"file" json:"file"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the server.
	Addr string `toml:"addr" json:"addr" validate:"omitempty,hostname_port"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultErrorMessage is the assistant reply shown when a request fails.
const DefaultErrorMessage = "Sorry, I encountered an error processing your request. Please try again."

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		API: APIConfig{
			BaseURL:         "https://llld.ai.esb.is-a.dev/v1",
			DefaultModel:    "",
			PreferredModel:  "deepseek-ai/DeepSeek-V3-0324",
			ListTimeoutSecs: 15,
		},

		Storage: StorageConfig{
			Backend: "file",
		},

		Chat: ChatConfig{
			TitleWords:   4,
			ErrorMessage: DefaultErrorMessage,
		},

		UI: UIConfig{
			Theme:        "dark",
			Markdown:     true,
			RenderFPS:    15,
			SidebarWidth: 28,
		},

		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the llmchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".llmchat"), nil
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

// DataDir returns the resolved storage directory, falling back to the
// config directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return ConfigDir()
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

// Load loads configuration from ~/.llmchat. TOML wins over JSON; with
// neither present the defaults are used. Environment overrides are applied
// last and the result is validated.
func Load() (*Config, error) {
	for _, candidate := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := candidate()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	return finish(Default())
}

// LoadFromPath loads configuration from a specific file. Files ending in
// .json are decoded as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	if strings.HasSuffix(path, ".json") {
		err = LoadJSON(cfg, path)
	} else {
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
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
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills zero values left behind by a partial config file.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.ListTimeoutSecs == 0 {
		cfg.API.ListTimeoutSecs = defaults.API.ListTimeoutSecs
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
	if cfg.Chat.TitleWords == 0 {
		cfg.Chat.TitleWords = defaults.Chat.TitleWords
	}
	if strings.TrimSpace(cfg.Chat.ErrorMessage) == "" {
		cfg.Chat.ErrorMessage = defaults.Chat.ErrorMessage
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.RenderFPS == 0 {
		cfg.UI.RenderFPS = defaults.UI.RenderFPS
	}
	if cfg.UI.SidebarWidth == 0 {
		cfg.UI.SidebarWidth = defaults.UI.SidebarWidth
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# llmchat configuration file\n")
	b.WriteString("# Generated by llmchat - edit with care\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, []byte(b.String()), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON with 0600 permissions.
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
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their TOML key so messages match the file.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the configuration against its struct constraints.
// It returns ValidateErrors listing every offending field in dot notation.
func (c *Config) Validate() error {
	err := structValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := make(ValidateErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		errs = append(errs, ValidationError{Field: field, Message: describe(fe)})
	}
	return errs
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("invalid value %q, must be one of: %s", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "http_url":
		return fmt.Sprintf("invalid URL %q", fe.Value())
	case "hostname_port":
		return fmt.Sprintf("invalid listen address %q, expected host:port", fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - LLMCHAT_BASE_URL: overrides api.base_url
//   - LLMCHAT_MODEL: overrides api.default_model
//   - LLMCHAT_API_KEY: overrides api.api_key
//   - LLMCHAT_STORE: overrides storage.backend
//   - LLMCHAT_DATA_DIR: overrides storage.data_dir
//   - LLMCHAT_POSTGRES_URL: overrides storage.postgres_url
//   - LLMCHAT_LOG_LEVEL: overrides log.level
//   - LLMCHAT_METRICS_ADDR: overrides metrics.addr
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"LLMCHAT_BASE_URL", &c.API.BaseURL},
		{"LLMCHAT_MODEL", &c.API.DefaultModel},
		{"LLMCHAT_API_KEY", &c.API.APIKey},
		{"LLMCHAT_STORE", &c.Storage.Backend},
		{"LLMCHAT_DATA_DIR", &c.Storage.DataDir},
		{"LLMCHAT_POSTGRES_URL", &c.Storage.PostgresURL},
		{"LLMCHAT_LOG_LEVEL", &c.Log.Level},
		{"LLMCHAT_METRICS_ADDR", &c.Metrics.Addr},
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

// Get retrieves a configuration value using dot notation (e.g. "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's kind.
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
				return reflect.Value{}, fmt.Errorf("field '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent ("base_url" -> "BaseUrl", matched case-insensitively).
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
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strVal)
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
			}
			field.SetBool(boolVal)
			return nil
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

// GetAllKeys returns every leaf configuration key in dot notation.
func GetAllKeys() []string {
	var keys []string
	var walk func(prefix string, t reflect.Type)
	walk = func(prefix string, t reflect.Type) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
			if name == "" {
				continue
			}
			if prefix != "" {
				name = prefix + "." + name
			}
			if f.Type.Kind() == reflect.Struct {
				walk(name, f.Type)
				continue
			}
			keys = append(keys, name)
		}
	}
	walk("", reflect.TypeOf(Config{}))
	return keys
}

// Clone returns a copy of the configuration. Config holds only value
// fields, so a struct copy is deep.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the config as JSON with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.API.APIKey != "" {
		safe.API.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
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

// Global returns the process-wide configuration, loading it on first
// access. Load failures fall back to defaults with a warning.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
