// Package config loads and persists the translator configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/types"
)

const (
	DefaultConfigFileName = "pdf-layout-translator-config.json"

	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvOpenAIModel   = "OPENAI_MODEL"

	DefaultService     = "openai"
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4.1"
	DefaultSourceLang  = "en"
	DefaultTargetLang  = "zh"
	DefaultWorkers     = 1
	DefaultMaxAttempts = 3
	// DefaultRetryDelayMs is the fixed pause between attempts on one paragraph
	DefaultRetryDelayMs = 1000
	DefaultBodyFont     = "Times-Roman"
	DefaultLineSpacing  = 1.2
	DefaultMinFontSize  = 4.0
	DefaultReflowIter   = 10
	// DefaultLayoutConfidence drops detections below this score
	DefaultLayoutConfidence = 0.25
	DefaultLogLevel         = "info"
)

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a ConfigManager for configPath. An empty path
// resolves to ~/.config/pdf-layout-translator/.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "pdf-layout-translator", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

func defaultConfig() *types.Config {
	return &types.Config{
		Service:          DefaultService,
		OpenAIBaseURL:    DefaultBaseURL,
		OpenAIModel:      DefaultModel,
		SourceLang:       DefaultSourceLang,
		TargetLang:       DefaultTargetLang,
		Workers:          DefaultWorkers,
		MaxAttempts:      DefaultMaxAttempts,
		RetryDelayMs:     DefaultRetryDelayMs,
		BodyFont:         DefaultBodyFont,
		LineSpacing:      DefaultLineSpacing,
		MinFontSize:      DefaultMinFontSize,
		ReflowMaxIter:    DefaultReflowIter,
		LayoutConfidence: DefaultLayoutConfidence,
		LogLevel:         DefaultLogLevel,
	}
}

// Load reads the config file. A missing file or invalid JSON falls back to
// defaults; zero fields are filled with defaults afterwards.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
		logger.Info("config file not found, using defaults", logger.String("path", m.configPath))
		m.config = defaultConfig()
	} else {
		config := &types.Config{}
		if err := json.Unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			logger.Info("configuration loaded",
				logger.String("path", m.configPath),
				logger.String("service", config.Service),
				logger.String("model", config.OpenAIModel),
				logger.Int("workers", config.Workers))
			m.config = config
		}
	}

	applyDefaults(m.config)
	return nil
}

func applyDefaults(c *types.Config) {
	d := defaultConfig()
	if c.Service == "" {
		c.Service = d.Service
	}
	if c.OpenAIModel == "" {
		c.OpenAIModel = d.OpenAIModel
	}
	if c.SourceLang == "" {
		c.SourceLang = d.SourceLang
	}
	if c.TargetLang == "" {
		c.TargetLang = d.TargetLang
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RetryDelayMs < 0 {
		c.RetryDelayMs = 0
	} else if c.RetryDelayMs == 0 {
		c.RetryDelayMs = d.RetryDelayMs
	}
	if c.BodyFont == "" {
		c.BodyFont = d.BodyFont
	}
	if c.LineSpacing <= 0 {
		c.LineSpacing = d.LineSpacing
	}
	if c.MinFontSize <= 0 {
		c.MinFontSize = d.MinFontSize
	}
	if c.ReflowMaxIter <= 0 {
		c.ReflowMaxIter = d.ReflowMaxIter
	}
	if c.LayoutConfidence <= 0 {
		c.LayoutConfidence = d.LayoutConfidence
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Save writes the current configuration as indented JSON (mode 0600).
func (m *ConfigManager) Save() error {
	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// GetAPIKey prefers the config file value and falls back to OPENAI_API_KEY.
func (m *ConfigManager) GetAPIKey() string {
	if m.config != nil && m.config.OpenAIAPIKey != "" {
		return m.config.OpenAIAPIKey
	}
	return os.Getenv(EnvOpenAIAPIKey)
}

// GetBaseURL prefers the config file value, then OPENAI_BASE_URL, then the default.
func (m *ConfigManager) GetBaseURL() string {
	if m.config != nil && m.config.OpenAIBaseURL != "" {
		return m.config.OpenAIBaseURL
	}
	if envURL := os.Getenv(EnvOpenAIBaseURL); envURL != "" {
		return envURL
	}
	return DefaultBaseURL
}

// GetModel lets OPENAI_MODEL override the configured model.
func (m *ConfigManager) GetModel() string {
	if env := os.Getenv(EnvOpenAIModel); env != "" {
		return env
	}
	if m.config != nil && m.config.OpenAIModel != "" {
		return m.config.OpenAIModel
	}
	return DefaultModel
}

func (m *ConfigManager) GetWorkers() int {
	if m.config != nil && m.config.Workers > 0 {
		return m.config.Workers
	}
	return DefaultWorkers
}

func (m *ConfigManager) GetMaxAttempts() int {
	if m.config != nil && m.config.MaxAttempts > 0 {
		return m.config.MaxAttempts
	}
	return DefaultMaxAttempts
}

// GetRetryDelay returns the fixed backoff between translation attempts.
func (m *ConfigManager) GetRetryDelay() time.Duration {
	if m.config != nil && m.config.RetryDelayMs > 0 {
		return time.Duration(m.config.RetryDelayMs) * time.Millisecond
	}
	return DefaultRetryDelayMs * time.Millisecond
}
