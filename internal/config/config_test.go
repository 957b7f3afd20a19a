package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pdf-layout-translator/internal/types"
)

func TestNewConfigManager(t *testing.T) {
	t.Run("with custom path", func(t *testing.T) {
		customPath := filepath.Join(t.TempDir(), "cfg.json")
		cm, err := NewConfigManager(customPath)
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if cm.GetConfigPath() != customPath {
			t.Errorf("expected config path %s, got %s", customPath, cm.GetConfigPath())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		cm, err := NewConfigManager("")
		if err != nil {
			t.Fatalf("NewConfigManager failed: %v", err)
		}
		if filepath.Base(cm.GetConfigPath()) != DefaultConfigFileName {
			t.Errorf("unexpected default path %s", cm.GetConfigPath())
		}
	})
}

func TestConfigManager_LoadSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sub", "test-config.json")

	t.Run("Load with non-existent file uses defaults", func(t *testing.T) {
		cm, _ := NewConfigManager(configPath)
		if err := cm.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		cfg := cm.GetConfig()
		if cfg.Workers != DefaultWorkers {
			t.Errorf("expected %d workers, got %d", DefaultWorkers, cfg.Workers)
		}
		if cfg.MaxAttempts != DefaultMaxAttempts {
			t.Errorf("expected %d attempts, got %d", DefaultMaxAttempts, cfg.MaxAttempts)
		}
		if cfg.MinFontSize != DefaultMinFontSize {
			t.Errorf("expected min font size %v, got %v", DefaultMinFontSize, cfg.MinFontSize)
		}
	})

	t.Run("Save then Load round trips", func(t *testing.T) {
		cm, _ := NewConfigManager(configPath)
		cm.SetConfig(&types.Config{
			Service:     "http",
			TargetLang:  "ja",
			Workers:     4,
			LineSpacing: 1.5,
		})
		if err := cm.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		info, err := os.Stat(configPath)
		if err != nil {
			t.Fatalf("config file not written: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
		}

		loaded, _ := NewConfigManager(configPath)
		if err := loaded.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		cfg := loaded.GetConfig()
		if cfg.Service != "http" || cfg.TargetLang != "ja" || cfg.Workers != 4 || cfg.LineSpacing != 1.5 {
			t.Errorf("saved values not restored: %+v", cfg)
		}
		// zero fields get defaults
		if cfg.SourceLang != DefaultSourceLang {
			t.Errorf("expected default source lang, got %q", cfg.SourceLang)
		}
		if cfg.ReflowMaxIter != DefaultReflowIter {
			t.Errorf("expected default reflow iterations, got %d", cfg.ReflowMaxIter)
		}
	})

	t.Run("invalid JSON falls back to defaults", func(t *testing.T) {
		badPath := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(badPath, []byte("{not json"), 0600); err != nil {
			t.Fatal(err)
		}
		cm, _ := NewConfigManager(badPath)
		if err := cm.Load(); err != nil {
			t.Fatalf("Load should not fail on invalid JSON: %v", err)
		}
		if cm.GetConfig().Service != DefaultService {
			t.Errorf("expected default service, got %q", cm.GetConfig().Service)
		}
	})
}

func TestEnvironmentFallbacks(t *testing.T) {
	cm, _ := NewConfigManager(filepath.Join(t.TempDir(), "cfg.json"))
	cm.SetConfig(&types.Config{})

	t.Setenv(EnvOpenAIAPIKey, "sk-env")
	t.Setenv(EnvOpenAIBaseURL, "http://localhost:8080/v1")
	t.Setenv(EnvOpenAIModel, "env-model")

	if got := cm.GetAPIKey(); got != "sk-env" {
		t.Errorf("GetAPIKey() = %q", got)
	}
	if got := cm.GetBaseURL(); got != "http://localhost:8080/v1" {
		t.Errorf("GetBaseURL() = %q", got)
	}
	if got := cm.GetModel(); got != "env-model" {
		t.Errorf("GetModel() = %q", got)
	}

	cm.SetConfig(&types.Config{OpenAIAPIKey: "sk-file", OpenAIBaseURL: "http://file/v1"})
	if got := cm.GetAPIKey(); got != "sk-file" {
		t.Errorf("config value should win over env, got %q", got)
	}
	if got := cm.GetBaseURL(); got != "http://file/v1" {
		t.Errorf("config value should win over env, got %q", got)
	}
}

func TestGetters(t *testing.T) {
	cm, _ := NewConfigManager(filepath.Join(t.TempDir(), "cfg.json"))
	cm.SetConfig(&types.Config{})

	if cm.GetWorkers() != DefaultWorkers {
		t.Errorf("GetWorkers() = %d", cm.GetWorkers())
	}
	if cm.GetMaxAttempts() != DefaultMaxAttempts {
		t.Errorf("GetMaxAttempts() = %d", cm.GetMaxAttempts())
	}
	if cm.GetRetryDelay() != time.Second {
		t.Errorf("GetRetryDelay() = %v", cm.GetRetryDelay())
	}

	cm.SetConfig(&types.Config{Workers: 8, MaxAttempts: 5, RetryDelayMs: 20})
	if cm.GetWorkers() != 8 || cm.GetMaxAttempts() != 5 || cm.GetRetryDelay() != 20*time.Millisecond {
		t.Errorf("configured values not returned")
	}
}
