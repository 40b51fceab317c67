package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func withTempHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)
	return tmpDir
}

func TestGetConfigDir(t *testing.T) {
	tmpDir := withTempHome(t)

	dir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir failed: %v", err)
	}

	expected := filepath.Join(tmpDir, ShellwardDirName)
	if dir != expected {
		t.Errorf("Expected %s, got %s", expected, dir)
	}
}

func TestInitConfigDefaults(t *testing.T) {
	withTempHome(t)

	cfg, err := InitConfig()
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}

	if cfg.AI.BaseURL == "" {
		t.Error("Expected default AI base URL")
	}
	if cfg.AI.Timeout != 25 {
		t.Errorf("Expected AI timeout 25, got %d", cfg.AI.Timeout)
	}
	if cfg.Execution.Timeout != 90 {
		t.Errorf("Expected execution timeout 90, got %d", cfg.Execution.Timeout)
	}
	if cfg.Log.MaxSizeMB != 10 {
		t.Errorf("Expected log max size 10, got %d", cfg.Log.MaxSizeMB)
	}
	if GetConfig() != cfg {
		t.Error("GetConfig must return the initialized config")
	}
}

func TestInitConfigReadsFile(t *testing.T) {
	tmpDir := withTempHome(t)

	configDir := filepath.Join(tmpDir, ShellwardDirName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	yaml := "execution:\n  timeout: 30\nsecurity:\n  extra_blacklist:\n    - kubectl\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(yaml), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := InitConfig()
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if cfg.Execution.Timeout != 30 {
		t.Errorf("Expected execution timeout 30 from file, got %d", cfg.Execution.Timeout)
	}
	if len(cfg.Security.ExtraBlacklist) != 1 || cfg.Security.ExtraBlacklist[0] != "kubectl" {
		t.Errorf("Expected extra blacklist from file, got %v", cfg.Security.ExtraBlacklist)
	}
}

func TestPathHelpers(t *testing.T) {
	tmpDir := withTempHome(t)

	credPath, err := CredentialPath()
	if err != nil {
		t.Fatalf("CredentialPath failed: %v", err)
	}
	if credPath != filepath.Join(tmpDir, ShellwardDirName, CredentialFileName) {
		t.Errorf("Unexpected credential path: %s", credPath)
	}

	logPath, err := ActivityLogPath()
	if err != nil {
		t.Fatalf("ActivityLogPath failed: %v", err)
	}
	if logPath != filepath.Join(tmpDir, ShellwardDirName, ActivityLogFileName) {
		t.Errorf("Unexpected log path: %s", logPath)
	}
}
