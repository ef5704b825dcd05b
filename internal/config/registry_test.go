package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "useradmin") {
		t.Errorf("GetConfigDir() = %v, should contain 'useradmin'", configDir)
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if want := filepath.Join(dir, "useradmin"); got != want {
		t.Errorf("GetConfigDir() = %v, want %v", got, want)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	want := filepath.Join(t.TempDir(), "custom.yaml")
	t.Setenv(ConfigPathEnvVar, want)

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if got != want {
		t.Errorf("GetConfigPath() = %v, want %v", got, want)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}

	name, p := reg.Current()
	if name != DefaultProfileName {
		t.Errorf("Current() name = %v, want %v", name, DefaultProfileName)
	}
	if p.BaseURL != DefaultBaseURL {
		t.Errorf("Current() BaseURL = %v, want %v", p.BaseURL, DefaultBaseURL)
	}
	if p.Category() != "user" {
		t.Errorf("Category() = %v, want user", p.Category())
	}
	if reg.Preferences.SearchDebounce() != 800*time.Millisecond {
		t.Errorf("SearchDebounce() = %v, want 800ms", reg.Preferences.SearchDebounce())
	}
}

func TestRegistryEnsureProfile(t *testing.T) {
	reg := NewRegistry()

	p1 := reg.EnsureProfile("staging")
	if p1 == nil {
		t.Fatal("EnsureProfile() returned nil")
	}

	if p2 := reg.EnsureProfile("staging"); p1 != p2 {
		t.Error("EnsureProfile() should return same instance for same name")
	}

	if p3 := reg.EnsureProfile("prod"); p1 == p3 {
		t.Error("EnsureProfile() should create new instance for different name")
	}
}

func TestRegistrySetProfile(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		url     string
		wantErr bool
	}{
		{"valid http", "dev", "http://localhost:8000/", false},
		{"valid https", "prod", "https://api.example.com", false},
		{"missing scheme", "bad", "localhost:8000", true},
		{"ftp scheme", "bad", "ftp://example.com", true},
		{"empty name", "", "http://localhost:8000", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			err := reg.SetProfile(tt.profile, tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetProfile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && strings.HasSuffix(reg.GetProfile(tt.profile).BaseURL, "/") {
				t.Errorf("BaseURL %q should have trailing slash trimmed", reg.GetProfile(tt.profile).BaseURL)
			}
		})
	}
}

func TestRegistryUseProfile(t *testing.T) {
	reg := NewRegistry()

	if err := reg.UseProfile("missing"); err == nil {
		t.Error("UseProfile() should fail for unknown profile")
	}

	if err := reg.SetProfile("staging", "http://staging:8000"); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}
	if err := reg.UseProfile("staging"); err != nil {
		t.Fatalf("UseProfile() error = %v", err)
	}

	name, p := reg.Current()
	if name != "staging" || p.BaseURL != "http://staging:8000" {
		t.Errorf("Current() = %v %v, want staging http://staging:8000", name, p.BaseURL)
	}
}

func TestRegistryProfileNames(t *testing.T) {
	reg := NewRegistry()
	reg.EnsureProfile("zeta")
	reg.EnsureProfile("alpha")

	got := reg.ProfileNames()
	want := []string{"alpha", "local", "zeta"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ProfileNames() = %v, want %v", got, want)
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	if err := reg.SetProfile("staging", "https://staging.example.com"); err != nil {
		t.Fatalf("SetProfile() error = %v", err)
	}
	reg.GetProfile("staging").PageSize = 25
	reg.CurrentProfile = "staging"

	if err := reg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if loaded.CurrentProfile != "staging" {
		t.Errorf("CurrentProfile = %v, want staging", loaded.CurrentProfile)
	}
	p := loaded.GetProfile("staging")
	if p == nil {
		t.Fatal("staging profile should exist in loaded registry")
	}
	if p.BaseURL != "https://staging.example.com" {
		t.Errorf("BaseURL = %v, want https://staging.example.com", p.BaseURL)
	}
	if p.PageSize != 25 {
		t.Errorf("PageSize = %v, want 25", p.PageSize)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	reg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if reg.Version != 1 {
		t.Errorf("Version = %v, want 1", reg.Version)
	}
}

func TestLoadFile_BadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() should reject unsupported versions")
	}
}

func TestLoadFile_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "version: 1\nprofiles:\n  empty:\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if reg.Preferences == nil {
		t.Error("Preferences should be filled with defaults")
	}
	if p := reg.GetProfile("empty"); p == nil || p.BaseURL != DefaultBaseURL {
		t.Errorf("empty profile = %+v, want default base URL", p)
	}
}

func TestProfileTimeout(t *testing.T) {
	p := &Profile{}
	if p.Timeout() != 10*time.Second {
		t.Errorf("Timeout() = %v, want 10s", p.Timeout())
	}
	p.TimeoutSeconds = 3
	if p.Timeout() != 3*time.Second {
		t.Errorf("Timeout() = %v, want 3s", p.Timeout())
	}
}
