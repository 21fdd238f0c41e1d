package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/muurk/ctrlpanel/internal/remote"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if configDir == "" {
		t.Error("GetConfigDir() returned empty string")
	}

	if !strings.Contains(configDir, "ctrlpanel") {
		t.Errorf("GetConfigDir() = %v, should contain 'ctrlpanel'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDirXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(dir, "ctrlpanel") {
		t.Errorf("GetConfigDir() = %s", got)
	}

	path, _ := GetRegistryPath()
	if filepath.Base(path) != "remotes.yaml" {
		t.Errorf("GetRegistryPath() = %s", path)
	}
	cache, _ := DefaultCacheDir()
	if cache != filepath.Join(dir, "ctrlpanel", "saved_pages") {
		t.Errorf("DefaultCacheDir() = %s", cache)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry("/tmp/x.yaml")

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.NextID != 1 {
		t.Errorf("NewRegistry().NextID = %v, want 1", reg.NextID)
	}
	if len(reg.Remotes) != 0 {
		t.Error("NewRegistry() should have no remotes")
	}
}

func TestRegistryAddGeneratedNames(t *testing.T) {
	reg := NewRegistry("")

	first, err := reg.Add("", "192.168.1.10:9874")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.Name != "Remote1" {
		t.Errorf("first generated name = %q", first.Name)
	}

	// a user-chosen name that collides with the next generated one
	if _, err := reg.Add("Remote2", "192.168.1.11:9874"); err != nil {
		t.Fatal(err)
	}

	third, err := reg.Add("", "192.168.1.12:9874")
	if err != nil {
		t.Fatal(err)
	}
	if third.Name != "Remote3" {
		t.Errorf("generated name = %q, want Remote3", third.Name)
	}

	// removing does not reuse numbers
	reg.Remove("Remote3")
	fourth, _ := reg.Add("", "192.168.1.13:9874")
	if fourth.Name != "Remote4" {
		t.Errorf("generated name = %q, want Remote4", fourth.Name)
	}
}

func TestRegistryAddErrors(t *testing.T) {
	reg := NewRegistry("")
	if _, err := reg.Add("bench", "10.0.0.1:9874"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		remote  string
		address string
	}{
		{"duplicate name", "bench", "10.0.0.2:9874"},
		{"hostname", "x", "device.local:9874"},
		{"missing port", "y", "10.0.0.1"},
		{"bad port", "z", "10.0.0.1:70000"},
		{"ipv6", "w", "[::1]:9874"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Add(tt.remote, tt.address); err == nil {
				t.Errorf("Add(%q, %q) should fail", tt.remote, tt.address)
			}
		})
	}
}

func TestRegistryUpdateRemove(t *testing.T) {
	reg := NewRegistry("")
	_, _ = reg.Add("a", "10.0.0.1:1")
	_, _ = reg.Add("b", "10.0.0.2:2")

	if err := reg.Update("a", "b", "10.0.0.1:1"); err == nil {
		t.Error("rename onto existing name should fail")
	}
	if err := reg.Update("a", "c", "10.0.0.9:9"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if reg.Get("a") != nil || reg.Get("c") == nil {
		t.Error("rename not applied")
	}
	if reg.Get("c").Address != "10.0.0.9:9" {
		t.Errorf("address = %s", reg.Get("c").Address)
	}
	if err := reg.Update("missing", "", "10.0.0.1:1"); err == nil {
		t.Error("Update of missing remote should fail")
	}

	if got := reg.FindByAddress(remote.New(10, 0, 0, 2, 2)); got == nil || got.Name != "b" {
		t.Errorf("FindByAddress = %+v", got)
	}

	if !reg.Remove("b") || reg.Remove("b") {
		t.Error("Remove should report existence once")
	}
	if len(reg.Remotes) != 1 {
		t.Errorf("remotes = %d", len(reg.Remotes))
	}
}

func TestRegistrySaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "remotes.yaml")

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() on missing file error = %v", err)
	}
	if _, err := reg.Add("bench", "192.168.1.40:9874"); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Add("", "10.0.0.5:9874"); err != nil {
		t.Fatal(err)
	}
	reg.MarkConnected("bench")

	if err := reg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if len(loaded.Remotes) != 2 {
		t.Fatalf("loaded %d remotes", len(loaded.Remotes))
	}
	if loaded.NextID != 2 {
		t.Errorf("NextID = %d, want 2", loaded.NextID)
	}
	bench := loaded.Get("bench")
	if bench == nil || bench.LastConnected.IsZero() {
		t.Errorf("bench = %+v", bench)
	}
	addr, err := bench.RemoteAddress()
	if err != nil || addr != remote.New(192, 168, 1, 40, 9874) {
		t.Errorf("RemoteAddress = %v, %v", addr, err)
	}
	if loaded.Path() != path {
		t.Errorf("Path() = %s", loaded.Path())
	}
}

func TestLoadRegistryRejectsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remotes.yaml")
	if err := os.WriteFile(path, []byte("version: 2\nremotes: []\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistryFrom(path); err == nil {
		t.Error("version 2 should be rejected")
	}

	if err := os.WriteFile(path, []byte("version: [\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistryFrom(path); err == nil {
		t.Error("malformed YAML should be rejected")
	}
}

func TestSaveWithoutPath(t *testing.T) {
	if err := NewRegistry("").Save(); err == nil {
		t.Error("Save() without a path should fail")
	}
}
