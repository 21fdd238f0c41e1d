package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appName      = "ctrlpanel"
	registryFile = "remotes.yaml"
	settingsFile = "settings.yaml"
	cacheDirName = "saved_pages"
)

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/ctrlpanel or $HOME/.config/ctrlpanel
//   - macOS: $HOME/.config/ctrlpanel
//   - Windows: %LOCALAPPDATA%\ctrlpanel
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetRegistryPath returns the full path to the device registry file.
func GetRegistryPath() (string, error) {
	return inConfigDir(registryFile)
}

// GetSettingsPath returns the full path to the optional settings file.
func GetSettingsPath() (string, error) {
	return inConfigDir(settingsFile)
}

// DefaultCacheDir returns the default page cache root.
func DefaultCacheDir() (string, error) {
	return inConfigDir(cacheDirName)
}

func inConfigDir(name string) (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
