// Package xdg provides XDG Base Directory Specification compliant paths
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "worktreectl"

// ConfigDir returns the XDG config directory for worktreectl
// Priority: XDG_CONFIG_HOME > ~/.config/worktreectl
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for worktreectl
// Priority: XDG_DATA_HOME > ~/.local/share/worktreectl
func DataDir() (string, error) {
	return resolve("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func resolve(envVar, homeRel string) (string, error) {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, appName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, homeRel, appName), nil
}
