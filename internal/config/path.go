package config

import (
	"os"
	"path/filepath"
)

// DefaultRecordDir returns the per-user directory for recorded messages.
// The recorder is a user tool, so system dirs like /var/lib are not used.
func DefaultRecordDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "rtstream", "records")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./rtstream-records"
	}
	// macOS
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "rtstream", "records")
	}
	return filepath.Join(homeDir, ".local", "share", "rtstream", "records")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
