package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultRecordDir(t *testing.T) {
	tests := []struct {
		name     string
		setupEnv func(t *testing.T)
		check    func(t *testing.T, got string)
	}{
		{
			name:     "XDG_DATA_HOME override",
			setupEnv: func(t *testing.T) { t.Setenv("XDG_DATA_HOME", "/custom/data") },
			check: func(t *testing.T, got string) {
				if got != "/custom/data/rtstream/records" {
					t.Errorf("got %s", got)
				}
			},
		},
		{
			name: "no home",
			setupEnv: func(t *testing.T) {
				t.Setenv("XDG_DATA_HOME", "")
				t.Setenv("HOME", "")
			},
			check: func(t *testing.T, got string) {
				if got != "./rtstream-records" {
					t.Errorf("expected fallback, got %s", got)
				}
			},
		},
		{
			name: "home dir",
			setupEnv: func(t *testing.T) {
				t.Setenv("XDG_DATA_HOME", "")
				t.Setenv("HOME", t.TempDir())
			},
			check: func(t *testing.T, got string) {
				if !filepath.IsAbs(got) || !strings.HasSuffix(got, filepath.Join("rtstream", "records")) {
					t.Errorf("unexpected path %s", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv(t)
			tt.check(t, DefaultRecordDir())
		})
	}
}

func TestIsDir(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "existing directory", path: ".", expected: true},
		{name: "non-existent path", path: "/non/existent/path/that/does/not/exist", expected: false},
		{name: "file instead of directory", path: os.Args[0], expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDir(tt.path); got != tt.expected {
				t.Errorf("isDir(%s) = %v, expected %v", tt.path, got, tt.expected)
			}
		})
	}
}
