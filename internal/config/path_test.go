package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearDataDirEnv(t *testing.T) {
	t.Helper()
	t.Setenv(DataDirEnv, "")
	t.Setenv("XDG_DATA_HOME", "")
}

func TestDefaultDataDirOverride(t *testing.T) {
	clearDataDirEnv(t)
	t.Setenv(DataDirEnv, "/srv/battlelog")
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/srv/battlelog" {
		t.Fatalf("got %s", got)
	}
}

func TestDefaultDataDirXDG(t *testing.T) {
	clearDataDirEnv(t)
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got, want := DefaultDataDir(), filepath.Join("/custom/data", "battlelog"); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestDefaultDataDirNoHome(t *testing.T) {
	clearDataDirEnv(t)
	t.Setenv("HOME", "")
	if err := os.Unsetenv("HOME"); err != nil {
		t.Fatalf("unset HOME: %v", err)
	}
	if _, err := os.UserHomeDir(); err == nil {
		t.Skip("home directory resolvable without HOME")
	}
	if got := DefaultDataDir(); got != "./data" {
		t.Fatalf("got %s want ./data", got)
	}
}

func TestDefaultDataDirUnderHome(t *testing.T) {
	clearDataDirEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	result := DefaultDataDir()
	if !strings.HasPrefix(result, home) && !strings.Contains(result, "Battlelog") {
		t.Fatalf("expected a path under %s, got %s", home, result)
	}
	if !strings.HasSuffix(strings.ToLower(result), "battlelog") {
		t.Fatalf("expected a battlelog directory, got %s", result)
	}
}

func TestIsDir(t *testing.T) {
	if !isDir(".") {
		t.Fatalf("expected . to be a directory")
	}
	if isDir("/non/existent/path/that/does/not/exist") {
		t.Fatalf("missing path reported as directory")
	}
	if isDir(os.Args[0]) {
		t.Fatalf("test binary reported as directory")
	}
}
