package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DataDirEnv overrides DefaultDataDir.
const DataDirEnv = "BATTLELOG_DATA_DIR"

// DefaultDataDir returns where the store and audit files live when no
// --data-dir is given.
func DefaultDataDir() string {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "battlelog")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Battlelog")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "Battlelog")
		}
		return filepath.Join(home, "AppData", "Local", "Battlelog")
	}
	if isDir(filepath.Join(home, ".local", "share")) {
		return filepath.Join(home, ".local", "share", "battlelog")
	}
	return filepath.Join(home, ".battlelog")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
