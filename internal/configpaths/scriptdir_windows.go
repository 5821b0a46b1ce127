//go:build windows

package configpaths

import (
	"os"
	"path/filepath"
)

// ScriptDir returns the directory searched for scripts given by name.
func ScriptDir() (string, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scripts"), nil
}

func systemConfigDir() string {
	if pd := os.Getenv("ProgramData"); pd != "" {
		return filepath.Join(pd, appName)
	}
	return ""
}
