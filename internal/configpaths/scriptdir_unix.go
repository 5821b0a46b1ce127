//go:build !windows

package configpaths

import (
	"os"
	"path/filepath"
)

// ScriptDir returns the directory searched for scripts given by name.
// On Unix, root services use /etc/padctl/scripts.
func ScriptDir() (string, error) {
	if os.Geteuid() == 0 {
		return filepath.Join(systemConfigDir(), "scripts"), nil
	}
	dir, err := DefaultConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "scripts"), nil
}

func systemConfigDir() string {
	return filepath.Join(string(os.PathSeparator), "etc", appName)
}
