// Package configpaths resolves where padctl looks for its configuration and
// scripts.
package configpaths

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "padctl"

// DefaultConfigDir returns the per-user padctl configuration directory.
func DefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// ConfigCandidatePaths returns the JSON, YAML and TOML files kong should try,
// in priority order. An explicit user file short-circuits the search and is
// only offered to the loader matching its extension.
func ConfigCandidatePaths(userCfg string) (jsonPaths, yamlPaths, tomlPaths []string) {
	if userCfg != "" {
		switch strings.ToLower(filepath.Ext(userCfg)) {
		case ".yaml", ".yml":
			return nil, []string{userCfg}, nil
		case ".toml":
			return nil, nil, []string{userCfg}
		default:
			return []string{userCfg}, nil, nil
		}
	}

	dirs := []string{"."}
	if dir, err := DefaultConfigDir(); err == nil {
		dirs = append(dirs, dir)
	}
	if dir := systemConfigDir(); dir != "" {
		dirs = append(dirs, dir)
	}
	for _, d := range dirs {
		jsonPaths = append(jsonPaths, filepath.Join(d, "config.json"))
		yamlPaths = append(yamlPaths, filepath.Join(d, "config.yaml"), filepath.Join(d, "config.yml"))
		tomlPaths = append(tomlPaths, filepath.Join(d, "config.toml"))
	}
	return jsonPaths, yamlPaths, tomlPaths
}

// ResolveScript finds a script by name. Paths that exist are returned as is;
// bare names are looked up in the script directory with each supported
// extension.
func ResolveScript(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	dir, err := ScriptDir()
	if err != nil {
		return "", err
	}
	candidates := []string{filepath.Join(dir, name)}
	if filepath.Ext(name) == "" {
		for _, ext := range []string{".yaml", ".yml", ".toml", ".json"} {
			candidates = append(candidates, filepath.Join(dir, name+ext))
		}
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
}
