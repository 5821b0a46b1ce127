//go:build windows

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"
)

const (
	runKeyPath  = `Software\Microsoft\Windows\CurrentVersion\Run`
	runValueKey = "padctl"
)

func install(exe string, args []string, logger *slog.Logger) error {
	key, _, err := registry.CreateKey(registry.CURRENT_USER, runKeyPath, registry.ALL_ACCESS)
	if err != nil {
		return err
	}
	defer key.Close()

	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, strconv.Quote(exe))
	for _, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = strconv.Quote(a)
		}
		quoted = append(quoted, a)
	}
	if err := key.SetStringValue(runValueKey, strings.Join(quoted, " ")); err != nil {
		return err
	}

	stopInstances(exe, logger)
	if err := exec.Command(exe, args...).Start(); err != nil {
		return fmt.Errorf("failed to start padctl: %w", err)
	}
	logger.Info("padctl autorun installed", "exe", exe)
	return nil
}

func uninstall(logger *slog.Logger) error {
	exe, err := autorunExe()
	if err != nil {
		return err
	}

	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return err
	}
	if err == nil {
		defer key.Close()
		if err := key.DeleteValue(runValueKey); err != nil && !errors.Is(err, registry.ErrNotExist) {
			return err
		}
	}

	if exe != "" {
		stopInstances(exe, logger)
	}
	logger.Info("padctl autorun removed")
	return nil
}

func autorunExe() (string, error) {
	key, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer key.Close()

	val, _, err := key.GetStringValue(runValueKey)
	if errors.Is(err, registry.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	val = strings.TrimSpace(val)
	if unq, err := strconv.QuotedPrefix(val); err == nil {
		val, _ = strconv.Unquote(unq)
	} else if f := strings.Fields(val); len(f) > 0 {
		val = f[0]
	}
	if val == "" {
		return "", nil
	}
	return filepath.Clean(val), nil
}

// stopInstances kills other running copies of exe so the new entry takes over.
func stopInstances(exe string, logger *slog.Logger) {
	filter := fmt.Sprintf("PID ne %d", os.Getpid())
	out, err := exec.Command("taskkill", "/F", "/T", "/IM", filepath.Base(exe), "/FI", filter).CombinedOutput()
	if err != nil {
		logger.Debug("no running padctl to stop", "output", strings.TrimSpace(string(out)))
		return
	}
	logger.Info("stopped running padctl", "output", strings.TrimSpace(string(out)))
}
