//go:build linux

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

	"github.com/Alia5/padctl/internal/configpaths"
)

const unitName = "padctl.service"

func unitPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "systemd", "user", unitName), nil
}

func unitFile(exe string, args []string) string {
	cmd := make([]string, 0, len(args)+1)
	for _, a := range append([]string{exe}, args...) {
		if strings.ContainsAny(a, " \t\"") {
			a = strconv.Quote(a)
		}
		cmd = append(cmd, a)
	}
	var b strings.Builder
	b.WriteString("[Unit]\n")
	b.WriteString("Description=padctl controller service\n")
	b.WriteString("After=network-online.target\n\n")
	b.WriteString("[Service]\n")
	fmt.Fprintf(&b, "ExecStart=%s\n", strings.Join(cmd, " "))
	b.WriteString("Restart=on-failure\n")
	b.WriteString("RestartSec=2\n\n")
	b.WriteString("[Install]\n")
	b.WriteString("WantedBy=default.target\n")
	return b.String()
}

func install(exe string, args []string, logger *slog.Logger) error {
	path, err := unitPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(unitFile(exe, args)), 0o644); err != nil {
		return err
	}
	if dir, err := configpaths.ScriptDir(); err == nil {
		_ = os.MkdirAll(dir, 0o755)
	}
	if err := systemctl(logger, "daemon-reload"); err != nil {
		return err
	}
	if err := systemctl(logger, "enable", "--now", unitName); err != nil {
		return err
	}
	logger.Info("padctl user service installed", "unit", path)
	return nil
}

func uninstall(logger *slog.Logger) error {
	path, err := unitPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Info("padctl user service is not installed")
		return nil
	}
	if err := systemctl(logger, "disable", "--now", unitName); err != nil {
		logger.Warn("failed to disable service", "error", err)
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	if err := systemctl(logger, "daemon-reload"); err != nil {
		return err
	}
	logger.Info("padctl user service removed")
	return nil
}

func systemctl(logger *slog.Logger, args ...string) error {
	args = append([]string{"--user"}, args...)
	out, err := exec.Command("systemctl", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	logger.Debug("systemctl", "args", args)
	return nil
}
