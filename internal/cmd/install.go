package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Install registers "padctl serve" to start with the user session.
type Install struct {
	ServeConfig string `help:"Configuration file the installed service reads" type:"path"`
}

// Uninstall removes the startup entry created by install.
type Uninstall struct{}

func (c *Install) Run(logger *slog.Logger) error {
	exe, err := currentExecutable()
	if err != nil {
		return err
	}
	args := []string{"serve"}
	if c.ServeConfig != "" {
		args = append(args, "--config", c.ServeConfig)
	}
	return install(exe, args, logger)
}

func (c *Uninstall) Run(logger *slog.Logger) error {
	if _, err := currentExecutable(); err != nil {
		return err
	}
	return uninstall(logger)
}

func currentExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if strings.Contains(exe, "go-build") {
		return "", errors.New("cannot install from 'go run'")
	}
	return filepath.Abs(exe)
}
