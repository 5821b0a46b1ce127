// Package config defines the CLI structure and configuration for padctl.
package config

import (
	"github.com/Alia5/padctl/internal/cmd"
)

type Log struct {
	Level   string `help:"Log level: trace, debug, info, warn, error" default:"info" env:"PADCTL_LOG_LEVEL"`
	File    string `help:"Log file path (default: none; logs only to console)" env:"PADCTL_LOG_FILE"`
	RawFile string `help:"Raw wire log file path (default: none)" env:"PADCTL_LOG_RAW_FILE"`
}

// CLI is the root command structure for Kong CLI parsing.
type CLI struct {
	Config string `help:"Configuration file (json, yaml or toml)" placeholder:"FILE" env:"PADCTL_CONFIG"`
	Log    `embed:"" prefix:"log."`

	Serve     cmd.Serve     `cmd:"" help:"Drive a controller from the line based control API"`
	Run       cmd.Run       `cmd:"" help:"Play a script"`
	Press     cmd.Press     `cmd:"" help:"Press targets once and release them"`
	Relay     cmd.Relay     `cmd:"" help:"Apply operations from a remote padctl to a local transport"`
	Ports     cmd.Ports     `cmd:"" help:"List serial ports"`
	Install   cmd.Install   `cmd:"" help:"Start padctl serve with the user session"`
	Uninstall cmd.Uninstall `cmd:"" help:"Remove the startup entry created by install"`
	Version   cmd.Version   `cmd:"" help:"Print the version"`
}
