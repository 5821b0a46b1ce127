package cmd

import (
	"fmt"
	"log/slog"

	"github.com/Alia5/padctl/internal/version"
	"github.com/Alia5/padctl/transport/serial"
)

// Ports lists serial ports a bridge board could be attached to.
type Ports struct{}

// Run is called by Kong when the ports command is executed.
func (p *Ports) Run(logger *slog.Logger) error {
	ports, err := serial.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		logger.Info("no serial ports found")
		return nil
	}
	for _, port := range ports {
		fmt.Println(port)
	}
	return nil
}

// Version prints the build version.
type Version struct{}

// Run is called by Kong when the version command is executed.
func (v *Version) Run() error {
	ver, err := version.Get()
	if err != nil {
		return err
	}
	fmt.Println(ver)
	return nil
}
