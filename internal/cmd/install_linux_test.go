//go:build linux

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitFile(t *testing.T) {
	unit := unitFile("/opt/pad ctl/padctl", []string{"serve", "--config", "/etc/padctl/config.yaml"})
	assert.Contains(t, unit, "ExecStart=\"/opt/pad ctl/padctl\" serve --config /etc/padctl/config.yaml\n")
	assert.Contains(t, unit, "WantedBy=default.target")
}
