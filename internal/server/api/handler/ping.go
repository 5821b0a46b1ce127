package handler

import (
	"log/slog"

	"github.com/Alia5/padctl/apitypes"
	"github.com/Alia5/padctl/internal/server/api"
	"github.com/Alia5/padctl/internal/version"
)

// Ping returns a handler for the "ping" endpoint.
// It provides a minimal identity + version response.
func Ping() api.HandlerFunc {
	return func(_ *api.Request, res *api.Response, logger *slog.Logger) error {
		ver, err := version.Get()
		if err != nil {
			logger.Error("ping: invalid version format", "error", err, "version", ver)
		}
		return respond(res, apitypes.PingResponse{Server: "padctl", Version: ver})
	}
}
