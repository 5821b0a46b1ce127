package handler

import (
	"log/slog"

	"github.com/Alia5/padctl/apitypes"
	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/server/api"
)

// Cancel returns a handler that drops everything queued and releases the
// controller.
func Cancel(c *controller.Controller) api.HandlerFunc {
	return func(_ *api.Request, res *api.Response, logger *slog.Logger) error {
		n := c.CancelAll()
		logger.Info("cancelled all commands", "dropped", n)
		return respond(res, apitypes.DroppedResponse{Dropped: n})
	}
}

// Replace returns a handler that makes the next issued command replace the
// queue.
func Replace(c *controller.Controller) api.HandlerFunc {
	return func(_ *api.Request, res *api.Response, _ *slog.Logger) error {
		return respond(res, apitypes.DroppedResponse{Dropped: c.ReplaceOnNext()})
	}
}
