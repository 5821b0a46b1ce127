package handler

import (
	"errors"
	"log/slog"

	"github.com/Alia5/padctl/apitypes"
	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/server/api"
)

// Wait returns a handler that advances the issue cursor, e.g. "wait 250ms".
func Wait(c *controller.Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		if len(req.Args) != 1 {
			return errors.New("usage: wait <duration>")
		}
		d, err := parseDuration("duration", req.Args[0])
		if err != nil {
			return err
		}
		if err := c.Wait(req.Ctx, d); err != nil {
			return err
		}
		return respond(res, apitypes.PendingResponse{Pending: c.Pending()})
	}
}

// WaitAll returns a handler that blocks until the scheduled commands have
// been played.
func WaitAll(c *controller.Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		if err := c.WaitForAll(req.Ctx); err != nil {
			return err
		}
		return respond(res, apitypes.PendingResponse{Pending: c.Pending()})
	}
}
