package handler

import (
	"errors"
	"log/slog"

	"github.com/Alia5/padctl/apitypes"
	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/server/api"
)

// Request forwards the payload over the controller's transport and returns
// the reply.
func Request(c *controller.Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		if len(req.Args) == 0 {
			return errors.New("missing request payload")
		}
		out, err := c.Request(req.Ctx, []byte(req.Payload()))
		if err != nil {
			return err
		}
		return respond(res, apitypes.RequestResponse{Payload: string(out)})
	}
}
