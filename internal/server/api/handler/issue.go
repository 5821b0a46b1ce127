package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Alia5/padctl/apitypes"
	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/server/api"
)

// Issue returns a handler that schedules one command from a JSON
// apitypes.IssueRequest payload.
func Issue(c *controller.Controller) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if len(req.Args) == 0 {
			return errors.New("missing issue payload")
		}
		var in apitypes.IssueRequest
		if err := json.Unmarshal([]byte(req.Payload()), &in); err != nil {
			return fmt.Errorf("invalid issue payload: %w", err)
		}
		targets, err := controller.ParseTargets(c.Topology(), in.Targets)
		if err != nil {
			return err
		}
		if len(targets) == 0 {
			return errors.New("issue needs at least one target")
		}
		var timing controller.Timing
		if timing.Delay, err = parseDuration("delay", in.Delay); err != nil {
			return err
		}
		if timing.Hold, err = parseDuration("hold", in.Hold); err != nil {
			return err
		}
		if timing.Cooldown, err = parseDuration("cooldown", in.Cooldown); err != nil {
			return err
		}

		if in.Try {
			err = c.TryIssue(req.Ctx, timing, targets...)
		} else {
			err = c.Issue(req.Ctx, timing, targets...)
		}
		if err != nil {
			return err
		}
		logger.Debug("issued", "targets", in.Targets, "timing", timing)
		return respond(res, apitypes.PendingResponse{Pending: c.Pending()})
	}
}
