package handler

import (
	"log/slog"

	"github.com/Alia5/padctl/apitypes"
	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/server/api"
)

func Status(c *controller.Controller) api.HandlerFunc {
	return func(_ *api.Request, res *api.Response, _ *slog.Logger) error {
		s := c.State()
		out := apitypes.StatusResponse{
			Topology: c.Topology().Name(),
			Mode:     s.Mode.String(),
			Dispatch: s.Dispatch.String(),
			Current:  s.Current.String(),
			Pending:  s.Pending,
			Sent:     s.Sent,
		}
		if s.Err != nil {
			out.Fault = s.Err.Error()
		}
		return respond(res, out)
	}
}

// Topology lists the controller's resources in id order.
func Topology(c *controller.Controller) api.HandlerFunc {
	return func(_ *api.Request, res *api.Response, _ *slog.Logger) error {
		topo := c.Topology()
		out := apitypes.TopologyResponse{Name: topo.Name()}
		for _, r := range topo.Resources() {
			out.Resources = append(out.Resources, apitypes.Resource{Name: r.Name, Kind: r.Kind.String()})
		}
		return respond(res, out)
	}
}
