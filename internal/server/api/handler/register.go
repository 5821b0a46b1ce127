package handler

import (
	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/server/api"
)

// RegisterAll wires every control endpoint to c.
func RegisterAll(r *api.Router, c *controller.Controller) {
	r.Register("ping", Ping())
	r.Register("issue", Issue(c))
	r.Register("wait", Wait(c))
	r.Register("waitall", WaitAll(c))
	r.Register("cancel", Cancel(c))
	r.Register("replace", Replace(c))
	r.Register("status", Status(c))
	r.Register("topology", Topology(c))
	r.Register("request", Request(c))
}
