// Package transport holds what the concrete controller links share: the JSON
// envelope spoken by the network bridges and the conversion between wire
// operations and controller operations.
package transport

import (
	"fmt"

	"github.com/Alia5/padctl/controller"
)

// Message types.
const (
	TypeOps      = "ops"
	TypeRequest  = "request"
	TypeResponse = "response"
)

// Message is one JSON frame of a bridge link.
type Message struct {
	Type string `json:"type"`
	// Seq numbers frames per connection. Responses echo the request's Seq.
	Seq     uint64 `json:"seq"`
	Ops     []Op   `json:"ops,omitempty"`
	Payload []byte `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Op is the wire form of a controller.Operation, with resources named.
type Op struct {
	Kind      string    `json:"kind"`
	Resource  string    `json:"resource"`
	Direction string    `json:"direction,omitempty"`
	Stick     *[2]uint8 `json:"stick,omitempty"`
}

// EncodeOps names every operation after its resource in topo.
func EncodeOps(topo *controller.Topology, ops []controller.Operation) []Op {
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		r, _ := topo.Resource(op.Resource)
		w := Op{Kind: op.Kind.String(), Resource: r.Name}
		switch {
		case op.Kind == controller.OpSetStick:
			w.Stick = &[2]uint8{op.Stick.X, op.Stick.Y}
		case r.Kind == controller.KindDpad:
			w.Direction = op.Direction.String()
		}
		out = append(out, w)
	}
	return out
}

// DecodeOps is the inverse of EncodeOps.
func DecodeOps(topo *controller.Topology, ops []Op) ([]controller.Operation, error) {
	out := make([]controller.Operation, 0, len(ops))
	for _, w := range ops {
		r, ok := topo.Lookup(w.Resource)
		if !ok {
			return nil, fmt.Errorf("unknown resource %q", w.Resource)
		}
		op := controller.Operation{Resource: r.ID}
		switch w.Kind {
		case "press":
			op.Kind = controller.OpPress
		case "release":
			op.Kind = controller.OpRelease
		case "set-stick":
			if w.Stick == nil {
				return nil, fmt.Errorf("set-stick %s without position", w.Resource)
			}
			op.Kind = controller.OpSetStick
			op.Stick = controller.Stick{X: w.Stick[0], Y: w.Stick[1]}
		default:
			return nil, fmt.Errorf("unknown operation kind %q", w.Kind)
		}
		if r.Kind == controller.KindDpad && op.Kind != controller.OpSetStick {
			d, err := parseDirection(w.Direction)
			if err != nil {
				return nil, err
			}
			op.Direction = d
		}
		out = append(out, op)
	}
	return out, nil
}

func parseDirection(s string) (controller.Direction, error) {
	for _, d := range controller.Directions {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dpad direction %q", s)
}
