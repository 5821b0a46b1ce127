package controller

import "fmt"

// OpKind is the kind of an atomic state transition.
type OpKind uint8

const (
	OpPress OpKind = iota
	OpRelease
	OpSetStick
)

func (k OpKind) String() string {
	switch k {
	case OpPress:
		return "press"
	case OpRelease:
		return "release"
	case OpSetStick:
		return "set-stick"
	default:
		return "unknown"
	}
}

// Operation is one atomic transition. For dpad operations Resource is the
// dpad and Direction names the flag; for OpSetStick Stick holds the new
// position.
type Operation struct {
	Kind      OpKind
	Resource  ResourceID
	Direction Direction
	Stick     Stick
}

// Describe renders op with resource names, for logs.
func (t *Topology) Describe(op Operation) string {
	r, _ := t.Resource(op.Resource)
	switch {
	case op.Kind == OpSetStick:
		return fmt.Sprintf("%s %s %d,%d", op.Kind, r.Name, op.Stick.X, op.Stick.Y)
	case r.Kind == KindDpad:
		return fmt.Sprintf("%s %s-%s", op.Kind, r.Name, op.Direction)
	default:
		return fmt.Sprintf("%s %s", op.Kind, r.Name)
	}
}

// Diff returns the minimal operations that turn prev into next, in topology
// order. It returns nil when the states are equal.
func Diff(t *Topology, prev, next State) []Operation {
	if prev == next {
		return nil
	}
	var ops []Operation
	for _, r := range t.resources {
		switch r.Kind {
		case KindButton:
			before, after := prev.Buttons.Has(r.Index), next.Buttons.Has(r.Index)
			if before == after {
				continue
			}
			ops = append(ops, Operation{Kind: pressOrRelease(after), Resource: r.ID})
		case KindDpad:
			if prev.Dpad == next.Dpad {
				continue
			}
			before, after := prev.Dpad.Split(), next.Dpad.Split()
			for _, d := range Directions {
				if before[d] == after[d] {
					continue
				}
				ops = append(ops, Operation{Kind: pressOrRelease(after[d]), Resource: r.ID, Direction: d})
			}
		case KindStick:
			if prev.Sticks[r.Index] == next.Sticks[r.Index] {
				continue
			}
			ops = append(ops, Operation{Kind: OpSetStick, Resource: r.ID, Stick: next.Sticks[r.Index]})
		}
	}
	return ops
}

func pressOrRelease(pressed bool) OpKind {
	if pressed {
		return OpPress
	}
	return OpRelease
}

// Apply replays ops on s. Applying Diff(t, a, b) to a yields b.
func Apply(t *Topology, s State, ops []Operation) State {
	split := s.Dpad.Split()
	dpadTouched := false
	for _, op := range ops {
		r, ok := t.Resource(op.Resource)
		if !ok {
			continue
		}
		switch r.Kind {
		case KindButton:
			if op.Kind == OpPress {
				s.Buttons = s.Buttons.With(r.Index)
			} else if op.Kind == OpRelease {
				s.Buttons = s.Buttons.Without(r.Index)
			}
		case KindDpad:
			if op.Kind == OpSetStick || int(op.Direction) >= len(split) {
				continue
			}
			split[op.Direction] = op.Kind == OpPress
			dpadTouched = true
		case KindStick:
			if op.Kind == OpSetStick {
				s.Sticks[r.Index] = op.Stick
			}
		}
	}
	if dpadTouched {
		s.Dpad = split.Unify()
	}
	return s
}
