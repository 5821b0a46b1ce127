package controller

import (
	"fmt"
	"strconv"
	"strings"
)

// ResourceID identifies one independently schedulable element of a
// controller. IDs are positions in the Topology.
type ResourceID uint8

// Kind is the type of a resource.
type Kind uint8

const (
	KindButton Kind = iota
	KindDpad
	KindStick
)

func (k Kind) String() string {
	switch k {
	case KindButton:
		return "button"
	case KindDpad:
		return "dpad"
	case KindStick:
		return "stick"
	default:
		return "unknown"
	}
}

// Resource describes one controller element.
type Resource struct {
	ID   ResourceID
	Name string
	Kind Kind
	// Index is the bit in State.Buttons for buttons and the slot in
	// State.Sticks for sticks. Unused for the dpad.
	Index uint8
}

// Topology is the immutable resource set of one controller type.
type Topology struct {
	name      string
	resources []Resource
	byName    map[string]ResourceID
}

// ResourceDef is the input of NewTopology.
type ResourceDef struct {
	Name string
	Kind Kind
}

// ButtonDef, DpadDef and StickDef are shorthands for building a Topology.
func ButtonDef(name string) ResourceDef { return ResourceDef{Name: name, Kind: KindButton} }
func DpadDef(name string) ResourceDef   { return ResourceDef{Name: name, Kind: KindDpad} }
func StickDef(name string) ResourceDef  { return ResourceDef{Name: name, Kind: KindStick} }

// NewTopology assigns IDs in declaration order. Button bits and stick slots
// are assigned in declaration order within their kind.
func NewTopology(name string, defs ...ResourceDef) (*Topology, error) {
	if len(defs) > 256 {
		return nil, fmt.Errorf("topology %s: too many resources", name)
	}
	t := &Topology{
		name:   name,
		byName: make(map[string]ResourceID, len(defs)),
	}
	var buttons, dpads, sticks int
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("topology %s: resource %d has no name", name, i)
		}
		key := strings.ToLower(d.Name)
		if _, dup := t.byName[key]; dup {
			return nil, fmt.Errorf("topology %s: duplicate resource %q", name, d.Name)
		}
		r := Resource{ID: ResourceID(i), Name: d.Name, Kind: d.Kind}
		switch d.Kind {
		case KindButton:
			if buttons == 64 {
				return nil, fmt.Errorf("topology %s: more than 64 buttons", name)
			}
			r.Index = uint8(buttons)
			buttons++
		case KindDpad:
			if dpads == 1 {
				return nil, fmt.Errorf("topology %s: more than one dpad", name)
			}
			dpads++
		case KindStick:
			if sticks == NumSticks {
				return nil, fmt.Errorf("topology %s: more than %d sticks", name, NumSticks)
			}
			r.Index = uint8(sticks)
			sticks++
		default:
			return nil, fmt.Errorf("topology %s: resource %q has unknown kind", name, d.Name)
		}
		t.resources = append(t.resources, r)
		t.byName[key] = r.ID
	}
	return t, nil
}

// MustTopology is NewTopology that panics on error, for package-level tables.
func MustTopology(name string, defs ...ResourceDef) *Topology {
	t, err := NewTopology(name, defs...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Topology) Name() string { return t.name }

// Len returns the number of resources.
func (t *Topology) Len() int { return len(t.resources) }

// Resources returns a copy of the resource list in ID order.
func (t *Topology) Resources() []Resource {
	out := make([]Resource, len(t.resources))
	copy(out, t.resources)
	return out
}

// Resource returns the resource with the given id.
func (t *Topology) Resource(id ResourceID) (Resource, bool) {
	if int(id) >= len(t.resources) {
		return Resource{}, false
	}
	return t.resources[id], true
}

// Lookup finds a resource by case-insensitive name.
func (t *Topology) Lookup(name string) (Resource, bool) {
	id, ok := t.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Resource{}, false
	}
	return t.resources[id], true
}

// ButtonResource returns the button resource owning bit.
func (t *Topology) ButtonResource(bit uint8) (Resource, bool) {
	for _, r := range t.resources {
		if r.Kind == KindButton && r.Index == bit {
			return r, true
		}
	}
	return Resource{}, false
}

// Target is the sub-state a command drives one resource to.
type Target struct {
	Resource ResourceID
	Dpad     DpadPosition
	Stick    Stick
}

// Press targets a button.
func Press(id ResourceID) Target { return Target{Resource: id} }

// Hat targets the dpad.
func Hat(id ResourceID, pos DpadPosition) Target { return Target{Resource: id, Dpad: pos} }

// Tilt targets a stick.
func Tilt(id ResourceID, x, y uint8) Target {
	return Target{Resource: id, Stick: Stick{X: x, Y: y}}
}

// apply adds the target's sub-state to s.
func (t *Topology) apply(s *State, tg Target) {
	r := t.resources[tg.Resource]
	switch r.Kind {
	case KindButton:
		s.Buttons = s.Buttons.With(r.Index)
	case KindDpad:
		s.Dpad = tg.Dpad
	case KindStick:
		s.Sticks[r.Index] = tg.Stick
	}
}

// validate checks that every target refers to a known resource of the right
// shape and that no resource appears twice.
func (t *Topology) validate(targets []Target) error {
	seen := make(map[ResourceID]struct{}, len(targets))
	for _, tg := range targets {
		r, ok := t.Resource(tg.Resource)
		if !ok {
			return fmt.Errorf("unknown resource id %d", tg.Resource)
		}
		if _, dup := seen[tg.Resource]; dup {
			return fmt.Errorf("%w: %s targeted twice in one command", ErrResourceConflict, r.Name)
		}
		seen[tg.Resource] = struct{}{}
		if r.Kind == KindDpad && tg.Dpad > DpadNone {
			return fmt.Errorf("invalid dpad position %d for %s", tg.Dpad, r.Name)
		}
	}
	return nil
}

// ParseTarget parses the textual target syntax used by scripts and the
// control API:
//
//	A                  press button A
//	Dpad:up-left       hold the dpad in a direction
//	LeftStick:255,128  tilt a stick to x,y
func ParseTarget(t *Topology, s string) (Target, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(s), ":")
	r, ok := t.Lookup(name)
	if !ok {
		return Target{}, fmt.Errorf("unknown resource %q for %s", name, t.name)
	}
	switch r.Kind {
	case KindButton:
		if hasArg {
			return Target{}, fmt.Errorf("button %s takes no argument", r.Name)
		}
		return Press(r.ID), nil
	case KindDpad:
		if !hasArg {
			return Target{}, fmt.Errorf("dpad %s needs a direction", r.Name)
		}
		pos, err := ParseDpad(arg)
		if err != nil {
			return Target{}, err
		}
		return Hat(r.ID, pos), nil
	default:
		if !hasArg {
			return Target{}, fmt.Errorf("stick %s needs x,y", r.Name)
		}
		xs, ys, ok := strings.Cut(arg, ",")
		if !ok {
			return Target{}, fmt.Errorf("stick %s needs x,y", r.Name)
		}
		x, err := strconv.ParseUint(strings.TrimSpace(xs), 10, 8)
		if err != nil {
			return Target{}, fmt.Errorf("stick %s x: %w", r.Name, err)
		}
		y, err := strconv.ParseUint(strings.TrimSpace(ys), 10, 8)
		if err != nil {
			return Target{}, fmt.Errorf("stick %s y: %w", r.Name, err)
		}
		return Tilt(r.ID, uint8(x), uint8(y)), nil
	}
}

// ParseTargets parses every element of ss.
func ParseTargets(t *Topology, ss []string) ([]Target, error) {
	out := make([]Target, 0, len(ss))
	for _, s := range ss {
		tg, err := ParseTarget(t, s)
		if err != nil {
			return nil, err
		}
		out = append(out, tg)
	}
	return out, nil
}

// FormatTarget is the inverse of ParseTarget.
func FormatTarget(t *Topology, tg Target) string {
	r, ok := t.Resource(tg.Resource)
	if !ok {
		return fmt.Sprintf("#%d", tg.Resource)
	}
	switch r.Kind {
	case KindDpad:
		return r.Name + ":" + tg.Dpad.String()
	case KindStick:
		return fmt.Sprintf("%s:%d,%d", r.Name, tg.Stick.X, tg.Stick.Y)
	default:
		return r.Name
	}
}
