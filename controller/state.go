// Package controller implements the command scheduler and dispatch engine that
// turns timed per-resource requests into a precisely timed stream of
// controller states.
//
// Producers call Issue (or TryIssue, Wait, WaitForAll) on a Controller. The
// requests are merged into combined states on a per-resource timeline,
// pushed onto a bounded queue and drained by a single dispatcher goroutine
// that diffs consecutive states and forwards them to a Transport.
package controller

import (
	"fmt"
	"strings"
)

// Buttons is a bitset of pressed digital buttons. Bit i belongs to the i-th
// button resource of the controller's Topology.
type Buttons uint64

// Has reports whether bit is set.
func (b Buttons) Has(bit uint8) bool { return b&(1<<bit) != 0 }

// With returns b with bit set.
func (b Buttons) With(bit uint8) Buttons { return b | 1<<bit }

// Without returns b with bit cleared.
func (b Buttons) Without(bit uint8) Buttons { return b &^ (1 << bit) }

// DpadPosition is one of the eight dpad directions or DpadNone.
type DpadPosition uint8

const (
	DpadUp DpadPosition = iota
	DpadUpRight
	DpadRight
	DpadDownRight
	DpadDown
	DpadDownLeft
	DpadLeft
	DpadUpLeft
	DpadNone
)

var dpadNames = [...]string{
	DpadUp:        "up",
	DpadUpRight:   "up-right",
	DpadRight:     "right",
	DpadDownRight: "down-right",
	DpadDown:      "down",
	DpadDownLeft:  "down-left",
	DpadLeft:      "left",
	DpadUpLeft:    "up-left",
	DpadNone:      "none",
}

func (p DpadPosition) String() string {
	if int(p) < len(dpadNames) {
		return dpadNames[p]
	}
	return "unknown"
}

// ParseDpad parses a dpad position name as produced by String.
func ParseDpad(s string) (DpadPosition, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range dpadNames {
		if name == s {
			return DpadPosition(i), nil
		}
	}
	return DpadNone, fmt.Errorf("unknown dpad position: %q", s)
}

// Direction is one of the four dpad direction flags a position splits into.
type Direction uint8

const (
	DirUp Direction = iota
	DirRight
	DirDown
	DirLeft
)

// Directions lists the direction flags in diff order.
var Directions = [4]Direction{DirUp, DirRight, DirDown, DirLeft}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirRight:
		return "right"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	default:
		return "unknown"
	}
}

// SplitDpad holds the four independent direction flags of a dpad.
type SplitDpad [4]bool

// Split converts a unified position into direction flags.
func (p DpadPosition) Split() SplitDpad {
	var s SplitDpad
	switch p {
	case DpadUp:
		s[DirUp] = true
	case DpadUpRight:
		s[DirUp], s[DirRight] = true, true
	case DpadRight:
		s[DirRight] = true
	case DpadDownRight:
		s[DirDown], s[DirRight] = true, true
	case DpadDown:
		s[DirDown] = true
	case DpadDownLeft:
		s[DirDown], s[DirLeft] = true, true
	case DpadLeft:
		s[DirLeft] = true
	case DpadUpLeft:
		s[DirUp], s[DirLeft] = true, true
	}
	return s
}

// Unify converts direction flags back into a position. Opposing flags cancel
// out.
func (s SplitDpad) Unify() DpadPosition {
	up := s[DirUp] && !s[DirDown]
	down := s[DirDown] && !s[DirUp]
	left := s[DirLeft] && !s[DirRight]
	right := s[DirRight] && !s[DirLeft]
	switch {
	case up && right:
		return DpadUpRight
	case up && left:
		return DpadUpLeft
	case down && right:
		return DpadDownRight
	case down && left:
		return DpadDownLeft
	case up:
		return DpadUp
	case down:
		return DpadDown
	case left:
		return DpadLeft
	case right:
		return DpadRight
	default:
		return DpadNone
	}
}

// StickCenter is the resting value of both stick axes.
const StickCenter uint8 = 128

// Stick is an analog stick position. 128/128 is centred, X grows to the right
// and Y grows downwards.
type Stick struct {
	X, Y uint8
}

// Centered returns a stick at rest.
func Centered() Stick { return Stick{X: StickCenter, Y: StickCenter} }

// IsCentered reports whether the stick is at rest.
func (s Stick) IsCentered() bool { return s.X == StickCenter && s.Y == StickCenter }

// NumSticks is the number of analog sticks a State carries.
const NumSticks = 2

// State is the combined controller snapshot that is actually transmitted.
// The zero value is NOT neutral (dpad up, sticks at 0/0); use Neutral.
type State struct {
	Buttons Buttons
	Dpad    DpadPosition
	Sticks  [NumSticks]Stick
}

// Neutral returns the state with nothing pressed and both sticks centred.
func Neutral() State {
	return State{
		Dpad:   DpadNone,
		Sticks: [NumSticks]Stick{Centered(), Centered()},
	}
}

// IsNeutral reports whether s equals Neutral().
func (s State) IsNeutral() bool { return s == Neutral() }

func (s State) String() string {
	return fmt.Sprintf("buttons=%#x dpad=%s ls=(%d,%d) rs=(%d,%d)",
		uint64(s.Buttons), s.Dpad,
		s.Sticks[0].X, s.Sticks[0].Y, s.Sticks[1].X, s.Sticks[1].Y)
}
