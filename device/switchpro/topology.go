// Package switchpro describes the Nintendo Switch Pro Controller: its
// schedulable resources and the bit-packed report used by wireless
// controller bridges.
package switchpro

import (
	"fmt"
	"strings"

	"github.com/Alia5/padctl/controller"
)

// Resource IDs in the order sys-botbase lists them.
const (
	Y controller.ResourceID = iota
	B
	A
	X
	L
	R
	ZL
	ZR
	Minus
	Plus
	LClick
	RClick
	Home
	Capture
	Dpad
	LeftStick
	RightStick
)

// NumButtons is the number of digital buttons (the dpad excluded).
const NumButtons = 14

// Topology is the resource set of a Pro Controller.
var Topology = controller.MustTopology("switch-pro",
	controller.ButtonDef("Y"),
	controller.ButtonDef("B"),
	controller.ButtonDef("A"),
	controller.ButtonDef("X"),
	controller.ButtonDef("L"),
	controller.ButtonDef("R"),
	controller.ButtonDef("ZL"),
	controller.ButtonDef("ZR"),
	controller.ButtonDef("Minus"),
	controller.ButtonDef("Plus"),
	controller.ButtonDef("LJ"),
	controller.ButtonDef("RJ"),
	controller.ButtonDef("Home"),
	controller.ButtonDef("Capture"),
	controller.DpadDef("Dpad"),
	controller.StickDef("LeftStick"),
	controller.StickDef("RightStick"),
)

// aliases maps the alternative spellings found in older macro files.
var aliases = map[string]controller.ResourceID{
	"-":      Minus,
	"+":      Plus,
	"lstick": LClick,
	"rstick": RClick,
	"lclick": LClick,
	"rclick": RClick,
}

// Lookup resolves a button name or alias to its resource.
func Lookup(name string) (controller.Resource, bool) {
	if id, ok := aliases[strings.ToLower(name)]; ok {
		r, _ := Topology.Resource(id)
		return r, true
	}
	return Topology.Lookup(name)
}

// ParseButtons parses a space separated button list such as "A ZL +".
func ParseButtons(s string) (controller.Buttons, error) {
	var out controller.Buttons
	for _, f := range strings.Fields(s) {
		if strings.EqualFold(f, "none") {
			continue
		}
		r, ok := Lookup(f)
		if !ok || r.Kind != controller.KindButton {
			return 0, fmt.Errorf("unknown button %q", f)
		}
		out = out.With(r.Index)
	}
	return out, nil
}

// ButtonsString is the inverse of ParseButtons. It returns "none" for an
// empty set.
func ButtonsString(b controller.Buttons) string {
	var names []string
	for i := range uint8(NumButtons) {
		if b.Has(i) {
			r, _ := Topology.ButtonResource(i)
			names = append(names, r.Name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, " ")
}
