package xbox360

import (
	"math"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
)

// buttonMap places Pro Controller buttons by position, not by label: the
// Switch A (right face button) becomes the Xbox B.
var buttonMap = map[controller.ResourceID]uint32{
	switchpro.B:      ButtonA,
	switchpro.A:      ButtonB,
	switchpro.Y:      ButtonX,
	switchpro.X:      ButtonY,
	switchpro.L:      ButtonLB,
	switchpro.R:      ButtonRB,
	switchpro.Minus:  ButtonBack,
	switchpro.Plus:   ButtonStart,
	switchpro.LClick: ButtonLThumb,
	switchpro.RClick: ButtonRThumb,
	switchpro.Home:   ButtonGuide,
}

// FromSwitchPro maps a Pro Controller state. ZL and ZR become fully pulled
// triggers; Capture has no counterpart and is dropped.
func FromSwitchPro(s controller.State) XInputState {
	var x XInputState
	for id, bit := range buttonMap {
		if s.Buttons.Has(uint8(id)) {
			x.Buttons |= bit
		}
	}
	if s.Buttons.Has(uint8(switchpro.ZL)) {
		x.LT = math.MaxUint8
	}
	if s.Buttons.Has(uint8(switchpro.ZR)) {
		x.RT = math.MaxUint8
	}
	split := s.Dpad.Split()
	if split[controller.DirUp] {
		x.Buttons |= ButtonDPadUp
	}
	if split[controller.DirDown] {
		x.Buttons |= ButtonDPadDown
	}
	if split[controller.DirLeft] {
		x.Buttons |= ButtonDPadLeft
	}
	if split[controller.DirRight] {
		x.Buttons |= ButtonDPadRight
	}
	x.LX, x.LY = axes(s.Sticks[0])
	x.RX, x.RY = axes(s.Sticks[1])
	return x
}

// axes converts 0..255 (y down) into XInput's signed range (y up).
func axes(st controller.Stick) (int16, int16) {
	return axis(int(st.X) - 128), axis(128 - int(st.Y))
}

func axis(v int) int16 {
	return int16(min(max(v*256, math.MinInt16), math.MaxInt16))
}
