package switchpro

import (
	"io"

	"github.com/Alia5/padctl/controller"
)

// ReportSize is the encoded size of a Report.
const ReportSize = 10

// Report is the input part of a wireless Pro Controller report.
//
// Layout:
//
//	0: buttons Y X B A - - R ZR (bit 0 first)
//	1: buttons - + RJ LJ HOME CAPTURE
//	2: dpad down up right left, - -, L ZL
//	3-5: left stick, 12-bit x and y packed little endian
//	6-8: right stick
//	9: vibrator
type Report struct {
	Button3  uint8
	Button4  uint8
	Button5  uint8
	Left     [3]byte
	Right    [3]byte
	Vibrator uint8
}

type bitPos struct {
	byteIdx uint8
	bit     uint8
}

// reportBits is indexed by button bit in controller.State.Buttons.
var reportBits = [NumButtons]bitPos{
	Y:       {0, 0},
	X:       {0, 1},
	B:       {0, 2},
	A:       {0, 3},
	R:       {0, 6},
	ZR:      {0, 7},
	Minus:   {1, 0},
	Plus:    {1, 1},
	RClick:  {1, 2},
	LClick:  {1, 3},
	Home:    {1, 4},
	Capture: {1, 5},
	L:       {2, 6},
	ZL:      {2, 7},
}

// Dpad flag bits in Button5.
const (
	dpadDownBit  = 0
	dpadUpBit    = 1
	dpadRightBit = 2
	dpadLeftBit  = 3
)

// BuildReport encodes a combined state.
func BuildReport(s controller.State) Report {
	var r Report
	bytes := [3]*uint8{&r.Button3, &r.Button4, &r.Button5}
	for i, p := range reportBits {
		if s.Buttons.Has(uint8(i)) {
			*bytes[p.byteIdx] |= 1 << p.bit
		}
	}
	split := s.Dpad.Split()
	if split[controller.DirDown] {
		r.Button5 |= 1 << dpadDownBit
	}
	if split[controller.DirUp] {
		r.Button5 |= 1 << dpadUpBit
	}
	if split[controller.DirRight] {
		r.Button5 |= 1 << dpadRightBit
	}
	if split[controller.DirLeft] {
		r.Button5 |= 1 << dpadLeftBit
	}
	r.Left = encodeStick(s.Sticks[0])
	r.Right = encodeStick(s.Sticks[1])
	return r
}

// State decodes r back into a combined state. Stick values survive the round
// trip exactly.
func (r Report) State() controller.State {
	s := controller.Neutral()
	bytes := [3]uint8{r.Button3, r.Button4, r.Button5}
	for i, p := range reportBits {
		if bytes[p.byteIdx]&(1<<p.bit) != 0 {
			s.Buttons = s.Buttons.With(uint8(i))
		}
	}
	var split controller.SplitDpad
	split[controller.DirDown] = r.Button5&(1<<dpadDownBit) != 0
	split[controller.DirUp] = r.Button5&(1<<dpadUpBit) != 0
	split[controller.DirRight] = r.Button5&(1<<dpadRightBit) != 0
	split[controller.DirLeft] = r.Button5&(1<<dpadLeftBit) != 0
	s.Dpad = split.Unify()
	s.Sticks[0] = decodeStick(r.Left)
	s.Sticks[1] = decodeStick(r.Right)
	return s
}

// encodeStick maps 0..255 (128 centre, y down) to the 12-bit range of the
// report (0x800 centre, y up).
func encodeStick(st controller.Stick) [3]byte {
	x := clamp12(0x800 + (int(st.X)-128)*16)
	y := clamp12(0x800 + (128-int(st.Y))*16)
	return [3]byte{
		byte(x),
		byte(x>>8) | byte(y<<4),
		byte(y >> 4),
	}
}

func decodeStick(b [3]byte) controller.Stick {
	x := int(b[0]) | int(b[1]&0x0f)<<8
	y := int(b[1]>>4) | int(b[2])<<4
	return controller.Stick{
		X: clamp8(128 + (x-0x800+8)>>4),
		Y: clamp8(128 - (y-0x800+8)>>4),
	}
}

func clamp12(v int) int { return min(max(v, 0), 0xfff) }

func clamp8(v int) uint8 { return uint8(min(max(v, 0), 255)) }

// MarshalBinary encodes the report to ReportSize bytes.
func (r *Report) MarshalBinary() ([]byte, error) {
	b := make([]byte, ReportSize)
	b[0] = r.Button3
	b[1] = r.Button4
	b[2] = r.Button5
	copy(b[3:6], r.Left[:])
	copy(b[6:9], r.Right[:])
	b[9] = r.Vibrator
	return b, nil
}

// UnmarshalBinary decodes ReportSize bytes into the report.
func (r *Report) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	r.Button3 = data[0]
	r.Button4 = data[1]
	r.Button5 = data[2]
	copy(r.Left[:], data[3:6])
	copy(r.Right[:], data[6:9])
	r.Vibrator = data[9]
	return nil
}
