// Package xbox360 holds the wire format of a VIIPER xbox360 device stream and
// the mapping from a Pro Controller state onto it.
package xbox360

import (
	"encoding/binary"
	"io"
)

// XInput button bits.
const (
	ButtonDPadUp    uint32 = 0x0001
	ButtonDPadDown  uint32 = 0x0002
	ButtonDPadLeft  uint32 = 0x0004
	ButtonDPadRight uint32 = 0x0008
	ButtonStart     uint32 = 0x0010
	ButtonBack      uint32 = 0x0020
	ButtonLThumb    uint32 = 0x0040
	ButtonRThumb    uint32 = 0x0080
	ButtonLB        uint32 = 0x0100
	ButtonRB        uint32 = 0x0200
	ButtonGuide     uint32 = 0x0400
	ButtonA         uint32 = 0x1000
	ButtonB         uint32 = 0x2000
	ButtonX         uint32 = 0x4000
	ButtonY         uint32 = 0x8000
)

// StateSize is the encoded size of XInputState.
const StateSize = 14

// XInputState is the wire format for controller inputs sent from client to device.
// Total size: 14 bytes (fixed).
// Layout:
//
//	Buttons: 4 bytes (LE uint32)
//	LT: 1 byte
//	RT: 1 byte
//	LX: 2 bytes (LE int16)
//	LY: 2 bytes (LE int16)
//	RX: 2 bytes (LE int16)
//	RY: 2 bytes (LE int16)
type XInputState struct {
	Buttons uint32
	LT, RT  uint8
	LX, LY  int16
	RX, RY  int16
}

// MarshalBinary encodes XInputState to 14 bytes.
func (x *XInputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, StateSize)
	binary.LittleEndian.PutUint32(b[0:4], x.Buttons)
	b[4] = x.LT
	b[5] = x.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(x.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(x.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(x.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(x.RY))
	return b, nil
}

// UnmarshalBinary decodes 14 bytes into XInputState.
func (x *XInputState) UnmarshalBinary(data []byte) error {
	if len(data) < StateSize {
		return io.ErrUnexpectedEOF
	}
	x.Buttons = binary.LittleEndian.Uint32(data[0:4])
	x.LT = data[4]
	x.RT = data[5]
	x.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	x.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	x.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	x.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

// XRumbleState is the wire format for rumble/motor commands sent from device to client.
// Total size: 2 bytes (fixed).
type XRumbleState struct {
	LeftMotor  uint8
	RightMotor uint8
}

// MarshalBinary encodes XRumbleState to 2 bytes.
func (r *XRumbleState) MarshalBinary() ([]byte, error) {
	return []byte{r.LeftMotor, r.RightMotor}, nil
}

// UnmarshalBinary decodes 2 bytes into XRumbleState.
func (r *XRumbleState) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return io.ErrUnexpectedEOF
	}
	r.LeftMotor = data[0]
	r.RightMotor = data[1]
	return nil
}
