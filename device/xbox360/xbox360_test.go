package xbox360

import (
	"testing"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/device/switchpro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXInputStateWire(t *testing.T) {
	in := XInputState{Buttons: ButtonA | ButtonGuide, LT: 255, RT: 1, LX: -32768, LY: 32767, RX: 256, RY: -1}
	b, err := in.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, StateSize)
	assert.Equal(t, []byte{0x00, 0x14, 0x00, 0x00, 0xff, 0x01, 0x00, 0x80, 0xff, 0x7f, 0x00, 0x01, 0xff, 0xff}, b)

	var out XInputState
	require.NoError(t, out.UnmarshalBinary(b))
	assert.Equal(t, in, out)
	require.Error(t, out.UnmarshalBinary(b[:StateSize-1]))
}

func TestRumbleWire(t *testing.T) {
	var r XRumbleState
	require.NoError(t, r.UnmarshalBinary([]byte{10, 200}))
	assert.Equal(t, XRumbleState{LeftMotor: 10, RightMotor: 200}, r)
	b, _ := r.MarshalBinary()
	assert.Equal(t, []byte{10, 200}, b)
	require.Error(t, r.UnmarshalBinary([]byte{1}))
}

func TestFromSwitchPro(t *testing.T) {
	tests := []struct {
		name string
		set  func(s *controller.State)
		want XInputState
	}{
		{
			name: "neutral",
			set:  func(*controller.State) {},
			want: XInputState{},
		},
		{
			name: "face buttons are positional",
			set: func(s *controller.State) {
				s.Buttons = s.Buttons.With(uint8(switchpro.A)).With(uint8(switchpro.Y))
			},
			want: XInputState{Buttons: ButtonB | ButtonX},
		},
		{
			name: "triggers and capture",
			set: func(s *controller.State) {
				s.Buttons = s.Buttons.With(uint8(switchpro.ZL)).With(uint8(switchpro.ZR)).With(uint8(switchpro.Capture))
			},
			want: XInputState{LT: 255, RT: 255},
		},
		{
			name: "dpad diagonal",
			set:  func(s *controller.State) { s.Dpad = controller.DpadDownRight },
			want: XInputState{Buttons: ButtonDPadDown | ButtonDPadRight},
		},
		{
			name: "stick extremes",
			set: func(s *controller.State) {
				s.Sticks[0] = controller.Stick{X: 0, Y: 0}
				s.Sticks[1] = controller.Stick{X: 255, Y: 255}
			},
			want: XInputState{LX: -32768, LY: 32767, RX: 32512, RY: -32512},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := controller.Neutral()
			tt.set(&s)
			assert.Equal(t, tt.want, FromSwitchPro(s))
		})
	}
}
