package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTopologyValidation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []ResourceDef
		wantErr string
	}{
		{name: "ok", defs: []ResourceDef{ButtonDef("A"), DpadDef("Dpad"), StickDef("L")}},
		{name: "duplicate names ignore case", defs: []ResourceDef{ButtonDef("A"), ButtonDef("a")}, wantErr: "duplicate"},
		{name: "two dpads", defs: []ResourceDef{DpadDef("D1"), DpadDef("D2")}, wantErr: "more than one dpad"},
		{name: "three sticks", defs: []ResourceDef{StickDef("S1"), StickDef("S2"), StickDef("S3")}, wantErr: "sticks"},
		{name: "empty name", defs: []ResourceDef{ButtonDef("")}, wantErr: "no name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTopology("t", tt.defs...)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "a", want: Press(idA)},
		{in: " B ", want: Press(idB)},
		{in: "dpad:up-left", want: Hat(idDpad, DpadUpLeft)},
		{in: "LeftStick:255, 0", want: Tilt(idLeft, 255, 0)},
		{in: "A:1", wantErr: true},
		{in: "Dpad", wantErr: true},
		{in: "Dpad:sideways", wantErr: true},
		{in: "RightStick:300,1", wantErr: true},
		{in: "RightStick:1", wantErr: true},
		{in: "Turbo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(testTopo, tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			back, err := ParseTarget(testTopo, FormatTarget(testTopo, got))
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}

func TestValidateTargets(t *testing.T) {
	require.NoError(t, testTopo.validate([]Target{Press(idA), Hat(idDpad, DpadNone)}))
	require.ErrorIs(t, testTopo.validate([]Target{Press(idA), Press(idA)}), ErrResourceConflict)
	require.Error(t, testTopo.validate([]Target{Press(ResourceID(99))}))
	require.Error(t, testTopo.validate([]Target{Hat(idDpad, DpadPosition(12))}))
}
