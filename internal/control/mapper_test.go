package control

import (
	"testing"

	"github.com/frudas24/mirroragent/internal/device"
	"github.com/stretchr/testify/require"
)

// TestMapToDisplay_Rotations verifies the four rotation formulas.
func TestMapToDisplay_Rotations(t *testing.T) {
	const w, h = 1080, 2400
	cases := []struct {
		rotation int
		x, y     int32
		wantX    int32
		wantY    int32
	}{
		{rotation: 0, x: 100, y: 200, wantX: 100, wantY: 200},
		{rotation: 1, x: 100, y: 200, wantX: 200, wantY: w - 100},
		{rotation: 2, x: 100, y: 200, wantX: w - 100, wantY: h - 200},
		{rotation: 3, x: 100, y: 200, wantX: h - 200, wantY: 100},
	}
	for _, tc := range cases {
		d := device.DisplayInfo{Rotation: tc.rotation, NaturalWidth: w, NaturalHeight: h}
		x, y := MapToDisplay(tc.x, tc.y, d)
		require.Equal(t, tc.wantX, x, "rotation %d x", tc.rotation)
		require.Equal(t, tc.wantY, y, "rotation %d y", tc.rotation)
	}
}

// TestMapToDisplay_Corners verifies corners stay on the display for every rotation.
func TestMapToDisplay_Corners(t *testing.T) {
	d := device.DisplayInfo{Rotation: 1, NaturalWidth: 300, NaturalHeight: 400}
	x, y := MapToDisplay(0, 0, d)
	require.Equal(t, int32(0), x)
	require.Equal(t, int32(300), y)

	d.Rotation = 3
	x, y = MapToDisplay(300, 0, d)
	require.Equal(t, int32(400), x)
	require.Equal(t, int32(300), y)
}

// TestMapToDisplay_UnknownRotation verifies unknown rotations fall back to identity.
func TestMapToDisplay_UnknownRotation(t *testing.T) {
	d := device.DisplayInfo{Rotation: 7, NaturalWidth: 300, NaturalHeight: 400}
	x, y := MapToDisplay(12, 34, d)
	require.Equal(t, int32(12), x)
	require.Equal(t, int32(34), y)
}
