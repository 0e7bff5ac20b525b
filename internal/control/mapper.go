// Package control runs the control channel: message dispatch, gestures and clipboard polling.
package control

import "github.com/frudas24/mirroragent/internal/device"

// MapToDisplay converts host pointer coordinates into display coordinates for the current rotation.
// Rotation is in quarter turns; unknown rotations map to identity.
func MapToDisplay(x, y int32, d device.DisplayInfo) (int32, int32) {
	w, h := d.NaturalWidth, d.NaturalHeight
	switch d.Rotation {
	case 1:
		return y, w - x
	case 2:
		return w - x, h - y
	case 3:
		return h - y, x
	default:
		return x, y
	}
}
