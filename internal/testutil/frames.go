// Package testutil provides fakes and frame builders shared by package tests.
package testutil

import (
	"bytes"
	"slices"
	"unicode/utf16"

	"github.com/frudas24/mirroragent/internal/protocol"
)

// MotionFrame encodes a motion event as a host would send it.
func MotionFrame(action int32, pointers ...protocol.Pointer) []byte {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	w.WriteTag(protocol.TagMotionEvent)
	w.WriteInt32(int32(len(pointers)))
	for _, p := range pointers {
		w.WriteInt32(p.X)
		w.WriteInt32(p.Y)
		w.WriteInt32(p.ID)
		w.WriteInt32(int32(len(p.Axes)))
		axes := make([]int32, 0, len(p.Axes))
		for axis := range p.Axes {
			axes = append(axes, axis)
		}
		slices.Sort(axes)
		for _, axis := range axes {
			w.WriteInt32(axis)
			w.WriteFloat32(p.Axes[axis])
		}
	}
	w.WriteInt32(action)
	w.WriteInt32(0)
	return buf.Bytes()
}

// KeyFrame encodes a key event.
func KeyFrame(action, keycode, metaState int32) []byte {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	w.WriteTag(protocol.TagKeyEvent)
	w.WriteInt32(action)
	w.WriteInt32(keycode)
	w.WriteInt32(metaState)
	return buf.Bytes()
}

// TextFrame encodes a text input message.
func TextFrame(text string) []byte {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	w.WriteTag(protocol.TagTextInput)
	w.WriteUTF16(utf16.Encode([]rune(text)))
	return buf.Bytes()
}

// OrientationFrame encodes a set-orientation message.
func OrientationFrame(orientation int32) []byte {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	w.WriteTag(protocol.TagSetDeviceOrientation)
	w.WriteInt32(orientation)
	return buf.Bytes()
}

// ResolutionFrame encodes a set-max-resolution message.
func ResolutionFrame(width, height int32) []byte {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	w.WriteTag(protocol.TagSetMaxVideoResolution)
	w.WriteInt32(width)
	w.WriteInt32(height)
	return buf.Bytes()
}

// StartClipboardSyncFrame encodes a start-clipboard-sync message.
func StartClipboardSyncFrame(text string, maxSyncedLength int32) []byte {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	w.WriteTag(protocol.TagStartClipboardSync)
	w.WriteInt32(maxSyncedLength)
	w.WriteString(text)
	return buf.Bytes()
}

// TagFrame encodes a message that has no body, or just a bare tag.
func TagFrame(tag protocol.Tag) []byte {
	var buf bytes.Buffer
	protocol.NewWriter(&buf).WriteTag(tag)
	return buf.Bytes()
}

// Concat joins frames into one byte stream.
func Concat(frames ...[]byte) []byte {
	return bytes.Join(frames, nil)
}
