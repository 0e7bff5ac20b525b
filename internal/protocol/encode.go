// Package protocol implements the binary control channel wire format.
package protocol

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer writes big-endian fields and keeps the first error.
type Writer struct {
	w   io.Writer
	buf [4]byte
	err error
}

// NewWriter wraps w. Buffering and flushing are left to the caller.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Err returns the first write error, if any.
func (w *Writer) Err() error {
	return w.err
}

// write emits raw bytes unless a previous write failed.
func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(b)
}

// WriteInt32 writes a signed 32-bit integer.
func (w *Writer) WriteInt32(v int32) {
	binary.BigEndian.PutUint32(w.buf[:4], uint32(v))
	w.write(w.buf[:4])
}

// WriteFloat32 writes an IEEE 754 single precision float.
func (w *Writer) WriteFloat32(v float32) {
	binary.BigEndian.PutUint32(w.buf[:4], math.Float32bits(v))
	w.write(w.buf[:4])
}

// WriteTag writes a message type tag.
func (w *Writer) WriteTag(t Tag) {
	w.WriteInt32(int32(t))
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	w.WriteInt32(int32(len(s)))
	if len(s) > 0 {
		w.write([]byte(s))
	}
}

// WriteUTF16 writes a length-prefixed sequence of UTF-16 code units.
func (w *Writer) WriteUTF16(units []uint16) {
	w.WriteInt32(int32(len(units)))
	for _, u := range units {
		binary.BigEndian.PutUint16(w.buf[:2], u)
		w.write(w.buf[:2])
	}
}

// EncodeNotification writes a clipboard change notification.
// The caller must flush w if it is buffered.
func EncodeNotification(w io.Writer, n ClipboardChanged) error {
	pw := NewWriter(w)
	pw.WriteTag(TagClipboardChanged)
	pw.WriteString(n.Text)
	return pw.Err()
}
