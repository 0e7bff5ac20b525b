// Package protocol implements the binary control channel wire format.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// maxFieldLength bounds length prefixes so a corrupt frame cannot force a huge allocation.
const maxFieldLength = 1 << 20

// ErrMalformedMessage reports an unknown tag or an undecodable message body.
var ErrMalformedMessage = errors.New("malformed control message")

// ReadTag reads the 4-byte message type tag.
func ReadTag(r io.Reader) (Tag, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return ParseTag(buf), nil
}

// ParseTag converts a big-endian 4-byte tag.
func ParseTag(b [4]byte) Tag {
	return Tag(int32(binary.BigEndian.Uint32(b[:])))
}

// Decode reads the body of a message whose tag has already been consumed.
// A stream that ends mid-message yields an error matching both ErrMalformedMessage
// and io.ErrUnexpectedEOF.
func Decode(tag Tag, r io.Reader) (Message, error) {
	d := decoder{r: r}
	var msg Message
	switch tag {
	case TagMotionEvent:
		msg = d.motionEvent()
	case TagKeyEvent:
		msg = KeyEvent{Action: d.int32(), Keycode: d.int32(), MetaState: d.int32()}
	case TagTextInput:
		msg = TextInput{Text: d.utf16()}
	case TagSetDeviceOrientation:
		msg = SetDeviceOrientation{Orientation: d.int32()}
	case TagSetMaxVideoResolution:
		msg = SetMaxVideoResolution{Width: d.int32(), Height: d.int32()}
	case TagStartVideoStream:
		msg = StartVideoStream{}
	case TagStopVideoStream:
		msg = StopVideoStream{}
	case TagStartClipboardSync:
		length := d.int32()
		msg = StartClipboardSync{MaxSyncedLength: length, Text: d.string()}
	case TagStopClipboardSync:
		msg = StopClipboardSync{}
	default:
		return nil, fmt.Errorf("%w: unknown tag %d", ErrMalformedMessage, int32(tag))
	}
	if d.err != nil {
		return nil, fmt.Errorf("decode %s: %w", tag, d.err)
	}
	return msg, nil
}

// DecodeNotification reads a device-to-host notification including its tag.
func DecodeNotification(r io.Reader) (ClipboardChanged, error) {
	tag, err := ReadTag(r)
	if err != nil {
		return ClipboardChanged{}, err
	}
	if tag != TagClipboardChanged {
		return ClipboardChanged{}, fmt.Errorf("%w: unexpected notification tag %d", ErrMalformedMessage, int32(tag))
	}
	d := decoder{r: r}
	text := d.string()
	if d.err != nil {
		return ClipboardChanged{}, fmt.Errorf("decode %s: %w", tag, d.err)
	}
	return ClipboardChanged{Text: text}, nil
}

// decoder reads big-endian fields and keeps the first error.
type decoder struct {
	r   io.Reader
	buf [4]byte
	err error
}

// read fills n bytes of the scratch buffer.
func (d *decoder) read(n int) []byte {
	if d.err != nil {
		return nil
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		d.fail(err)
		return nil
	}
	return d.buf[:n]
}

// fail records a read error. A stream ending mid-message is reported as malformed.
func (d *decoder) fail(err error) {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	d.err = err
}

// int32 reads a signed 32-bit integer.
func (d *decoder) int32() int32 {
	b := d.read(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

// float32 reads an IEEE 754 single precision float.
func (d *decoder) float32() float32 {
	b := d.read(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// uint16 reads an unsigned 16-bit integer.
func (d *decoder) uint16() uint16 {
	b := d.read(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// length reads a length prefix and validates its range.
func (d *decoder) length() int {
	n := d.int32()
	if d.err != nil {
		return 0
	}
	if n < 0 || n > maxFieldLength {
		d.err = fmt.Errorf("%w: invalid length %d", ErrMalformedMessage, n)
		return 0
	}
	return int(n)
}

// string reads a length-prefixed UTF-8 string.
func (d *decoder) string() string {
	n := d.length()
	if d.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.fail(err)
		return ""
	}
	return string(b)
}

// utf16 reads a length-prefixed sequence of UTF-16 code units.
func (d *decoder) utf16() []uint16 {
	n := d.length()
	if d.err != nil {
		return nil
	}
	units := make([]uint16, 0, min(n, 4096))
	for i := 0; i < n && d.err == nil; i++ {
		units = append(units, d.uint16())
	}
	return units
}

// motionEvent reads the pointer list followed by action and display id.
func (d *decoder) motionEvent() MotionEvent {
	n := d.length()
	pointers := make([]Pointer, 0, min(n, 64))
	for i := 0; i < n && d.err == nil; i++ {
		p := Pointer{X: d.int32(), Y: d.int32(), ID: d.int32()}
		axes := d.length()
		if axes > 0 {
			p.Axes = make(map[int32]float32, min(axes, 16))
			for j := 0; j < axes && d.err == nil; j++ {
				axis := d.int32()
				p.Axes[axis] = d.float32()
			}
		}
		pointers = append(pointers, p)
	}
	action := d.int32()
	displayID := d.int32()
	return MotionEvent{DisplayID: displayID, Action: action, Pointers: pointers}
}
