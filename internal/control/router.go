// Package control runs the control channel: message dispatch, gestures and clipboard polling.
package control

import (
	"errors"
	"fmt"

	"github.com/frudas24/mirroragent/internal/device"
	"github.com/frudas24/mirroragent/internal/protocol"
)

var (
	// ErrInvalidOrientation reports an orientation outside 0..3.
	ErrInvalidOrientation = errors.New("invalid orientation")
	// ErrInvalidResolution reports a non-positive resolution.
	ErrInvalidResolution = errors.New("invalid resolution")
	// ErrUnsupportedMessage reports a message type without a handler.
	ErrUnsupportedMessage = errors.New("unsupported message")
)

// Dispatch applies a decoded message to the device.
func (c *Controller) Dispatch(msg protocol.Message) error {
	switch m := msg.(type) {
	case protocol.MotionEvent:
		return c.handleMotion(m)
	case protocol.KeyEvent:
		return c.handleKey(m)
	case protocol.TextInput:
		return c.handleText(m)
	case protocol.SetDeviceOrientation:
		return c.handleOrientation(m)
	case protocol.SetMaxVideoResolution:
		return c.handleResolution(m)
	case protocol.StartVideoStream:
		return c.handleStartVideo()
	case protocol.StopVideoStream:
		return c.handleStopVideo()
	case protocol.StartClipboardSync:
		return c.handleStartClipboardSync(m)
	case protocol.StopClipboardSync:
		c.clipboard.Stop()
		c.deps.Session.SetClipboardSync(false, 0)
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedMessage, msg)
	}
}

// handleMotion injects a motion event and refreshes the stream orientation when the gesture ends.
func (c *Controller) handleMotion(m protocol.MotionEvent) error {
	display, err := c.deps.Display.DisplayInfo()
	if err != nil {
		return fmt.Errorf("display info: %w", err)
	}
	up, err := c.gestures.Decompose(m, display, c.inject)
	if err != nil {
		return err
	}
	c.deps.Session.RecordTouch(c.now())
	if up {
		if err := c.deps.Video.SetVideoOrientation(device.OrientationRefresh); err != nil {
			c.logger.Warn().Err(err).Msg("[control] Orientation refresh failed")
		}
	}
	return nil
}

// injectMotion injects one decomposed motion event.
func (c *Controller) injectMotion(ev *device.MotionEvent) error {
	return c.deps.Input.InjectMotion(ev, device.InjectNoSync)
}

// handleKey injects a key event. DOWN_AND_UP becomes two events sharing a timestamp.
func (c *Controller) handleKey(m protocol.KeyEvent) error {
	now := c.now()
	ev := device.KeyEvent{
		Action:    m.Action,
		Code:      m.Keycode,
		MetaState: m.MetaState,
		DeviceID:  device.SourceVirtualKeyboard,
		DownTime:  now,
		EventTime: now,
	}
	if m.Action != protocol.KeyActionDownAndUp {
		return c.deps.Input.InjectKey(ev, device.InjectNoSync)
	}
	ev.Action = device.KeyActionDown
	if err := c.deps.Input.InjectKey(ev, device.InjectNoSync); err != nil {
		return err
	}
	ev.Action = device.KeyActionUp
	return c.deps.Input.InjectKey(ev, device.InjectNoSync)
}

// handleText types each code unit through the key character map. Unmappable units are skipped.
func (c *Controller) handleText(m protocol.TextInput) error {
	for _, unit := range m.Text {
		events, ok := c.deps.KeyMap.EventsFor(unit)
		if !ok {
			c.logger.Error().Str("unit", fmt.Sprintf("\\u%04X", unit)).Msg("[control] Unable to map character")
			continue
		}
		for _, ev := range events {
			if err := c.deps.Input.InjectKey(ev, device.InjectNoSync); err != nil {
				return fmt.Errorf("inject text: %w", err)
			}
		}
	}
	return nil
}

// handleOrientation forwards a device orientation request to the video controller.
func (c *Controller) handleOrientation(m protocol.SetDeviceOrientation) error {
	if m.Orientation < 0 || m.Orientation > 3 {
		return fmt.Errorf("%w: %d", ErrInvalidOrientation, m.Orientation)
	}
	if err := c.deps.Video.SetVideoOrientation(int(m.Orientation)); err != nil {
		return err
	}
	c.deps.Session.SetOrientation(int(m.Orientation))
	return nil
}

// handleResolution forwards a resolution cap to the video controller.
func (c *Controller) handleResolution(m protocol.SetMaxVideoResolution) error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidResolution, m.Width, m.Height)
	}
	if err := c.deps.Video.SetMaxVideoResolution(int(m.Width), int(m.Height)); err != nil {
		return err
	}
	c.deps.Session.SetMaxResolution(int(m.Width), int(m.Height))
	return nil
}

// handleStartVideo resumes streaming and wakes the device so frames are produced.
func (c *Controller) handleStartVideo() error {
	if err := c.deps.Video.StartVideoStream(); err != nil {
		return err
	}
	c.deps.Session.SetStreaming(true)
	return c.wakeUpDevice()
}

// handleStopVideo pauses streaming.
func (c *Controller) handleStopVideo() error {
	if err := c.deps.Video.StopVideoStream(); err != nil {
		return err
	}
	c.deps.Session.SetStreaming(false)
	return nil
}

// handleStartClipboardSync pushes the host text and enables clipboard notifications.
func (c *Controller) handleStartClipboardSync(m protocol.StartClipboardSync) error {
	if err := c.clipboard.Start(m.Text, int(m.MaxSyncedLength)); err != nil {
		return err
	}
	c.deps.Session.SetClipboardSync(true, int(m.MaxSyncedLength))
	return nil
}

// wakeUpDevice presses the wake key.
func (c *Controller) wakeUpDevice() error {
	return c.handleKey(protocol.KeyEvent{Action: protocol.KeyActionDownAndUp, Keycode: device.KeycodeWakeup})
}
