// Package wininput injects device input and clipboard changes through WinAPI.
package wininput

import "github.com/frudas24/mirroragent/internal/device"

// Android key codes translated to virtual keys.
const (
	keycodeHome        int32 = 3
	keycodeBack        int32 = 4
	keycode0           int32 = 7
	keycode9           int32 = 16
	keycodeDpadUp      int32 = 19
	keycodeDpadDown    int32 = 20
	keycodeDpadLeft    int32 = 21
	keycodeDpadRight   int32 = 22
	keycodeVolumeUp    int32 = 24
	keycodeVolumeDown  int32 = 25
	keycodeA           int32 = 29
	keycodeZ           int32 = 54
	keycodeTab         int32 = 61
	keycodeSpace       int32 = 62
	keycodeEnter       int32 = 66
	keycodeDel         int32 = 67
	keycodePageUp      int32 = 92
	keycodePageDown    int32 = 93
	keycodeEscape      int32 = 111
	keycodeForwardDel  int32 = 112
	keycodeMoveHome    int32 = 122
	keycodeMoveEnd     int32 = 123
	keycodeVolumeMute  int32 = 164
	keycodeMediaToggle int32 = 85
)

// Android meta state bits.
const (
	metaShiftOn int32 = 0x1
	metaAltOn   int32 = 0x2
	metaCtrlOn  int32 = 0x1000
	metaMetaOn  int32 = 0x10000
)

// Virtual key codes.
const (
	vkBack           uint16 = 0x08
	vkTab            uint16 = 0x09
	vkReturn         uint16 = 0x0D
	vkShift          uint16 = 0x10
	vkControl        uint16 = 0x11
	vkMenu           uint16 = 0x12
	vkEscape         uint16 = 0x1B
	vkSpace          uint16 = 0x20
	vkPrior          uint16 = 0x21
	vkNext           uint16 = 0x22
	vkEnd            uint16 = 0x23
	vkHome           uint16 = 0x24
	vkLeft           uint16 = 0x25
	vkUp             uint16 = 0x26
	vkRight          uint16 = 0x27
	vkDown           uint16 = 0x28
	vkDelete         uint16 = 0x2E
	vkLWin           uint16 = 0x5B
	vkBrowserBack    uint16 = 0xA6
	vkBrowserHome    uint16 = 0xAC
	vkVolumeMute     uint16 = 0xAD
	vkVolumeDown     uint16 = 0xAE
	vkVolumeUp       uint16 = 0xAF
	vkMediaPlayPause uint16 = 0xB3
)

// unicodeKeycodeBase marks key codes that carry a UTF-16 unit instead of a key.
const unicodeKeycodeBase int32 = 1 << 24

var keycodeToVK = map[int32]uint16{
	keycodeHome:        vkBrowserHome,
	keycodeBack:        vkBrowserBack,
	keycodeDpadUp:      vkUp,
	keycodeDpadDown:    vkDown,
	keycodeDpadLeft:    vkLeft,
	keycodeDpadRight:   vkRight,
	keycodeVolumeUp:    vkVolumeUp,
	keycodeVolumeDown:  vkVolumeDown,
	keycodeVolumeMute:  vkVolumeMute,
	keycodeMediaToggle: vkMediaPlayPause,
	keycodeTab:         vkTab,
	keycodeSpace:       vkSpace,
	keycodeEnter:       vkReturn,
	keycodeDel:         vkBack,
	keycodeForwardDel:  vkDelete,
	keycodeEscape:      vkEscape,
	keycodePageUp:      vkPrior,
	keycodePageDown:    vkNext,
	keycodeMoveHome:    vkHome,
	keycodeMoveEnd:     vkEnd,
}

// UnicodeKeycode returns the key code typing a single UTF-16 unit.
func UnicodeKeycode(unit uint16) int32 {
	return unicodeKeycodeBase | int32(unit)
}

// unicodeUnit returns the unit carried by a UnicodeKeycode.
func unicodeUnit(code int32) (uint16, bool) {
	if code&^0xffff != unicodeKeycodeBase {
		return 0, false
	}
	return uint16(code), true
}

// virtualKey returns the virtual key for an Android key code.
func virtualKey(code int32) (uint16, bool) {
	switch {
	case code == device.KeycodeWakeup:
		return vkShift, true
	case code >= keycodeA && code <= keycodeZ:
		return uint16('A' + code - keycodeA), true
	case code >= keycode0 && code <= keycode9:
		return uint16('0' + code - keycode0), true
	}
	vk, ok := keycodeToVK[code]
	return vk, ok
}

// modifierKeys returns the virtual keys held for a meta state, outermost first.
func modifierKeys(meta int32) []uint16 {
	var keys []uint16
	if meta&metaCtrlOn != 0 {
		keys = append(keys, vkControl)
	}
	if meta&metaAltOn != 0 {
		keys = append(keys, vkMenu)
	}
	if meta&metaShiftOn != 0 {
		keys = append(keys, vkShift)
	}
	if meta&metaMetaOn != 0 {
		keys = append(keys, vkLWin)
	}
	return keys
}

// CharMap implements device.KeyCharacterMap for a desktop keyboard.
// Printable units are typed as Unicode input; control characters other than newline and tab are unmappable.
type CharMap struct{}

// Ensure CharMap implements the interface.
var _ device.KeyCharacterMap = CharMap{}

// EventsFor returns the press and release events typing unit.
func (CharMap) EventsFor(unit uint16) ([]device.KeyEvent, bool) {
	var code int32
	switch {
	case unit == '\n':
		code = keycodeEnter
	case unit == '\t':
		code = keycodeTab
	case unit < 0x20 || unit == 0x7f:
		return nil, false
	default:
		code = UnicodeKeycode(unit)
	}
	return []device.KeyEvent{
		{Action: device.KeyActionDown, Code: code, DeviceID: device.SourceVirtualKeyboard},
		{Action: device.KeyActionUp, Code: code, DeviceID: device.SourceVirtualKeyboard},
	}, true
}
