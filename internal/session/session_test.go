package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestAuthorize_Token verifies token checks.
func TestAuthorize_Token(t *testing.T) {
	s := New("secret")
	require.True(t, s.Authorize("secret"))
	require.False(t, s.Authorize("nope"))
	require.False(t, s.Authorize(""))
}

// TestAuthorize_NoToken verifies an empty token disables authorization.
func TestAuthorize_NoToken(t *testing.T) {
	s := New("")
	require.True(t, s.Authorize("anything"))
}

// TestTryConnect_SingleConnection verifies only one control connection is accepted.
func TestTryConnect_SingleConnection(t *testing.T) {
	s := New("")
	require.True(t, s.TryConnect())
	require.False(t, s.TryConnect())
	s.Disconnect()
	require.True(t, s.TryConnect())
}

// TestDisconnect_ClearsClipboardSync verifies disconnect resets clipboard sync state.
func TestDisconnect_ClearsClipboardSync(t *testing.T) {
	s := New("")
	require.True(t, s.TryConnect())
	s.SetClipboardSync(true, 100)
	s.Disconnect()
	snap := s.Snapshot()
	require.False(t, snap.Connected)
	require.False(t, snap.ClipboardSync)
	require.Zero(t, snap.ClipboardMaxLength)
}

// TestSnapshot verifies snapshot content.
func TestSnapshot(t *testing.T) {
	s := New("")
	touch := time.Unix(100, 0)
	s.SetOrientation(2)
	s.SetMaxResolution(1280, 720)
	s.SetStreaming(true)
	s.RecordTouch(touch)
	snap := s.Snapshot()
	require.Equal(t, 2, snap.Orientation)
	require.Equal(t, 1280, snap.MaxWidth)
	require.Equal(t, 720, snap.MaxHeight)
	require.True(t, snap.Streaming)
	require.Equal(t, touch, snap.LastTouch)
}

// TestNew_Defaults verifies initial state.
func TestNew_Defaults(t *testing.T) {
	s := New("")
	require.Equal(t, OrientationAuto, s.Orientation())
	require.False(t, s.Streaming())
	w, h := s.MaxResolution()
	require.Zero(t, w)
	require.Zero(t, h)
}
