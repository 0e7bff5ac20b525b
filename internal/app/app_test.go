package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frudas24/mirroragent/internal/config"
	"github.com/frudas24/mirroragent/internal/control"
	"github.com/frudas24/mirroragent/internal/device"
	"github.com/frudas24/mirroragent/internal/session"
	"github.com/frudas24/mirroragent/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testApp bundles an app with its fakes.
type testApp struct {
	app      *App
	input    *testutil.FakeInjector
	video    *testutil.FakeVideo
	keyboard testutil.FakeKeyMap
}

// newTestApp returns an App over fakes protected by token.
func newTestApp(t *testing.T, token string) *testApp {
	t.Helper()
	ta := &testApp{
		input:    &testutil.FakeInjector{},
		video:    &testutil.FakeVideo{},
		keyboard: testutil.FakeKeyMap{},
	}
	cfg := config.Default()
	cfg.ClipboardPollInterval = 20 * time.Millisecond
	app, err := New(cfg, session.New(token), Components{
		Input:     ta.input,
		KeyMap:    ta.keyboard,
		Clipboard: testutil.NewFakeClipboard(""),
		Display:   &testutil.FakeDisplay{Info: device.DisplayInfo{NaturalWidth: 1080, NaturalHeight: 2400}},
		Video:     ta.video,
	}, zerolog.Nop())
	require.NoError(t, err)
	ta.app = app
	return ta
}

// TestNew_RequiresComponents verifies missing adapters are rejected.
func TestNew_RequiresComponents(t *testing.T) {
	_, err := New(config.Default(), nil, Components{}, zerolog.Nop())
	require.Error(t, err)
	_, err = New(config.Default(), session.New(""), Components{}, zerolog.Nop())
	require.Error(t, err)
}

// TestHandleState_Unauthorized verifies /api/state requires the token.
func TestHandleState_Unauthorized(t *testing.T) {
	ta := newTestApp(t, "pw")
	rec := httptest.NewRecorder()
	ta.app.Handler(context.Background()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	ta.app.Handler(context.Background()).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

// TestHandleState_Snapshot verifies the session snapshot is returned to authorized clients.
func TestHandleState_Snapshot(t *testing.T) {
	ta := newTestApp(t, "pw")
	ta.app.Session().SetMaxResolution(1280, 720)
	ta.app.Session().SetStreaming(true)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/state?token=pw", nil),
		func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/state", nil)
			r.Header.Set("Authorization", "Bearer pw")
			return r
		}(),
	} {
		rec := httptest.NewRecorder()
		ta.app.Handler(context.Background()).ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var snap session.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		require.Equal(t, 1280, snap.MaxWidth)
		require.Equal(t, 720, snap.MaxHeight)
		require.True(t, snap.Streaming)
		require.Equal(t, session.OrientationAuto, snap.Orientation)
	}
}

// TestHandleState_MethodNotAllowed verifies only GET is served.
func TestHandleState_MethodNotAllowed(t *testing.T) {
	ta := newTestApp(t, "")
	rec := httptest.NewRecorder()
	ta.app.Handler(context.Background()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/state", strings.NewReader("{}")))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// TestHandleControl_Script verifies a control connection drives the adapters and records session state.
func TestHandleControl_Script(t *testing.T) {
	ta := newTestApp(t, "")
	conn := testutil.NewScriptConn(testutil.Step{Data: testutil.Concat(
		testutil.ResolutionFrame(1280, 720),
		testutil.KeyFrame(0, 66, 0),
	)})
	require.NoError(t, ta.app.HandleControl(context.Background(), conn))

	require.Equal(t, []byte{control.StreamMarker}, conn.Written())
	require.Equal(t, []string{"resolution 1280x720"}, ta.video.CallList())
	require.Len(t, ta.input.KeyCalls(), 1)
	w, h := ta.app.Session().MaxResolution()
	require.Equal(t, 1280, w)
	require.Equal(t, 720, h)
}

// TestWebsocketControl verifies /ws/control serves the control channel and admits one client.
func TestWebsocketControl(t *testing.T) {
	ta := newTestApp(t, "pw")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(ta.app.Handler(ctx))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/control"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	ws, _, err := websocket.DefaultDialer.Dial(url+"?token=pw", nil)
	require.NoError(t, err)
	defer ws.Close()

	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, []byte("C"), data)
	require.Eventually(t, ta.app.Session().Connected, time.Second, 5*time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(url+"?token=pw", nil)
	require.NoError(t, err)
	_, _, err = second.ReadMessage()
	require.Error(t, err)
	_ = second.Close()

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, testutil.OrientationFrame(2)))
	require.Eventually(t, func() bool { return ta.app.Session().Orientation() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return !ta.app.Session().Connected() }, time.Second, 5*time.Millisecond)
}

// TestViewerPolicy verifies configured names map to policies.
func TestViewerPolicy(t *testing.T) {
	require.Equal(t, 0, int(viewerPolicy("reject")))
	require.Equal(t, 1, int(viewerPolicy("replace")))
}

// TestClose_RunsClosersInReverse verifies registered closers run last-in first-out.
func TestClose_RunsClosersInReverse(t *testing.T) {
	ta := newTestApp(t, "")
	var order []int
	ta.app.AddCloser(func() error { order = append(order, 1); return nil })
	ta.app.AddCloser(func() error { order = append(order, 2); return nil })
	require.NoError(t, ta.app.Close())
	require.Equal(t, []int{2, 1}, order)
	require.NoError(t, ta.app.Close())
	require.Equal(t, []int{2, 1}, order)
}
