package video

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frudas24/mirroragent/internal/display"
	"github.com/gorilla/websocket"
	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testMonitor = display.Monitor{Index: 0, X: 1920, Y: 0, W: 1920, H: 1080, Primary: true}

// TestFitWithin verifies aspect-preserving even sizes.
func TestFitWithin(t *testing.T) {
	w, h, ok := fitWithin(1920, 1080, 1280, 1280)
	require.True(t, ok)
	require.Equal(t, 1280, w)
	require.Equal(t, 720, h)

	w, h, ok = fitWithin(1920, 1080, 2000, 540)
	require.True(t, ok)
	require.Equal(t, 960, w)
	require.Equal(t, 540, h)

	_, _, ok = fitWithin(1920, 1080, 0, 0)
	require.False(t, ok)
	_, _, ok = fitWithin(800, 600, 1920, 1080)
	require.False(t, ok)

	w, h, ok = fitWithin(1001, 1001, 333, 333)
	require.True(t, ok)
	require.Equal(t, 332, w)
	require.Equal(t, 332, h)
}

// TestBuildFilter verifies scaling and rotation filters.
func TestBuildFilter(t *testing.T) {
	require.Empty(t, buildFilter(CaptureConfig{Monitor: testMonitor}))
	require.Equal(t, "scale=1280:720", buildFilter(CaptureConfig{Monitor: testMonitor, MaxWidth: 1280, MaxHeight: 1280}))
	require.Equal(t, "transpose=1", buildFilter(CaptureConfig{Monitor: testMonitor, Orientation: 1}))
	require.Equal(t, "hflip,vflip", buildFilter(CaptureConfig{Monitor: testMonitor, Orientation: 2}))
	// Portrait cap on a rotated stream applies to the unrotated frame.
	require.Equal(t, "scale=1280:720,transpose=2", buildFilter(CaptureConfig{Monitor: testMonitor, MaxWidth: 720, MaxHeight: 1280, Orientation: 3}))
}

// TestBuildArgs verifies capture offsets, grabber selection and RTP target.
func TestBuildArgs(t *testing.T) {
	opts := Options{FPS: 30, BitrateKbps: 4000}
	args := strings.Join(BuildArgs(CaptureConfig{Monitor: testMonitor}, opts, 5004, true), " ")
	require.Contains(t, args, "-f d3d11grab")
	require.Contains(t, args, "-offset_x 1920 -offset_y 0")
	require.Contains(t, args, "-video_size 1920x1080")
	require.Contains(t, args, "-b:v 4000k")
	require.Contains(t, args, "rtp://127.0.0.1:5004")
	require.NotContains(t, args, "-vf")

	args = strings.Join(BuildArgs(CaptureConfig{Monitor: testMonitor, Orientation: 1}, opts, 5004, false), " ")
	require.Contains(t, args, "-f gdigrab")
	require.Contains(t, args, "-vf transpose=1")

	args = strings.Join(BuildArgs(CaptureConfig{Monitor: testMonitor}, Options{FPS: 5, CaptureDriver: "ddagrab"}, 1, true), " ")
	require.Contains(t, args, "-f ddagrab")
	require.Contains(t, args, "-g 15")
}

// TestAllocatePort verifies a usable port is returned.
func TestAllocatePort(t *testing.T) {
	port, err := allocatePort()
	require.NoError(t, err)
	require.Positive(t, port)
}

// TestRunner_RequiresPath verifies a missing ffmpeg path is rejected.
func TestRunner_RequiresPath(t *testing.T) {
	r := NewRunner("", zerolog.Nop())
	_, err := r.Restart(func(int, bool) []string { return nil })
	require.Error(t, err)
	require.NoError(t, r.Stop())
}

// TestRTPRewriterSequence ensures outgoing sequence numbers are contiguous regardless of input sequence.
func TestRTPRewriterSequence(t *testing.T) {
	var rw rtpRewriter
	p := &rtp.Packet{Header: rtp.Header{SequenceNumber: 100, Timestamp: 10, PayloadType: 96, SSRC: 1}}
	rw.Apply(p)
	first := p.SequenceNumber

	p2 := &rtp.Packet{Header: rtp.Header{SequenceNumber: 1, Timestamp: 20, PayloadType: 96, SSRC: 1}}
	rw.Apply(p2)
	require.Equal(t, first+1, p2.SequenceNumber)
}

// TestRTPRewriterTimestampGrouping keeps packets of one frame on one output timestamp.
func TestRTPRewriterTimestampGrouping(t *testing.T) {
	var rw rtpRewriter
	p1 := &rtp.Packet{Header: rtp.Header{SequenceNumber: 1, Timestamp: 1000}}
	rw.Apply(p1)
	base := p1.Timestamp

	p2 := &rtp.Packet{Header: rtp.Header{SequenceNumber: 2, Timestamp: 1000}}
	rw.Apply(p2)
	require.Equal(t, base, p2.Timestamp)

	p3 := &rtp.Packet{Header: rtp.Header{SequenceNumber: 3, Timestamp: 1300}}
	rw.Apply(p3)
	require.Equal(t, base+300, p3.Timestamp)
}

// TestRTPRewriterRestartJump verifies an encoder restart keeps timestamps monotonic.
func TestRTPRewriterRestartJump(t *testing.T) {
	var rw rtpRewriter
	p1 := &rtp.Packet{Header: rtp.Header{SequenceNumber: 1, Timestamp: 5000}}
	rw.Apply(p1)
	p2 := &rtp.Packet{Header: rtp.Header{SequenceNumber: 2, Timestamp: 8000}}
	rw.Apply(p2)
	require.Greater(t, p2.Timestamp, p1.Timestamp)

	p3 := &rtp.Packet{Header: rtp.Header{SequenceNumber: 1, Timestamp: 10}}
	rw.Apply(p3)
	require.Equal(t, p2.Timestamp+defaultTimestampStep, p3.Timestamp)

	p4 := &rtp.Packet{Header: rtp.Header{SequenceNumber: 2, Timestamp: 10}}
	rw.Apply(p4)
	require.Equal(t, p3.Timestamp, p4.Timestamp)
}

// fakePipeline records restarts.
type fakePipeline struct {
	restarts []CaptureConfig
	stops    int
	err      error
}

// Restart records cfg.
func (p *fakePipeline) Restart(cfg CaptureConfig) error {
	if p.err != nil {
		return p.err
	}
	p.restarts = append(p.restarts, cfg)
	return nil
}

// Stop counts stops.
func (p *fakePipeline) Stop() error {
	p.stops++
	return nil
}

// newTestController returns a controller over a fake pipeline.
func newTestController() (*Controller, *fakePipeline) {
	p := &fakePipeline{}
	c := NewController(p, func() (display.Monitor, error) { return testMonitor, nil }, zerolog.Nop())
	return c, p
}

// TestController_StartStop verifies the stream lifecycle.
func TestController_StartStop(t *testing.T) {
	c, p := newTestController()
	require.False(t, c.Streaming())

	require.NoError(t, c.StopVideoStream())
	require.Zero(t, p.stops)

	require.NoError(t, c.StartVideoStream())
	require.True(t, c.Streaming())
	require.Equal(t, []CaptureConfig{{Monitor: testMonitor}}, p.restarts)

	require.NoError(t, c.Close())
	require.False(t, c.Streaming())
	require.Equal(t, 1, p.stops)
}

// TestController_ShapeChanges verifies restarts happen only for changes while streaming.
func TestController_ShapeChanges(t *testing.T) {
	c, p := newTestController()

	require.NoError(t, c.SetMaxVideoResolution(1280, 720))
	require.NoError(t, c.SetVideoOrientation(1))
	require.Empty(t, p.restarts)

	require.NoError(t, c.StartVideoStream())
	require.Len(t, p.restarts, 1)
	require.Equal(t, CaptureConfig{Monitor: testMonitor, MaxWidth: 1280, MaxHeight: 720, Orientation: 1}, p.restarts[0])

	require.NoError(t, c.SetMaxVideoResolution(1280, 720))
	require.NoError(t, c.SetVideoOrientation(1))
	require.Len(t, p.restarts, 1)

	require.NoError(t, c.SetVideoOrientation(2))
	require.Len(t, p.restarts, 2)
	require.Equal(t, 2, p.restarts[1].Orientation)
}

// TestController_RefreshKeepsOrientation verifies a negative orientation keeps the lock
// and restarts only when the monitor geometry changed.
func TestController_RefreshKeepsOrientation(t *testing.T) {
	p := &fakePipeline{}
	monitor := testMonitor
	c := NewController(p, func() (display.Monitor, error) { return monitor, nil }, zerolog.Nop())

	require.NoError(t, c.SetVideoOrientation(-1))
	require.Equal(t, orientationAuto, c.Orientation())
	require.Empty(t, p.restarts)

	require.NoError(t, c.StartVideoStream())
	require.NoError(t, c.SetVideoOrientation(1))
	require.Len(t, p.restarts, 2)

	require.NoError(t, c.SetVideoOrientation(-1))
	require.Equal(t, 1, c.Orientation())
	require.Len(t, p.restarts, 2)

	monitor.W, monitor.H = 1080, 1920
	require.NoError(t, c.SetVideoOrientation(-1))
	require.Len(t, p.restarts, 3)
	require.Equal(t, 1, p.restarts[2].Orientation)
	require.Equal(t, monitor, p.restarts[2].Monitor)

	require.NoError(t, c.SetVideoOrientation(-1))
	require.Len(t, p.restarts, 3)

	require.NoError(t, c.StopVideoStream())
	monitor.W = 800
	require.NoError(t, c.SetVideoOrientation(-1))
	require.Len(t, p.restarts, 3)
}

// TestController_RestartError verifies pipeline and monitor failures surface.
func TestController_RestartError(t *testing.T) {
	boom := errors.New("boom")
	c, p := newTestController()
	p.err = boom
	require.ErrorIs(t, c.StartVideoStream(), boom)
	require.NoError(t, c.StopVideoStream())
	require.Zero(t, p.stops)

	c = NewController(&fakePipeline{}, func() (display.Monitor, error) { return display.Monitor{}, boom }, zerolog.Nop())
	require.ErrorIs(t, c.StartVideoStream(), boom)
}

// TestSignalMessage_JSON verifies offer and ICE payloads decode.
func TestSignalMessage_JSON(t *testing.T) {
	var msg SignalMessage
	require.NoError(t, json.Unmarshal([]byte(`{"t":"offer","sdp":"v=0"}`), &msg))
	require.Equal(t, "offer", msg.T)
	require.Equal(t, "v=0", msg.SDP)

	msg = SignalMessage{}
	payload := `{"t":"ice","candidate":{"candidate":"candidate:1 1 UDP 2122252543 192.0.2.3 54400 typ host"}}`
	require.NoError(t, json.Unmarshal([]byte(payload), &msg))
	require.NotNil(t, msg.Candidate)
	require.NotEmpty(t, msg.Candidate.Candidate)

	raw, err := json.Marshal(SignalMessage{T: "restart"})
	require.NoError(t, err)
	require.JSONEq(t, `{"t":"restart"}`, string(raw))
}

// newSignalingTest serves a signaling endpoint and returns its websocket URL.
func newSignalingTest(t *testing.T, policy ViewerPolicy, authorize func(*http.Request) bool) (*SignalingServer, string) {
	t.Helper()
	pub, err := NewPublisher(zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(pub.ClosePeer)
	s := NewSignalingServer(pub, policy, authorize, zerolog.Nop())
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// hasViewer reports whether s serves a viewer.
func hasViewer(s *SignalingServer) func() bool {
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.active != nil
	}
}

// TestSignaling_Unauthorized verifies rejected requests are not upgraded.
func TestSignaling_Unauthorized(t *testing.T) {
	_, url := newSignalingTest(t, ViewerReplace, func(*http.Request) bool { return false })
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestSignaling_RejectPolicy verifies a second viewer is closed with a policy violation.
func TestSignaling_RejectPolicy(t *testing.T) {
	s, url := newSignalingTest(t, ViewerReject, nil)
	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer first.Close()
	require.Eventually(t, hasViewer(s), time.Second, 5*time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer second.Close()
	_, _, err = second.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	require.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)
}

// TestSignaling_NotifyRestart verifies the active viewer receives restart messages.
func TestSignaling_NotifyRestart(t *testing.T) {
	s, url := newSignalingTest(t, ViewerReplace, nil)
	s.NotifyRestart()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Eventually(t, hasViewer(s), time.Second, 5*time.Millisecond)

	s.NotifyRestart()
	var msg SignalMessage
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, ws.ReadJSON(&msg))
	require.Equal(t, "restart", msg.T)

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return !hasViewer(s)() }, time.Second, 5*time.Millisecond)
}
