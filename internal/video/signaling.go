// Package video runs the screen capture pipeline and publishes it over WebRTC.
package video

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog"
)

// SignalMessage is a websocket signaling payload.
type SignalMessage struct {
	T         string                   `json:"t"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

// ViewerPolicy controls how additional viewers are handled.
type ViewerPolicy int

const (
	// ViewerReject rejects new viewers when one is active.
	ViewerReject ViewerPolicy = iota
	// ViewerReplace closes the active viewer when a new one arrives.
	ViewerReplace
)

// errViewerActive reports a rejected viewer.
var errViewerActive = errors.New("viewer already connected")

// viewer is one connected signaling client and its peer connection.
type viewer struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	peer    *webrtc.PeerConnection
}

// send writes one signaling message.
func (v *viewer) send(msg SignalMessage) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	return v.conn.WriteJSON(msg)
}

// SignalingServer negotiates WebRTC viewers over websocket. One viewer is served at a time.
type SignalingServer struct {
	mu        sync.Mutex
	active    *viewer
	upgrader  websocket.Upgrader
	publisher *Publisher
	policy    ViewerPolicy
	authorize func(*http.Request) bool
	logger    zerolog.Logger
}

// NewSignalingServer returns a signaling endpoint for publisher.
func NewSignalingServer(publisher *Publisher, policy ViewerPolicy, authorize func(*http.Request) bool, logger zerolog.Logger) *SignalingServer {
	return &SignalingServer{
		publisher: publisher,
		policy:    policy,
		authorize: authorize,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and exchanges SDP and ICE messages until the viewer leaves.
func (s *SignalingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.authorize != nil && !s.authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("[video] Signaling upgrade failed")
		return
	}
	v := &viewer{conn: conn}
	if err := s.admit(v); err != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()), deadline)
		_ = conn.Close()
		return
	}
	defer s.release(v)

	peer, err := s.publisher.NewPeer()
	if err != nil {
		s.logger.Error().Err(err).Msg("[video] Peer creation failed")
		return
	}
	if !s.bindPeer(v, peer) {
		_ = peer.Close()
		return
	}
	peer.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil || !s.isActive(v) {
			return
		}
		candidate := c.ToJSON()
		_ = v.send(SignalMessage{T: "ice", Candidate: &candidate})
	})
	s.logger.Info().Str("remote", r.RemoteAddr).Msg("[video] Viewer connected")

	for {
		var msg SignalMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Info().Str("remote", r.RemoteAddr).Msg("[video] Viewer disconnected")
			return
		}
		if err := s.handle(v, msg); err != nil {
			s.logger.Warn().Err(err).Str("type", msg.T).Msg("[video] Signaling failed")
			return
		}
	}
}

// NotifyRestart tells the active viewer the encoder restarted so it renegotiates.
func (s *SignalingServer) NotifyRestart() {
	s.mu.Lock()
	v := s.active
	s.mu.Unlock()
	if v != nil {
		_ = v.send(SignalMessage{T: "restart"})
	}
}

// admit makes v the active viewer according to the viewer policy.
func (s *SignalingServer) admit(v *viewer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.active; prev != nil {
		if s.policy != ViewerReplace {
			return errViewerActive
		}
		s.logger.Info().Msg("[video] Replacing active viewer")
		_ = prev.conn.Close()
	}
	s.active = v
	return nil
}

// bindPeer attaches peer to v unless v was displaced meanwhile.
func (s *SignalingServer) bindPeer(v *viewer, peer *webrtc.PeerConnection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != v {
		return false
	}
	v.peer = peer
	return true
}

// isActive reports whether v is still the served viewer.
func (s *SignalingServer) isActive(v *viewer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active == v
}

// release drops v and its peer once its websocket loop ends.
func (s *SignalingServer) release(v *viewer) {
	s.mu.Lock()
	if s.active == v {
		s.active = nil
	}
	peer := v.peer
	v.peer = nil
	s.mu.Unlock()
	if peer != nil {
		_ = peer.Close()
	}
	_ = v.conn.Close()
}

// handle applies one viewer message. Unknown types are ignored.
func (s *SignalingServer) handle(v *viewer, msg SignalMessage) error {
	switch msg.T {
	case "offer":
		return s.answer(v, msg.SDP)
	case "ice":
		if msg.Candidate == nil {
			return nil
		}
		return v.peer.AddICECandidate(*msg.Candidate)
	}
	return nil
}

// answer applies a remote offer and replies once ICE gathering is complete.
func (s *SignalingServer) answer(v *viewer, sdp string) error {
	if sdp == "" {
		return errors.New("empty offer")
	}
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := v.peer.SetRemoteDescription(offer); err != nil {
		return err
	}
	answer, err := v.peer.CreateAnswer(nil)
	if err != nil {
		return err
	}
	gathered := webrtc.GatheringCompletePromise(v.peer)
	if err := v.peer.SetLocalDescription(answer); err != nil {
		return err
	}
	<-gathered
	local := v.peer.LocalDescription()
	if local == nil {
		return errors.New("missing local description")
	}
	return v.send(SignalMessage{T: "answer", SDP: local.SDP})
}
