// Package video runs the screen capture pipeline and publishes it over WebRTC.
package video

import (
	"fmt"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
	"github.com/rs/zerolog"
)

// rtcpBufferSize fits one RTCP compound packet.
const rtcpBufferSize = 1500

// Publisher feeds the encoder's RTP output into a single H264 track shared by every viewer peer.
type Publisher struct {
	api    *webrtc.API
	track  *webrtc.TrackLocalStaticRTP
	ingest *rtpIngest
	logger zerolog.Logger

	mu   sync.Mutex
	peer *webrtc.PeerConnection
}

// NewPublisher builds the WebRTC API with default codecs and interceptors and creates the video track.
func NewPublisher(logger zerolog.Logger) (*Publisher, error) {
	api, err := newAPI()
	if err != nil {
		return nil, err
	}
	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264},
		"screen",
		"mirroragent",
	)
	if err != nil {
		return nil, fmt.Errorf("create track: %w", err)
	}
	return &Publisher{
		api:    api,
		track:  track,
		ingest: newRTPIngest(logger),
		logger: logger,
	}, nil
}

// newAPI returns a WebRTC API with the default media engine and interceptor chain.
func newAPI() (*webrtc.API, error) {
	var media webrtc.MediaEngine
	if err := media.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("register codecs: %w", err)
	}
	var registry interceptor.Registry
	if err := webrtc.RegisterDefaultInterceptors(&media, &registry); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}
	return webrtc.NewAPI(webrtc.WithMediaEngine(&media), webrtc.WithInterceptorRegistry(&registry)), nil
}

// NewPeer closes any previous peer and returns a new one sending the video track.
func (p *Publisher) NewPeer() (*webrtc.PeerConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closePeerLocked()

	peer, err := p.api.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return nil, fmt.Errorf("new peer: %w", err)
	}
	sender, err := peer.AddTrack(p.track)
	if err != nil {
		_ = peer.Close()
		return nil, fmt.Errorf("add track: %w", err)
	}
	go drainRTCP(sender)
	peer.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.logger.Debug().Stringer("state", state).Msg("[video] Peer state changed")
	})
	p.peer = peer
	return peer, nil
}

// ClosePeer closes the current peer connection, if any.
func (p *Publisher) ClosePeer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closePeerLocked()
}

// closePeerLocked closes and forgets the current peer.
func (p *Publisher) closePeerLocked() {
	if p.peer == nil {
		return
	}
	if err := p.peer.Close(); err != nil {
		p.logger.Debug().Err(err).Msg("[video] Peer close failed")
	}
	p.peer = nil
}

// Attach starts forwarding RTP received on the local UDP port into the track.
func (p *Publisher) Attach(port int) error {
	return p.ingest.start(port, p.track)
}

// Detach stops forwarding and releases the UDP port.
func (p *Publisher) Detach() {
	p.ingest.stop()
}

// drainRTCP reads sender reports until the sender closes. Interceptors only run while RTCP is read.
func drainRTCP(sender *webrtc.RTPSender) {
	buf := make([]byte, rtcpBufferSize)
	for {
		if _, _, err := sender.Read(buf); err != nil {
			return
		}
	}
}
