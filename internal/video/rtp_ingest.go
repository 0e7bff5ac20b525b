// Package video runs the screen capture pipeline and publishes it over WebRTC.
package video

import (
	"errors"
	"net"
	"sync"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
)

const (
	// defaultTimestampStep is one frame at 30 fps on the 90 kHz video clock.
	defaultTimestampStep uint32 = 90000 / 30
	// maxTimestampStep is the largest input gap forwarded as is; larger jumps mean an encoder restart.
	maxTimestampStep uint32 = 90000
)

// rtpPacketWriter receives rewritten packets.
type rtpPacketWriter interface {
	WriteRTP(p *rtp.Packet) error
}

// rtpRewriter keeps sequence numbers contiguous and timestamps monotonic across encoder restarts.
// Viewers stay attached to one track while ffmpeg is restarted for resolution or orientation changes.
type rtpRewriter struct {
	started  bool
	seq      uint16
	lastInTS uint32
	outTS    uint32
}

// Apply rewrites the packet header in place.
func (rw *rtpRewriter) Apply(p *rtp.Packet) {
	if !rw.started {
		rw.started = true
		rw.seq = p.SequenceNumber
		rw.lastInTS = p.Timestamp
		rw.outTS = p.Timestamp
	} else {
		rw.seq++
		if p.Timestamp != rw.lastInTS {
			delta := p.Timestamp - rw.lastInTS
			if delta > maxTimestampStep {
				delta = defaultTimestampStep
			}
			rw.outTS += delta
			rw.lastInTS = p.Timestamp
		}
	}
	p.SequenceNumber = rw.seq
	p.Timestamp = rw.outTS
}

// rtpIngest reads RTP from a local UDP port and forwards it into a track.
type rtpIngest struct {
	mu       sync.Mutex
	conn     *net.UDPConn
	done     chan struct{}
	rewriter rtpRewriter
	logger   zerolog.Logger
}

// newRTPIngest returns an idle ingest.
func newRTPIngest(logger zerolog.Logger) *rtpIngest {
	return &rtpIngest{logger: logger}
}

// start binds port and forwards packets to w, replacing any previous binding.
func (l *rtpIngest) start(port int, w rtpPacketWriter) error {
	l.stop()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port})
	if err != nil {
		return err
	}
	done := make(chan struct{})
	l.mu.Lock()
	l.conn = conn
	l.done = done
	l.mu.Unlock()
	go l.loop(conn, w, done)
	return nil
}

// stop closes the socket and waits for the forward loop to exit.
func (l *rtpIngest) stop() {
	l.mu.Lock()
	conn, done := l.conn, l.done
	l.conn, l.done = nil, nil
	l.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Close()
	<-done
}

// loop reads RTP packets and forwards them until the socket is closed.
func (l *rtpIngest) loop(conn *net.UDPConn, w rtpPacketWriter, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 1600)
	forwarded := 0
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				l.logger.Warn().Err(err).Msg("[video] RTP ingest stopped")
			}
			return
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		l.rewriter.Apply(&pkt)
		if err := w.WriteRTP(&pkt); err != nil {
			l.logger.Debug().Err(err).Msg("[video] RTP write failed")
			continue
		}
		if forwarded == 0 {
			l.logger.Debug().Int("port", conn.LocalAddr().(*net.UDPAddr).Port).Msg("[video] First RTP packet forwarded")
		}
		forwarded++
	}
}
