// SessionState: link parameters, stream id, bandwidth settings, pause
// state, media channel identity and per-channel timestamp bookkeeping.
// Owns the lifecycle of a single play session.
//
// The engine is single-threaded, synchronous and blocking: exactly one
// goroutine may hold a Session at a time. Connect, ConnectStream,
// NextMediaPacket, SendPause, ReconnectStream and Close are all ordinary
// (unlocked) methods and must be called from that one goroutine; there
// is no internal locking because there is no shared mutability across
// threads. The eventFeed/posCache background goroutines never touch
// Session's own fields -- they only read values handed to them at the
// call site (see client.go's publish/publishPosition call sites).

package rtmp

import (
	"fmt"
	"net"
)

// MediaPacket is what the outer consumer receives for every audio, video
// or (post-aggregate-expansion) media fragment.
type MediaPacket struct {
	ChannelID  uint32
	Type       uint32
	Timestamp  int64
	Body       []byte
}

// Session is a single RTMP client connection: constructed idle, Connect
// opens the socket and runs the handshake, Close tears everything down and
// returns the Session to idle but reusable (Setup/Connect can run again).
type Session struct {
	conn net.Conn
	io   *byteIO

	link LinkParams

	inChannels  channelTable
	outChannels channelTable

	chunkSizeIn  uint32
	chunkSizeOut uint32

	serverBW  uint32
	clientBW  uint32
	clientBW2 uint32

	pausing    pauseState
	pauseStamp int64

	mediaChannel uint32
	mediaStamp   int64

	streamID int64 // -1 when no stream exists
	playing  bool

	calls         *pendingCalls
	nextTxnID     int64
	bwCheckTxnSeq int64

	duration float64 // seconds, from onMetaData

	connectTime int64

	// fragments unpacked from an aggregate (type 0x16) message, drained
	// by NextMediaPacket before reading more off the wire.
	pendingMedia []MediaPacket

	// optional ambient collaborators, wired in Connect when configured.
	eventFeed *eventFeed
	posCache  *posCache
}

// NewSession constructs an idle Session. Call Setup before Connect.
func NewSession() *Session {
	s := &Session{}
	s.resetToDefaults()
	return s
}

func (s *Session) resetToDefaults() {
	s.inChannels = make(channelTable)
	s.outChannels = make(channelTable)
	s.chunkSizeIn = defaultChunkSize
	s.chunkSizeOut = defaultChunkSize
	s.serverBW = defaultServerBW
	s.clientBW = defaultClientBW
	s.clientBW2 = defaultClientBW2
	s.pausing = pausePlaying
	s.pauseStamp = 0
	s.mediaChannel = 0
	s.mediaStamp = 0
	s.streamID = -1
	s.playing = false
	s.calls = newPendingCalls()
	s.nextTxnID = 1
	s.bwCheckTxnSeq = 0
	s.duration = 0
	s.pendingMedia = nil
}

// Setup populates the session's link parameters. Port 0 defaults to 1935.
func (s *Session) Setup(link LinkParams) {
	if link.Port == 0 {
		link.Port = defaultPort
	}
	if link.TimeoutSeconds == 0 {
		link.TimeoutSeconds = 10
	}
	s.link = link
}

// IsPlaying reports whether the play invoke has been confirmed by the peer.
// Like every Session method, callable only from the single goroutine that
// owns this Session.
func (s *Session) IsPlaying() bool {
	return s.playing
}

// Duration returns the last onMetaData-reported duration, in seconds.
func (s *Session) Duration() float64 {
	return s.duration
}

// TimedOut reports whether the most recent read hit the configured
// deadline without closing the connection.
func (s *Session) TimedOut() bool {
	if s.io == nil {
		return false
	}
	return s.io.timedOut
}

func (s *Session) nextTransactionID() int64 {
	id := s.nextTxnID
	s.nextTxnID++
	return id
}

// validateLink checks the minimal set of fields Connect needs before any
// I/O happens (a ConfigError in spec §7 terms).
func (s *Session) validateLink() error {
	if s.link.Host == "" {
		return fmt.Errorf("rtmp: no hostname configured")
	}
	if s.link.Protocol != ProtocolRTMP {
		return fmt.Errorf("rtmp: unsupported protocol variant %v (only plain RTMP is implemented)", s.link.Protocol)
	}
	return nil
}
