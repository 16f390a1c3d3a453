package rtmp

import (
	"encoding/binary"
	"net"
	"testing"
)

func newTestSession() (*Session, net.Conn) {
	a, b := net.Pipe()
	s := NewSession()
	s.conn = a
	s.io = newByteIO(a, minReceiveBuffer)
	return s, b
}

func userControlMessage(ctrlType uint16, extra ...uint32) *Message {
	body := make([]byte, 2+4*len(extra))
	binary.BigEndian.PutUint16(body[0:2], ctrlType)
	for i, v := range extra {
		binary.BigEndian.PutUint32(body[2+4*i:6+4*i], v)
	}
	return &Message{Type: TypeUserControl, Body: body}
}

// TestPauseFSMServerDriven exercises the full 0->1->2->3->0 cycle driven
// by server events: BufferEmpty while playing, Stream-EOF acking the
// pause request, BufferEmpty again triggering the resume send, and
// finally a media packet past mediaStamp completing the cycle.
func TestPauseFSMServerDriven(t *testing.T) {
	s, peer := newTestSession()
	defer peer.Close()
	go drainWrites(peer)

	s.mediaStamp = 500

	if s.pausing != pausePlaying {
		t.Fatalf("initial state = %d, want pausePlaying", s.pausing)
	}

	if _, err := s.handleUserControl(userControlMessage(ctrlBufferEmpty)); err != nil {
		t.Fatalf("BufferEmpty (state 0): %v", err)
	}
	if s.pausing != pauseRequested {
		t.Fatalf("after first BufferEmpty, state = %d, want pauseRequested", s.pausing)
	}
	if s.pauseStamp != 500 {
		t.Fatalf("pauseStamp = %d, want 500", s.pauseStamp)
	}

	if _, err := s.handleUserControl(userControlMessage(ctrlStreamEOF)); err != nil {
		t.Fatalf("StreamEOF: %v", err)
	}
	if s.pausing != pauseAcked {
		t.Fatalf("after StreamEOF, state = %d, want pauseAcked", s.pausing)
	}

	if _, err := s.handleUserControl(userControlMessage(ctrlBufferEmpty)); err != nil {
		t.Fatalf("BufferEmpty (state 2): %v", err)
	}
	if s.pausing != pauseResuming {
		t.Fatalf("after second BufferEmpty, state = %d, want pauseResuming", s.pausing)
	}

	// routeMessage alone must not touch mediaStamp or the FSM state while
	// resuming: that filtering is NextMediaPacket's job (client.go).
	var pkt MediaPacket
	msg := &Message{Type: TypeVideo, ChannelID: ChannelMedia, Timestamp: 600, Body: []byte{1, 2, 3}}
	result, err := s.routeMessage(msg, &pkt)
	if err != nil {
		t.Fatalf("routeMessage: %v", err)
	}
	if result != RouteMedia {
		t.Fatalf("result = %v, want RouteMedia", result)
	}
	if s.mediaStamp != 500 {
		t.Fatalf("mediaStamp changed to %d while resuming; must only update once playing resumes", s.mediaStamp)
	}
	if s.pausing != pauseResuming {
		t.Fatalf("routeMessage must not itself resolve the resume filter; state = %d", s.pausing)
	}
}

// TestRequestPauseUserDriven exercises the user-initiated half of the FSM.
func TestRequestPauseUserDriven(t *testing.T) {
	s, peer := newTestSession()
	defer peer.Close()
	go drainWrites(peer)

	s.mediaStamp = 42
	if err := s.requestPause(true); err != nil {
		t.Fatalf("requestPause(true): %v", err)
	}
	if s.pausing != pauseRequested {
		t.Fatalf("state = %d, want pauseRequested", s.pausing)
	}

	if err := s.requestPause(false); err == nil {
		t.Fatal("expected an error resuming before the server acked the pause")
	}

	s.pausing = pauseAcked
	if err := s.requestPause(false); err != nil {
		t.Fatalf("requestPause(false): %v", err)
	}
	if s.pausing != pauseResuming {
		t.Fatalf("state = %d, want pauseResuming", s.pausing)
	}
}

// TestServerPingPong verifies an inbound ping (type 6) elicits a pong
// (type 7) echoing the server's timestamp.
func TestServerPingPong(t *testing.T) {
	s, peer := newTestSession()

	recv := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := peer.Read(buf)
		recv <- buf[:n]
	}()

	if _, err := s.handleUserControl(userControlMessage(ctrlPingRequest, 9999)); err != nil {
		t.Fatalf("handleUserControl: %v", err)
	}

	frame := <-recv
	// basic header (1 byte, fmt0 channel 2) + 11-byte message header + 6-byte body
	if len(frame) < 1+11+6 {
		t.Fatalf("frame too short: % x", frame)
	}
	body := frame[len(frame)-6:]
	ctrlType := binary.BigEndian.Uint16(body[0:2])
	if ctrlType != ctrlPingResponse {
		t.Fatalf("ctrl type = %d, want ctrlPingResponse", ctrlType)
	}
	echoed := binary.BigEndian.Uint32(body[2:6])
	if echoed != 9999 {
		t.Fatalf("echoed time = %d, want 9999", echoed)
	}
}

func drainWrites(c net.Conn) {
	buf := make([]byte, 4096)
	for {
		if _, err := c.Read(buf); err != nil {
			return
		}
	}
}
