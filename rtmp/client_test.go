package rtmp

import (
	"net"
	"testing"
	"time"

	"github.com/rtmpgo/rtmp-client/amf0"
)

// serverSession wraps a Session bound to the server side of a net.Pipe,
// used to script peer behavior by encoding invokes directly onto the wire.
func serverSession(conn net.Conn) *Session {
	s := NewSession()
	s.conn = conn
	s.io = newByteIO(conn, minReceiveBuffer)
	return s
}

// TestConnectStreamHappyPath drives the full connect -> createStream ->
// play sequence (scenario S1) over a net.Pipe, scripting the peer's
// replies by hand and asserting the client ends up playing.
func TestConnectStreamHappyPath(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	client := NewSession()
	client.conn = clientConn
	client.io = newByteIO(clientConn, minReceiveBuffer)
	client.link.App = "live"
	client.link.Playpath = "mystream"
	client.link.BLiveStream = true

	server := serverSession(serverConn)

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.sendConnect()
	}()

	// server: receive connect, answer _result(1)
	if _, err := server.readChunk(); err != nil {
		t.Fatalf("server read connect: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("sendConnect: %v", err)
	}

	var pkt MediaPacket
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := client.ConnectStream(0, 0); err != nil {
			t.Errorf("ConnectStream: %v", err)
		}
	}()

	if err := server.sendInvoke(ChannelInvoke, 0, "_result", 1, false, amf0.Object()); err != nil {
		t.Fatalf("server _result(connect): %v", err)
	}

	// client's _result handler fires off serverBW/bufferlen/createStream/FCSubscribe;
	// drain those off the wire before scripting the next reply.
	drainUntilInvoke(t, server, "createStream")
	drainUntilInvoke(t, server, "FCSubscribe")
	if err := server.sendInvoke(ChannelInvoke, 0, "_result", 2, false, amf0.Null(), amf0.Number(7)); err != nil {
		t.Fatalf("server _result(createStream): %v", err)
	}

	drainUntilInvoke(t, server, "play")
	// play is followed by the stream's SetBufferLength control message.
	if _, err := server.readChunk(); err != nil {
		t.Fatalf("server read SetBufferLength: %v", err)
	}
	if err := server.sendInvoke(ChannelMedia, 0, "onStatus", 0, false, amf0.Null(), statusInfo(statusNetStreamPlayStart)); err != nil {
		t.Fatalf("server onStatus(Play.Start): %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ConnectStream did not complete")
	}

	if !client.playing {
		t.Fatal("expected client.playing = true")
	}
	if client.streamID != 7 {
		t.Fatalf("streamID = %d, want 7", client.streamID)
	}

	_ = pkt
}

// TestConnectStreamNotFound drives scenario S2: the server answers
// createStream normally but then sends onStatus StreamNotFound instead of
// Play.Start, which must close the session and surface RouteStop.
func TestConnectStreamNotFound(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	client := NewSession()
	client.conn = clientConn
	client.io = newByteIO(clientConn, minReceiveBuffer)
	client.link.App = "live"
	client.link.Playpath = "missing"

	server := serverSession(serverConn)
	client.calls.push("connect")

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.ConnectStream(0, 0)
	}()

	if err := server.sendInvoke(ChannelInvoke, 0, "_result", 1, false, amf0.Object()); err != nil {
		t.Fatalf("server _result(connect): %v", err)
	}

	drainUntilInvoke(t, server, "createStream")
	if err := server.sendInvoke(ChannelInvoke, 0, "_result", 2, false, amf0.Null(), amf0.Number(3)); err != nil {
		t.Fatalf("server _result(createStream): %v", err)
	}

	drainUntilInvoke(t, server, "play")
	// play is followed by the stream's SetBufferLength control message.
	if _, err := server.readChunk(); err != nil {
		t.Fatalf("server read SetBufferLength: %v", err)
	}
	if err := server.sendInvoke(ChannelMedia, 0, "onStatus", 0, false, amf0.Null(), statusInfo(statusNetStreamPlayStreamNotFound)); err != nil {
		t.Fatalf("server onStatus(StreamNotFound): %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected ConnectStream to report an error after StreamNotFound")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ConnectStream did not return")
	}

	if client.streamID != -1 {
		t.Fatalf("streamID = %d, want -1 after StreamNotFound", client.streamID)
	}
}

func statusInfo(code string) amf0.Value {
	v := amf0.Object()
	v.Set("code", amf0.String(code))
	v.Set("level", amf0.String("status"))
	return v
}

// drainUntilInvoke reads chunks off server's connection until an invoke
// named name is routed, ignoring protocol-control traffic along the way.
func drainUntilInvoke(t *testing.T, server *Session, name string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		server.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		msg, err := server.readChunk()
		if err != nil {
			t.Fatalf("server readChunk waiting for %q: %v", name, err)
		}
		if msg == nil {
			continue
		}
		if msg.Type != TypeInvoke {
			continue
		}
		method, _, err := amf0.Decode(msg.Body)
		if err != nil {
			continue
		}
		if method.Str == name {
			return
		}
	}
	t.Fatalf("timed out waiting for invoke %q", name)
}
