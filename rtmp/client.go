// PublicAPI: Connect, ConnectStream, NextMediaPacket, SendPause,
// ReconnectStream and Close, the surface the outer consumer drives.

package rtmp

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/rtmpgo/rtmp-client/socks4"
)

// Connect opens the socket, negotiates SOCKS4 if configured, runs the
// handshake, and sends the connect invoke. It does not wait for the
// reply; call ConnectStream next.
func (s *Session) Connect() error {
	if err := s.validateLink(); err != nil {
		return err
	}
	if err := s.checkAllowedHost(); err != nil {
		return err
	}
	if s.conn != nil {
		s.Close()
	}
	s.resetToDefaults()

	dialHost, dialPort := s.link.Host, s.link.Port
	if s.link.SocksHost != "" {
		dialHost, dialPort = s.link.SocksHost, s.link.SocksPort
	}

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", dialHost, dialPort), time.Duration(s.link.TimeoutSeconds)*time.Second)
	if err != nil {
		return fmt.Errorf("rtmp: dial %s:%d: %w", dialHost, dialPort, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	conn.SetDeadline(time.Now().Add(time.Duration(s.link.TimeoutSeconds) * time.Second))

	if s.link.SocksHost != "" {
		destIP := net.ParseIP(s.link.Host)
		if destIP == nil {
			addrs, resolveErr := net.LookupIP(s.link.Host)
			if resolveErr != nil || len(addrs) == 0 {
				conn.Close()
				return fmt.Errorf("rtmp: resolving %s for SOCKS4 tunnel: %w", s.link.Host, resolveErr)
			}
			destIP = addrs[0]
		}
		if err := socks4.Negotiate(conn, destIP, uint16(s.link.Port)); err != nil {
			conn.Close()
			return fmt.Errorf("rtmp: SOCKS4 negotiation: %w", err)
		}
	}

	s.conn = conn
	s.io = newByteIO(conn, 16*1024)
	s.io.onAckDue = func(total uint64) {
		if err := s.sendAck(total); err != nil {
			logError(fmt.Errorf("rtmp: sending bytes-read ack: %w", err))
		}
	}

	if err := s.performHandshake(); err != nil {
		conn.Close()
		s.conn = nil
		return err
	}

	s.connectTime = nowMillis()

	if s.eventFeed == nil {
		s.eventFeed = newEventFeed(s.link.EventFeedURL)
	}
	if s.posCache == nil {
		s.posCache = newPosCache(s.link.RedisURL, s.link.RedisChannel)
	}
	s.eventFeed.publish("CONNECT", map[string]string{"app": s.link.App, "playpath": s.link.Playpath})

	if err := s.sendConnect(); err != nil {
		s.eventFeed.publish("ERROR", map[string]string{"stage": "connect", "error": err.Error()})
		conn.Close()
		s.conn = nil
		return err
	}

	return nil
}

func (s *Session) sendAck(total uint64) error {
	body := make([]byte, 4)
	binary.BigEndian.PutUint32(body, uint32(total))
	if err := s.writeMessage(ChannelProtocol, TypeAck, 0, nowMillis(), body); err != nil {
		return err
	}
	s.io.ackSent(total)
	return nil
}

// readAndRoute reads one chunk at a time until a complete message is
// assembled, then routes it, returning as soon as routeMessage has
// something to report.
func (s *Session) readAndRoute(out *MediaPacket) (RouteResult, error) {
	if len(s.pendingMedia) > 0 {
		*out = s.pendingMedia[0]
		s.pendingMedia = s.pendingMedia[1:]
		return RouteMedia, nil
	}

	for {
		msg, err := s.readChunk()
		if err != nil {
			return RouteNone, err
		}
		if msg == nil {
			continue
		}

		result, err := s.routeMessage(msg, out)
		if err != nil {
			return RouteNone, err
		}
		if result != RouteNone {
			return result, nil
		}
		if len(s.pendingMedia) > 0 {
			*out = s.pendingMedia[0]
			s.pendingMedia = s.pendingMedia[1:]
			return RouteMedia, nil
		}
	}
}

// ConnectStream loops reading and routing packets until the play invoke
// is confirmed (bPlaying becomes true). A media packet arriving first is
// a protocol violation: logged and ignored, not a fatal error, since
// some servers interleave a keyframe before acking play.
func (s *Session) ConnectStream(seekTime, length float64) error {
	s.link.SeekTime = seekTime
	s.link.Length = length

	var pkt MediaPacket
	for !s.playing {
		msg, err := s.readChunk()
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		result, err := s.routeMessage(msg, &pkt)
		if err != nil {
			return err
		}
		if result == RouteStop {
			return fmt.Errorf("rtmp: session closed before play was confirmed")
		}
		if result == RouteMedia || len(s.pendingMedia) > 0 {
			logWarning("received media packet before play was confirmed, discarding")
			s.pendingMedia = nil
		}
	}
	return nil
}

// NextMediaPacket blocks until a media packet is available, applying the
// pause-resume delivery filter: in state 3 (resuming), packets at or
// before mediaStamp are dropped until the first packet past that mark,
// which transitions the FSM back to state 0.
func (s *Session) NextMediaPacket(out *MediaPacket) (RouteResult, error) {
	for {
		result, err := s.readAndRoute(out)
		if err != nil {
			return RouteNone, err
		}
		if result != RouteMedia {
			return result, nil
		}

		if s.pausing == pauseResuming {
			if out.Timestamp <= s.mediaStamp {
				continue
			}
			s.pausing = pausePlaying
		}

		s.posCache.publishPosition(s.link.Playpath, out.Timestamp)
		return RouteMedia, nil
	}
}

// SendPause implements the user-driven half of the pause FSM. Like every
// Session method, callable only from the single goroutine that owns this
// Session -- in particular, never concurrently with NextMediaPacket.
func (s *Session) SendPause(pause bool, timeMs float64) error {
	return s.requestPause(pause)
}

// ReconnectStream deletes the current stream and re-establishes
// playback on a freshly created one, without tearing down the socket.
func (s *Session) ReconnectStream(seekTime, length float64) error {
	if s.streamID >= 0 {
		if err := s.sendDeleteStream(float64(s.streamID)); err != nil {
			return err
		}
	}
	s.playing = false
	s.streamID = -1
	if err := s.sendCreateStream(2.0); err != nil {
		return err
	}
	return s.ConnectStream(seekTime, length)
}

// Close tears down the socket (if any) and returns the session to its
// idle defaults: bandwidth back to 2.5Mbps/128-byte chunks, per-channel
// state and PendingCall cleared.
func (s *Session) Close() error {
	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.conn = nil
		s.io = nil
	}

	s.eventFeed.publish("CLOSE", map[string]string{"app": s.link.App})
	s.eventFeed.close()
	s.posCache.close()
	s.eventFeed = nil
	s.posCache = nil

	s.resetToDefaults()
	return err
}
