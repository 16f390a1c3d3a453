// ControlProtocol: user-control ("ping") messages, the pause/resume FSM
// transitions they and the caller drive, and the handful of fixed-size
// control payloads the client emits.

package rtmp

import (
	"encoding/binary"
	"fmt"
)

// sendUserControl writes a type-0x04 control message: 2-byte type, then
// up to two 4-byte big-endian words, on the fixed control channel.
func (s *Session) sendUserControl(ctrlType uint16, obj, param uint32, withParam bool) error {
	size := 6
	if withParam {
		size = 10
	}
	body := make([]byte, size)
	binary.BigEndian.PutUint16(body[0:2], ctrlType)
	binary.BigEndian.PutUint32(body[2:6], obj)
	if withParam {
		binary.BigEndian.PutUint32(body[6:10], param)
	}
	return s.writeMessage(ChannelProtocol, TypeUserControl, 0, nowMillis(), body)
}

func (s *Session) sendSetBufferLength(streamID uint32, bufferMS uint32) error {
	return s.sendUserControl(ctrlSetBufferLength, streamID, bufferMS, true)
}

func (s *Session) sendPong(serverTime uint32) error {
	return s.sendUserControl(ctrlPingResponse, serverTime, 0, false)
}

func (s *Session) sendSwfVerifyResponse() error {
	if len(s.link.SwfHash) != 32 {
		logWarning("received SWFVerification request but no hash is configured")
		return nil
	}
	body := make([]byte, 44)
	binary.BigEndian.PutUint16(body[0:2], ctrlSWFVerifyReply)
	body[2] = 1 // uncompressed SWF marker, per the request this answers
	copy(body[3:35], s.link.SwfHash)
	binary.BigEndian.PutUint32(body[35:39], uint32(s.link.SwfSize))
	binary.BigEndian.PutUint32(body[39:43], uint32(nowMillis()))
	return s.writeMessage(ChannelProtocol, TypeUserControl, 0, nowMillis(), body)
}

// handleUserControl dispatches an inbound type-0x04 message by its
// 2-byte sub-type, driving the pause FSM on stream EOF / buffer empty.
func (s *Session) handleUserControl(msg *Message) (RouteResult, error) {
	if len(msg.Body) < 2 {
		return RouteNone, nil
	}
	ctrlType := binary.BigEndian.Uint16(msg.Body[0:2])

	switch ctrlType {
	case ctrlStreamBegin:
		logDebug("stream begin")

	case ctrlStreamEOF:
		if s.pausing == pauseRequested {
			s.pausing = pauseAcked
		}

	case ctrlStreamDry:
		logDebug("stream dry")

	case ctrlStreamIsRecorded:
		logDebug("stream is recorded")

	case ctrlPingRequest:
		if len(msg.Body) >= 6 {
			serverTime := binary.BigEndian.Uint32(msg.Body[2:6])
			if err := s.sendPong(serverTime); err != nil {
				return RouteNone, err
			}
		}

	case ctrlSWFVerifyRequest:
		if err := s.sendSwfVerifyResponse(); err != nil {
			return RouteNone, err
		}

	case ctrlBufferEmpty:
		switch s.pausing {
		case pausePlaying:
			if err := s.sendPause(true, float64(s.mediaStamp)); err != nil {
				return RouteNone, err
			}
			s.pauseStamp = s.mediaStamp
			s.pausing = pauseRequested
		case pauseAcked:
			if err := s.sendPause(false, float64(s.pauseStamp)); err != nil {
				return RouteNone, err
			}
			s.pausing = pauseResuming
		}

	case ctrlBufferReady:
		logDebug("buffer ready")

	default:
		logDebug(fmt.Sprintf("ignoring user control type 0x%02x", ctrlType))
	}

	return RouteNone, nil
}

// requestPause implements the user-driven half of the pause FSM
// (PublicAPI's send_pause): state 0 -> 1 on pause, state 2 -> 3 on resume.
func (s *Session) requestPause(pause bool) error {
	if pause {
		if s.pausing != pausePlaying {
			return fmt.Errorf("rtmp: cannot pause, not in playing state")
		}
		if err := s.sendPause(true, float64(s.mediaStamp)); err != nil {
			return err
		}
		s.pausing = pauseRequested
		return nil
	}

	if s.pausing != pauseAcked {
		return fmt.Errorf("rtmp: cannot resume, pause has not been acknowledged by the server")
	}
	if err := s.sendPause(false, float64(s.pauseStamp)); err != nil {
		return err
	}
	s.pausing = pauseResuming
	return nil
}
