// RpcDispatcher: outbound invoke encoding, PendingCall bookkeeping, and
// the inbound invoke/onStatus state machine that drives the session
// through connect -> createStream -> play.

package rtmp

import (
	"fmt"

	"github.com/rtmpgo/rtmp-client/amf0"
)

// sendInvoke writes method(txn, args...) as an AMF0 invoke message on the
// given channel/stream id. queue is independent of txn: several invokes
// that expect a correlated _result travel with txn == 0 (play, pause),
// so whether to push method onto PendingCall is the caller's call, not
// something derived from the transaction id.
func (s *Session) sendInvoke(channel, streamID uint32, method string, txn float64, queue bool, args ...amf0.Value) error {
	body := amf0.Encode(amf0.String(method))
	body = append(body, amf0.Encode(amf0.Number(txn))...)
	for _, a := range args {
		body = append(body, amf0.Encode(a)...)
	}

	if queue {
		s.calls.push(method)
	}

	return s.writeMessage(channel, TypeInvoke, streamID, nowMillis(), body)
}

func (s *Session) sendConnect() error {
	params := amf0.Object()
	params.Set("app", amf0.String(s.link.App))
	params.Set("flashVer", amf0.String(s.link.FlashVer))
	if s.link.SwfURL != "" {
		params.Set("swfUrl", amf0.String(s.link.SwfURL))
	}
	params.Set("tcUrl", amf0.String(s.link.TcURL))
	params.Set("fpad", amf0.Bool(false))
	params.Set("capabilities", amf0.Number(15))
	params.Set("audioCodecs", amf0.Number(4071))
	params.Set("videoCodecs", amf0.Number(252))
	params.Set("videoFunction", amf0.Number(1))
	if s.link.PageURL != "" {
		params.Set("pageUrl", amf0.String(s.link.PageURL))
	}
	auth := s.link.Auth
	if signed, err := s.signConnectAuth(); err != nil {
		logError(err)
	} else if signed != "" {
		auth = signed
	}
	if auth != "" {
		params.Set("auth", amf0.String(auth))
	}

	return s.sendInvoke(ChannelInvoke, 0, "connect", float64(s.nextTransactionID()), true, params)
}

func (s *Session) sendServerBW() error {
	body := make([]byte, 4)
	putBE32(body, s.serverBW)
	return s.writeMessage(ChannelProtocol, TypeServerBW, 0, nowMillis(), body)
}

func (s *Session) sendCreateStream(streamTxn float64) error {
	return s.sendInvoke(ChannelInvoke, 0, "createStream", streamTxn, true, amf0.Null())
}

func (s *Session) sendFCSubscribe(subscribepath string) error {
	logDebug(fmt.Sprintf("FCSubscribe: %s", subscribepath))
	return s.sendInvoke(ChannelInvoke, 0, "FCSubscribe", float64(s.nextTransactionID()), true, amf0.Null(), amf0.String(subscribepath))
}

// sendDeleteStream has no response to wait on, so it never queues.
func (s *Session) sendDeleteStream(streamID float64) error {
	return s.sendInvoke(ChannelInvoke, 0, "deleteStream", 0, false, amf0.Null(), amf0.Number(streamID))
}

// sendPlay issues play(name, start, [len]) on the media channel, per
// the argument layout documented for the play invoke.
func (s *Session) sendPlay() error {
	start := 0.0
	if s.link.BLiveStream {
		start = -1000.0
	} else if s.link.SeekTime > 0 {
		start = s.link.SeekTime
	}

	args := []amf0.Value{amf0.Null(), amf0.String(s.link.Playpath), amf0.Number(start)}
	if s.link.Length > 0 {
		args = append(args, amf0.Number(s.link.Length))
	}

	return s.sendInvoke(ChannelMedia, uint32(s.streamID), "play", 0, true, args...)
}

// sendPause is queued, matching play: the server's onStatus/_result for a
// pause invoke correlates against PendingCall even though txn is 0.
func (s *Session) sendPause(pause bool, timeMs float64) error {
	return s.sendInvoke(ChannelMedia, 0, "pause", 0, true, amf0.Null(), amf0.Bool(pause), amf0.Number(timeMs))
}

// sendCheckBW is queued so the asynchronous _onbwdone reply can remove it
// out of order from PendingCall (see handleInvoke's "_onbwdone" case).
func (s *Session) sendCheckBW() error {
	return s.sendInvoke(ChannelInvoke, 0, "_checkbw", 0, true, amf0.Null())
}

// sendCheckBWResult answers a peer-initiated probe; nothing further is
// expected back, so it never queues.
func (s *Session) sendCheckBWResult(txn float64) error {
	counter := s.bwCheckTxnSeq
	s.bwCheckTxnSeq++
	return s.sendInvoke(ChannelInvoke, 0, "_result", txn, false, amf0.Null(), amf0.Number(float64(counter)))
}

func putBE32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// handleInvoke parses the body of a type-0x14 (or unwrapped 0x11) message
// and branches on the method name, per the inbound invoke state machine.
func (s *Session) handleInvoke(body []byte) (RouteResult, error) {
	if len(body) == 0 || body[0] != amf0.TypeString {
		logWarning("invoke body does not start with a string method name, dropping")
		return RouteNone, nil
	}

	method, n, err := amf0.Decode(body)
	if err != nil {
		return RouteNone, fmt.Errorf("rtmp: decoding invoke method: %w", err)
	}
	rest := body[n:]

	var txn amf0.Value
	if len(rest) > 0 {
		txn, n, err = amf0.Decode(rest)
		if err == nil {
			rest = rest[n:]
		}
	}

	args := decodeAll(rest)

	logDebug(fmt.Sprintf("server invoking <%s>", method.Str))

	switch method.Str {
	case "_result":
		return s.handleResult(txn.GetInt64(), args)

	case "onBWDone":
		if err := s.sendCheckBW(); err != nil {
			return RouteNone, err
		}

	case "onFCSubscribe":
		// no action required; acknowledged implicitly by continuing to play

	case "onFCUnsubscribe":
		return RouteStop, s.Close()

	case "_onbwcheck":
		if err := s.sendCheckBWResult(txn.Num); err != nil {
			return RouteNone, err
		}

	case "_onbwdone":
		s.calls.removeFirstMatch("_checkbw")

	case "_error":
		logError(fmt.Errorf("rtmp: server sent error invoke"))

	case "close":
		logWarning("server requested close")
		return RouteStop, s.Close()

	case "onStatus":
		return s.handleOnStatus(args)
	}

	return RouteNone, nil
}

func decodeAll(buf []byte) []amf0.Value {
	var out []amf0.Value
	for len(buf) > 0 {
		v, n, err := amf0.Decode(buf)
		if err != nil || n == 0 {
			break
		}
		out = append(out, v)
		buf = buf[n:]
	}
	return out
}

// handleResult dispatches a _result invoke to the method it answers,
// which PendingCall's head names as having been sent.
func (s *Session) handleResult(txn int64, args []amf0.Value) (RouteResult, error) {
	invoked, ok := s.calls.popHead()
	if !ok {
		logWarning("received _result with no matching pending call")
		return RouteNone, nil
	}
	logDebug(fmt.Sprintf("received result for method call <%s>", invoked))

	switch invoked {
	case "connect":
		if err := s.sendServerBW(); err != nil {
			return RouteNone, err
		}
		if err := s.sendSetBufferLength(0, defaultBufferMS); err != nil {
			return RouteNone, err
		}
		if err := s.sendCreateStream(2.0); err != nil {
			return RouteNone, err
		}
		if s.link.Subscribepath != "" {
			if err := s.sendFCSubscribe(s.link.Subscribepath); err != nil {
				return RouteNone, err
			}
		} else if s.link.BLiveStream {
			if err := s.sendFCSubscribe(s.link.Playpath); err != nil {
				return RouteNone, err
			}
		}

	case "createStream":
		// args here already excludes the method name and transaction id
		// decoded above, so the response value (the spec's 4th AMF value
		// overall) is args[1]: [0]=properties (null), [1]=new stream id.
		if len(args) >= 2 {
			s.streamID = args[1].GetInt64()
		}
		if err := s.sendPlay(); err != nil {
			return RouteNone, err
		}
		if err := s.sendSetBufferLength(uint32(s.streamID), defaultBufferMS); err != nil {
			return RouteNone, err
		}

	case "play":
		s.playing = true
		s.eventFeed.publish("PLAY", map[string]string{"playpath": s.link.Playpath})
	}

	return RouteNone, nil
}

var (
	statusNetStreamFailed             = "NetStream.Failed"
	statusNetStreamPlayFailed         = "NetStream.Play.Failed"
	statusNetStreamPlayStreamNotFound = "NetStream.Play.StreamNotFound"
	statusConnectInvalidApp           = "NetConnection.Connect.InvalidApp"
	statusNetStreamPlayStart          = "NetStream.Play.Start"
	statusNetStreamPlayComplete       = "NetStream.Play.Complete"
	statusNetStreamPlayStop           = "NetStream.Play.Stop"
)

// handleOnStatus inspects the code field of the onStatus invoke's 4th
// argument and drives session-state transitions from it; level is not read.
func (s *Session) handleOnStatus(args []amf0.Value) (RouteResult, error) {
	// args excludes the method name and transaction id already decoded,
	// so the info object (the spec's 4th AMF value overall) is args[1]:
	// [0]=command object (null), [1]=info object with code/level.
	if len(args) < 2 {
		return RouteNone, nil
	}
	info := args[1]
	code := info.Get("code").Str
	logDebug(fmt.Sprintf("onStatus: %s", code))

	switch code {
	case statusNetStreamFailed, statusNetStreamPlayFailed, statusNetStreamPlayStreamNotFound, statusConnectInvalidApp:
		s.streamID = -1
		s.eventFeed.publish("ERROR", map[string]string{"code": code})
		return RouteStop, s.Close()

	case statusNetStreamPlayStart:
		s.playing = true
		s.calls.removeFirstMatch("play")
		s.eventFeed.publish("PLAY", map[string]string{"playpath": s.link.Playpath})

	case statusNetStreamPlayComplete, statusNetStreamPlayStop:
		if err := s.Close(); err != nil {
			return RouteStop, err
		}
		return RouteStop, nil
	}

	return RouteNone, nil
}

// handleNotify decodes a type-0x12 data message; only onMetaData's
// duration property is of interest to this client.
func (s *Session) handleNotify(body []byte) {
	values := decodeAll(body)
	if len(values) == 0 || values[0].Str != "onMetaData" {
		return
	}
	for _, v := range values[1:] {
		if d, ok := amf0.Find(v, "duration"); ok {
			s.duration = d.Num
			return
		}
	}
}
