// MessageRouter: dispatches a fully assembled Message by type code to the
// control handlers, the invoke dispatcher, or promotes it to a media
// packet for the outer consumer.

package rtmp

import (
	"encoding/binary"
	"fmt"
)

func (s *Session) routeMessage(msg *Message, out *MediaPacket) (RouteResult, error) {
	switch msg.Type {
	case TypeSetChunkSize:
		if len(msg.Body) >= 4 {
			s.chunkSizeIn = binary.BigEndian.Uint32(msg.Body[0:4])
			logDebug(fmt.Sprintf("received chunk size change to %d", s.chunkSizeIn))
		}
		return RouteNone, nil

	case TypeAck:
		logDebug("received bytes-read report")
		return RouteNone, nil

	case TypeUserControl:
		return s.handleUserControl(msg)

	case TypeServerBW:
		if len(msg.Body) >= 4 {
			s.serverBW = binary.BigEndian.Uint32(msg.Body[0:4])
		}
		return RouteNone, nil

	case TypeClientBW:
		if len(msg.Body) >= 4 {
			s.clientBW = binary.BigEndian.Uint32(msg.Body[0:4])
		}
		if len(msg.Body) >= 5 {
			s.clientBW2 = uint32(msg.Body[4])
		}
		return RouteNone, nil

	case TypeAudio, TypeVideo:
		if s.mediaChannel == 0 {
			s.mediaChannel = msg.ChannelID
		}
		if s.pausing == pausePlaying {
			s.mediaStamp = msg.Timestamp
		}
		out.ChannelID = msg.ChannelID
		out.Type = msg.Type
		out.Timestamp = msg.Timestamp
		out.Body = msg.Body
		return RouteMedia, nil

	case TypeFlexStream, TypeFlexObject, TypeSharedObject:
		logWarning(fmt.Sprintf("ignoring flex stream / shared object message, type 0x%02x", msg.Type))
		return RouteNone, nil

	case TypeFlexMessage:
		if len(msg.Body) < 1 {
			return RouteNone, nil
		}
		return s.handleInvoke(msg.Body[1:])

	case TypeDataAMF0:
		s.handleNotify(msg.Body)
		return RouteNone, nil

	case TypeInvoke:
		return s.handleInvoke(msg.Body)

	case TypeAggregate:
		s.extractAggregate(msg)
		return RouteNone, nil

	default:
		logDebug(fmt.Sprintf("ignoring unknown message type 0x%02x", msg.Type))
		return RouteNone, nil
	}
}
