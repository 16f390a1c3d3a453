// MediaExtractor: unpacks aggregate (type 0x16) messages into their
// constituent FLV tags, each becoming its own media packet or metadata
// notification.

package rtmp

const flvTagHeaderSize = 11

// extractAggregate walks msg.Body as a sequence of FLV tags (11-byte tag
// header + payload + 4-byte previous-tag-size trailer) and queues each
// audio/video tag as a pending media packet, routing type-0x12 tags to
// the metadata handler directly.
func (s *Session) extractAggregate(msg *Message) {
	body := msg.Body
	pos := 0

	for pos < len(body) {
		if pos+flvTagHeaderSize > len(body) {
			logWarning("aggregate message truncated before tag header")
			return
		}

		tagType := body[pos]
		dataSize := be24(body[pos+1 : pos+4])

		if int64(pos)+flvTagHeaderSize+int64(dataSize)+4 > int64(len(body)) {
			logWarning("aggregate tag overruns message body, aborting extraction")
			return
		}

		timestamp := decodeFlvTimestamp(body[pos+4 : pos+8])
		payload := body[pos+flvTagHeaderSize : pos+flvTagHeaderSize+int(dataSize)]

		switch tagType {
		case TypeDataAMF0:
			s.handleNotify(payload)
		case TypeAudio, TypeVideo:
			if s.mediaChannel == 0 {
				s.mediaChannel = msg.ChannelID
			}
			if s.pausing == pausePlaying {
				s.mediaStamp = int64(timestamp)
			}
			s.pendingMedia = append(s.pendingMedia, MediaPacket{
				ChannelID: msg.ChannelID,
				Type:      uint32(tagType),
				Timestamp: int64(timestamp),
				Body:      payload,
			})
		}

		pos += flvTagHeaderSize + int(dataSize) + 4
	}
}

// decodeFlvTimestamp reconstructs the 32-bit FLV tag timestamp from its
// wire layout: 3 low-order bytes big-endian, then 1 high-order extension
// byte, per the standard FLV tag header.
func decodeFlvTimestamp(b []byte) uint32 {
	low := be24(b[0:3])
	ext := uint32(b[3])
	return low | (ext << 24)
}

