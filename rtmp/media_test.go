package rtmp

import (
	"bytes"
	"testing"
)

// flvTag builds one aggregate-embedded FLV tag: 11-byte header, payload,
// 4-byte previous-tag-size trailer.
func flvTag(tagType byte, timestamp uint32, payload []byte) []byte {
	tag := make([]byte, flvTagHeaderSize+len(payload)+4)
	tag[0] = tagType
	tag[1] = byte(len(payload) >> 16)
	tag[2] = byte(len(payload) >> 8)
	tag[3] = byte(len(payload))
	tag[4] = byte(timestamp >> 16)
	tag[5] = byte(timestamp >> 8)
	tag[6] = byte(timestamp)
	tag[7] = byte(timestamp >> 24)
	// bytes 8-10: stream id, always 0
	copy(tag[flvTagHeaderSize:], payload)
	// trailing previous-tag-size left as 0, unused by the extractor
	return tag
}

// TestExtractAggregateSplitsTags verifies that an aggregate message
// containing a video tag and an audio tag yields two queued media
// packets in order, with timestamps decoded from the FLV tag header.
func TestExtractAggregateSplitsTags(t *testing.T) {
	s := NewSession()

	video := flvTag(TypeVideo, 1000, []byte{0x17, 0x01, 0x00, 0x00, 0x00})
	audio := flvTag(TypeAudio, 1020, []byte{0xAF, 0x01})
	body := append(append([]byte{}, video...), audio...)

	msg := &Message{Type: TypeAggregate, ChannelID: ChannelMedia, Body: body}
	s.extractAggregate(msg)

	if len(s.pendingMedia) != 2 {
		t.Fatalf("pendingMedia = %d, want 2", len(s.pendingMedia))
	}
	if s.pendingMedia[0].Type != TypeVideo || s.pendingMedia[0].Timestamp != 1000 {
		t.Fatalf("first packet = %+v", s.pendingMedia[0])
	}
	if s.pendingMedia[1].Type != TypeAudio || s.pendingMedia[1].Timestamp != 1020 {
		t.Fatalf("second packet = %+v", s.pendingMedia[1])
	}
	if !bytes.Equal(s.pendingMedia[0].Body, []byte{0x17, 0x01, 0x00, 0x00, 0x00}) {
		t.Fatalf("first payload = % x", s.pendingMedia[0].Body)
	}
	if s.mediaChannel != ChannelMedia {
		t.Fatalf("mediaChannel = %d, want %d", s.mediaChannel, ChannelMedia)
	}
}

// TestExtractAggregateRoutesMetadata verifies an embedded onMetaData tag
// (type 0x12) is decoded through handleNotify rather than queued as media.
func TestExtractAggregateRoutesMetadata(t *testing.T) {
	s := NewSession()

	meta := invokeBody("onMetaData", 0)
	tag := flvTag(TypeDataAMF0, 0, meta)
	msg := &Message{Type: TypeAggregate, ChannelID: ChannelMedia, Body: tag}
	s.extractAggregate(msg)

	if len(s.pendingMedia) != 0 {
		t.Fatalf("pendingMedia = %d, want 0 for a metadata-only aggregate", len(s.pendingMedia))
	}
}

// TestExtractAggregateAbortsOnTruncation verifies a tag claiming more
// payload than the message actually holds is dropped without panicking
// and without queuing a partial packet.
func TestExtractAggregateAbortsOnTruncation(t *testing.T) {
	s := NewSession()

	tag := flvTag(TypeVideo, 0, []byte{0x01, 0x02, 0x03})
	truncated := tag[:len(tag)-2]

	msg := &Message{Type: TypeAggregate, ChannelID: ChannelMedia, Body: truncated}
	s.extractAggregate(msg)

	if len(s.pendingMedia) != 0 {
		t.Fatalf("pendingMedia = %d, want 0 for a truncated aggregate", len(s.pendingMedia))
	}
}
