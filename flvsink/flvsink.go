// Package flvsink provides a minimal FLV-file writer satisfying the
// media-packet consumer interface expected by cmd/rtmpplay, grounded on
// the teacher's createFlvTag tag-encoding layout.
package flvsink

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/rtmpgo/rtmp-client/rtmp"
)

// Sink accepts media packets and metadata, writing them out as FLV tags.
type Sink interface {
	WriteMedia(pkt rtmp.MediaPacket) error
	Close() error
}

// File is a Sink that writes a standard .flv file: the 9-byte FLV
// header, then one tag per WriteMedia call, each followed by its
// 4-byte previous-tag-size trailer.
type File struct {
	f *os.File
}

// Create opens path for writing and emits the FLV file header.
func Create(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("flvsink: creating %s: %w", path, err)
	}

	header := []byte{'F', 'L', 'V', 0x01, 0x05, 0, 0, 0, 9}
	if _, err := f.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("flvsink: writing header: %w", err)
	}
	// previous-tag-size of the (nonexistent) tag before the first one
	if _, err := f.Write([]byte{0, 0, 0, 0}); err != nil {
		f.Close()
		return nil, fmt.Errorf("flvsink: writing header trailer: %w", err)
	}

	return &File{f: f}, nil
}

// WriteMedia encodes pkt as one FLV tag: 11-byte header, payload, 4-byte
// previous-tag-size trailer.
func (s *File) WriteMedia(pkt rtmp.MediaPacket) error {
	tagSize := 11 + uint32(len(pkt.Body))
	b := make([]byte, tagSize+4)

	b[0] = byte(pkt.Type)

	var lenField [4]byte
	binary.BigEndian.PutUint32(lenField[:], uint32(len(pkt.Body)))
	b[1] = lenField[1]
	b[2] = lenField[2]
	b[3] = lenField[3]

	ts := uint32(pkt.Timestamp)
	b[4] = byte(ts >> 16)
	b[5] = byte(ts >> 8)
	b[6] = byte(ts)
	b[7] = byte(ts >> 24)

	b[8], b[9], b[10] = 0, 0, 0

	copy(b[11:11+len(pkt.Body)], pkt.Body)

	binary.BigEndian.PutUint32(b[tagSize:tagSize+4], tagSize)

	_, err := s.f.Write(b)
	return err
}

// Close flushes and closes the underlying file.
func (s *File) Close() error {
	return s.f.Close()
}
