// Handshake: the three-packet C0/C1/C2 + S0/S1/S2 version-3 exchange.
// No application data may be sent before this completes; any failure here
// is fatal (spec §4.3, §7 HandshakeError).

package rtmp

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

func (s *Session) performHandshake() error {
	c1 := make([]byte, handshakeSize)
	binary.BigEndian.PutUint32(c1[0:4], uint32(nowMillis()/1000))
	// bytes 4:8 are zero per spec (our own version marker, unused by peers)
	if _, err := rand.Read(c1[8:]); err != nil {
		return fmt.Errorf("rtmp: generating handshake random data: %w", err)
	}

	c0c1 := append([]byte{rtmpVersion}, c1...)
	if err := s.io.write(c0c1); err != nil {
		return fmt.Errorf("rtmp: sending handshake C0/C1: %w", err)
	}

	var s0 [1]byte
	if err := s.io.readFull(s0[:]); err != nil {
		return fmt.Errorf("rtmp: reading handshake S0: %w", err)
	}
	if s0[0] != rtmpVersion {
		logWarning(fmt.Sprintf("peer handshake version %d does not match %d", s0[0], rtmpVersion))
	}

	s1 := make([]byte, handshakeSize)
	if err := s.io.readFull(s1); err != nil {
		return fmt.Errorf("rtmp: reading handshake S1: %w", err)
	}
	peerUptime := binary.BigEndian.Uint32(s1[0:4])
	logDebug(fmt.Sprintf("peer uptime=%d version=%d.%d.%d.%d", peerUptime, s1[4], s1[5], s1[6], s1[7]))

	// C2 echoes S1 back verbatim.
	if err := s.io.write(s1); err != nil {
		return fmt.Errorf("rtmp: sending handshake C2: %w", err)
	}

	s2 := make([]byte, handshakeSize)
	if err := s.io.readFull(s2); err != nil {
		return fmt.Errorf("rtmp: reading handshake S2: %w", err)
	}
	if !bytesEqual(s2, c1) {
		logWarning("peer handshake S2 did not echo our C1 bytes")
	}

	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
