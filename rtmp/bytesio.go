// ByteIO: buffered transport read/write, with an optional inline stream
// cipher hook and the "bytes received" ack trigger.

package rtmp

import (
	"errors"
	"net"
)

// streamCipher is applied in place over bytes as they cross the wire. The
// RTMPE/encrypted-handshake variant that would install one is out of
// scope; byteIO.cipherIn/cipherOut are nil in this implementation and
// Transform is never called, but the hook is kept so a future transport
// variant can plug in without touching the read/write paths.
type streamCipher interface {
	Transform(b []byte)
}

// ErrTimeout is returned by byteIO.read when the underlying socket read
// deadline elapses. It is not fatal: the caller may retry.
var ErrTimeout = errors.New("rtmp: read timed out")

// byteIO wraps the TCP connection with a fixed-capacity receive buffer,
// refilled with exactly one blocking read when exhausted, and the
// bandwidth bookkeeping that drives outgoing acknowledgements.
type byteIO struct {
	conn net.Conn

	buf       []byte
	bufStart  int
	bufSize   int

	cipherIn  streamCipher
	cipherOut streamCipher

	timedOut bool

	bytesIn     uint64
	bytesInSent uint64
	clientBW    uint32

	// onAckDue is invoked whenever bytesIn crosses bytesInSent + clientBW/2,
	// matching RTMP's SendBytesReceived trigger. The Session wires this to
	// its own SendAck.
	onAckDue func(total uint64)
}

func newByteIO(conn net.Conn, bufferSize int) *byteIO {
	if bufferSize < minReceiveBuffer {
		bufferSize = minReceiveBuffer
	}
	return &byteIO{
		conn:     conn,
		buf:      make([]byte, bufferSize),
		clientBW: defaultClientBW,
	}
}

// fill issues exactly one blocking read, refilling the buffer from scratch.
// It sets timedOut (without closing) on a deadline expiry and closes the
// connection on any other failure; a failed read is not retried.
func (b *byteIO) fill() error {
	n, err := b.conn.Read(b.buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			b.timedOut = true
			return ErrTimeout
		}
		b.conn.Close()
		return err
	}
	b.timedOut = false
	b.bufStart = 0
	b.bufSize = n
	return nil
}

// read copies up to len(dst) bytes, refilling from the socket at most once
// per call (callers loop until they have everything they need).
func (b *byteIO) read(dst []byte) (int, error) {
	if b.bufSize == 0 {
		if err := b.fill(); err != nil {
			return 0, err
		}
		if b.bufSize == 0 {
			b.conn.Close()
			return 0, errors.New("rtmp: connection closed by peer")
		}
	}

	n := copy(dst, b.buf[b.bufStart:b.bufStart+b.bufSize])
	b.bufStart += n
	b.bufSize -= n

	if n > 0 {
		if b.cipherIn != nil {
			b.cipherIn.Transform(dst[:n])
		}
		b.bytesIn += uint64(n)
		if uint64(b.clientBW)/2 > 0 && b.bytesIn > b.bytesInSent+uint64(b.clientBW)/2 {
			if b.onAckDue != nil {
				b.onAckDue(b.bytesIn)
			}
		}
	}

	return n, nil
}

// readFull reads exactly len(dst) bytes, looping over read() as needed.
func (b *byteIO) readFull(dst []byte) error {
	total := 0
	for total < len(dst) {
		n, err := b.read(dst[total:])
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}

// ackSent records that the caller just sent an ack for `total` bytes, so
// the ack trigger does not fire again until the next half-window.
func (b *byteIO) ackSent(total uint64) {
	b.bytesInSent = total
}

// write sends buf synchronously, applying the outbound cipher to a copy
// (never mutating the caller's slice) when one is configured.
func (b *byteIO) write(buf []byte) error {
	out := buf
	if b.cipherOut != nil {
		out = make([]byte, len(buf))
		copy(out, buf)
		b.cipherOut.Transform(out)
	}

	for len(out) > 0 {
		n, err := b.conn.Write(out)
		if err != nil {
			b.conn.Close()
			return err
		}
		out = out[n:]
	}
	return nil
}
