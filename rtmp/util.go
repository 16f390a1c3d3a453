package rtmp

import "time"

var processStart = time.Now()

// nowMillis returns the milliseconds elapsed since the package was
// initialised; it is the handshake uptime and the outgoing message clock.
func nowMillis() int64 {
	return time.Since(processStart).Milliseconds()
}
