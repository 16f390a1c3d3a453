// eventfeed: an optional session-lifecycle event feed. When configured,
// the client pushes connect/play/error/close events over a websocket to
// an observing coordinator, generalizing control_connection.go's
// ControlServerConnection from "server announces its publishers" to
// "client announces its own playback session".

package rtmp

import (
	"fmt"
	"sync"
	"time"

	messages "github.com/AgustinSRG/go-simple-rpc-message"
	"github.com/gorilla/websocket"
)

type eventFeed struct {
	url string

	lock    sync.Mutex
	conn    *websocket.Conn
	enabled bool
	closing bool
}

// newEventFeed starts (or no-ops, if url is empty) the background
// connect-and-reconnect loop.
func newEventFeed(url string) *eventFeed {
	f := &eventFeed{url: url}
	if url == "" {
		return f
	}
	f.enabled = true
	go f.connectLoop()
	return f
}

func (f *eventFeed) connectLoop() {
	for {
		f.lock.Lock()
		closing := f.closing
		f.lock.Unlock()
		if closing {
			return
		}

		conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			logWarning(fmt.Sprintf("eventfeed: connection error: %v", err))
			time.Sleep(10 * time.Second)
			continue
		}

		f.lock.Lock()
		f.conn = conn
		f.lock.Unlock()

		// Drain inbound frames (the feed is outbound-only from this
		// client's perspective) until the socket drops, then reconnect.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		f.lock.Lock()
		f.conn = nil
		f.lock.Unlock()
		conn.Close()

		time.Sleep(10 * time.Second)
	}
}

// publish sends an event, silently dropping it if the feed is
// unconfigured or momentarily disconnected: telemetry is best-effort and
// must never block or fail playback.
func (f *eventFeed) publish(event string, params map[string]string) {
	if f == nil || !f.enabled {
		return
	}
	f.lock.Lock()
	conn := f.conn
	f.lock.Unlock()
	if conn == nil {
		return
	}

	msg := messages.RPCMessage{Method: event, Params: params}
	conn.WriteMessage(websocket.TextMessage, []byte(msg.Serialize()))
}

func (f *eventFeed) close() {
	if f == nil || !f.enabled {
		return
	}
	f.lock.Lock()
	f.closing = true
	conn := f.conn
	f.lock.Unlock()
	if conn != nil {
		conn.Close()
	}
}
