// poscache: an optional Redis publisher of playback position, generalizing
// redis_cmds.go's pub/sub command channel (inbound: "kill-session",
// "close-stream") from a control-plane receiver into outbound telemetry
// a coordinator can subscribe to for resume/seek bookkeeping.

package rtmp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type posCache struct {
	client  *redis.Client
	channel string
	ctx     context.Context

	lastPublish time.Time
}

// newPosCache returns nil (a harmless no-op receiver, since all its
// methods guard against a nil pointer) when url is empty.
func newPosCache(url, channel string) *posCache {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		logWarning(fmt.Sprintf("poscache: invalid redis url, disabling: %v", err))
		return nil
	}
	if channel == "" {
		channel = "rtmp_playback_position"
	}
	return &posCache{
		client:  redis.NewClient(opts),
		channel: channel,
		ctx:     context.Background(),
	}
}

// publishPosition throttles to once per second: position telemetry does
// not need per-packet fidelity and must never slow down delivery.
func (p *posCache) publishPosition(playpath string, mediaStamp int64) {
	if p == nil {
		return
	}
	now := time.Now()
	if now.Sub(p.lastPublish) < time.Second {
		return
	}
	p.lastPublish = now

	payload := fmt.Sprintf("position>%s|%d", playpath, mediaStamp)
	if err := p.client.Publish(p.ctx, p.channel, payload).Err(); err != nil {
		logWarning(fmt.Sprintf("poscache: publish failed: %v", err))
	}
}

func (p *posCache) close() {
	if p == nil {
		return
	}
	p.client.Close()
}
