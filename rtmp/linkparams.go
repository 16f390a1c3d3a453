// Link parameters and .env-driven defaults

package rtmp

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Protocol identifies the transport/tunnel variant requested for a
// connection. Only plain RTMP over TCP is implemented; the others are
// named so LinkParams can describe a link even though Connect rejects them.
type Protocol int

const (
	ProtocolRTMP Protocol = iota
	ProtocolRTMPT
	ProtocolRTMPS
	ProtocolRTMPE
)

// LinkParams holds everything needed to dial and negotiate a play session.
// Immutable once passed to Setup, except SeekTime and Length, which
// ConnectStream overwrites with its arguments.
type LinkParams struct {
	Protocol Protocol

	Host string
	Port int

	SocksHost string
	SocksPort int

	App     string
	TcURL   string
	SwfURL  string
	PageURL string
	FlashVer string

	Auth          string
	Subscribepath string
	Playpath      string

	SeekTime float64 // milliseconds
	Length   float64 // milliseconds

	BLiveStream bool

	TimeoutSeconds int

	SwfHash []byte // 32 bytes, optional
	SwfSize uint32

	// AllowedHosts restricts which resolved IPs Connect is permitted to
	// dial. Empty means "allow all" (see connectguard.go).
	AllowedHosts []string

	// AuthSecret, when set, causes Connect to sign a JWT and attach it to
	// the connect invoke (see authtoken.go).
	AuthSecret string

	// EventFeedURL, when set, enables the optional websocket session
	// event feed (see eventfeed.go).
	EventFeedURL string

	// RedisURL, when set, enables the optional playback-position
	// publisher (see poscache.go).
	RedisURL     string
	RedisChannel string
}

// LoadDotEnv loads a .env file (if present) into the process environment,
// the way the teacher's server binary expects its tunables in os.Getenv.
// Safe to call multiple times; missing files are not an error.
func LoadDotEnv(path string) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		logWarning("could not load " + path + ": " + err.Error())
	}
}

// ParseURL builds a LinkParams from an rtmp://host[:port]/app/playpath
// URL, filling ambient fields (allow-list, auth secret, event feed,
// redis) from the environment the way the teacher's server reads its
// tunables from os.Getenv rather than a config file.
func ParseURL(raw string) (LinkParams, error) {
	link := defaultLinkParams()

	u, err := url.Parse(raw)
	if err != nil {
		return link, fmt.Errorf("rtmp: parsing url %q: %w", raw, err)
	}

	switch u.Scheme {
	case "rtmp":
		link.Protocol = ProtocolRTMP
	case "rtmpt":
		link.Protocol = ProtocolRTMPT
	case "rtmps":
		link.Protocol = ProtocolRTMPS
	case "rtmpe":
		link.Protocol = ProtocolRTMPE
	default:
		return link, fmt.Errorf("rtmp: unrecognized scheme %q", u.Scheme)
	}

	link.Host = u.Hostname()
	if link.Host == "" {
		return link, fmt.Errorf("rtmp: url %q has no host", raw)
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return link, fmt.Errorf("rtmp: invalid port %q: %w", p, err)
		}
		link.Port = port
	}

	path := strings.TrimPrefix(u.Path, "/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return link, fmt.Errorf("rtmp: url %q must have the form rtmp://host/app/playpath", raw)
	}
	link.App = parts[0]
	link.Playpath = parts[1]
	link.TcURL = fmt.Sprintf("%s://%s/%s", u.Scheme, u.Host, link.App)
	link.FlashVer = "LNX 9,0,124,2"

	if h := os.Getenv("RTMP_CLIENT_ALLOWED_HOSTS"); h != "" {
		link.AllowedHosts = strings.Fields(h)
	}
	link.AuthSecret = os.Getenv("RTMP_CLIENT_AUTH_SECRET")
	link.EventFeedURL = os.Getenv("RTMP_CLIENT_EVENT_FEED_URL")
	link.RedisURL = os.Getenv("RTMP_CLIENT_REDIS_URL")
	link.RedisChannel = os.Getenv("RTMP_CLIENT_REDIS_CHANNEL")

	return link, nil
}

// defaultLinkParams returns a LinkParams with the protocol and timeout
// defaults set; Port stays 0 and every other field is left zero-valued.
func defaultLinkParams() LinkParams {
	return LinkParams{
		Protocol:       ProtocolRTMP,
		Port:           0, // resolved to defaultPort by Setup
		TimeoutSeconds: 10,
	}
}
