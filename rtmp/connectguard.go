// connectguard: an optional allow-list check on the resolved remote
// host before Connect dials it, generalizing the teacher's CanPlay()
// IP-range whitelist to a client-side guard against being pointed at an
// unexpected origin.

package rtmp

import (
	"fmt"
	"net"

	"github.com/netdata/go.d.plugin/pkg/iprange"
)

// ErrHostNotAllowed is returned by checkAllowedHost when the resolved
// address does not match any configured range.
var ErrHostNotAllowed = fmt.Errorf("rtmp: remote host is not in the configured allow-list")

// checkAllowedHost resolves s.link.Host and verifies it falls within one
// of s.link.AllowedHosts' CIDR/range expressions. An empty AllowedHosts
// list means "allow any host", matching the teacher's default-open
// behavior when RTMP_PLAY_WHITELIST is unset.
func (s *Session) checkAllowedHost() error {
	if len(s.link.AllowedHosts) == 0 {
		return nil
	}

	ip := net.ParseIP(s.link.Host)
	if ip == nil {
		addrs, err := net.LookupIP(s.link.Host)
		if err != nil || len(addrs) == 0 {
			return fmt.Errorf("rtmp: resolving host for allow-list check: %w", err)
		}
		ip = addrs[0]
	}

	for _, expr := range s.link.AllowedHosts {
		ranges, err := iprange.ParseRanges(expr)
		if err != nil {
			logWarning(fmt.Sprintf("ignoring invalid allowed-host entry %q: %v", expr, err))
			continue
		}
		for _, r := range ranges {
			if r.Contains(ip) {
				return nil
			}
		}
	}

	return ErrHostNotAllowed
}
