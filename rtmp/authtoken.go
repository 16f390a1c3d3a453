// authtoken: an optional signed token appended to the connect invoke's
// auth argument, generalizing the teacher's MakeWebsocketAuthenticationToken
// from coordinator-facing origin auth to the play client identifying
// itself to the RTMP origin it is about to pull from.

package rtmp

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signConnectAuth produces a compact JWT over app/playpath, signed with
// s.link.AuthSecret, or "" when no secret is configured (the connect
// invoke then omits the auth parameter entirely).
func (s *Session) signConnectAuth() (string, error) {
	if s.link.AuthSecret == "" {
		return "", nil
	}

	claims := jwt.MapClaims{
		"sub":      "rtmp-client",
		"app":      s.link.App,
		"playpath": s.link.Playpath,
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.link.AuthSecret))
	if err != nil {
		return "", fmt.Errorf("rtmp: signing connect auth token: %w", err)
	}
	return signed, nil
}
