// Package clientinfo extracts caller metadata from HTTP requests for rate
// limiting and abuse detection. It never stores the raw User-Agent string.
package clientinfo

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// Info describes the calling client as far as the trust boundary cares:
// an identifier for rate limiting and a coarse device class for abuse
// heuristics.
type Info struct {
	IP      string
	Browser string
	OS      string
	Mobile  bool
	Bot     bool
}

type infoKey struct{}

// Middleware parses the remote address and User-Agent once per request and
// stashes the result in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := FromRequest(r)
		ctx := context.WithValue(r.Context(), infoKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the client info recorded by Middleware.
func FromContext(ctx context.Context) Info {
	if info, ok := ctx.Value(infoKey{}).(Info); ok {
		return info
	}
	return Info{}
}

// FromRequest extracts client info directly from a request.
func FromRequest(r *http.Request) Info {
	info := Info{IP: clientIP(r)}

	uaString := r.Header.Get("User-Agent")
	if uaString == "" {
		// Absent User-Agent is itself a weak bot signal.
		info.Bot = true
		return info
	}

	ua := useragent.New(uaString)
	browser, _ := ua.Browser()
	info.Browser = strings.ToLower(strings.TrimSpace(browser))
	info.OS = strings.ToLower(strings.TrimSpace(ua.OS()))
	info.Mobile = ua.Mobile()
	info.Bot = ua.Bot()
	return info
}

// clientIP prefers X-Forwarded-For (first hop) since the service sits behind
// the platform's routing layer, falling back to the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
