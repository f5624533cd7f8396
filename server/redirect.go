// server/redirect.go
package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// RedirectHandler sends every request to the same host and path over HTTPS.
// Requests with a malformed Host or control characters in the target get 400.
func RedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.RequestURI()
		if !validHost(r.Host) || hasControl(target) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "https://"+r.Host+target, http.StatusMovedPermanently)
	})
}

func validHost(host string) bool {
	if host == "" || strings.HasPrefix(host, "/") || strings.Contains(host, "://") {
		return false
	}
	name := host
	if h, port, err := net.SplitHostPort(host); err == nil {
		n, perr := strconv.Atoi(port)
		if perr != nil || n <= 0 || n > 65535 {
			return false
		}
		name = h
	}
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "[") {
		inner := strings.TrimSuffix(strings.TrimPrefix(name, "["), "]")
		if zone := strings.IndexByte(inner, '%'); zone >= 0 {
			inner = inner[:zone]
		}
		if net.ParseIP(inner) == nil {
			return false
		}
	}
	return !hasControl(name) && !strings.ContainsAny(name, " \t")
}

func hasControl(s string) bool {
	for _, c := range s {
		if c < 0x20 || c == 0x7f {
			return true
		}
	}
	return false
}
