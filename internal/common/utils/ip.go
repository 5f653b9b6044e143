package utils

import (
	"net"
	"net/http"
)

// ClientIP returns the host part of the request's remote address. Proxy
// headers are ignored; the address is only as trustworthy as the socket.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
