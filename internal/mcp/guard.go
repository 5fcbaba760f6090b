package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// NewGuard returns middleware that admits loopback clients and clients from
// allowlist (comma separated CIDRs). When token is set every request must
// also carry it as a bearer token; without a token only loopback is admitted.
func NewGuard(token, allowlist string) (func(http.Handler) http.Handler, error) {
	nets, err := ParseAllowlist(allowlist)
	if err != nil {
		return nil, err
	}
	g := &guard{token: token}
	if token != "" {
		g.allowed = nets
	}
	return g.wrap, nil
}

type guard struct {
	token   string
	allowed []*net.IPNet
}

func (g *guard) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := parseRemoteIP(r.RemoteAddr)
		if !g.isAllowed(ip) {
			respondError(w, http.StatusForbidden, "FORBIDDEN_IP", "request IP not allowed")
			return
		}
		if g.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		const bearerPrefix = "Bearer "
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, bearerPrefix) {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid bearer token")
			return
		}
		provided := strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(g.token)) != 1 {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *guard) isAllowed(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() {
		return true
	}
	for _, network := range g.allowed {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

func parseRemoteIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(remoteAddr)
}

// ParseAllowlist parses comma separated CIDRs. Bare addresses are accepted as
// single-host networks.
func ParseAllowlist(raw string) ([]*net.IPNet, error) {
	var networks []*net.IPNet
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("allowlist: invalid address %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			networks = append(networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("allowlist: %w", err)
		}
		networks = append(networks, network)
	}
	return networks, nil
}

type respError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type response struct {
	Ok    bool       `json:"ok"`
	Data  any        `json:"data,omitempty"`
	Error *respError `json:"error,omitempty"`
}

func respond(w http.ResponseWriter, status int, payload response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondOK(w http.ResponseWriter, data any) {
	respond(w, http.StatusOK, response{Ok: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respond(w, status, response{Ok: false, Error: &respError{Code: code, Message: message}})
}
