package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/lawnchairsociety/battleadvisor/internal/logger"
)

// trustedProxies lists the peers allowed to report the client address in
// X-Forwarded-For or X-Real-IP. Lockouts, throttles and connection caps key
// on the resolved address, so nobody else gets to choose it.
type trustedProxies []*net.IPNet

// parseTrustedProxies accepts CIDRs and bare IPs. Invalid entries are logged
// and skipped.
func parseTrustedProxies(entries []string) trustedProxies {
	var nets trustedProxies
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				logger.Warning("Ignoring invalid trusted proxy", "entry", entry)
				continue
			}
			bits := 128
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}

		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			logger.Warning("Ignoring invalid trusted proxy", "entry", entry, "error", err)
			continue
		}
		nets = append(nets, n)
	}
	return nets
}

func (p trustedProxies) contains(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range p {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP returns the address of the client behind r. The forwarding
// headers are only read when the direct peer is a trusted proxy. The
// X-Forwarded-For chain is walked from the right and the first hop that is
// not itself a trusted proxy wins; hops further left were written by the
// client and are ignored.
func (p trustedProxies) clientIP(r *http.Request) string {
	remote := extractIP(r.RemoteAddr)
	if !p.contains(remote) {
		return remote
	}

	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(strings.Join(values, ","), ",")
		leftmost := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !p.contains(hop) {
				return hop
			}
			leftmost = hop
		}
		if leftmost != "" {
			return leftmost
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return remote
}
