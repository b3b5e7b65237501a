package server

import (
	"net"
	"net/http"
	"sync"

	"github.com/lawnchairsociety/battleadvisor/internal/config"
	"github.com/lawnchairsociety/battleadvisor/internal/logger"
)

// ConnLimiter caps in-flight requests (including open feed connections)
// per client IP and in total.
type ConnLimiter struct {
	mu         sync.Mutex
	ipCounts   map[string]int
	totalCount int
	maxPerIP   int
	maxTotal   int

	// clientIP picks the key a request is counted under.
	clientIP func(*http.Request) string
}

// NewConnLimiter creates a limiter. Zero limits mean unlimited.
func NewConnLimiter(cfg config.ConnectionsConfig) *ConnLimiter {
	return &ConnLimiter{
		ipCounts: make(map[string]int),
		maxPerIP: cfg.MaxPerIP,
		maxTotal: cfg.MaxTotal,
		clientIP: trustedProxies(nil).clientIP,
	}
}

// TryAcquire takes a slot for ip. Returns false if that would exceed a limit.
func (c *ConnLimiter) TryAcquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTotal > 0 && c.totalCount >= c.maxTotal {
		return false
	}
	if c.maxPerIP > 0 && c.ipCounts[ip] >= c.maxPerIP {
		return false
	}

	c.ipCounts[ip]++
	c.totalCount++
	return true
}

// Release returns a slot taken by TryAcquire.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ipCounts[ip] > 0 {
		c.ipCounts[ip]--
		if c.ipCounts[ip] == 0 {
			delete(c.ipCounts, ip)
		}
	}
	if c.totalCount > 0 {
		c.totalCount--
	}
}

// Stats returns the total in-flight count and the number of distinct IPs.
func (c *ConnLimiter) Stats() (total int, ips int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCount, len(c.ipCounts)
}

// IPCount returns the in-flight count for one IP.
func (c *ConnLimiter) IPCount(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ipCounts[ip]
}

// Middleware rejects requests over the limit with 429 and holds a slot
// for the lifetime of every other request.
func (c *ConnLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := c.clientIP(r)
		if !c.TryAcquire(ip) {
			logger.Warning("Request rejected - limit exceeded",
				"remote_addr", r.RemoteAddr,
				"client_ip", ip,
				"path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "Too many concurrent requests. Please try again later.")
			return
		}
		defer c.Release(ip)

		next.ServeHTTP(w, r)
	})
}

// extractIP extracts the IP address from a remote address string (ip:port format).
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr // Return as-is if can't split
	}
	return host
}
