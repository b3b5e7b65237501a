package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/lawnchairsociety/battleadvisor/internal/logger"
)

// bcrypt cost factor for generated API key hashes
const bcryptCost = 12

// HashAPIKey returns the bcrypt hash to list under auth.key_hashes.
func HashAPIKey(key string) (string, error) {
	if len(key) < 16 {
		return "", fmt.Errorf("API key must be at least 16 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return string(hash), nil
}

// apiKey returns the key presented with r: a bearer token, or the "key"
// query parameter for WebSocket clients that cannot set headers.
func apiKey(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if strings.HasPrefix(r.URL.Path, "/ws/") {
		return r.URL.Query().Get("key")
	}
	return ""
}

func (s *Server) validKey(key string) bool {
	if key == "" {
		return false
	}
	for _, hash := range s.keyHashes {
		if bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil {
			return true
		}
	}
	return false
}

// requireAPIKey enforces API key auth when it is enabled. Repeated failures
// from one IP lock it out with 429.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Auth.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip := s.clientIP(r)
		if locked, remaining := s.authLimiter.IsLocked(ip); locked {
			tooManyAttempts(w, remaining.Seconds())
			return
		}

		if !s.validKey(apiKey(r)) {
			locked, duration := s.authLimiter.RecordFailure(ip)
			if locked {
				logger.Warning("API key lockout", "client_ip", ip, "duration", duration)
				tooManyAttempts(w, duration.Seconds())
				return
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="battleadvisor"`)
			writeError(w, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}

		s.authLimiter.RecordSuccess(ip)
		next.ServeHTTP(w, r)
	})
}

func tooManyAttempts(w http.ResponseWriter, seconds float64) {
	w.Header().Set("Retry-After", strconv.Itoa(int(seconds+0.999)))
	writeError(w, http.StatusTooManyRequests, "Too many failed authentication attempts. Please try again later.")
}
