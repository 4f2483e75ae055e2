package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/charmverse/token-gate/internal/api/response"
	"github.com/charmverse/token-gate/internal/domain"
	"github.com/charmverse/token-gate/internal/repository/redis"
	"github.com/charmverse/token-gate/internal/security"
)

type contextKey string

const (
	AdminIDKey      contextKey = "adminID"
	AdminEmailKey   contextKey = "adminEmail"
	AdminDomainsKey contextKey = "adminDomains"
)

// AuthMiddleware handles JWT authentication for the settings endpoints
type AuthMiddleware struct {
	jwtManager *security.JWTManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *security.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the JWT token
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token: "+err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), AdminIDKey, claims.AdminID)
		ctx = context.WithValue(ctx, AdminEmailKey, claims.Email)
		ctx = context.WithValue(ctx, AdminDomainsKey, claims.Domains)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAdminID gets the admin ID from context
func GetAdminID(ctx context.Context) (uuid.UUID, bool) {
	adminID, ok := ctx.Value(AdminIDKey).(uuid.UUID)
	return adminID, ok
}

// GetAdminEmail gets the admin email from context
func GetAdminEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(AdminEmailKey).(string)
	return email, ok
}

// AdminAllowsDomain reports whether the authenticated admin may configure the domain
func AdminAllowsDomain(ctx context.Context, spaceDomain string) bool {
	domains, ok := ctx.Value(AdminDomainsKey).([]string)
	if !ok {
		return false
	}
	for _, d := range domains {
		if d == spaceDomain {
			return true
		}
	}
	return false
}

// maxAddressPeek bounds how much of a request body is read to find the address
const maxAddressPeek = 1 << 16

// limitKey derives the rate-limit key for a request
func limitKey(r *http.Request) string {
	addr := r.URL.Query().Get("address")
	if addr == "" && r.Method == http.MethodPost && r.Body != nil {
		addr = peekBodyAddress(r)
	}
	if domain.IsValidAddress(addr) {
		return "addr:" + domain.NormalizeAddress(addr)
	}
	return "ip:" + r.RemoteAddr
}

// peekBodyAddress reads the address field from a JSON body and restores the
// body for the handler
func peekBodyAddress(r *http.Request) string {
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxAddressPeek))
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), r.Body))

	var payload struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(buf, &payload); err != nil {
		return ""
	}
	return payload.Address
}

// RateLimitMiddleware throttles the public connect endpoints
type RateLimitMiddleware struct {
	rateLimiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter}
}

// Limit applies rate limiting keyed by the caller's wallet address, read
// from the query string or, for link submissions, from the JSON body.
// Requests without a valid address fall back to the client IP so
// unauthenticated scans are still bounded.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := limitKey(r)

		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), key)
		if err != nil {
			// If the limiter fails, let the request through
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.Format(time.RFC3339))

		if !allowed {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
