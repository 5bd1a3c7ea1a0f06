package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"

	"innkeeper/internal/config"
	"innkeeper/internal/models"

	"golang.org/x/time/rate"
)

type contextKey string

const (
	roleContextKey   contextKey = "role"
	clientContextKey contextKey = "client"
)

// HTTPAuth provides API-key auth, role resolution and per-key rate
// limiting. With auth disabled every caller is treated as admin; that
// mode is for local development only.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := models.RoleAdmin
		clientName := "local"

		if a.cfg.Auth.Enabled {
			client, ok := a.authenticate(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			role = models.ParseRole(client.Role)
			clientName = client.Name
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), roleContextKey, role)
		ctx = context.WithValue(ctx, clientContextKey, clientName)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *HTTPAuth) authenticate(r *http.Request) (config.APIClientKey, bool) {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	apiKey := strings.TrimSpace(r.Header.Get(header))
	if apiKey == "" {
		return config.APIClientKey{}, false
	}
	client, ok := a.clients[apiKey]
	return client, ok
}

// RoleFrom returns the caller role resolved during authentication.
func RoleFrom(ctx context.Context) models.Role {
	if role, ok := ctx.Value(roleContextKey).(models.Role); ok {
		return role
	}
	return models.RoleGuest
}

// ClientFrom returns the authenticated client name for logging.
func ClientFrom(ctx context.Context) string {
	if name, ok := ctx.Value(clientContextKey).(string); ok {
		return name
	}
	return "unknown"
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}
	if !a.getLimiter(a.clientKey(r)).Allow() {
		return errRateLimited
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	if apiKey := strings.TrimSpace(r.Header.Get(header)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
