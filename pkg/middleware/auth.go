package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type claimsKey struct{}

// AuthConfig holds OIDC bearer-token verification settings.
// Auth is disabled when Issuer is empty.
type AuthConfig struct {
	Enabled  bool   `toml:"enabled"`
	Issuer   string `toml:"issuer"`
	ClientID string `toml:"client_id"`
}

// AuthEnv maps auth config fields to environment variable names for override injection.
type AuthEnv struct {
	Enabled  string
	Issuer   string
	ClientID string
}

// Finalize applies environment variable overrides and validation.
func (c *AuthConfig) Finalize(env *AuthEnv) error {
	if env != nil {
		if v := envValue(env.Enabled); v != "" {
			c.Enabled = v == "true" || v == "1"
		}
		if v := envValue(env.Issuer); v != "" {
			c.Issuer = v
		}
		if v := envValue(env.ClientID); v != "" {
			c.ClientID = v
		}
	}
	if c.Enabled && c.Issuer == "" {
		return fmt.Errorf("auth enabled but issuer not configured")
	}
	return nil
}

// Merge overwrites fields from overlay.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	c.Enabled = overlay.Enabled
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.ClientID != "" {
		c.ClientID = overlay.ClientID
	}
}

// TokenClaims holds the verified identity extracted from a bearer token.
type TokenClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// ClaimsFromContext returns the verified token claims for the request, if any.
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*TokenClaims)
	return claims, ok
}

// Auth returns middleware that verifies OIDC bearer tokens against the
// configured issuer. When disabled it passes requests through unchanged.
// Provider discovery happens lazily on the first authenticated request.
func Auth(cfg *AuthConfig) func(http.Handler) http.Handler {
	var verifier *oidc.IDTokenVerifier

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			raw := bearerToken(r)
			if raw == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			if verifier == nil {
				provider, err := oidc.NewProvider(r.Context(), cfg.Issuer)
				if err != nil {
					http.Error(w, "identity provider unavailable", http.StatusServiceUnavailable)
					return
				}
				verifier = provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
			}

			token, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			var claims TokenClaims
			if err := token.Claims(&claims); err != nil {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, &claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}
