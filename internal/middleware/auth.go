package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/cigarro-stock/internal/auth"
)

// Auth returns a middleware that authenticates requests. Probe endpoints,
// CORS preflight requests and GET WebSocket upgrades to one of upgradePaths
// pass through. A nil authenticator disables the check.
func Auth(authenticator auth.Authenticator, logger *zap.Logger, upgradePaths ...string) Middleware {
	return func(next http.Handler) http.Handler {
		if authenticator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || r.Method == http.MethodOptions || isExemptUpgrade(r, upgradePaths) {
				next.ServeHTTP(w, r)
				return
			}

			info, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.Error(err),
				)
				setWWWAuthenticateHeader(w, err, authenticator.Method())
				writeJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}

			logger.Debug("authentication successful",
				zap.String("subject", info.Subject),
				zap.String("method", string(info.Method)),
				zap.String("path", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithAuthInfo(r.Context(), info)))
		})
	}
}

// isPublicPath matches probe paths and their sub-paths, but not paths that
// only share a prefix (/healthz is not public).
func isPublicPath(path string) bool {
	if probePaths[path] {
		return true
	}
	for p := range probePaths {
		if strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// isExemptUpgrade matches only a GET WebSocket handshake on an exact
// upgrade path. The header alone never skips authentication.
func isExemptUpgrade(r *http.Request, upgradePaths []string) bool {
	if r.Method != http.MethodGet || !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return false
	}
	return slices.Contains(upgradePaths, r.URL.Path)
}

// setWWWAuthenticateHeader sets the challenge matching the failure, or the
// configured method's challenge when no credentials were sent.
func setWWWAuthenticateHeader(w http.ResponseWriter, err error, method auth.AuthMethod) {
	var challenge string
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		challenge = `Bearer error="invalid_token"`
	case errors.Is(err, auth.ErrInvalidCredentials):
		challenge = `Basic realm="` + auth.Realm + `"`
	case errors.Is(err, auth.ErrInvalidAPIKey):
		challenge = "API-Key"
	case errors.Is(err, auth.ErrInvalidCert):
		challenge = "mTLS"
	case errors.Is(err, auth.ErrUnauthenticated):
		challenge = challengeFor(method)
	}
	if challenge != "" {
		w.Header().Set("WWW-Authenticate", challenge)
	}
}

func challengeFor(method auth.AuthMethod) string {
	switch method {
	case auth.AuthMethodBasic:
		return `Basic realm="` + auth.Realm + `"`
	case auth.AuthMethodJWT:
		return "Bearer"
	case auth.AuthMethodAPIKey:
		return "API-Key"
	case auth.AuthMethodMTLS:
		return "mTLS"
	default:
		return `Bearer, Basic realm="` + auth.Realm + `", API-Key`
	}
}
