package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrWeakSecret is returned for JWT secrets shorter than MinJWTSecretLength.
var ErrWeakSecret = errors.New("jwt secret too short")

// MinJWTSecretLength is the minimum HMAC secret length in bytes.
const MinJWTSecretLength = 32

// JWTAuthenticator authenticates HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a JWT authenticator. An empty issuer disables
// the issuer check.
func NewJWTAuthenticator(secret, issuer string) (*JWTAuthenticator, error) {
	if len(secret) < MinJWTSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinJWTSecretLength)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	return &JWTAuthenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(opts...),
	}, nil
}

// Authenticate validates the bearer token of the Authorization header.
func (a *JWTAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, ErrUnauthenticated
	}

	claims := &jwt.RegisteredClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	info := map[string]any{
		"expires_at": claims.ExpiresAt.Time,
	}
	if claims.Issuer != "" {
		info["issuer"] = claims.Issuer
	}
	if len(claims.Audience) > 0 {
		info["audience"] = []string(claims.Audience)
	}

	return &AuthInfo{
		Method:  AuthMethodJWT,
		Subject: claims.Subject,
		Claims:  info,
	}, nil
}

// Method returns the authentication method type.
func (a *JWTAuthenticator) Method() AuthMethod {
	return AuthMethodJWT
}

// bearerToken extracts the token of an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
