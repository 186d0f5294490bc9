package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
)

// APIKeyHeader is the HTTP header name for API key authentication.
const APIKeyHeader = "X-API-Key"

type apiKey struct {
	digest [sha256.Size]byte
	name   string
}

// APIKeyAuthenticator authenticates requests carrying a known key in the
// X-API-Key header. Keys are kept as SHA-256 digests and every key is
// compared on each request.
type APIKeyAuthenticator struct {
	keys []apiKey
}

// NewAPIKeyAuthenticator creates an API key authenticator from
// "key1:name1,key2:name2".
func NewAPIKeyAuthenticator(keysConfig string) (*APIKeyAuthenticator, error) {
	pairs, err := parsePairs("apikey", keysConfig)
	if err != nil {
		return nil, err
	}

	keys := make([]apiKey, 0, len(pairs))
	for key, name := range pairs {
		keys = append(keys, apiKey{digest: sha256.Sum256([]byte(key)), name: name})
	}

	return &APIKeyAuthenticator{keys: keys}, nil
}

// Authenticate validates the X-API-Key header.
func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		return nil, ErrUnauthenticated
	}

	digest := sha256.Sum256([]byte(presented))
	var subject string
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare(digest[:], k.digest[:]) == 1 {
			subject = k.name
		}
	}

	if subject == "" {
		return nil, ErrInvalidAPIKey
	}

	return &AuthInfo{
		Method:  AuthMethodAPIKey,
		Subject: subject,
	}, nil
}

// Method returns the authentication method type.
func (a *APIKeyAuthenticator) Method() AuthMethod {
	return AuthMethodAPIKey
}
