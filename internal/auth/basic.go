package auth

import (
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// Realm is announced in Basic authentication challenges.
const Realm = "cigarro-stock"

// BasicAuthenticator authenticates requests using HTTP Basic authentication
// with bcrypt-hashed passwords.
type BasicAuthenticator struct {
	users map[string][]byte
	// decoy is compared for unknown users so both failure paths cost one bcrypt run.
	decoy []byte
}

// NewBasicAuthenticator creates a Basic authenticator from
// "user1:bcrypt1,user2:bcrypt2".
func NewBasicAuthenticator(usersConfig string) (*BasicAuthenticator, error) {
	pairs, err := parsePairs("basic", usersConfig)
	if err != nil {
		return nil, err
	}

	users := make(map[string][]byte, len(pairs))
	decoyCost := bcrypt.MinCost
	for user, hash := range pairs {
		cost, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			return nil, fmt.Errorf("basic auth: user %q: %w", user, err)
		}
		decoyCost = max(decoyCost, cost)
		users[user] = []byte(hash)
	}

	// The decoy uses the highest configured cost so unknown users are not
	// rejected faster than wrong passwords.
	decoy, err := bcrypt.GenerateFromPassword([]byte(Realm), decoyCost)
	if err != nil {
		return nil, fmt.Errorf("basic auth: generating decoy hash: %w", err)
	}

	return &BasicAuthenticator{users: users, decoy: decoy}, nil
}

// Authenticate verifies the Basic credentials of the request.
func (a *BasicAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return nil, ErrUnauthenticated
	}

	hash, known := a.users[username]
	if !known {
		_ = bcrypt.CompareHashAndPassword(a.decoy, []byte(password))
		return nil, fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: wrong password", ErrInvalidCredentials)
	}

	return &AuthInfo{
		Method:  AuthMethodBasic,
		Subject: username,
	}, nil
}

// Method returns the authentication method type.
func (a *BasicAuthenticator) Method() AuthMethod {
	return AuthMethodBasic
}
