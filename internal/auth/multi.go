package auth

import (
	"errors"
	"net/http"
)

// MultiAuthenticator tries authenticators in order. A method that finds no
// credentials (ErrUnauthenticated) passes to the next one; any other failure
// stops the chain.
type MultiAuthenticator struct {
	authenticators []Authenticator
}

// NewMultiAuthenticator creates a multi-method authenticator. Nil entries are
// skipped.
func NewMultiAuthenticator(authenticators ...Authenticator) *MultiAuthenticator {
	m := &MultiAuthenticator{}
	for _, a := range authenticators {
		if a != nil {
			m.authenticators = append(m.authenticators, a)
		}
	}
	return m
}

// Authenticate returns the first successful result.
func (a *MultiAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	for _, authenticator := range a.authenticators {
		info, err := authenticator.Authenticate(r)
		if err == nil {
			return info, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
	}

	return nil, ErrUnauthenticated
}

// Methods lists the configured methods in evaluation order.
func (a *MultiAuthenticator) Methods() []AuthMethod {
	methods := make([]AuthMethod, 0, len(a.authenticators))
	for _, authenticator := range a.authenticators {
		methods = append(methods, authenticator.Method())
	}
	return methods
}

// Method returns the authentication method type.
func (a *MultiAuthenticator) Method() AuthMethod {
	return AuthMethodMulti
}
