package auth

import (
	"fmt"
	"net/http"
)

// MTLSAuthenticator authenticates requests by the verified client
// certificate of the TLS connection. Certificate chain validation is done by
// the TLS layer; this authenticator only maps the leaf to an identity.
type MTLSAuthenticator struct {
	allowed map[string]struct{}
}

// NewMTLSAuthenticator creates an mTLS authenticator. When allowedSubjects is
// non-empty only certificates with one of those common names are accepted.
func NewMTLSAuthenticator(allowedSubjects ...string) *MTLSAuthenticator {
	a := &MTLSAuthenticator{}
	if len(allowedSubjects) > 0 {
		a.allowed = make(map[string]struct{}, len(allowedSubjects))
		for _, s := range allowedSubjects {
			a.allowed[s] = struct{}{}
		}
	}
	return a
}

// Authenticate maps the client certificate to an AuthInfo.
func (a *MTLSAuthenticator) Authenticate(r *http.Request) (*AuthInfo, error) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		return nil, ErrUnauthenticated
	}

	leaf := r.TLS.PeerCertificates[0]
	subject := leaf.Subject.CommonName
	if subject == "" {
		return nil, fmt.Errorf("%w: empty common name", ErrInvalidCert)
	}
	if a.allowed != nil {
		if _, ok := a.allowed[subject]; !ok {
			return nil, fmt.Errorf("%w: subject %q not allowed", ErrInvalidCert, subject)
		}
	}

	claims := map[string]any{
		"serial": leaf.SerialNumber.String(),
	}
	if len(leaf.Subject.Organization) > 0 {
		claims["organizations"] = leaf.Subject.Organization
	}
	if len(leaf.DNSNames) > 0 {
		claims["dns_names"] = leaf.DNSNames
	}

	return &AuthInfo{
		Method:  AuthMethodMTLS,
		Subject: subject,
		Claims:  claims,
	}, nil
}

// Method returns the authentication method type.
func (a *MTLSAuthenticator) Method() AuthMethod {
	return AuthMethodMTLS
}
