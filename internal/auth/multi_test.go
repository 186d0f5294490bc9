package auth_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/vyrodovalexey/cigarro-stock/internal/auth"
)

// stubAuthenticator returns a fixed result and counts calls.
type stubAuthenticator struct {
	method auth.AuthMethod
	info   *auth.AuthInfo
	err    error
	calls  int
}

func (s *stubAuthenticator) Authenticate(_ *http.Request) (*auth.AuthInfo, error) {
	s.calls++
	return s.info, s.err
}

func (s *stubAuthenticator) Method() auth.AuthMethod {
	return s.method
}

func TestMultiAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		stubs       []*stubAuthenticator
		wantErr     error
		wantSubject string
		wantCalls   []int
	}{
		{
			name:      "no authenticators",
			wantErr:   auth.ErrUnauthenticated,
			wantCalls: []int{},
		},
		{
			name: "first succeeds",
			stubs: []*stubAuthenticator{
				{method: auth.AuthMethodAPIKey, info: &auth.AuthInfo{Subject: "bot"}},
				{method: auth.AuthMethodBasic, info: &auth.AuthInfo{Subject: "clerk"}},
			},
			wantSubject: "bot",
			wantCalls:   []int{1, 0},
		},
		{
			name: "falls through missing credentials",
			stubs: []*stubAuthenticator{
				{method: auth.AuthMethodAPIKey, err: auth.ErrUnauthenticated},
				{method: auth.AuthMethodBasic, info: &auth.AuthInfo{Subject: "clerk"}},
			},
			wantSubject: "clerk",
			wantCalls:   []int{1, 1},
		},
		{
			name: "invalid credentials stop the chain",
			stubs: []*stubAuthenticator{
				{method: auth.AuthMethodAPIKey, err: fmt.Errorf("%w: revoked", auth.ErrInvalidAPIKey)},
				{method: auth.AuthMethodBasic, info: &auth.AuthInfo{Subject: "clerk"}},
			},
			wantErr:   auth.ErrInvalidAPIKey,
			wantCalls: []int{1, 0},
		},
		{
			name: "nobody has credentials",
			stubs: []*stubAuthenticator{
				{method: auth.AuthMethodAPIKey, err: auth.ErrUnauthenticated},
				{method: auth.AuthMethodJWT, err: auth.ErrUnauthenticated},
			},
			wantErr:   auth.ErrUnauthenticated,
			wantCalls: []int{1, 1},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			authenticators := make([]auth.Authenticator, 0, len(tt.stubs))
			for _, s := range tt.stubs {
				authenticators = append(authenticators, s)
			}
			m := auth.NewMultiAuthenticator(authenticators...)

			// Act
			info, err := m.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))

			// Assert
			calls := make([]int, 0, len(tt.stubs))
			for _, s := range tt.stubs {
				calls = append(calls, s.calls)
			}
			if !reflect.DeepEqual(calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() unexpected error = %v", err)
			}
			if info.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", info.Subject, tt.wantSubject)
			}
		})
	}
}

func TestMultiAuthenticator_SkipsNilAndListsMethods(t *testing.T) {
	t.Parallel()

	m := auth.NewMultiAuthenticator(
		nil,
		auth.NewMTLSAuthenticator(),
		&stubAuthenticator{method: auth.AuthMethodJWT},
	)

	want := []auth.AuthMethod{auth.AuthMethodMTLS, auth.AuthMethodJWT}
	if got := m.Methods(); !reflect.DeepEqual(got, want) {
		t.Errorf("Methods() = %v, want %v", got, want)
	}
}
