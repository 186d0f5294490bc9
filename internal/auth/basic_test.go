package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vyrodovalexey/cigarro-stock/internal/auth"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to generate bcrypt hash: %v", err)
	}

	return string(hash)
}

func TestNewBasicAuthenticator(t *testing.T) {
	t.Parallel()

	hash := mustHash(t, "secret")

	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{name: "single user", config: "clerk:" + hash},
		{name: "several users with spaces", config: " clerk:" + hash + " , owner:" + hash + " "},
		{name: "trailing comma", config: "clerk:" + hash + ","},
		{name: "empty config", config: "", wantErr: true},
		{name: "whitespace config", config: "   ", wantErr: true},
		{name: "missing colon", config: "clerk", wantErr: true},
		{name: "empty username", config: ":" + hash, wantErr: true},
		{name: "empty hash", config: "clerk:", wantErr: true},
		{name: "not a bcrypt hash", config: "clerk:plaintext", wantErr: true},
		{name: "duplicate user", config: "clerk:" + hash + ",clerk:" + hash, wantErr: true},
		{name: "only commas", config: ",,", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := auth.NewBasicAuthenticator(tt.config)

			if (err != nil) != tt.wantErr {
				t.Fatalf("NewBasicAuthenticator() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && a == nil {
				t.Error("NewBasicAuthenticator() returned nil authenticator")
			}
		})
	}
}

func TestBasicAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	a, err := auth.NewBasicAuthenticator("clerk:" + mustHash(t, "secret"))
	if err != nil {
		t.Fatalf("NewBasicAuthenticator() error = %v", err)
	}

	tests := []struct {
		name        string
		setAuth     func(r *http.Request)
		wantErr     error
		wantSubject string
	}{
		{
			name:        "valid credentials",
			setAuth:     func(r *http.Request) { r.SetBasicAuth("clerk", "secret") },
			wantSubject: "clerk",
		},
		{
			name:    "no credentials",
			setAuth: func(_ *http.Request) {},
			wantErr: auth.ErrUnauthenticated,
		},
		{
			name:    "wrong password",
			setAuth: func(r *http.Request) { r.SetBasicAuth("clerk", "guess") },
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:    "unknown user",
			setAuth: func(r *http.Request) { r.SetBasicAuth("stranger", "secret") },
			wantErr: auth.ErrInvalidCredentials,
		},
		{
			name:    "bearer header is not basic",
			setAuth: func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			wantErr: auth.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cigarros", nil)
			tt.setAuth(req)

			// Act
			info, err := a.Authenticate(req)

			// Assert
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
			if info.Method != auth.AuthMethodBasic {
				t.Errorf("Method = %s, want %s", info.Method, auth.AuthMethodBasic)
			}
		})
	}
}
