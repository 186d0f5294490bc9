package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vyrodovalexey/cigarro-stock/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()

	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   "stock-clerk",
		Issuer:    "cigarro-stock",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
	}
}

func TestNewJWTAuthenticator(t *testing.T) {
	t.Parallel()

	if _, err := auth.NewJWTAuthenticator("short", ""); !errors.Is(err, auth.ErrWeakSecret) {
		t.Errorf("NewJWTAuthenticator(short) error = %v, want %v", err, auth.ErrWeakSecret)
	}
	if _, err := auth.NewJWTAuthenticator(testSecret, "cigarro-stock"); err != nil {
		t.Errorf("NewJWTAuthenticator() unexpected error = %v", err)
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	expired := validClaims()
	expired.IssuedAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-30 * time.Minute))

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	otherIssuer := validClaims()
	otherIssuer.Issuer = "somebody-else"

	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name    string
		header  func(t *testing.T) string
		wantErr error
	}{
		{
			name: "valid token",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims())
			},
		},
		{
			name: "lower-case scheme",
			header: func(t *testing.T) string {
				return "bearer " + signToken(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims())
			},
		},
		{
			name:    "no header",
			header:  func(_ *testing.T) string { return "" },
			wantErr: auth.ErrUnauthenticated,
		},
		{
			name:    "basic scheme",
			header:  func(_ *testing.T) string { return "Basic Y2xlcms6c2VjcmV0" },
			wantErr: auth.ErrUnauthenticated,
		},
		{
			name:    "malformed token",
			header:  func(_ *testing.T) string { return "Bearer not.a.jwt" },
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "wrong secret",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), validClaims())
			},
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "expired",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired)
			},
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "missing expiry",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)
			},
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), otherIssuer)
			},
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "missing subject",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject)
			},
			wantErr: auth.ErrInvalidToken,
		},
		{
			name: "unsigned token",
			header: func(t *testing.T) string {
				return "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())
			},
			wantErr: auth.ErrInvalidToken,
		},
	}

	a, err := auth.NewJWTAuthenticator(testSecret, "cigarro-stock")
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cigarros", nil)
			if h := tt.header(t); h != "" {
				req.Header.Set("Authorization", h)
			}

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
			if info.Subject != "stock-clerk" {
				t.Errorf("Subject = %q, want stock-clerk", info.Subject)
			}
			if info.Method != auth.AuthMethodJWT {
				t.Errorf("Method = %s, want %s", info.Method, auth.AuthMethodJWT)
			}
			if info.Claims["issuer"] != "cigarro-stock" {
				t.Errorf("issuer claim = %v", info.Claims["issuer"])
			}
		})
	}
}

func TestJWTAuthenticator_NoIssuerCheck(t *testing.T) {
	t.Parallel()

	a, err := auth.NewJWTAuthenticator(testSecret, "")
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}

	claims := validClaims()
	claims.Issuer = "anyone"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret), claims))

	if _, err := a.Authenticate(req); err != nil {
		t.Errorf("Authenticate() unexpected error = %v", err)
	}
}
