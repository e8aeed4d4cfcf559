package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testSecret(t *testing.T) string {
	t.Helper()
	secret, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	return secret
}

func TestGenerateSecret(t *testing.T) {
	secret := testSecret(t)

	if len(secret) < MinSecretLength {
		t.Errorf("GenerateSecret() length = %d, want >= %d", len(secret), MinSecretLength)
	}
	for _, c := range secret {
		if !isBase64URLChar(c) {
			t.Errorf("GenerateSecret() contains invalid character: %c", c)
		}
	}

	if other := testSecret(t); other == secret {
		t.Error("GenerateSecret() produced duplicate secrets")
	}
}

func TestGenerateSecretWithLength(t *testing.T) {
	tests := []struct {
		name      string
		numBytes  int
		wantErr   bool
		minLength int
	}{
		{name: "default length", numBytes: DefaultSecretBytes, minLength: MinSecretLength},
		{name: "longer secret", numBytes: 64, minLength: 86},
		{name: "too short", numBytes: 16, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, err := GenerateSecretWithLength(tt.numBytes)
			if tt.wantErr {
				if !errors.Is(err, ErrSecretTooShort) {
					t.Errorf("GenerateSecretWithLength() error = %v, want ErrSecretTooShort", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateSecretWithLength() error = %v", err)
			}
			if len(secret) < tt.minLength {
				t.Errorf("length = %d, want >= %d", len(secret), tt.minLength)
			}
		})
	}
}

func TestIssueVerify(t *testing.T) {
	secret := testSecret(t)

	raw, err := Issue(secret, "backend-1", time.Hour, "pods:write")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(raw, ".") != 2 {
		t.Fatalf("Issue() = %q, want a compact JWT", raw)
	}

	claims, err := Verify(secret, raw)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.Subject != "backend-1" || claims.ID == "" {
		t.Errorf("claims = %+v", claims)
	}
	if !claims.HasScope("pods:write") || claims.HasScope("admin") {
		t.Errorf("scopes = %v", claims.Scopes)
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt) != time.Hour {
		t.Errorf("lifetime = %v, want 1h", claims.ExpiresAt.Sub(claims.IssuedAt))
	}
}

func TestVerify_Errors(t *testing.T) {
	secret := testSecret(t)
	otherSecret := testSecret(t)

	expired, err := issueAt(time.Now().Add(-2*time.Hour), secret, "backend-1", time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}
	valid, err := Issue(secret, "backend-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	foreignIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "backend-1",
		ID:        "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:  Issuer,
		Subject: "backend-1",
		ID:      "1",
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		secret  string
		raw     string
		wantErr error
	}{
		{name: "empty", secret: secret, raw: "", wantErr: ErrMalformed},
		{name: "garbage", secret: secret, raw: "not.a.jwt", wantErr: ErrMalformed},
		{name: "wrong secret", secret: otherSecret, raw: valid, wantErr: ErrMalformed},
		{name: "expired", secret: secret, raw: expired, wantErr: ErrExpired},
		{name: "foreign issuer", secret: secret, raw: foreignIssuer, wantErr: ErrInvalidClaims},
		{name: "missing expiry", secret: secret, raw: noExpiry, wantErr: ErrInvalidClaims},
		{name: "short secret", secret: "short", raw: valid, wantErr: ErrSecretTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.secret, tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIssue_Errors(t *testing.T) {
	if _, err := Issue("short", "backend-1", time.Hour); !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("Issue(short secret) error = %v", err)
	}
	if _, err := Issue(testSecret(t), " ", time.Hour); !errors.Is(err, ErrInvalidClaims) {
		t.Errorf("Issue(empty subject) error = %v", err)
	}
}

func TestIssue_DefaultTTL(t *testing.T) {
	secret := testSecret(t)
	raw, err := Issue(secret, "user-1", 0)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := Verify(secret, raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt); got != DefaultTTL {
		t.Errorf("lifetime = %v, want %v", got, DefaultTTL)
	}
}

func isBase64URLChar(c rune) bool {
	return (c >= 'A' && c <= 'Z') ||
		(c >= 'a' && c <= 'z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '='
}
