package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"kabinet.io/kabinet/pkg/token"
	"kabinet.io/kabinet/server/internal/resolver"
)

func testSecret(t *testing.T) string {
	t.Helper()
	secret, err := token.GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret() error = %v", err)
	}
	return secret
}

func authRouter(config *AuthConfig, seen *string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequireToken(config))
	router.Any("/graphql", func(c *gin.Context) {
		*seen = resolver.SubjectFromContext(c.Request.Context())
		if got := GetSubject(c); got != *seen {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestRequireToken(t *testing.T) {
	secret := testSecret(t)
	valid, err := token.Issue(secret, "backend-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	otherSecret, err := token.Issue(testSecret(t), "backend-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name        string
		insecure    bool
		header      string
		upgrade     bool
		wantStatus  int
		wantSubject string
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK, wantSubject: "backend-1"},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusOK, wantSubject: "backend-1"},
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "foreign secret", header: "Bearer " + otherSecret, wantStatus: http.StatusUnauthorized},
		{name: "insecure anonymous", insecure: true, wantStatus: http.StatusOK},
		{name: "insecure garbage", insecure: true, header: "Bearer not-a-jwt", wantStatus: http.StatusOK},
		{name: "insecure valid", insecure: true, header: "Bearer " + valid, wantStatus: http.StatusOK, wantSubject: "backend-1"},
		{name: "websocket without header", upgrade: true, wantStatus: http.StatusOK},
		{name: "websocket with bad header", upgrade: true, header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			router := authRouter(&AuthConfig{Secret: secret, Insecure: tt.insecure}, &seen)

			req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.upgrade {
				req.Header.Set("Connection", "Upgrade")
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if seen != tt.wantSubject {
				t.Errorf("subject = %q, want %q", seen, tt.wantSubject)
			}
		})
	}
}

func TestRequireToken_ErrorBody(t *testing.T) {
	var seen string
	router := authRouter(&AuthConfig{Secret: testSecret(t)}, &seen)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", nil))

	want := `{"errors":[{"message":"Authentication failed","extensions":{"code":"UNAUTHENTICATED"}}]}`
	if w.Body.String() != want {
		t.Errorf("body = %s, want %s", w.Body.String(), want)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Bearer", ""},
		{"Token abc", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := BearerToken(tt.header); got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
