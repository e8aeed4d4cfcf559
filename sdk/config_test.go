package sdk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr bool
		errMsg  string
		wantWS  string
	}{
		{
			name:   "http endpoint derives ws endpoint",
			config: ClientConfig{Endpoint: "http://localhost:8080/graphql"},
			wantWS: "ws://localhost:8080/graphql",
		},
		{
			name:   "https endpoint derives wss endpoint",
			config: ClientConfig{Endpoint: "https://kabinet.example.com/graphql"},
			wantWS: "wss://kabinet.example.com/graphql",
		},
		{
			name: "explicit ws endpoint is kept",
			config: ClientConfig{
				Endpoint:   "https://kabinet.example.com/graphql",
				WSEndpoint: "wss://ws.kabinet.example.com/graphql",
			},
			wantWS: "wss://ws.kabinet.example.com/graphql",
		},
		{
			name:    "missing endpoint",
			config:  ClientConfig{},
			wantErr: true,
			errMsg:  "endpoint is required",
		},
		{
			name:    "invalid endpoint scheme",
			config:  ClientConfig{Endpoint: "ftp://kabinet.example.com"},
			wantErr: true,
			errMsg:  "endpoint must start with http:// or https://",
		},
		{
			name: "invalid ws endpoint scheme",
			config: ClientConfig{
				Endpoint:   "http://localhost/graphql",
				WSEndpoint: "http://localhost/graphql",
			},
			wantErr: true,
			errMsg:  "websocket endpoint must start with ws:// or wss://",
		},
		{
			name:    "negative retry attempts",
			config:  ClientConfig{Endpoint: "http://localhost/graphql", RetryAttempts: -2},
			wantErr: true,
			errMsg:  "retry attempts must be NoRetry or positive",
		},
		{
			name:    "retries disabled",
			config:  ClientConfig{Endpoint: "http://localhost/graphql", RetryAttempts: NoRetry},
			wantWS:  "ws://localhost/graphql",
		},
		{
			name: "retry wait min above max",
			config: ClientConfig{
				Endpoint:     "http://localhost/graphql",
				RetryWaitMin: time.Minute,
				RetryWaitMax: time.Second,
			},
			wantErr: true,
			errMsg:  "retry wait min exceeds retry wait max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error containing %q", tt.errMsg)
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("Validate() error = %v, want message containing %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate() unexpected error = %v", err)
			}
			if tt.config.WSEndpoint != tt.wantWS {
				t.Errorf("WSEndpoint = %q, want %q", tt.config.WSEndpoint, tt.wantWS)
			}
		})
	}
}

func TestClientConfig_ValidateDefaults(t *testing.T) {
	config := ClientConfig{Endpoint: "http://localhost/graphql"}
	if err := config.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if config.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", config.RetryAttempts)
	}
	if config.RetryWaitMin != time.Second {
		t.Errorf("RetryWaitMin = %v, want 1s", config.RetryWaitMin)
	}
	if config.RetryWaitMax != 30*time.Second {
		t.Errorf("RetryWaitMax = %v, want 30s", config.RetryWaitMax)
	}
	if config.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", config.Timeout)
	}
	if config.KeepAlive != 15*time.Second {
		t.Errorf("KeepAlive = %v, want 15s", config.KeepAlive)
	}
	if config.UserAgent != DefaultUserAgent {
		t.Errorf("UserAgent = %q", config.UserAgent)
	}
	if config.HTTPClient == nil {
		t.Error("HTTPClient should be created")
	}
	if config.Logger == nil {
		t.Error("Logger should default to a no-op logger")
	}
	if config.HasAuth() {
		t.Error("HasAuth() should be false without a token provider")
	}
}

func TestStatic(t *testing.T) {
	config := Static("localhost:8090/", "secret")

	if config.Endpoint != "http://localhost:8090/graphql" {
		t.Errorf("Endpoint = %q", config.Endpoint)
	}
	if config.WSEndpoint != "ws://localhost:8090/graphql" {
		t.Errorf("WSEndpoint = %q", config.WSEndpoint)
	}
	token, err := config.TokenProvider.Token(context.Background())
	if err != nil || token != "secret" {
		t.Errorf("Token() = %q, %v", token, err)
	}

	anonymous := Static("localhost:8090", "")
	if anonymous.HasAuth() {
		t.Error("empty token should not configure a provider")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("KABINET_URL", "https://kabinet.example.com/graphql")
	t.Setenv("KABINET_TOKEN", "env-token")
	t.Setenv("KABINET_TIMEOUT", "5s")
	t.Setenv("KABINET_RETRY_ATTEMPTS", "7")
	t.Setenv("KABINET_USER_AGENT", "kabinet-test")

	config, err := LoadConfigFromEnv(context.Background())
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}

	if config.Endpoint != "https://kabinet.example.com/graphql" {
		t.Errorf("Endpoint = %q", config.Endpoint)
	}
	if config.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", config.Timeout)
	}
	if config.RetryAttempts != 7 {
		t.Errorf("RetryAttempts = %d", config.RetryAttempts)
	}
	if config.UserAgent != "kabinet-test" {
		t.Errorf("UserAgent = %q", config.UserAgent)
	}
	token, _ := config.TokenProvider.Token(context.Background())
	if token != "env-token" {
		t.Errorf("token = %q", token)
	}
}

func TestLoadConfigFromEnv_TokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("file-token\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("KABINET_URL", "http://localhost/graphql")
	t.Setenv("KABINET_TOKEN", "ignored")
	t.Setenv("KABINET_TOKEN_FILE", path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	config, err := LoadConfigFromEnv(ctx)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv() error = %v", err)
	}
	if _, ok := config.TokenProvider.(*FileToken); !ok {
		t.Fatalf("TokenProvider = %T, want *FileToken", config.TokenProvider)
	}
	token, _ := config.TokenProvider.Token(ctx)
	if token != "file-token" {
		t.Errorf("token = %q", token)
	}
}

func TestLoadConfigFromEnv_InvalidTimeout(t *testing.T) {
	t.Setenv("KABINET_TIMEOUT", "soon")

	if _, err := LoadConfigFromEnv(context.Background()); err == nil {
		t.Error("expected parse error for invalid duration")
	}
}
