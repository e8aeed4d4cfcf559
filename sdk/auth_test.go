package sdk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestComposedToken(t *testing.T) {
	loads, refreshes := 0, 0
	provider := NewComposedToken(
		func(context.Context) (string, error) {
			loads++
			return "initial", nil
		},
		func(context.Context) (string, error) {
			refreshes++
			return "refreshed", nil
		},
	)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		token, err := provider.Token(ctx)
		if err != nil || token != "initial" {
			t.Fatalf("Token() = %q, %v", token, err)
		}
	}
	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}

	if _, err := provider.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	token, _ := provider.Token(ctx)
	if token != "refreshed" || refreshes != 1 {
		t.Errorf("Token() after refresh = %q (refreshes %d)", token, refreshes)
	}
}

func TestComposedToken_LoaderError(t *testing.T) {
	provider := NewComposedToken(func(context.Context) (string, error) {
		return "", errors.New("vault sealed")
	}, nil)

	if _, err := provider.Token(context.Background()); err == nil {
		t.Error("expected loader error")
	}
}

func TestRefreshToken(t *testing.T) {
	ok, err := refreshToken(context.Background(), StaticToken("fixed"))
	if ok || err != nil {
		t.Errorf("static token should not refresh: ok=%v err=%v", ok, err)
	}

	failing := NewComposedToken(
		func(context.Context) (string, error) { return "a", nil },
		func(context.Context) (string, error) { return "", errors.New("expired") },
	)
	_, err = refreshToken(context.Background(), failing)
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("refreshToken() error = %v, want ErrUnauthorized", err)
	}
}

func TestFileToken_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("first"), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := NewFileToken(ctx, path, nil)
	if err != nil {
		t.Fatalf("NewFileToken() error = %v", err)
	}

	token, _ := provider.Token(ctx)
	if token != "first" {
		t.Fatalf("Token() = %q, want first", token)
	}

	if err := os.WriteFile(path, []byte("second\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if token, _ = provider.Token(ctx); token == "second" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("Token() = %q after rewrite, want second", token)
}

func TestFileToken_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewFileToken(context.Background(), filepath.Join(dir, "missing"), nil); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := NewFileToken(context.Background(), empty, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewFileToken() error = %v, want ErrInvalidConfig", err)
	}
}
