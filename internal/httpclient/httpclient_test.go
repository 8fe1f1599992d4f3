package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestGet_DecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"alice"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	if err := New().Get(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if out.Name != "alice" {
		t.Errorf("decoded name = %q, want %q", out.Name, "alice")
	}
}

func TestBearerToken_AttachedAndCleared(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New()
	client.SetBearerToken("tok123")
	if err := client.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got := gotAuth.Load().(string); got != "Bearer tok123" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok123")
	}

	client.ClearBearerToken()
	if err := client.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got := gotAuth.Load().(string); got != "" {
		t.Errorf("Authorization after clear = %q, want empty", got)
	}
}

func TestNonSuccessStatus_ReturnsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"nope"}`))
	}))
	defer srv.Close()

	err := New().Get(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !IsUnauthorized(err) {
		t.Errorf("IsUnauthorized(%v) = false, want true", err)
	}
}

func TestRotationHook_FiresOnHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RotatedTokenHeader, "fresh-token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New()
	var rotated string
	client.ArmHooks(Hooks{OnTokenRotated: func(token string) { rotated = token }})

	if err := client.Get(context.Background(), srv.URL, nil); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rotated != "fresh-token" {
		t.Errorf("rotated token = %q, want %q", rotated, "fresh-token")
	}
}

func TestUnauthorizedHook_StopsFiringAfterDisarm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New()
	var fired int
	client.ArmHooks(Hooks{OnUnauthorized: func() {
		fired++
		// Mirrors a forced sign-out, which disarms as part of the
		// session reset.
		client.DisarmHooks()
	}})

	for i := 0; i < 3; i++ {
		_ = client.Get(context.Background(), srv.URL, nil)
	}
	if fired != 1 {
		t.Errorf("unauthorized hook fired %d times, want 1", fired)
	}
}

func TestHooksNotArmed_NoCallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RotatedTokenHeader, "fresh-token")
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	// No hooks armed: both signals must be ignored without panicking.
	err := New().Get(context.Background(), srv.URL, nil)
	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized error, got %v", err)
	}
}
