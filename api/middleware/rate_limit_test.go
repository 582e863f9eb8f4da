package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeRateLimitStore struct {
	counts map[string]int64
}

func newFakeRateLimitStore() *fakeRateLimitStore {
	return &fakeRateLimitStore{counts: map[string]int64{}}
}

func (s *fakeRateLimitStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.counts[key]++
	return s.counts[key], nil
}

func (s *fakeRateLimitStore) RateLimitKey(scope string) string {
	return "mm:rl:" + scope
}

func loginRequest(ip, email string) *http.Request {
	req := httptest.NewRequest("POST", "/api/v1/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = ip + ":52100"
	return req
}

func TestAuthRateLimitAllowsUnderLimit(t *testing.T) {
	t.Parallel()

	policy := RateLimitPolicy{Name: "auth", Window: time.Minute, IPLimit: 3, EmailLimit: 3}
	store := newFakeRateLimitStore()

	handled := 0
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handled++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("10.0.0.1", "ana@example.com"))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d blocked with %d", i+1, rec.Code)
		}
	}
	if handled != 3 {
		t.Fatalf("expected 3 handled requests, got %d", handled)
	}
}

func TestAuthRateLimitBlocksOverIPLimit(t *testing.T) {
	t.Parallel()

	policy := RateLimitPolicy{Name: "auth", Window: time.Minute, IPLimit: 2}
	store := newFakeRateLimitStore()

	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("10.0.0.2", "ana@example.com"))
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d blocked with %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("10.0.0.2", "ana@example.com"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "RATE_LIMITED") {
		t.Fatalf("expected RATE_LIMITED code in body: %s", rec.Body.String())
	}
}

func TestAuthRateLimitTracksEmailAcrossIPs(t *testing.T) {
	t.Parallel()

	policy := RateLimitPolicy{Name: "auth", Window: time.Minute, EmailLimit: 2}
	store := newFakeRateLimitStore()

	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	ips := []string{"10.0.0.3", "10.0.0.4", "10.0.0.5"}
	for i, ip := range ips {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(ip, "victim@example.com"))
		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("attempt %d blocked with %d", i+1, rec.Code)
		}
		if i == 2 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("third attempt from a fresh ip must be blocked, got %d", rec.Code)
		}
	}
}

func TestAuthRateLimitPreservesRequestBody(t *testing.T) {
	t.Parallel()

	policy := RateLimitPolicy{Name: "auth", Window: time.Minute, EmailLimit: 5}
	store := newFakeRateLimitStore()

	var seen string
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 512)
		n, _ := r.Body.Read(buf)
		seen = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("10.0.0.6", "ana@example.com"))

	if !strings.Contains(seen, "ana@example.com") {
		t.Fatalf("downstream handler must see the original body, got %q", seen)
	}
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	t.Parallel()

	store := newFakeRateLimitStore()
	handler := AuthRateLimit(RateLimitPolicy{Name: "auth"}, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("10.0.0.7", "ana@example.com"))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled policy must not block, got %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy must not touch the store: %v", store.counts)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/api/v1/auth/login", nil)
	req.RemoteAddr = "127.0.0.1:9000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := clientIP(req); got != "203.0.113.9" {
		t.Fatalf("unexpected client ip: %s", got)
	}
}
