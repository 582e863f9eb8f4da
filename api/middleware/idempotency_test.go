package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeIdempotencyStore struct {
	records map[string]string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{records: map[string]string{}}
}

func (s *fakeIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.records[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *fakeIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key] = value.(string)
	return true, nil
}

func (s *fakeIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "mm:idem:" + scope + ":" + id
}

func checkoutRequest(key, body string) *http.Request {
	req := httptest.NewRequest("POST", "/api/v1/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	t.Parallel()

	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"sale_id":"abc"}}`))
	}))

	body := `{"payment_method":"cash"}`

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest("key-1", body))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request status: %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequest("key-1", body))
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status: %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body mismatch: %s vs %s", second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("replay must restore the content type")
	}
	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	t.Parallel()

	store := newFakeIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest("key-2", `{"payment_method":"cash"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request status: %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, checkoutRequest("key-2", `{"payment_method":"card"}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}
	if !strings.Contains(second.Body.String(), "CONFLICT") {
		t.Fatalf("expected CONFLICT code in body: %s", second.Body.String())
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	t.Parallel()

	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	body := `{"payment_method":"cash"}`

	reqA := checkoutRequest("shared-key", body)
	reqA = reqA.WithContext(WithUserID(reqA.Context(), "user-a"))
	recA := httptest.NewRecorder()
	handler.ServeHTTP(recA, reqA)

	reqB := checkoutRequest("shared-key", body)
	reqB = reqB.WithContext(WithUserID(reqB.Context(), "user-b"))
	recB := httptest.NewRecorder()
	handler.ServeHTTP(recB, reqB)

	if calls != 2 {
		t.Fatalf("different users must not share records, handler ran %d times", calls)
	}
}

func TestIdempotencyWithoutHeaderRunsHandlerEachTime(t *testing.T) {
	t.Parallel()

	store := newFakeIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, checkoutRequest("", `{"payment_method":"cash"}`))
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d status: %d", i+1, rec.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("handler must run twice without a key, ran %d times", calls)
	}
	if len(store.records) != 0 {
		t.Fatalf("no record must be stored without a key: %v", store.records)
	}
}
