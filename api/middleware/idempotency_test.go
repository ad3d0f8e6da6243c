package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdemStore struct {
	values map[string]string
}

func newFakeIdemStore() *fakeIdemStore {
	return &fakeIdemStore{values: map[string]string{}}
}

func (s *fakeIdemStore) Get(ctx context.Context, key string) (string, error) {
	return s.values[key], nil
}

func (s *fakeIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *fakeIdemStore) IdempotencyKey(scope, id string) string {
	return "tlv:idem:" + scope + ":" + id
}

func (s *fakeIdemStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func idemRouter(store *fakeIdemStore, hits *int) http.Handler {
	r := chi.NewRouter()
	r.Use(Idempotency(store, nil))
	r.Post("/api/v1/orders/{orderID}/cancel", func(w http.ResponseWriter, req *http.Request) {
		*hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"status":"cancelled"}}`))
	})
	r.Post("/api/v1/orders/{orderID}/steps/{step}", func(w http.ResponseWriter, req *http.Request) {
		*hits++
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	return r
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeIdemStore()
	hits := 0
	router := idemRouter(store, &hits)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/o-1/cancel", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, hits)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders/o-1/cancel", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(second, req)

	assert.Equal(t, 1, hits, "replay must not re-run the handler")
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeIdemStore()
	hits := 0
	router := idemRouter(store, &hits)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/o-1/steps/1", strings.NewReader(`{"a":1}`))
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders/o-1/steps/1", strings.NewReader(`{"a":2}`))
	req.Header.Set("Idempotency-Key", "key-1")
	router.ServeHTTP(second, req)

	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, 1, hits)
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := newFakeIdemStore()
	hits := 0
	router := idemRouter(store, &hits)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/o-1/cancel", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, hits)
}
