package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type memoryStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
	return nil
}

func newIdempotentRouter(store *memoryStore, status int, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := log.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	router.POST("/api/create-checkout", IdempotencyMiddleware(store, logger), func(c *gin.Context) {
		*calls++
		c.JSON(status, gin.H{"call": *calls})
	})
	return router
}

func post(router *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/create-checkout", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysSuccessfulResponse(t *testing.T) {
	var calls int
	router := newIdempotentRouter(newMemoryStore(), http.StatusOK, &calls)

	first := post(router, "abc")
	second := post(router, "abc")

	if calls != 1 {
		t.Errorf("expected handler to run once, ran %d times", calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("expected replayed body %q, got %q", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay header")
	}
}

func TestIdempotency_DistinctKeysAndMissingKey(t *testing.T) {
	var calls int
	router := newIdempotentRouter(newMemoryStore(), http.StatusOK, &calls)

	post(router, "a")
	post(router, "b")
	post(router, "")
	post(router, "")

	if calls != 4 {
		t.Errorf("expected 4 handler runs, got %d", calls)
	}
}

func TestIdempotency_ServerErrorsAreNotCached(t *testing.T) {
	var calls int
	router := newIdempotentRouter(newMemoryStore(), http.StatusInternalServerError, &calls)

	post(router, "abc")
	post(router, "abc")

	if calls != 2 {
		t.Errorf("expected retry after 500 to reach handler, got %d runs", calls)
	}
}

func TestIdempotency_StoreFailureDegrades(t *testing.T) {
	var calls int
	store := newMemoryStore()
	store.getErr = errors.New("redis down")
	router := newIdempotentRouter(store, http.StatusOK, &calls)

	w := post(router, "abc")
	if w.Code != http.StatusOK || calls != 1 {
		t.Errorf("expected request to be served, got %d after %d runs", w.Code, calls)
	}
}

func TestIdempotency_ClientErrorsAreNotCached(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound} {
		var calls int
		store := newMemoryStore()
		router := newIdempotentRouter(store, status, &calls)

		first := post(router, "abc")
		second := post(router, "abc")

		if calls != 2 {
			t.Errorf("status %d: expected retry to reach handler, got %d runs", status, calls)
		}
		if second.Header().Get("Idempotent-Replayed") != "" {
			t.Errorf("status %d: error response must not be replayed", status)
		}
		if first.Code != status || len(store.data) != 0 {
			t.Errorf("status %d: expected nothing stored, got %d entries", status, len(store.data))
		}
	}
}
