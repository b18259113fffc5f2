package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pass(context.Context) error { return nil }

func fail(msg string) Check {
	return func(context.Context) error { return errors.New(msg) }
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestLive(t *testing.T) {
	h := New()
	h.AddLiveness("goroutines", time.Second, pass)

	w := serve(h.Live)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLive_FailureThreshold(t *testing.T) {
	h := New()
	h.AddLiveness("db", time.Second, fail("connection refused"))
	p := h.liveness[0]
	ctx := context.Background()

	for range failAfter - 1 {
		p.run(ctx)
	}
	assert.Equal(t, http.StatusOK, serve(h.Live).Code, "below threshold")

	p.run(ctx)
	w := serve(h.Live)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, w.Body.String())
}

func TestProbe_Recovers(t *testing.T) {
	calls := 0
	p := newProbe("flaky", time.Second, func(context.Context) error {
		calls++
		if calls <= failAfter {
			return errors.New("down")
		}
		return nil
	})
	ctx := context.Background()
	for range failAfter {
		p.run(ctx)
	}
	require.False(t, p.healthy.Load())

	p.run(ctx)
	assert.True(t, p.healthy.Load())
	assert.Nil(t, p.lastErr.Load())
}

func TestReadyz(t *testing.T) {
	h := New()
	h.AddReadiness("postgres", time.Second, pass)

	w := serve(h.Readyz)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())
	assert.False(t, h.Ready())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h.Readyz).Code)
	assert.True(t, h.Ready())

	h.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, serve(h.Readyz).Code)
}

func TestRun(t *testing.T) {
	h := New()
	h.AddReadiness("postgres", time.Second, Ping(pingerFunc(func(context.Context) error {
		return errors.New("no route to host")
	})))
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, 5*time.Millisecond) }()

	require.Eventually(t, func() bool { return !h.Ready() }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	w := serve(h.Readyz)
	assert.Contains(t, w.Body.String(), "no route to host")
}

func TestGoroutineLimit(t *testing.T) {
	assert.NoError(t, GoroutineLimit(1_000_000)(context.Background()))
	assert.Error(t, GoroutineLimit(0)(context.Background()))
}
