package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/rocketcart/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T, h http.HandlerFunc) *Client {
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", time.Second, WithHTTPClient(srv.Client()))
}

func TestGetStock_Success(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":3,"amount":7}`))
	})

	stock, err := client.GetStock(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stock.ID)
	assert.Equal(t, 7, stock.Amount)
}

func TestGetProduct_Success(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":1,"title":"Tênis de Caminhada Leve Confortável","price":179.9,"image":"https://img/1.jpg","brand":"Olympikus"}`))
	})

	p, err := client.GetProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Tênis de Caminhada Leve Confortável", p.Title)
	assert.Equal(t, 179.9, p.Price)
	assert.Equal(t, "https://img/1.jpg", p.Image)
	assert.Zero(t, p.Amount)
	assert.JSONEq(t, `"Olympikus"`, string(p.Extra["brand"]))
}

func TestGetStock_NotFound(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := client.GetStock(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStock_ServerError(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetStock(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorContains(t, err, "status 502")
}

func TestGetStock_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	_, err := client.GetStock(context.Background(), 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetProduct_InvalidJSON(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":`))
	})

	_, err := client.GetProduct(context.Background(), 1)
	require.ErrorContains(t, err, "decode /products/1")
}

func TestGetStock_NotCached(t *testing.T) {
	var calls atomic.Int32
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			_, _ = w.Write([]byte(`{"id":1,"amount":5}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":1,"amount":0}`))
	})

	first, err := client.GetStock(context.Background(), 1)
	require.NoError(t, err)
	second, err := client.GetStock(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 5, first.Amount)
	assert.Equal(t, 0, second.Amount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetStock_ConcurrentCallsShareRequest(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"id":1,"amount":5}`))
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := client.GetStock(context.Background(), 1)
			assert.NoError(t, err)
			assert.Equal(t, 5, s.Amount)
		}()
	}

	require.Eventually(t, func() bool {
		return calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	// give the other goroutines time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, time.Second, WithBreaker(2, time.Minute))

	for i := 0; i < 2; i++ {
		_, err := client.GetStock(context.Background(), 1)
		require.ErrorIs(t, err, ErrUnavailable)
	}
	_, err := client.GetProduct(context.Background(), 1)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorContains(t, err, "circuit breaker is open")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, time.Second, WithBreaker(1, time.Minute))

	for i := 0; i < 3; i++ {
		_, err := client.GetStock(context.Background(), 42)
		require.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetStock_CancelledCallerDoesNotFailPeer(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"id":1,"amount":5}`))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, 5*time.Second, WithHTTPClient(srv.Client()), WithBreaker(1, time.Minute))

	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := client.GetStock(leaderCtx, 1)
		leaderErr <- err
	}()
	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, time.Second, 5*time.Millisecond)

	type result struct {
		stock domain.Stock
		err   error
	}
	peer := make(chan result, 1)
	go func() {
		s, err := client.GetStock(context.Background(), 1)
		peer <- result{s, err}
	}()
	// let the peer join the in-flight request
	time.Sleep(50 * time.Millisecond)

	cancelLeader()
	select {
	case err := <-leaderErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	res := <-peer
	require.NoError(t, res.err)
	assert.Equal(t, 5, res.stock.Amount)

	// the breaker stays closed: the next call reaches the server
	s, err := client.GetStock(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Amount)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_CancelledRequestDoesNotTripBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"id":1,"amount":5}`))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, time.Second, WithBreaker(1, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := client.get(ctx, "/stock/1", &domain.Stock{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, client.cb.State())

	s, err := client.GetStock(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Amount)
}
