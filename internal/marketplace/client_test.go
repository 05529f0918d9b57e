package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepalive9s/taobao/internal/domain"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Count(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items/count", r.URL.Path)
		assert.Equal(t, "shop", r.URL.Query().Get("seller"))
		assert.Equal(t, "onsale", r.URL.Query().Get("status"))
		writeJSON(w, map[string]int{"total": 350})
	})

	n, err := c.Count(context.Background(), "shop", domain.ItemListed)
	require.NoError(t, err)
	assert.Equal(t, 350, n)
}

func TestClient_FetchPage(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/items", r.URL.Path)
		assert.Equal(t, "200", q.Get("page_size"))
		assert.Equal(t, "3", q.Get("page_no"))
		assert.Equal(t, "instock", q.Get("status"))
		writeJSON(w, map[string]any{"items": []map[string]any{
			{"num_iid": 11, "title": "a", "approve_status": "instock"},
			{"num_iid": 12, "title": "b", "approve_status": "instock"},
		}})
	})

	items, err := c.FetchPage(context.Background(), "shop", domain.ItemUnlisted, 200, 3)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(11), items[0].NumIID)
	assert.Equal(t, domain.ItemUnlisted, items[1].ApproveStatus)
}

func TestClient_FetchPage_ServerError(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := c.FetchPage(context.Background(), "shop", domain.ItemListed, 200, 1)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClient_Toggle(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "shop", r.Header.Get(SellerHeader))
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		writeJSON(w, map[string]bool{"ok": true})
	})

	item := &domain.Item{NumIID: 42, ApproveStatus: domain.ItemListed}
	require.NoError(t, c.Delist(context.Background(), "shop", item))
	require.NoError(t, c.List(context.Background(), "shop", item))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/items/42/delisting", "/api/items/42/listing"}, paths)
	// состояние товара меняет RateController, не клиент
	assert.Equal(t, domain.ItemListed, item.ApproveStatus)
}

func TestClient_Toggle_Rejected(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"ok false", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"ok": false, "message": "too frequent"})
		}},
		{"http 429", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "slow down", http.StatusTooManyRequests)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, tt.h)
			err := c.Delist(context.Background(), "shop", &domain.Item{NumIID: 1})
			assert.ErrorIs(t, err, ErrToggleRejected)
		})
	}
}

func TestClient_TransportErrorIsNotRejection(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	err := c.List(context.Background(), "shop", &domain.Item{NumIID: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrToggleRejected)
}

func TestClient_RateLimited(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, map[string]bool{"ok": true})
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, RPS: 10})

	start := time.Now()
	for n := 0; n < 5; n++ {
		// burst 10 пропускает первые запросы без ожидания
		require.NoError(t, c.List(context.Background(), "shop", &domain.Item{NumIID: 1}))
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(5), hits.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.List(ctx, "shop", &domain.Item{NumIID: 1}))
}
