package provinces

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /p/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"code":1,"name":"Thành phố Hà Nội"},{"code":2,"name":"Tỉnh Hà Giang"}]`)
	})
	mux.HandleFunc("GET /p/{code}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "2", r.URL.Query().Get("depth"))
		if r.PathValue("code") != "1" {
			http.Error(w, `{"detail":"Not Found"}`, http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"code":1,"name":"Thành phố Hà Nội","districts":[{"code":1,"name":"Quận Ba Đình"},{"code":2,"name":"Quận Hoàn Kiếm"}]}`)
	})
	mux.HandleFunc("GET /d/{code}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_, _ = io.WriteString(w, `{"code":1,"name":"Quận Ba Đình","wards":[{"code":1,"name":"Phường Phúc Xá"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetches(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := NewClient(srv.URL, testLogger())
	ctx := context.Background()

	ps, err := c.Provinces(ctx)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, domain.Code("1"), ps[0].Code)

	ds, err := c.Districts(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Option{
		{Value: "1", Label: "Quận Ba Đình"},
		{Value: "2", Label: "Quận Hoàn Kiếm"},
	}, domain.DistrictOptions(ds))

	ws, err := c.Wards(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Phường Phúc Xá", ws[0].Name)
}

func TestClient_NonSuccessIsError(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	c := NewClient(srv.URL, testLogger())

	_, err := c.Districts(context.Background(), "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestClient_NetworkErrorIsError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", testLogger(), WithHTTPClient(&http.Client{Timeout: time.Second}))

	_, err := c.Provinces(context.Background())
	assert.Error(t, err)
}

func TestClient_UsesDiskCache(t *testing.T) {
	var hits int32
	srv := newTestServer(t, &hits)
	cache := NewDiskCache(t.TempDir(), time.Hour)
	c := NewClient(srv.URL, testLogger(), WithCache(cache))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ds, err := c.Districts(ctx, "1")
		require.NoError(t, err)
		require.Len(t, ds, 2)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err := c.Districts(ctx, "99")
	require.Error(t, err)
	_, ok := cache.Get("p_99")
	assert.False(t, ok, "failures are not cached")
}

func TestDiskCache_Expiry(t *testing.T) {
	cache := NewDiskCache(t.TempDir(), time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set("d_001", []byte(`{"code":1}`)))
	require.NoError(t, cache.Set("p_all", []byte(`[]`)))

	body, ok := cache.Get("d_001")
	require.True(t, ok)
	assert.JSONEq(t, `{"code":1}`, string(body))

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("d_001")
	assert.False(t, ok)

	assert.Equal(t, 2, cache.Purge(context.Background()))
	assert.Equal(t, 0, cache.Purge(context.Background()))
}

func TestCacheSafe(t *testing.T) {
	assert.Equal(t, "001", cacheSafe("001"))
	assert.Equal(t, "---etc-passwd", cacheSafe("../etc/passwd"))
}
