package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newResolver(store Store, endpoints ...string) *ContextResolver {
	return NewContextResolver(store, endpoints, 500*time.Millisecond, time.Hour, zap.NewNop())
}

func TestResolveIPUsesPublicRemoteAddr(t *testing.T) {
	store := newMemStore()
	r := newResolver(store)

	ip := r.ResolveIP(context.Background(), "s1", "203.0.113.7:44000")
	assert.Equal(t, "203.0.113.7", ip)
}

func TestResolveIPLooksUpWhenRemoteAddrPrivate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"ip":"198.51.100.23"}`))
	}))
	defer srv.Close()

	store := newMemStore()
	r := newResolver(store, srv.URL)

	ip := r.ResolveIP(context.Background(), "s1", "10.0.0.5:9000")
	assert.Equal(t, "198.51.100.23", ip)
}

func TestResolveIPResolvesOncePerSession(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"ip":"198.51.100.23"}`))
	}))
	defer srv.Close()

	store := newMemStore()
	r := newResolver(store, srv.URL)
	ctx := context.Background()

	first := r.ResolveIP(ctx, "s1", "127.0.0.1:1234")
	second := r.ResolveIP(ctx, "s1", "127.0.0.1:1234")
	third := r.ResolveIP(ctx, "s1", "127.0.0.1:1234")

	assert.Equal(t, "198.51.100.23", first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "lookup must run at most once per session")
}

func TestResolveIPTriesEndpointsInOrder(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"query":"192.0.2.44"}`))
	}))
	defer good.Close()

	store := newMemStore()
	r := newResolver(store, bad.URL, good.URL)

	ip := r.ResolveIP(context.Background(), "s1", "192.168.1.4:80")
	assert.Equal(t, "192.0.2.44", ip)
}

func TestResolveIPSentinelOnExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	store := newMemStore()
	r := newResolver(store, srv.URL)

	ip := r.ResolveIP(context.Background(), "s1", "127.0.0.1:1")
	assert.Equal(t, SentinelIP, ip)

	// Sentinel is cached too.
	cached, ok, err := store.GetIP(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, SentinelIP, cached)
}

func TestResolveIPSentinelWithNoEndpoints(t *testing.T) {
	store := newMemStore()
	r := newResolver(store)

	ip := r.ResolveIP(context.Background(), "s1", "[::1]:5000")
	assert.Equal(t, SentinelIP, ip)
}

func TestResolveIPEndpointTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(2 * time.Second)
		w.Write([]byte(`{"ip":"198.51.100.23"}`))
	}))
	defer srv.Close()

	store := newMemStore()
	r := NewContextResolver(store, []string{srv.URL}, 50*time.Millisecond, time.Hour, zap.NewNop())

	start := time.Now()
	ip := r.ResolveIP(context.Background(), "s1", "10.1.1.1:2")
	assert.Equal(t, SentinelIP, ip)
	assert.Less(t, time.Since(start), time.Second, "slow endpoint must be abandoned at the per-endpoint bound")
}

func TestPublicIP(t *testing.T) {
	assert.Equal(t, "203.0.113.7", publicIP("203.0.113.7:443"))
	assert.Equal(t, "203.0.113.7", publicIP("203.0.113.7"))
	assert.Empty(t, publicIP("127.0.0.1:80"))
	assert.Empty(t, publicIP("10.2.3.4:80"))
	assert.Empty(t, publicIP("192.168.0.10"))
	assert.Empty(t, publicIP("[::1]:80"))
	assert.Empty(t, publicIP("not-an-ip"))
	assert.Empty(t, publicIP(""))
}

func TestParseUA(t *testing.T) {
	chrome := ParseUA("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Equal(t, "Chrome", chrome.Browser)
	assert.Equal(t, "Windows", chrome.OS)
	assert.Equal(t, "desktop", chrome.Device)

	mobile := ParseUA("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	assert.Equal(t, "mobile", mobile.Device)

	unknown := ParseUA("")
	assert.Equal(t, "Unknown", unknown.Browser)
	assert.Equal(t, "Unknown", unknown.OS)
	assert.Equal(t, "desktop", unknown.Device)
}
