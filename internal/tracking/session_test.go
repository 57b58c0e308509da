package tracking

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionsReusesKnownToken(t *testing.T) {
	store := newMemStore()
	sessions := NewSessions(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	first, created := sessions.GetOrCreate(ctx, "")
	require.True(t, created)
	require.NotEmpty(t, first)

	second, created := sessions.GetOrCreate(ctx, first)
	assert.False(t, created)
	assert.Equal(t, first, second)
}

func TestSessionsMintsWhenTokenUnknown(t *testing.T) {
	store := newMemStore()
	sessions := NewSessions(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	id, created := sessions.GetOrCreate(ctx, "1700000000000-deadbeefdeadbeef")
	assert.True(t, created)
	assert.NotEqual(t, "1700000000000-deadbeefdeadbeef", id)
}

func TestSessionsTokenShape(t *testing.T) {
	store := newMemStore()
	sessions := NewSessions(store, time.Hour, zap.NewNop())

	id, _ := sessions.GetOrCreate(context.Background(), "")
	assert.Regexp(t, regexp.MustCompile(`^\d+-[0-9a-f]{16}$`), id)
}

func TestSessionsNewSessionInvalidatesIPCache(t *testing.T) {
	store := newMemStore()
	sessions := NewSessions(store, time.Hour, zap.NewNop())
	ctx := context.Background()

	id, created := sessions.GetOrCreate(ctx, "")
	require.True(t, created)

	_, ok, err := store.GetIP(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "freshly minted session must have no cached IP")
}

func TestSessionsMintsOnStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failAll = true
	sessions := NewSessions(store, time.Hour, zap.NewNop())

	id, created := sessions.GetOrCreate(context.Background(), "some-candidate")
	assert.True(t, created)
	assert.NotEmpty(t, id)
}
