package tracking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Sessions produces and persists stable per-browser-session identifiers.
// A token lives in the store for the browsing-session TTL; a new session
// begins whenever the client presents no token, or one the store no longer
// knows about.
type Sessions struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSessions creates a session identity provider.
func NewSessions(store Store, ttl time.Duration, logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// GetOrCreate returns the session ID for the candidate token, minting a new
// one when the candidate is empty or unknown. Minting a session invalidates
// any cached client IP under the new key so context is re-resolved.
func (s *Sessions) GetOrCreate(ctx context.Context, candidate string) (sessionID string, created bool) {
	if candidate != "" {
		ok, err := s.store.SessionExists(ctx, candidate)
		if err != nil {
			s.logger.Warn("session lookup failed", zap.Error(err))
		}
		if ok {
			return candidate, false
		}
	}

	token := s.mintToken()
	if err := s.store.PutSession(ctx, token, s.ttl); err != nil {
		s.logger.Warn("session store failed", zap.Error(err), zap.String("session_id", token))
	}
	if err := s.store.DeleteIP(ctx, token); err != nil {
		s.logger.Warn("ip cache invalidation failed", zap.Error(err), zap.String("session_id", token))
	}
	return token, true
}

// mintToken builds a token from a time component and a random component.
func (s *Sessions) mintToken() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + hex.EncodeToString(buf)
}
