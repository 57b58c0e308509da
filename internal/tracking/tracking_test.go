package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumina-lms/backend/internal/models"
)

var testUserID = uuid.MustParse("0d2f94a1-6b3c-4c7a-9a58-1f2f6f0e8d11")

// memStore is an in-memory Store for tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]bool
	ips      map[string]string
	failAll  bool
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]bool), ips: make(map[string]string)}
}

var errStoreDown = errors.New("store down")

func (s *memStore) SessionExists(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errStoreDown
	}
	return s.sessions[token], nil
}

func (s *memStore) PutSession(ctx context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	s.sessions[token] = true
	return nil
}

func (s *memStore) GetIP(ctx context.Context, sessionID string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return "", false, errStoreDown
	}
	ip, ok := s.ips[sessionID]
	return ip, ok, nil
}

func (s *memStore) PutIP(ctx context.Context, sessionID, ip string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStoreDown
	}
	s.ips[sessionID] = ip
	return nil
}

func (s *memStore) DeleteIP(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ips, sessionID)
	return nil
}

// memSink records inserted events; optionally fails or panics.
type memSink struct {
	mu     sync.Mutex
	events []*models.ClickstreamEvent
	err    error
	panics bool
}

func (m *memSink) Insert(ctx context.Context, e *models.ClickstreamEvent) error {
	if m.panics {
		panic("sink exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memSink) all() []*models.ClickstreamEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ClickstreamEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// newTestTracker builds an enabled tracker with no IP lookup endpoints.
func newTestTracker(sink Sink, store Store) Tracker {
	return New(Options{
		Enabled:    true,
		Origin:     "web",
		SessionTTL: time.Hour,
		IPTimeout:  50 * time.Millisecond,
	}, sink, store, zap.NewNop())
}

func testActor() Actor {
	return Actor{ID: testUserID, Email: "student@example.com"}
}

func testClient(session string) ClientInfo {
	return ClientInfo{
		SessionID:         session,
		RemoteAddr:        "203.0.113.9:51234",
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Referrer:          "https://lumina.example.com/courses",
		Locale:            "en-US",
		Timezone:          "Europe/Berlin",
		TimezoneOffsetMin: -120,
		ScreenResolution:  "1920x1080",
		Viewport:          "1280x720",
	}
}
