package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisdb "optileno-backend/internal/redis"
)

type memStore struct {
	mu       sync.Mutex
	events   map[int][]Event
	keys     map[string]bool
	sessions map[int][]FocusSession
	failRead error
}

func newMemStore() *memStore {
	return &memStore{events: map[int][]Event{}, keys: map[string]bool{}, sessions: map[int][]FocusSession{}}
}

func (m *memStore) Append(_ context.Context, env Envelope, e Event, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if key != "" {
		if m.keys[key] {
			return false, nil
		}
		m.keys[key] = true
	}
	m.events[env.UserID] = append(m.events[env.UserID], e)
	return true, nil
}

func (m *memStore) EventsSince(_ context.Context, uid int, cutoff time.Time) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead != nil {
		return nil, m.failRead
	}
	return Since(m.events[uid], cutoff), nil
}

func (m *memStore) FocusSessions(_ context.Context, uid int, limit int) ([]FocusSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[uid]
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return append([]FocusSession(nil), s...), nil
}

func (m *memStore) SaveFocusSession(_ context.Context, uid int, fs FocusSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sessions[uid] {
		if s.ID == fs.ID {
			m.sessions[uid][i] = fs
			return nil
		}
	}
	m.sessions[uid] = append(m.sessions[uid], fs)
	return nil
}

type countingCache struct {
	redisdb.NopCache
	mu      sync.Mutex
	deletes int
	stored  map[string][]byte
}

func (c *countingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.stored[key]
	return b, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, v []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stored == nil {
		c.stored = map[string][]byte{}
	}
	c.stored[key] = v
	return nil
}

func (c *countingCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	for _, k := range keys {
		delete(c.stored, k)
	}
	return nil
}

func asUser(r *http.Request, uid int) *http.Request {
	return r.WithContext(WithUserID(r.Context(), uid))
}

func TestIngestEventHandler(t *testing.T) {
	store := newMemStore()
	cache := &countingCache{}
	h := IngestEventHandler(store, cache)

	body := `{"type":"task_event","subtype":"completed","metrics":{"delay":3},"metadata":{"taskId":"t1"}}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)), 1)
	req.Header.Set("Idempotency-Key", "k-1")
	req.Header.Set("X-Platform", "iOS")
	rec := httptest.NewRecorder()
	h(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ID        string `json:"id"`
		Duplicate bool   `json:"duplicate"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ID)
	assert.False(t, resp.Duplicate)
	require.Len(t, store.events[1], 1)
	assert.Equal(t, 3.0, store.events[1][0].Number(KeyDelay))
	assert.False(t, store.events[1][0].Timestamp.IsZero())
	assert.Equal(t, 1, cache.deletes)

	req = asUser(httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)), 1)
	req.Header.Set("Idempotency-Key", "k-1")
	rec = httptest.NewRecorder()
	h(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"duplicate":true`)
	assert.Len(t, store.events[1], 1)
	assert.Equal(t, 1, cache.deletes)
}

func TestIngestEventHandler_Rejects(t *testing.T) {
	h := IngestEventHandler(newMemStore(), redisdb.NopCache{})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, asUser(httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"type":"bogus"}`)), 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, asUser(httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`nope`)), 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFocusHandlers(t *testing.T) {
	store := newMemStore()
	start := StartFocusHandler(store, redisdb.NopCache{})
	stop := StopFocusHandler(store, redisdb.NopCache{})

	rec := httptest.NewRecorder()
	stop(rec, asUser(httptest.NewRequest(http.MethodPost, "/focus/stop", nil), 1))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	start(rec, asUser(httptest.NewRequest(http.MethodPost, "/focus/start", strings.NewReader(`{"task_id":"t1"}`)), 1))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	start(rec, asUser(httptest.NewRequest(http.MethodPost, "/focus/start", nil), 1))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	stop(rec, asUser(httptest.NewRequest(http.MethodPost, "/focus/stop", strings.NewReader(`{"interruptions":3}`)), 1))
	require.Equal(t, http.StatusOK, rec.Code)
	var fs FocusSession
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fs))
	assert.Equal(t, 7.0, fs.Quality)
	assert.Equal(t, "t1", fs.TaskID)
	assert.NotNil(t, fs.EndTime)

	require.Len(t, store.sessions[1], 1)
	assert.False(t, store.sessions[1][0].Active())
	require.Len(t, store.events[1], 2)
	assert.True(t, store.events[1][0].Is(DeepWorkEvent, SubtypeStarted))
	assert.True(t, store.events[1][1].Is(DeepWorkEvent, SubtypeCompleted))
}

func TestMetricsHandler_CachesSnapshot(t *testing.T) {
	store := newMemStore()
	cache := &countingCache{}
	h := MetricsHandler(store, cache, time.Minute)

	rec := httptest.NewRecorder()
	h(rec, asUser(httptest.NewRequest(http.MethodGet, "/analytics/metrics", nil), 5))
	require.Equal(t, http.StatusOK, rec.Code)
	var m UserMetrics
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&m))
	assert.Equal(t, DefaultFocusScore, m.FocusScore)
	assert.Contains(t, cache.stored, redisdb.UserKey(5, redisdb.KeyMetrics))

	store.failRead = assert.AnError
	rec = httptest.NewRecorder()
	h(rec, asUser(httptest.NewRequest(http.MethodGet, "/analytics/metrics", nil), 5))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, asUser(httptest.NewRequest(http.MethodGet, "/analytics/metrics", nil), 6))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLog_SkipsWithoutUser(t *testing.T) {
	store := newMemStore()

	require.NoError(t, Log(context.Background(), store, Envelope{}, Event{Type: TaskEvent}, ""))
	assert.Empty(t, store.events)

	require.NoError(t, Log(WithUserID(context.Background(), 3), store, Envelope{}, Event{Type: TaskEvent}, ""))
	require.Len(t, store.events[3], 1)
	assert.NotEmpty(t, store.events[3][0].ID)
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Platform", "Desktop")
	req.Header.Set("X-Device-Locale", "en-GB")
	req.Header.Set("X-Source-Event-Key", "abc")

	env := FromRequest(req)

	assert.Equal(t, "unknown", env.Platform)
	assert.Equal(t, "en-GB", env.DeviceLocale)
	assert.Equal(t, "abc", SourceEventKeyFromRequest(req))
}
