package habits

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optileno-backend/internal/analytics"
	"optileno-backend/internal/auth"
	redisdb "optileno-backend/internal/redis"
)

type memStore struct {
	mu     sync.Mutex
	habits map[int][]Habit
}

func (m *memStore) List(_ context.Context, uid int) ([]Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Habit(nil), m.habits[uid]...), nil
}

func (m *memStore) Get(_ context.Context, uid int, id string) (Habit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.habits[uid] {
		if h.ID == id {
			return h, nil
		}
	}
	return Habit{}, sql.ErrNoRows
}

func (m *memStore) Create(_ context.Context, uid int, h Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.habits == nil {
		m.habits = map[int][]Habit{}
	}
	m.habits[uid] = append(m.habits[uid], h)
	return nil
}

func (m *memStore) SaveProgress(_ context.Context, uid int, h Habit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, cur := range m.habits[uid] {
		if cur.ID == h.ID {
			m.habits[uid][i] = h
			return nil
		}
	}
	return sql.ErrNoRows
}

type recorder struct {
	events []analytics.Event
}

func (r *recorder) Append(_ context.Context, _ analytics.Envelope, e analytics.Event, _ string) (bool, error) {
	r.events = append(r.events, e)
	return true, nil
}

func asUser(r *http.Request, uid int) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), uid))
}

func TestCreateAndListHabits(t *testing.T) {
	store := &memStore{}
	create := CreateHabitHandler(store)

	w := httptest.NewRecorder()
	create(w, asUser(httptest.NewRequest(http.MethodPost, "/habits", strings.NewReader(`{"name":"Sleep 8h","goal_link":"g1"}`)), 1))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	create(w, asUser(httptest.NewRequest(http.MethodPost, "/habits", strings.NewReader(`{"name":"Run","frequency":"hourly"}`)), 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	GetHabitsHandler(store)(w, asUser(httptest.NewRequest(http.MethodGet, "/habits", nil), 1))
	require.Equal(t, http.StatusOK, w.Code)
	var got []Habit
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, FrequencyDaily, got[0].Frequency)
	assert.Equal(t, "g1", got[0].GoalLink)
}

func TestCompleteHabitHandler(t *testing.T) {
	fixed := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	clock = func() time.Time { return fixed }
	t.Cleanup(func() { clock = time.Now })

	yesterday := fixed.Add(-24 * time.Hour)
	store := &memStore{habits: map[int][]Habit{1: {{ID: "h1", Name: "Meditate", Frequency: FrequencyDaily, CurrentStreak: 14, LastCompleted: &yesterday, GoalLink: "g1"}}}}
	rec := &recorder{}
	h := CompleteHabitHandler(store, rec, redisdb.NopCache{})

	w := httptest.NewRecorder()
	h(w, asUser(httptest.NewRequest(http.MethodPost, "/habits/complete", strings.NewReader(`{"habit_id":"h1","timezone":"Europe/Berlin"}`)), 1))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 15, store.habits[1][0].CurrentStreak)
	require.Len(t, rec.events, 1)
	assert.True(t, rec.events[0].Is(analytics.HabitEvent, analytics.SubtypeCompleted))
	assert.Equal(t, 50.0, rec.events[0].Number(analytics.KeyConsistencyScore))
	assert.Equal(t, "g1", rec.events[0].Text(analytics.KeyGoalID))

	w = httptest.NewRecorder()
	h(w, asUser(httptest.NewRequest(http.MethodPost, "/habits/complete", strings.NewReader(`{"habit_id":"h1"}`)), 1))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"counted":false`)
	assert.Len(t, rec.events, 1)
}

func TestCompleteHabitHandler_Errors(t *testing.T) {
	h := CompleteHabitHandler(&memStore{}, &recorder{}, redisdb.NopCache{})

	w := httptest.NewRecorder()
	h(w, asUser(httptest.NewRequest(http.MethodPost, "/habits/complete", strings.NewReader(`{"habit_id":"x"}`)), 1))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h(w, asUser(httptest.NewRequest(http.MethodPost, "/habits/complete", strings.NewReader(`{"habit_id":"x","timezone":"Mars/Olympus"}`)), 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/habits/complete", strings.NewReader(`{"habit_id":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
