package main

import (
	"database/sql"
	"net/http"

	"optileno-backend/internal/ai"
	"optileno-backend/internal/analytics"
	"optileno-backend/internal/auth"
	"optileno-backend/internal/config"
	"optileno-backend/internal/goals"
	"optileno-backend/internal/habits"
	redisdb "optileno-backend/internal/redis"
	"optileno-backend/internal/tasks"
)

// byMethod dispatches on the request method. OPTIONS is answered for
// preflight requests that reach the mux.
type byMethod map[string]http.HandlerFunc

func (m byMethod) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	h, ok := m[r.Method]
	if !ok {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h(w, r)
}

type services struct {
	users  auth.UserStore
	tasks  tasks.Store
	habits habits.Store
	events analytics.Store
	goals  *goals.GoalHandler
	secret []byte
	cfg    *config.Config
	cache  redisdb.Cache
}

func routes(cfg *config.Config, database *sql.DB, cache redisdb.Cache) http.Handler {
	events := &analytics.PostgresStore{DB: database}
	taskStore := &tasks.PostgresStore{DB: database}
	habitStore := &habits.PostgresStore{DB: database}

	return newMux(services{
		users:  &auth.PostgresUsers{DB: database},
		tasks:  taskStore,
		habits: habitStore,
		events: events,
		goals: &goals.GoalHandler{
			Goals:     &goals.PostgresStore{DB: database},
			Snapshots: goals.StoreSnapshots{Tasks: taskStore, Habits: habitStore, Events: events},
			Events:    events,
			Cache:     cache,
			CacheTTL:  cfg.CacheTTL,
			MaxGoals:  cfg.MaxGoals,
			AI:        ai.New(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL),
		},
		secret: []byte(cfg.JWTSecret),
		cfg:    cfg,
		cache:  cache,
	})
}

func newMux(s services) *http.ServeMux {
	protect := auth.New(s.secret).Wrap
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})

	mux.Handle("/auth/register", byMethod{http.MethodPost: auth.RegisterHandler(s.users, s.secret)})
	mux.Handle("/auth/login", byMethod{http.MethodPost: auth.LoginHandler(s.users, s.secret)})
	mux.Handle("/auth/me", byMethod{http.MethodGet: protect(auth.MeHandler(s.users))})
	mux.Handle("/auth/logout", byMethod{http.MethodPost: protect(auth.LogoutHandler())})
	mux.Handle("/auth/account", byMethod{http.MethodDelete: protect(auth.DeleteAccountHandler(s.users))})

	mux.Handle("/tasks", byMethod{
		http.MethodGet:  protect(tasks.GetTasksHandler(s.tasks)),
		http.MethodPost: protect(tasks.CreateTaskHandler(s.tasks, s.events, s.cache)),
	})
	mux.Handle("/tasks/status", byMethod{http.MethodPost: protect(tasks.SetTaskStatusHandler(s.tasks, s.events, s.cache))})

	mux.Handle("/habits", byMethod{
		http.MethodGet:  protect(habits.GetHabitsHandler(s.habits)),
		http.MethodPost: protect(habits.CreateHabitHandler(s.habits)),
	})
	mux.Handle("/habits/complete", byMethod{http.MethodPost: protect(habits.CompleteHabitHandler(s.habits, s.events, s.cache))})

	mux.Handle("/goals", byMethod{
		http.MethodGet:  protect(s.goals.List),
		http.MethodPost: protect(s.goals.Create),
	})
	mux.Handle("/goals/progress", byMethod{http.MethodPost: protect(s.goals.UpdateProgress)})
	mux.Handle("/goals/analysis", byMethod{http.MethodGet: protect(s.goals.Analysis)})
	mux.Handle("/goals/ai-refresh", byMethod{http.MethodPost: protect(s.goals.AIRefresh)})

	mux.Handle("/events", byMethod{http.MethodPost: protect(analytics.IngestEventHandler(s.events, s.cache))})
	mux.Handle("/focus/start", byMethod{http.MethodPost: protect(analytics.StartFocusHandler(s.events, s.cache))})
	mux.Handle("/focus/stop", byMethod{http.MethodPost: protect(analytics.StopFocusHandler(s.events, s.cache))})
	mux.Handle("/analytics/metrics", byMethod{http.MethodGet: protect(analytics.MetricsHandler(s.events, s.cache, s.cfg.CacheTTL))})
	mux.Handle("/analytics/stream", byMethod{http.MethodGet: protect(analytics.StreamHandler(s.events, s.cfg.StreamInterval))})

	return mux
}
