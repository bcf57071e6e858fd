package auth

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"optileno-backend/internal/observability"
)

const minPasswordLen = 8

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func logger() *zap.Logger {
	return observability.GetLogger().Named("auth")
}

func RegisterHandler(users UserStore, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentials
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		email := NormalizeEmail(body.Email)
		if email == "" || body.Password == "" {
			http.Error(w, "email & password required", http.StatusBadRequest)
			return
		}
		if len(body.Password) < minPasswordLen {
			http.Error(w, "password too short", http.StatusBadRequest)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash failed", http.StatusInternalServerError)
			return
		}

		id, err := users.Create(r.Context(), email, string(hash))
		if errors.Is(err, ErrEmailTaken) {
			http.Error(w, "user exists", http.StatusConflict)
			return
		}
		if err != nil {
			logger().Error("register failed", zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		writeToken(w, secret, id)
	}
}

func LoginHandler(users UserStore, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentials
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		id, hash, err := users.FindByEmail(r.Context(), NormalizeEmail(body.Email))
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				logger().Error("login lookup failed", zap.Error(err))
			}
			http.Error(w, "invalid login", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(body.Password)) != nil {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			return
		}

		writeToken(w, secret, id)
	}
}

func writeToken(w http.ResponseWriter, secret []byte, id int) {
	token, err := GenerateToken(secret, id)
	if err != nil {
		http.Error(w, "token error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user_id": id,
		"token":   token,
	})
}

func MeHandler(users UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		email, err := users.Email(r.Context(), uid)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			logger().Error("load user failed", zap.Int("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user_id": uid,
			"email":   email,
		})
	}
}
