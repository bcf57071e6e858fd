package analytics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	defaultStreamInterval = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeWSConn serializes writes; gorilla connections allow one writer.
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) WriteControl(messageType int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(messageType, nil, time.Now().Add(writeWait))
}

// StreamHandler upgrades to a WebSocket and pushes the user's metrics
// snapshot immediately and then every interval until the client leaves.
func StreamHandler(store Store, interval time.Duration) http.HandlerFunc {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		raw, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger().Warn("websocket upgrade failed", zap.Int("user_id", uid), zap.Error(err))
			return
		}
		conn := &safeWSConn{conn: raw}
		defer raw.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			defer cancel()
			readUntilClosed(raw)
		}()

		streamMetrics(ctx, conn, store, uid, interval)

		_ = raw.Close()
		<-done
	}
}

// readUntilClosed drains client frames so pongs and close frames are
// processed. It returns when the connection fails or closes.
func readUntilClosed(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func streamMetrics(ctx context.Context, conn *safeWSConn, store Store, uid int, interval time.Duration) {
	log := logger().Named("stream").With(zap.Int("user_id", uid))

	push := func() bool {
		m, err := LoadMetrics(ctx, store, uid, clock().UTC())
		if err != nil {
			if ctx.Err() == nil {
				log.Error("compute metrics failed", zap.Error(err))
			}
			return ctx.Err() == nil
		}
		if err := conn.WriteJSON(m); err != nil {
			log.Debug("metrics push stopped", zap.Error(err))
			return false
		}
		return true
	}

	if !push() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !push() {
				return
			}
		case <-pinger.C:
			if err := conn.WriteControl(websocket.PingMessage); err != nil {
				return
			}
		}
	}
}
