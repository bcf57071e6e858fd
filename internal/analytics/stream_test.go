package analytics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestStreamHandler_PushesMetrics(t *testing.T) {
	store := newMemStore()
	store.sessions[1] = []FocusSession{{ID: "s1", Quality: 9, EndTime: &testNow}}
	h := StreamHandler(store, 20*time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, asUser(r, 1))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		var m UserMetrics
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, ws.ReadJSON(&m))
		assert.Equal(t, 90.0, m.FocusScore)
		assert.Equal(t, 1, m.FocusSessions)
	}

	require.NoError(t, ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	ws.Close()
}

func TestStreamHandler_RequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	StreamHandler(newMemStore(), time.Second)(rec, httptest.NewRequest(http.MethodGet, "/analytics/stream", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
