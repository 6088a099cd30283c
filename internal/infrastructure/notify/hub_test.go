package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radake/rada-ke/internal/domain/shared"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user_id=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestDeliverReachesOnlyTheUser(t *testing.T) {
	hub, srv := startHub(t)
	alice, bob := shared.NewID(), shared.NewID()

	aliceConn := dial(t, srv, alice)
	bobConn := dial(t, srv, bob)
	require.Eventually(t, func() bool { return hub.Connected(context.Background()) == 2 }, time.Second, 5*time.Millisecond)

	hub.Deliver(context.Background(), shared.NewXPAwardedEvent(alice, "quiz_passed", 50, 150, 1))

	_ = aliceConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := aliceConn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, shared.EventXPAwarded, msg.Type)
	assert.Equal(t, alice, msg.UserID)
	assert.EqualValues(t, 50, msg.Payload["amount"])

	_ = bobConn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = bobConn.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's event")
}

func TestServeHTTPRequiresUserID(t *testing.T) {
	_, srv := startHub(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDisconnectUnregisters(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, shared.NewID())
	require.Eventually(t, func() bool { return hub.Connected(context.Background()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connected(context.Background()) == 0 }, 2*time.Second, 10*time.Millisecond)
}
