package ws

import (
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

	"stopgame/internal/app"
	"stopgame/internal/config"
	"stopgame/internal/protocol"
)

func newTestEndpoint(t *testing.T) (string, *app.GameHub) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := app.NewGameHub(config.GameConfig{
		RoomCodeLength:      6,
		StaleSessionTimeout: time.Hour,
		CleanupInterval:     time.Hour,
	}, logger)
	t.Cleanup(hub.Close)

	ts := httptest.NewServer(NewHandler(hub, logger))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http"), hub
}

func TestHandler_RequiresRoomCode(t *testing.T) {
	wsURL, _ := newTestEndpoint(t)

	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHandler_UnknownRoomRejected(t *testing.T) {
	wsURL, _ := newTestEndpoint(t)

	_, res, err := websocket.DefaultDialer.Dial(wsURL+"?roomCode=NOSUCH", nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHandler_JoinRoundTrip(t *testing.T) {
	wsURL, hub := newTestEndpoint(t)

	session, err := hub.CreateGame()
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?roomCode="+session.RoomCode(), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(protocol.NewMessage(protocol.MsgPlayerJoin, &protocol.JoinPayload{Name: "Alice"})))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	// The first frame back must carry the full state snapshot.
	frame := strings.Split(string(data), "\n")[0]
	var msg protocol.Message
	require.NoError(t, json.Unmarshal([]byte(frame), &msg))
	assert.Equal(t, protocol.MsgGameState, msg.Type)

	assert.Equal(t, 1, session.PlayerCount())
}

func TestHandler_FullRoomRejectedAtUpgrade(t *testing.T) {
	wsURL, hub := newTestEndpoint(t)

	session, err := hub.CreateGame()
	require.NoError(t, err)

	conns := make([]*websocket.Conn, 0, 8)
	t.Cleanup(func() {
		for _, c := range conns {
			c.Close()
		}
	})

	for i := 0; i < 8; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?roomCode="+session.RoomCode(), nil)
		require.NoError(t, err)
		conns = append(conns, conn)
		require.NoError(t, conn.WriteJSON(protocol.NewMessage(protocol.MsgPlayerJoin, &protocol.JoinPayload{Name: "Player"})))
	}

	require.Eventually(t, func() bool {
		return session.PlayerCount() == 8
	}, 5*time.Second, 20*time.Millisecond)

	_, res, err := websocket.DefaultDialer.Dial(wsURL+"?roomCode="+session.RoomCode(), nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	// A rejoin with a known player id bypasses the gate.
	rejoinURL := wsURL + "?roomCode=" + session.RoomCode() + "&playerId=known"
	_, _, err = websocket.DefaultDialer.Dial(rejoinURL, nil)
	assert.NoError(t, err)
}
