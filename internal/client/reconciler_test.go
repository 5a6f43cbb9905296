package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stopgame/internal/app"
	"stopgame/internal/config"
	"stopgame/internal/domain"
	"stopgame/internal/transport/ws"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startTestServer runs a real hub behind a real websocket endpoint and
// returns a ws:// base URL plus a fresh room code.
func startTestServer(t *testing.T) (serverURL, roomCode string) {
	t.Helper()

	logger := testLogger()
	hub := app.NewGameHub(config.GameConfig{
		RoomCodeLength:      6,
		StaleSessionTimeout: time.Hour,
		CleanupInterval:     time.Hour,
	}, logger)
	t.Cleanup(hub.Close)

	session, err := hub.CreateGame()
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(hub, logger))
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http"), session.RoomCode()
}

func connectPeer(t *testing.T, serverURL, roomCode, name string) *Reconciler {
	t.Helper()

	r := New(serverURL, roomCode, testLogger())
	t.Cleanup(r.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Connect(ctx))
	require.NoError(t, r.Join(name))
	return r
}

func waitForPhase(t *testing.T, r *Reconciler, phase domain.Phase) {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.Store().Get("phase") == string(phase)
	}, 5*time.Second, 20*time.Millisecond, "phase never reached %s", phase)
}

func waitForEvent(t *testing.T, r *Reconciler) Event {
	t.Helper()
	select {
	case event := <-r.Events():
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("no event delivered")
		return Event{}
	}
}

func TestReconciler_JoinPopulatesMirror(t *testing.T) {
	serverURL, roomCode := startTestServer(t)

	r1 := connectPeer(t, serverURL, roomCode, "Alice")
	waitForPhase(t, r1, domain.PhaseLobby)

	require.Eventually(t, func() bool {
		return r1.Store().Get("localPlayer.isHost") == true
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Alice", r1.Store().Get("localPlayer.name"))

	r2 := connectPeer(t, serverURL, roomCode, "Bob")
	waitForPhase(t, r2, domain.PhaseLobby)

	for _, r := range []*Reconciler{r1, r2} {
		require.Eventually(t, func() bool {
			players, _ := r.Store().Get("players").([]*domain.Player)
			return len(players) == 2
		}, 5*time.Second, 20*time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return r2.Store().Get("localPlayer.isHost") == false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReconciler_ReadyGateStartsRound(t *testing.T) {
	serverURL, roomCode := startTestServer(t)

	r1 := connectPeer(t, serverURL, roomCode, "Alice")
	r2 := connectPeer(t, serverURL, roomCode, "Bob")
	waitForPhase(t, r1, domain.PhaseLobby)
	waitForPhase(t, r2, domain.PhaseLobby)

	require.NoError(t, r1.SetReady(true))
	// One ready peer is not enough; the phase must hold.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, string(domain.PhaseLobby), r1.Store().Get("phase"))

	require.NoError(t, r2.SetReady(true))
	waitForPhase(t, r1, domain.PhaseAnswering)
	waitForPhase(t, r2, domain.PhaseAnswering)

	require.Eventually(t, func() bool {
		letter, _ := r1.Store().Get("currentLetter").(string)
		return letter != ""
	}, 5*time.Second, 20*time.Millisecond)

	// The authoritative countdown reaches the mirror.
	require.Eventually(t, func() bool {
		remaining, _ := r2.Store().Get("timer.remaining").(int)
		return remaining > 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReconciler_OptimisticReadyEcho(t *testing.T) {
	serverURL, roomCode := startTestServer(t)

	r1 := connectPeer(t, serverURL, roomCode, "Alice")
	waitForPhase(t, r1, domain.PhaseLobby)

	require.NoError(t, r1.SetReady(true))
	// The echo lands synchronously, before any host confirmation.
	assert.Equal(t, true, r1.Store().Get("localPlayer.isReady"))

	require.Eventually(t, func() bool {
		players, _ := r1.Store().Get("players").([]*domain.Player)
		return len(players) == 1 && players[0].IsReady
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReconciler_KickedPeerReturnsHome(t *testing.T) {
	serverURL, roomCode := startTestServer(t)

	r1 := connectPeer(t, serverURL, roomCode, "Alice")
	r2 := connectPeer(t, serverURL, roomCode, "Bob")
	waitForPhase(t, r1, domain.PhaseLobby)
	waitForPhase(t, r2, domain.PhaseLobby)

	require.Eventually(t, func() bool {
		players, _ := r1.Store().Get("players").([]*domain.Player)
		return len(players) == 2
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, r1.KickPlayer(r2.PlayerID(), "afk"))

	event := waitForEvent(t, r2)
	assert.Equal(t, EventKicked, event.Kind)
	assert.Equal(t, "afk", event.Message)
	waitForPhase(t, r2, domain.PhaseHome)

	require.Eventually(t, func() bool {
		players, _ := r1.Store().Get("players").([]*domain.Player)
		return len(players) == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReconciler_HostLossIsFatal(t *testing.T) {
	serverURL, roomCode := startTestServer(t)

	r1 := connectPeer(t, serverURL, roomCode, "Alice")
	r2 := connectPeer(t, serverURL, roomCode, "Bob")
	waitForPhase(t, r2, domain.PhaseLobby)

	r1.Close()

	// The session terminates; depending on timing the peer sees the
	// shutdown notice or just the dropped link. Both end at HOME.
	event := waitForEvent(t, r2)
	assert.Contains(t, []EventKind{EventKicked, EventHostLost}, event.Kind)
	waitForPhase(t, r2, domain.PhaseHome)
	require.Eventually(t, func() bool {
		return r2.Store().Get("players") == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestReconciler_ErrorEventOnRejectedIntent(t *testing.T) {
	serverURL, roomCode := startTestServer(t)

	r := New(serverURL, roomCode, testLogger())
	t.Cleanup(r.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Connect(ctx))

	// A join without a name is rejected with a unicast error, surfaced
	// as a transient event rather than a dropped connection.
	require.NoError(t, r.Join(""))

	event := waitForEvent(t, r)
	assert.Equal(t, EventError, event.Kind)
	assert.NotEmpty(t, event.Message)
}

func TestReconciler_ConnectHonorsContext(t *testing.T) {
	r := New("ws://127.0.0.1:1", "NOROOM", testLogger())
	t.Cleanup(r.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Connect(ctx)
	assert.Error(t, err)
}
