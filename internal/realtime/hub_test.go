package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubServer(t *testing.T, hub *Hub) (*httptest.Server, string) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		streams := strings.Split(r.URL.Query().Get("streams"), ",")
		hub.Serve(streams, w, r)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return server, wsURL
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *Hub, stream string, want int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if hub.SubscriberCount(stream) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("stream %q never reached %d subscribers", stream, want)
}

func TestHubBroadcastReachesSubscribers(t *testing.T) {
	hub := NewHub()
	_, wsURL := newHubServer(t, hub)

	conn := dial(t, wsURL+"?streams="+StreamPlayers)
	waitForSubscribers(t, hub, StreamPlayers, 1)

	hub.Broadcast(StreamPlayers, map[string]string{"event": "players_changed"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var message Message
	require.NoError(t, conn.ReadJSON(&message))

	assert.Equal(t, StreamPlayers, message.Stream)
	assert.Equal(t, "change", message.Event)
}

func TestHubIgnoresUnknownStreams(t *testing.T) {
	hub := NewHub()
	_, wsURL := newHubServer(t, hub)

	dial(t, wsURL+"?streams=secrets")

	// The connection is live but subscribed to nothing.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, hub.SubscriberCount("secrets"))
}

func TestHubControlSubscribe(t *testing.T) {
	hub := NewHub()
	_, wsURL := newHubServer(t, hub)

	conn := dial(t, wsURL)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action":  "subscribe",
		"streams": []string{StreamPlayers},
	}))
	waitForSubscribers(t, hub, StreamPlayers, 1)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"action":  "unsubscribe",
		"streams": []string{StreamPlayers},
	}))

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && hub.SubscriberCount(StreamPlayers) > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Zero(t, hub.SubscriberCount(StreamPlayers))
}

func TestHubPingControl(t *testing.T) {
	hub := NewHub()
	_, wsURL := newHubServer(t, hub)

	conn := dial(t, wsURL)
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"action": "ping"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var message Message
	require.NoError(t, conn.ReadJSON(&message))
	assert.Equal(t, "pong", message.Event)
}

func TestConnectionSendAfterCloseIsSafe(t *testing.T) {
	hub := NewHub()

	accepted := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- socket
	}))
	t.Cleanup(server.Close)

	dial(t, "ws"+strings.TrimPrefix(server.URL, "http"))
	socket := <-accepted

	client := &connection{
		hub:     hub,
		socket:  socket,
		streams: make(map[string]struct{}),
		send:    make(chan Message, 1),
	}

	require.True(t, client.trySend(Message{Event: "pong"}))

	client.close()

	// A ping reply or broadcast landing after teardown must be a no-op,
	// not a send on a closed channel.
	assert.False(t, client.trySend(Message{Event: "pong"}))
	assert.NotPanics(t, func() { hub.enqueue(client, Message{Event: "change"}) })
}
