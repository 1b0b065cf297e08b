package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simracekit/pitwall/internal/telemetry"
)

func dialHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	if resp != nil {
		_ = resp.Body.Close()
	}

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

func TestHubBroadcastsAcceptedSamples(t *testing.T) {
	hub := NewHub(newTestLogger())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))

	t.Cleanup(func() {
		server.Close()
		hub.Close()
	})

	conn := dialHub(t, server)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastSample(telemetry.Sample{Speed: 187.5, RPM: 7100, Gear: 6})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var sample telemetry.Sample
	require.NoError(t, json.Unmarshal(data, &sample))

	assert.Equal(t, float32(187.5), sample.Speed)
	assert.Equal(t, int32(6), sample.Gear)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(newTestLogger())

	// Must not block or panic.
	hub.BroadcastSample(telemetry.Sample{Speed: 100})

	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := NewHub(newTestLogger())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))

	t.Cleanup(func() {
		server.Close()
		hub.Close()
	})

	conn := dialHub(t, server)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Stall the writer by filling the client's send queue faster than any
	// transport can drain it, then keep broadcasting.
	hub.mutex.Lock()

	for client := range hub.clients {
		for len(client.send) < cap(client.send) {
			client.send <- []byte("{}")
		}
	}

	hub.mutex.Unlock()

	deadline := time.Now().Add(2 * time.Second)

	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		hub.BroadcastSample(telemetry.Sample{Speed: 100})
	}

	assert.Equal(t, 0, hub.ClientCount())

	// The dropped client's connection eventually closes.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(newTestLogger())
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))

	t.Cleanup(server.Close)

	dialHub(t, server)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())
}
