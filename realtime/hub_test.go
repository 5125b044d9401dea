package realtime_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchbox/canteen-core/core"
	"github.com/lunchbox/canteen-core/realtime"
)

func newTestHub(t *testing.T) (*realtime.Hub, *httptest.Server) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := realtime.NewHub(log)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsToAllClients(t *testing.T) {
	hub, srv := newTestHub(t)
	a := dial(t, srv)
	b := dial(t, srv)

	hub.Emit(core.EventBalanceUpdate, map[string]any{"studentKey": "A1"})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var frame realtime.Frame
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, core.EventBalanceUpdate, frame.Event)
		payload, ok := frame.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "A1", payload["studentKey"])
	}
}

func TestHub_EmitWithNoClientsIsNoop(t *testing.T) {
	hub, _ := newTestHub(t)
	// Must not block or panic.
	hub.Emit(core.EventStudentCreated, nil)
}

func TestHub_DisconnectedClientDoesNotBlockEmit(t *testing.T) {
	hub, srv := newTestHub(t)
	conn := dial(t, srv)
	conn.Close()

	// A burst larger than the client buffer must complete promptly even if
	// the hub has not noticed the disconnect yet.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Emit(core.EventBalanceUpdate, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on a dead client")
	}
}
