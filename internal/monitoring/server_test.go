package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"workshop-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticEventSource struct {
	events []*models.VehicleEvent
}

func (s *staticEventSource) ListRecent(ctx context.Context, limit int) ([]*models.VehicleEvent, error) {
	if limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func dialWS(t *testing.T, ms *MonitoringServer) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(ms.handleWebSocket))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func TestWebSocketCatchUpReplaysRecentEvents(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	source := &staticEventSource{events: []*models.VehicleEvent{
		{ID: 3, VehicleNumber: "MH12AB1234", Stage: models.StageJobCardCreation, EventType: models.EventStart, Timestamp: at.Add(2 * time.Minute)},
		{ID: 2, VehicleNumber: "MH12AB1234", Stage: models.StageSecurityGate, EventType: models.EventStart, Timestamp: at.Add(time.Minute)},
		{ID: 1, VehicleNumber: "KA01CD5678", Stage: models.StagePickupDrop, EventType: models.EventStart, Timestamp: at},
	}}

	ms := NewMonitoringServer(nil, source, 0)
	conn := dialWS(t, ms)

	var got []TransitionNotice
	for i := 0; i < len(source.events); i++ {
		var n TransitionNotice
		require.NoError(t, conn.ReadJSON(&n))
		got = append(got, n)
	}

	// Replayed oldest first so the display builds up chronologically.
	assert.Equal(t, "KA01CD5678", got[0].VehicleNumber)
	assert.Equal(t, models.StagePickupDrop, got[0].Stage)
	assert.Equal(t, models.StageSecurityGate, got[1].Stage)
	assert.Equal(t, models.StageJobCardCreation, got[2].Stage)
	assert.Equal(t, models.EventStart, got[2].EventType)
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	ms := NewMonitoringServer(nil, nil, 0)
	go ms.handleBroadcast()

	conn := dialWS(t, ms)

	// Registration happens on the server goroutine after the upgrade.
	require.Eventually(t, func() bool {
		ms.clientsMux.Lock()
		defer ms.clientsMux.Unlock()
		return len(ms.clients) == 1
	}, time.Second, 10*time.Millisecond)

	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	ms.BroadcastTransition("MH12AB1234", models.StageBayWork, models.EventStart, "Work in progress", at)

	var n TransitionNotice
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, "MH12AB1234", n.VehicleNumber)
	assert.Equal(t, models.StageBayWork, n.Stage)
	assert.Equal(t, "Work in progress", n.Status)
}
