package realtime

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/okr/internal/core/okr"
	"github.com/colonyops/okr/internal/service"
)

type wsFixture struct {
	app    *service.App
	server *Server
	url    string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	app := newTestApp(t, true)
	s := NewServer(app, ServerOptions{Now: func() time.Time { return day0.AddDate(0, 0, 1) }}, zerolog.Nop())

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(s.Hub().Close)

	return &wsFixture{
		app:    app,
		server: s,
		url:    "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
	}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(f.url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// next reads frames until one of type typ arrives.
func next(t *testing.T, conn *websocket.Conn, typ string) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env))
		if env.Type == typ {
			return env
		}
	}
}

// until reads frames of type typ until match accepts one.
func until(t *testing.T, conn *websocket.Conn, typ string, match func(Envelope) bool) Envelope {
	t.Helper()
	for {
		env := next(t, conn, typ)
		if match(env) {
			return env
		}
	}
}

func TestHub_SendsInitialData(t *testing.T) {
	f := newWSFixture(t)
	o, _ := seedObjective(t, f.app)

	conn := f.dial(t)
	var data InitialData
	require.NoError(t, next(t, conn, TypeInitialData).Decode(&data))
	require.Len(t, data.Objectives, 1)
	assert.Equal(t, o.ID, data.Objectives[0].ID)

	require.Eventually(t, func() bool { return f.server.Hub().Clients() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastsMutations(t *testing.T) {
	f := newWSFixture(t)
	_, kr := seedObjective(t, f.app)

	first := f.dial(t)
	second := f.dial(t)
	next(t, first, TypeInitialData)
	next(t, second, TypeInitialData)

	// A check-in sent by one client reaches both.
	require.NoError(t, first.WriteJSON(envelope(t, TypeKeyResultCheckIn, map[string]any{
		"krId":  kr.ID,
		"date":  day0,
		"value": 5,
	})))

	// Earlier broadcasts from seeding may still be in flight, so wait for
	// the one carrying the check-in.
	for _, conn := range []*websocket.Conn{first, second} {
		until(t, conn, TypeObjectivesUpdated, func(env Envelope) bool {
			var views []service.ObjectiveView
			require.NoError(t, env.Decode(&views))
			require.Len(t, views, 1)
			require.Len(t, views[0].KeyResults, 1)
			return math.Abs(views[0].KeyResults[0].Progress-50) < 1e-9
		})
	}

	_, err := f.app.Objectives.UpsertUser(context.Background(), okr.User{ID: "u1", Name: "Sara", Username: "sara"})
	require.NoError(t, err)

	var users []okr.User
	require.NoError(t, next(t, second, TypeUsersUpdated).Decode(&users))
	require.Len(t, users, 1)
	assert.Equal(t, "sara", users[0].Username)
}

func TestHub_RelaysNotifications(t *testing.T) {
	f := newWSFixture(t)
	o, _ := seedObjective(t, f.app)

	conn := f.dial(t)
	next(t, conn, TypeInitialData)

	require.NoError(t, f.app.Objectives.DeleteObjective(context.Background(), o.ID))

	var n NotificationData
	require.NoError(t, next(t, conn, TypeNotification).Decode(&n))
	assert.Equal(t, o.ID, n.ObjectiveID)
	assert.Contains(t, n.Message, "Grow revenue")
}

func TestHub_RepliesWithErrors(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)
	next(t, conn, TypeInitialData)

	require.NoError(t, conn.WriteJSON(Envelope{Type: "objective:explode"}))

	var data ErrorData
	require.NoError(t, next(t, conn, TypeError).Decode(&data))
	assert.Equal(t, "objective:explode", data.Request)
	assert.Contains(t, data.Message, "unknown message type")

	// The connection stays usable after an error.
	require.NoError(t, conn.WriteJSON(Envelope{Type: TypeGetInitialData}))
	next(t, conn, TypeInitialData)
}

func TestHub_ClientDisconnect(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)
	next(t, conn, TypeInitialData)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()

	require.Eventually(t, func() bool { return f.server.Hub().Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServer_Run(t *testing.T) {
	app := newTestApp(t, true)
	s := NewServer(app, ServerOptions{Addr: "127.0.0.1:0"}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	addr, err := s.Addr(waitCtx)
	require.NoError(t, err)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + addr.String() + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
