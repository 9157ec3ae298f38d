package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"warbler/internal/notifications"
	"warbler/internal/testutil"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve runs the app on a loopback listener and returns its address.
func serve(t *testing.T, s *Server) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := s.App()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func TestNotificationsSocketRequiresAuth(t *testing.T) {
	s, db := newTestServer(t, nil)
	alice := testutil.CreateUser(t, db, "alice")

	resp := newClient(t, s).get("/ws/notifications")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	token, _, err := s.tokens.Issue(alice)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/ws/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = s.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestNotificationsSocketStreamsOwnEvents(t *testing.T) {
	_, rdb := testutil.NewTestRedis(t)
	s, db := newTestServer(t, rdb)
	alice := testutil.CreateUser(t, db, "alice")
	carol := testutil.CreateUser(t, db, "carol")
	testutil.CreateUser(t, db, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.StartNotifications(ctx))

	addr := serve(t, s)
	token, _, err := s.tokens.Issue(alice)
	require.NoError(t, err)

	conn, resp, err := gws.DefaultDialer.Dial("ws://"+addr+"/ws/notifications",
		http.Header{"Authorization": {"Bearer " + token}})
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	require.Eventually(t, func() bool { return s.hub.Connections(alice.ID) == 1 },
		2*time.Second, 10*time.Millisecond)

	bc := newClient(t, s)
	bc.login("bob")
	// bob following carol is not alice's business
	require.Equal(t, http.StatusFound, bc.post(fmt.Sprintf("/users/follow/%d", carol.ID), nil).StatusCode)
	require.Equal(t, http.StatusFound, bc.post(fmt.Sprintf("/users/follow/%d", alice.ID), nil).StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, gws.TextMessage, msgType)

	var ev notifications.Event
	require.NoError(t, json.Unmarshal(payload, &ev))
	assert.Equal(t, notifications.EventFollowed, ev.Type)
	assert.Equal(t, "bob", ev.ActorUsername)

	require.NoError(t, conn.WriteMessage(gws.CloseMessage,
		gws.FormatCloseMessage(gws.CloseNormalClosure, "")))
	require.Eventually(t, func() bool { return s.hub.Connections(alice.ID) == 0 },
		2*time.Second, 10*time.Millisecond)
}
