package api

import (
	"context"
	"encoding/json"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"partywatch.live/config"
	"partywatch.live/model"
	"partywatch.live/relay"
	"partywatch.live/storage"
	"strings"
	"testing"
	"time"
)

func newAPI(t *testing.T) *API {
	c := &config.Config{
		MaxWorkers:     4,
		SendTimeout:    time.Second,
		MaxMessageSize: 1 << 20,
		EventsChannel:  "room:",
		CORSOrigin:     "*",
	}
	rl := relay.New(c, nil)
	a := New(c, storage.NewMemory(), rl)
	t.Cleanup(rl.Close)
	return a
}

func get(a *API, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestPingCountsVisits(t *testing.T) {
	a := newAPI(t)
	for i := 0; i < 3; i++ {
		rec := get(a, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	}

	rec := get(a, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var s stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, int64(3), s.Visits)
	assert.Equal(t, 0, s.Rooms)
}

func TestGetRoomNotFound(t *testing.T) {
	a := newAPI(t)
	rec := get(a, "/room/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebsocketJoin(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.echo)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")
	require.NoError(t, err)
	defer conn.Close()

	hs, _ := json.Marshal(model.Handshake{RoomCode: "R1", UserID: "u1", Username: "Alice"})
	require.NoError(t, wsutil.WriteClientText(conn, hs))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	b, err := wsutil.ReadServerText(conn)
	require.NoError(t, err)
	var st model.RoomState
	require.NoError(t, json.Unmarshal(b, &st))
	assert.Equal(t, model.TypeRoomState, st.Type)
	assert.Equal(t, "u1", st.YourID)

	rec := get(a, "/room/R1")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap model.RoomSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "R1", snap.Code)
	assert.Equal(t, "u1", snap.HostID)
	require.Len(t, snap.Users, 1)

	rec = get(a, "/stats")
	var s stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, 1, s.Rooms)
	assert.Equal(t, 1, s.Members)
	assert.Equal(t, 1, s.Connections)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return get(a, "/room/R1").Code == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketRejectsPlainRequest(t *testing.T) {
	a := newAPI(t)
	srv := httptest.NewServer(a.echo)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
