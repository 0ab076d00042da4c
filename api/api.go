package api

import (
	"context"
	"github.com/gobwas/ws"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"net/http"
	"partywatch.live/config"
	"partywatch.live/pkg/cors"
	"partywatch.live/relay"
	"partywatch.live/storage"
	"strconv"
	"time"
)

type API struct {
	echo    *echo.Echo
	config  *config.Config
	storage storage.Storage
	relay   *relay.Relay
}

type stats struct {
	Rooms       int   `json:"rooms"`
	Members     int   `json:"members"`
	Connections int   `json:"connections"`
	Visits      int64 `json:"visits"`
}

func New(c *config.Config, s storage.Storage, rl *relay.Relay) *API {
	api := &API{
		echo:    echo.New(),
		config:  c,
		storage: s,
		relay:   rl,
	}

	api.echo.HideBanner = true
	api.echo.Use(cors.Middleware(c.CORSOrigin))

	api.echo.GET("/", api.ping)
	api.echo.GET("/stats", api.stats)
	api.echo.GET("/room/:code", api.getRoom)
	api.echo.Any("/ws", api.websocket)

	return api
}

func (api *API) Start() error {
	log.Infof("listening on :%d", api.config.HttpPort)
	return api.echo.Start(":" + strconv.Itoa(api.config.HttpPort))
}

// Close stops accepting requests, then tears down every live connection
func (api *API) Close(ctx context.Context) error {
	err := api.echo.Shutdown(ctx)
	api.relay.Close()
	return err
}

// Ping handler
func (api *API) ping(c echo.Context) error {
	_, err := api.storage.IncrVisits()
	if err != nil {
		log.Error(err)
	}
	return c.String(http.StatusOK, "OK")
}

// Live relay counters and today's visits
func (api *API) stats(c echo.Context) error {
	var s stats
	s.Rooms, s.Members, s.Connections = api.relay.Stats()
	visits, err := api.storage.GetVisitsByDate(time.Now())
	if err != nil {
		log.Warn(err)
	}
	s.Visits = visits
	return c.JSON(http.StatusOK, &s)
}

// Returns the live state of a room
func (api *API) getRoom(c echo.Context) error {
	code := c.Param("code")
	snapshot, ok := api.relay.Snapshot(code)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, &snapshot)
}

// Endpoint to establish websocket connection. The room is chosen by the
// first frame, not by the URL.
func (api *API) websocket(c echo.Context) error {
	conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
	if err != nil {
		// the upgrader has already answered on the hijacked connection
		log.Warn(err)
		return nil
	}
	api.relay.Serve(conn)
	return nil
}
