// Package integration runs the pilot end to end: scenario world, engine,
// journal, feed and HTTP surface, wired the way main.go wires them. Ticks
// are stepped by the test rather than the scheduler so runs are repeatable.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/voxelpilot/api/rest"
	"github.com/kasuganosora/voxelpilot/api/sse"
	"github.com/kasuganosora/voxelpilot/audit"
	"github.com/kasuganosora/voxelpilot/cache"
	"github.com/kasuganosora/voxelpilot/cache/feed"
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/pilot"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/sim"
	"github.com/kasuganosora/voxelpilot/game/world"
	mw "github.com/kasuganosora/voxelpilot/middleware"
	"github.com/kasuganosora/voxelpilot/plugin/hook"
	"github.com/kasuganosora/voxelpilot/resource"
	"github.com/kasuganosora/voxelpilot/scheduler"
	"github.com/kasuganosora/voxelpilot/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const adminKey = "integration-admin"

const tick = 50 * time.Millisecond

// TestServer is a fully wired pilot behind a real HTTP server.
type TestServer struct {
	DB       *gorm.DB
	Store    cache.Store
	PubSub   cache.PubSub
	Feed     *feed.Publisher
	Journal  *audit.Journal
	Hooks    *hook.Center
	Body     *player.Body
	World    *world.Grid
	Driver   *sim.Driver
	Scenario *resource.Scenario
	Server   *httptest.Server
	URL      string

	now time.Time
}

// NewTestServer loads the named scenario from resource/testdata and wires
// every subsystem around it.
func NewTestServer(t *testing.T, scenario string) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sc, err := resource.Load("../resource/testdata/" + scenario + ".json")
	require.NoError(t, err)

	db := testutil.SetupTestDB(t)
	store, ps := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	g := sc.Build()
	body := player.NewBody(g, sc.Spawn.Coord(), item.NewInventory(sc.Items()), player.DefaultBodyConfig())
	st := body.State()
	health, hunger := st.Health, st.Hunger
	if sc.Health != nil {
		health = *sc.Health
	}
	if sc.Hunger != nil {
		hunger = *sc.Hunger
	}
	body.SetVitals(health, hunger)

	opts := pilot.DefaultOptions()
	opts.Navigator.ScoringEnabled = false
	engine := pilot.Assemble(g, body, nil, opts, logger, nil)

	pub := feed.New(store, ps, feed.DefaultConfig(), logger)
	journal := audit.New(db, audit.Config{QueueSize: 4096, BatchSize: 64, FlushInterval: 20 * time.Millisecond}, logger)
	t.Cleanup(func() { _ = journal.Stop(context.Background()) })

	hooks := hook.NewCenter(logger)
	hooks.Sink(0, "feed", pub)
	hooks.Sink(1, "journal", journal)
	engine.SetSink(hooks)
	driver := sim.NewDriver(g, body, engine)

	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	// ---- HTTP ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(1000), 2000))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	pilotH := apirest.NewPilotHandler(driver, pub, journal, logger)
	adminH := apirest.NewAdminHandler(driver, sched, journal, logger)
	api := r.Group("/api")
	api.GET("/status", pilotH.Status)
	api.GET("/render", pilotH.Render)
	api.GET("/events", pilotH.Events)
	api.GET("/missions", pilotH.Missions)
	api.GET("/missions/:id", pilotH.Mission)
	missionG := api.Group("/mission")
	missionG.Use(apirest.AdminAuth(adminKey))
	missionG.POST("/start", pilotH.StartMission)
	missionG.POST("/stop", pilotH.StopMission)
	adminG := api.Group("/admin")
	adminG.Use(apirest.AdminAuth(adminKey))
	adminG.GET("/metrics", adminH.Metrics)
	adminG.POST("/vitals", adminH.SetVitals)
	r.GET("/sse", sse.NewHandler(ps, logger).ServeSSE)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &TestServer{
		DB:       db,
		Store:    store,
		PubSub:   ps,
		Feed:     pub,
		Journal:  journal,
		Hooks:    hooks,
		Body:     body,
		World:    g,
		Driver:   driver,
		Scenario: sc,
		Server:   srv,
		URL:      srv.URL,
	}
}

// Step advances n ticks and publishes the resulting snapshot, as the tick
// and status_publish tasks would. The simulated clock never falls behind
// wall time, since handlers stamp mission control with time.Now.
func (ts *TestServer) Step(t *testing.T, n int) {
	t.Helper()
	if wall := time.Now(); ts.now.Before(wall) {
		ts.now = wall
	}
	for i := 0; i < n; i++ {
		ts.now = ts.now.Add(tick)
		ts.Driver.Step(ts.now)
	}
	e := ts.Driver.Engine()
	require.NoError(t, ts.Feed.Publish(context.Background(), e.Status(), e.Render()))
	require.NoError(t, ts.Journal.RecordMission(context.Background(), e.Status()))
}

// Flush stops the journal so every recorded event is queryable, then
// refreshes the running mission's summary row.
func (ts *TestServer) Flush(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, ts.Journal.Stop(ctx))
	require.NoError(t, ts.Journal.RecordMission(ctx, ts.Driver.Engine().Status()))
}

// Do sends a request and decodes a JSON response into out when non-nil.
func (ts *TestServer) Do(t *testing.T, method, path string, body any, admin bool, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Key", adminKey)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
