package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/kasuganosora/voxelpilot/api/rest"
	"github.com/kasuganosora/voxelpilot/api/sse"
	"github.com/kasuganosora/voxelpilot/audit"
	"github.com/kasuganosora/voxelpilot/cache"
	"github.com/kasuganosora/voxelpilot/cache/feed"
	"github.com/kasuganosora/voxelpilot/config"
	dbadapter "github.com/kasuganosora/voxelpilot/db"
	"github.com/kasuganosora/voxelpilot/game/backend"
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/pilot"
	"github.com/kasuganosora/voxelpilot/game/player"
	"github.com/kasuganosora/voxelpilot/game/sim"
	"github.com/kasuganosora/voxelpilot/game/world"
	mw "github.com/kasuganosora/voxelpilot/middleware"
	"github.com/kasuganosora/voxelpilot/model"
	"github.com/kasuganosora/voxelpilot/plugin/hook"
	"github.com/kasuganosora/voxelpilot/resource"
	"github.com/kasuganosora/voxelpilot/scheduler"
	"github.com/kasuganosora/voxelpilot/throttle"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	explicit := len(os.Args) > 1
	if explicit {
		cfgPath = os.Args[1]
	}

	var cfg *config.Config
	if _, err := os.Stat(cfgPath); !explicit && errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default()
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Journal ----
	var journal *audit.Journal
	if cfg.Journal.Enabled {
		db, err := dbadapter.Open(cfg.Database)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		if err := model.AutoMigrate(db); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
		journal = audit.New(db, audit.Config{
			QueueSize:     cfg.Journal.QueueSize,
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
		}, logger.Named("journal"))
		logger.Info("journal initialized", zap.String("mode", cfg.Database.Mode))
	}

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	store, err := cache.NewStore(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	defer store.Close()
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	pub := feed.New(store, pubsub, feed.Config{StatusTTL: cfg.Cache.StatusTTL}, logger.Named("feed"))
	logger.Info("cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- World and agent ----
	setup, err := buildWorld(cfg)
	if err != nil {
		log.Fatalf("world: %v", err)
	}
	w := setup.world
	body := player.NewBody(w, setup.spawn, item.NewInventory(setup.items), player.BodyConfig{
		TickRate:     cfg.Engine.TickRate,
		WalkSpeed:    cfg.Agent.WalkSpeed,
		HungerPeriod: player.DefaultBodyConfig().HungerPeriod,
		RegenPeriod:  player.DefaultBodyConfig().RegenPeriod,
		LavaDamage:   player.DefaultBodyConfig().LavaDamage,
		FaunaRadius:  player.DefaultBodyConfig().FaunaRadius,
	})
	if setup.health != nil || setup.hunger != nil {
		st := body.State()
		h, f := st.Health, st.Hunger
		if setup.health != nil {
			h = *setup.health
		}
		if setup.hunger != nil {
			f = *setup.hunger
		}
		body.SetVitals(h, f)
	}
	logger.Info("world ready", zap.String("kind", cfg.World.Kind), zap.Stringer("spawn", setup.spawn))

	// ---- Engine ----
	lim := throttle.Every(cfg.Throttle.Interval)
	opts := cfg.Options()
	var ext backend.Engine
	var remote *sim.Remote
	if cfg.External.Enabled {
		remote = sim.NewRemote(w, body, opts.Search, opts.Backend, cfg.Agent.WalkSpeed, logger.Named("remote"))
		ext = remote
	}
	engine := pilot.Assemble(w, body, ext, opts, logger, lim)
	hooks := hook.NewCenter(logger.Named("hook"))
	hooks.Sink(0, "feed", pub)
	if journal != nil {
		hooks.Sink(1, "journal", journal)
	}
	hooks.Register(hook.Any, 100, "log", hook.LogEvents(logger.Named("events")))
	engine.SetSink(hooks)
	driver := sim.NewDriver(w, body, engine)

	// ---- Scheduler ----
	sched := scheduler.New(logger.Named("scheduler"))
	sched.AddTicker("tick", time.Second/time.Duration(cfg.Engine.TickRate), func(now time.Time) {
		driver.Step(now)
	})
	sched.AddTicker("status_publish", cfg.Server.StatusInterval, func(time.Time) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		st := engine.Status()
		if err := pub.Publish(ctx, st, engine.Render()); err != nil && lim.Allow("main.publish") {
			logger.Warn("status publish failed", zap.Error(err))
		}
		if journal != nil {
			if err := journal.RecordMission(ctx, st); err != nil && lim.Allow("main.mission") {
				logger.Warn("mission summary update failed", zap.Error(err))
			}
		}
	})
	sched.AddTicker("throttle_prune", time.Minute, func(now time.Time) {
		lim.Prune(now.Add(-10 * time.Minute))
	})
	if cfg.Agent.AutoStart {
		sched.AddDelay("auto_start", time.Second, func(now time.Time) {
			if setup.heading >= 0 {
				driver.StartWithHeading(now, world.HeadingFromDegrees(setup.heading))
			} else {
				driver.Start(now)
			}
		})
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger, "/health", "/api/status", "/api/render"), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	pilotH := apirest.NewPilotHandler(driver, pub, journal, logger)
	adminH := apirest.NewAdminHandler(driver, sched, journal, logger)
	if remote != nil {
		adminH.SetRemote(remote)
	}

	api := r.Group("/api")
	{
		api.GET("/status", pilotH.Status)
		api.GET("/render", pilotH.Render)
		api.GET("/events", pilotH.Events)
		api.GET("/missions", pilotH.Missions)
		api.GET("/missions/:id", pilotH.Mission)

		missionG := api.Group("/mission")
		missionG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		missionG.POST("/start", pilotH.StartMission)
		missionG.POST("/stop", pilotH.StopMission)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/vitals", adminH.SetVitals)
		adminG.POST("/external", adminH.SetExternal)
	}

	sseH := sse.NewHandler(pubsub, logger)
	r.GET("/sse", sseH.ServeSSE)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop()
	driver.Stop(time.Now())
	if journal != nil {
		if err := journal.Stop(shutdownCtx); err != nil {
			logger.Warn("journal flush incomplete", zap.Error(err), zap.Uint64("dropped", journal.Dropped()))
		}
	}
}

type worldSetup struct {
	world   player.World
	spawn   world.Coord
	items   map[item.Item]int
	heading float64
	health  *float64
	hunger  *int
}

// buildWorld returns the world to pilot through and the agent's starting
// state. A scenario overrides the agent settings it names.
func buildWorld(cfg *config.Config) (worldSetup, error) {
	wc := cfg.World
	ws := worldSetup{items: cfg.Agent.Items(), heading: wc.Heading}
	switch wc.Kind {
	case "flat":
		ws.world = world.NewFlat(wc.FlatR, wc.FloorY)
		ws.spawn = world.C(wc.SpawnX, wc.FloorY+1, wc.SpawnZ)
	case "scenario":
		sc, err := resource.Load(wc.Scenario)
		if err != nil {
			return ws, err
		}
		ws.world, ws.spawn = sc.Build(), sc.Spawn.Coord()
		if len(sc.Inventory) > 0 {
			ws.items = sc.Items()
		}
		if sc.Heading != nil {
			ws.heading = *sc.Heading
		}
		ws.health, ws.hunger = sc.Health, sc.Hunger
	default:
		t := world.NewTerrain(cfg.Generator)
		ws.world, ws.spawn = t, t.SpawnPoint(wc.SpawnX, wc.SpawnZ)
	}
	return ws, nil
}
