package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kasuganosora/voxelpilot/game/ai"
	"github.com/kasuganosora/voxelpilot/game/backend"
	"github.com/kasuganosora/voxelpilot/game/crisis"
	"github.com/kasuganosora/voxelpilot/game/fall"
	"github.com/kasuganosora/voxelpilot/game/item"
	"github.com/kasuganosora/voxelpilot/game/navigator"
	"github.com/kasuganosora/voxelpilot/game/pilot"
	"github.com/kasuganosora/voxelpilot/game/recovery"
	"github.com/kasuganosora/voxelpilot/game/terrain"
	"github.com/kasuganosora/voxelpilot/game/world"
	"github.com/spf13/viper"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Database  DatabaseConfig        `mapstructure:"database"`
	Cache     CacheConfig           `mapstructure:"cache"`
	Security  SecurityConfig        `mapstructure:"security"`
	Journal   JournalConfig         `mapstructure:"journal"`
	Throttle  ThrottleConfig        `mapstructure:"throttle"`
	World     WorldConfig           `mapstructure:"world"`
	Agent     AgentConfig           `mapstructure:"agent"`
	Engine    pilot.Config          `mapstructure:"engine"`
	Search    SearchConfig          `mapstructure:"search"`
	Terrain   terrain.Config        `mapstructure:"terrain"`
	Backend   backend.Config        `mapstructure:"backend"`
	Navigator navigator.Config      `mapstructure:"navigator"`
	Recovery  recovery.Config       `mapstructure:"recovery"`
	Crisis    crisis.Config         `mapstructure:"crisis"`
	Fall      fall.Config           `mapstructure:"fall"`
	Generator world.TerrainConfig   `mapstructure:"generator"`
	External  ExternalBackendConfig `mapstructure:"external"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	// StatusInterval is how often the published status snapshot is refreshed.
	StatusInterval time.Duration `mapstructure:"status_interval"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql | memory
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
	StatusTTL       time.Duration `mapstructure:"status_ttl"`
}

type SecurityConfig struct {
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type JournalConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	QueueSize     int           `mapstructure:"queue_size"`
	BatchSize     int           `mapstructure:"batch_size"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

type ThrottleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// WorldConfig selects the world the host pilots through.
type WorldConfig struct {
	Kind     string  `mapstructure:"kind"`     // terrain | flat | scenario
	Scenario string  `mapstructure:"scenario"` // scenario file, for kind scenario
	FlatR    int     `mapstructure:"flat_radius"`
	FloorY   int     `mapstructure:"floor_y"`
	SpawnX   int     `mapstructure:"spawn_x"`
	SpawnZ   int     `mapstructure:"spawn_z"`
	Heading  float64 `mapstructure:"heading"` // degrees; negative lets the navigator choose
}

// AgentConfig seeds the simulated body.
type AgentConfig struct {
	AutoStart bool           `mapstructure:"auto_start"`
	Inventory map[string]int `mapstructure:"inventory"`
	WalkSpeed float64        `mapstructure:"walk_speed"`
}

// Items converts the configured inventory to item counts. Names are
// checked by Validate.
func (a AgentConfig) Items() map[item.Item]int {
	out := make(map[item.Item]int, len(a.Inventory))
	for name, n := range a.Inventory {
		if i, ok := item.Parse(name); ok {
			out[i] = n
		}
	}
	return out
}

// ExternalBackendConfig enables a mock external navigation engine.
type ExternalBackendConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SearchConfig is the file form of ai.SearchConfig.
type SearchConfig struct {
	Strategy        string        `mapstructure:"strategy"` // full | lightweight
	MaxNodes        int           `mapstructure:"max_nodes"`
	MaxDuration     time.Duration `mapstructure:"max_duration"`
	GoalToleranceSq int           `mapstructure:"goal_tolerance_sq"`
	MaxAscent       int           `mapstructure:"max_ascent"`
	MaxDescent      int           `mapstructure:"max_descent"`
	SafeFall        int           `mapstructure:"safe_fall"`
	FallScanDepth   int           `mapstructure:"fall_scan_depth"`
	AscentCost      float64       `mapstructure:"ascent_cost"`
	DescentCost     float64       `mapstructure:"descent_cost"`
	LiquidCost      float64       `mapstructure:"liquid_cost"`
	VerticalWeight  float64       `mapstructure:"vertical_weight"`
}

// SearchConfig converts to the search package form. Zero fields keep the
// strategy defaults.
func (s SearchConfig) SearchConfig() ai.SearchConfig {
	out := ai.DefaultSearchConfig(ai.ParseStrategy(s.Strategy))
	if s.MaxNodes > 0 {
		out.Budget.MaxNodes = s.MaxNodes
	}
	if s.MaxDuration > 0 {
		out.Budget.MaxDuration = s.MaxDuration
	}
	setInt(&out.GoalToleranceSq, s.GoalToleranceSq)
	setInt(&out.MaxAscent, s.MaxAscent)
	setInt(&out.MaxDescent, s.MaxDescent)
	setInt(&out.SafeFall, s.SafeFall)
	setInt(&out.FallScanDepth, s.FallScanDepth)
	setFloat(&out.AscentCost, s.AscentCost)
	setFloat(&out.DescentCost, s.DescentCost)
	setFloat(&out.LiquidCost, s.LiquidCost)
	setFloat(&out.VerticalWeight, s.VerticalWeight)
	return out
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

// Options maps the engine sections onto the assembler's options.
func (c *Config) Options() pilot.Options {
	return pilot.Options{
		Engine:    c.Engine,
		Search:    c.Search.SearchConfig(),
		Terrain:   c.Terrain,
		Backend:   c.Backend,
		Navigator: c.Navigator,
		Recovery:  c.Recovery,
		Crisis:    c.Crisis,
		Fall:      c.Fall,
	}
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return decode(v)
}

// Default returns the configuration with no file applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults registers a default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.status_interval", "250ms")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/voxelpilot.db")
	v.SetDefault("database.mysql_max_open", 20)
	v.SetDefault("database.mysql_max_idle", 5)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("cache.status_ttl", "10s")
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.queue_size", 1024)
	v.SetDefault("journal.batch_size", 64)
	v.SetDefault("journal.flush_interval", "2s")
	v.SetDefault("throttle.interval", "5s")

	v.SetDefault("world.kind", "terrain")
	v.SetDefault("world.flat_radius", 512)
	v.SetDefault("world.floor_y", 63)
	v.SetDefault("world.spawn_x", 0)
	v.SetDefault("world.spawn_z", 0)
	v.SetDefault("world.heading", -1)
	v.SetDefault("world.scenario", "")
	v.SetDefault("agent.auto_start", false)
	v.SetDefault("agent.walk_speed", 4.3)
	v.SetDefault("agent.inventory", map[string]int{
		"bread":          8,
		"golden_apple":   1,
		"wooden_pickaxe": 1,
		"ender_pearl":    2,
	})
	v.SetDefault("external.enabled", false)

	e := pilot.DefaultConfig()
	v.SetDefault("engine.tick_rate", e.TickRate)
	v.SetDefault("engine.navigation_interval", e.NavigationInterval)

	s := ai.DefaultSearchConfig(ai.StrategyFull)
	v.SetDefault("search.strategy", s.Strategy.String())
	v.SetDefault("search.max_nodes", s.Budget.MaxNodes)
	v.SetDefault("search.max_duration", s.Budget.MaxDuration.String())
	v.SetDefault("search.goal_tolerance_sq", s.GoalToleranceSq)
	v.SetDefault("search.max_ascent", s.MaxAscent)
	v.SetDefault("search.max_descent", s.MaxDescent)
	v.SetDefault("search.safe_fall", s.SafeFall)
	v.SetDefault("search.fall_scan_depth", s.FallScanDepth)
	v.SetDefault("search.ascent_cost", s.AscentCost)
	v.SetDefault("search.descent_cost", s.DescentCost)
	v.SetDefault("search.liquid_cost", s.LiquidCost)
	v.SetDefault("search.vertical_weight", s.VerticalWeight)

	t := terrain.DefaultConfig()
	v.SetDefault("terrain.sample_start", t.SampleStart)
	v.SetDefault("terrain.sample_step", t.SampleStep)
	v.SetDefault("terrain.scan_above", t.ScanAbove)
	v.SetDefault("terrain.scan_ceiling", t.ScanCeiling)
	v.SetDefault("terrain.scan_floor", t.ScanFloor)
	v.SetDefault("terrain.high_ground", t.HighGround)
	v.SetDefault("terrain.low_ground", t.LowGround)

	b := backend.DefaultConfig()
	v.SetDefault("backend.max_failures", b.MaxFailures)
	v.SetDefault("backend.replan_interval", b.ReplanInterval.String())
	v.SetDefault("backend.horizon", b.Horizon)
	v.SetDefault("backend.arrival_sq", b.ArrivalSq)
	v.SetDefault("backend.off_path_sq", b.OffPathSq)
	v.SetDefault("backend.surface_span", b.SurfaceSpan)

	n := navigator.DefaultConfig()
	v.SetDefault("navigator.target_distance", n.TargetDistance)
	v.SetDefault("navigator.waypoint_spacing", n.WaypointSpacing)
	v.SetDefault("navigator.replan_distance", n.ReplanDistance)
	v.SetDefault("navigator.scoring_enabled", n.ScoringEnabled)
	v.SetDefault("navigator.random_candidates", n.RandomCandidates)
	v.SetDefault("navigator.sample_distance", n.SampleDistance)
	v.SetDefault("navigator.away_blend", n.AwayBlend)
	v.SetDefault("navigator.seed", n.Seed)
	v.SetDefault("navigator.probe_distance", n.ProbeDistance)

	r := recovery.DefaultConfig()
	v.SetDefault("recovery.tick_rate", r.TickRate)
	v.SetDefault("recovery.history_capacity", r.HistoryCapacity)
	v.SetDefault("recovery.retention_radius", r.RetentionRadius)
	v.SetDefault("recovery.suffocation_after", r.SuffocationAfter.String())
	v.SetDefault("recovery.stuck_after", r.StuckAfter.String())
	v.SetDefault("recovery.max_recovery_ticks", r.MaxRecoveryTicks)
	v.SetDefault("recovery.backtrack_ticks", r.BacktrackTicks)
	v.SetDefault("recovery.random_walk_ticks", r.RandomWalkTicks)
	v.SetDefault("recovery.arrival_sq", r.ArrivalSq)
	v.SetDefault("recovery.seed", r.Seed)

	c := crisis.DefaultConfig()
	v.SetDefault("crisis.critical_health", c.CriticalHealth)
	v.SetDefault("crisis.critical_hunger", c.CriticalHunger)
	v.SetDefault("crisis.critical_food", c.CriticalFood)
	v.SetDefault("crisis.health_margin", c.HealthMargin)
	v.SetDefault("crisis.hunger_margin", c.HungerMargin)
	v.SetDefault("crisis.food_resolve", c.FoodResolve)
	v.SetDefault("crisis.no_food_hunger", c.NoFoodHunger)
	v.SetDefault("crisis.compound_health", c.CompoundHealth)
	v.SetDefault("crisis.compound_hunger", c.CompoundHunger)
	v.SetDefault("crisis.compound_food", c.CompoundFood)
	v.SetDefault("crisis.compound_resolve_food", c.CompoundResolveFood)
	v.SetDefault("crisis.acute_health", c.AcuteHealth)
	v.SetDefault("crisis.acute_hunger", c.AcuteHunger)
	v.SetDefault("crisis.max_attempts", c.MaxAttempts)
	v.SetDefault("crisis.rearm_after", c.RearmAfter.String())
	v.SetDefault("crisis.reach_sq", c.ReachSq)
	v.SetDefault("crisis.search_turn_ticks", c.SearchTurnTicks)
	v.SetDefault("crisis.scan.shelter_radii", c.Scan.ShelterRadii)
	v.SetDefault("crisis.scan.shelter_angle", c.Scan.ShelterAngle)
	v.SetDefault("crisis.scan.roof_scan", c.Scan.RoofScan)
	v.SetDefault("crisis.scan.dig_radius", c.Scan.DigRadius)
	v.SetDefault("crisis.scan.food_radius", c.Scan.FoodRadius)
	v.SetDefault("crisis.scan.wood_radius", c.Scan.WoodRadius)
	v.SetDefault("crisis.scan.stone_radius", c.Scan.StoneRadius)
	v.SetDefault("crisis.scan.vertical_span", c.Scan.VerticalSpan)
	v.SetDefault("crisis.scan.surface_snap", c.Scan.SurfaceSnap)

	f := fall.DefaultConfig()
	v.SetDefault("fall.enabled", f.Enabled)
	v.SetDefault("fall.min_drop", f.MinDrop)
	v.SetDefault("fall.scan_depth", f.ScanDepth)
	v.SetDefault("fall.min_speed", f.MinSpeed)

	g := world.DefaultTerrainConfig()
	v.SetDefault("generator.seed", g.Seed)
	v.SetDefault("generator.sea_level", g.SeaLevel)
	v.SetDefault("generator.base_height", g.BaseHeight)
	v.SetDefault("generator.amplitude", g.Amplitude)
	v.SetDefault("generator.frequency", g.Frequency)
	v.SetDefault("generator.octaves", g.Octaves)
	v.SetDefault("generator.lava_chance", g.LavaChance)
	v.SetDefault("generator.tree_chance", g.TreeChance)
	v.SetDefault("generator.view_radius", g.ViewRadius)
	v.SetDefault("generator.min_y", g.MinY)
	v.SetDefault("generator.max_y", g.MaxY)
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.Database.Mode {
	case "sqlite", "mysql", "memory":
	default:
		bad("database.mode %q (want sqlite, mysql or memory)", c.Database.Mode)
	}
	if c.Database.Mode == "mysql" && c.Database.MySQLDSN == "" {
		bad("database.mysql_dsn is required in mysql mode")
	}
	switch c.World.Kind {
	case "terrain", "flat":
	case "scenario":
		if c.World.Scenario == "" {
			bad("world.scenario is required for kind scenario")
		}
	default:
		bad("world.kind %q (want terrain, flat or scenario)", c.World.Kind)
	}
	if c.Engine.TickRate <= 0 {
		bad("engine.tick_rate must be positive")
	}
	if c.Engine.NavigationInterval <= 0 {
		bad("engine.navigation_interval must be positive")
	}
	if c.Navigator.TargetDistance <= 0 || c.Navigator.WaypointSpacing <= 0 {
		bad("navigator.target_distance and waypoint_spacing must be positive")
	}
	if c.Navigator.AwayBlend < 0 || c.Navigator.AwayBlend > 1 {
		bad("navigator.away_blend %.2f outside [0,1]", c.Navigator.AwayBlend)
	}
	if c.Recovery.HistoryCapacity <= 0 {
		bad("recovery.history_capacity must be positive")
	}
	if c.Recovery.TickRate != c.Engine.TickRate {
		bad("recovery.tick_rate %d differs from engine.tick_rate %d", c.Recovery.TickRate, c.Engine.TickRate)
	}
	if c.Crisis.HealthMargin <= 0 || c.Crisis.HungerMargin <= 0 {
		bad("crisis margins must be positive so resolution sits above detection")
	}
	if c.Crisis.MaxAttempts <= 0 {
		bad("crisis.max_attempts must be positive")
	}
	if c.Fall.Enabled && (c.Fall.ScanDepth <= c.Fall.MinDrop || c.Fall.MinSpeed <= 0) {
		bad("fall.scan_depth must exceed fall.min_drop and fall.min_speed must be positive")
	}
	if c.Backend.MaxFailures <= 0 {
		bad("backend.max_failures must be positive")
	}
	for name, n := range c.Agent.Inventory {
		if _, ok := item.Parse(name); !ok {
			bad("agent.inventory: unknown item %q", name)
		} else if n < 0 {
			bad("agent.inventory: negative count for %q", name)
		}
	}
	return errors.Join(errs...)
}
