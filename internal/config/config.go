package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/wayfinder/internal/ai"
	"github.com/udisondev/wayfinder/internal/geo"
	"github.com/udisondev/wayfinder/internal/vitality"
	"github.com/udisondev/wayfinder/internal/zone"
)

// DefaultPath is the config file used when WAYFINDER_CONFIG is unset.
const DefaultPath = "config/wayfinder.yaml"

// PathEnv overrides the config file path.
const PathEnv = "WAYFINDER_CONFIG"

// ErrInvalidConfig wraps every semantic validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Wayfinder holds all configuration for a simulation run.
type Wayfinder struct {
	LogLevel     string        `yaml:"log_level"`
	TickInterval time.Duration `yaml:"tick_interval"` // default: 100ms
	Strategy     string        `yaml:"strategy"`      // astar | greedy

	Grid     GridConfig        `yaml:"grid"`
	Vitality vitality.Settings `yaml:"vitality"`
	Agent    ai.Settings       `yaml:"agent"`

	Agents        []AgentEntry        `yaml:"agents"`
	RecoveryZones []zone.RecoveryZone `yaml:"recovery_zones"`
	Finish        *Rect               `yaml:"finish"` // nil: no finish region

	// MaxTicks stops a headless run after this many ticks (0 = until signal).
	MaxTicks uint64 `yaml:"max_ticks"`

	Database DatabaseConfig `yaml:"database"`
	Trace    TraceConfig    `yaml:"trace"`
	Debug    DebugConfig    `yaml:"debug"`
}

// GridConfig describes the navigable rectangle and its static obstacles.
type GridConfig struct {
	Origin     orb.Point `yaml:"origin"` // center of the rectangle
	ExtentX    float64   `yaml:"extent_x"`
	ExtentZ    float64   `yaml:"extent_z"`
	CellRadius float64   `yaml:"cell_radius"`
	Obstacles  Obstacles `yaml:"obstacles"`
}

// Obstacles lists blocking shapes on the plane.
type Obstacles struct {
	Rects   []Rect   `yaml:"rects"`
	Circles []Circle `yaml:"circles"`
}

// Rect is an axis-aligned rectangle given by two corners.
type Rect struct {
	Min orb.Point `yaml:"min"`
	Max orb.Point `yaml:"max"`
}

// Bound returns the rectangle as an orb.Bound.
func (r Rect) Bound() orb.Bound {
	return orb.Bound{Min: r.Min, Max: r.Max}
}

// Circle is a disc obstacle.
type Circle struct {
	Center orb.Point `yaml:"center"`
	Radius float64   `yaml:"radius"`
}

// AgentEntry spawns one agent.
type AgentEntry struct {
	Name      string     `yaml:"name"`
	Spawn     orb.Point  `yaml:"spawn"`
	Objective *orb.Point `yaml:"objective"` // nil: the agent starts idle
}

// DatabaseConfig holds PostgreSQL connection parameters for the run journal.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// TraceConfig controls the compressed per-tick trace.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// DebugConfig controls the websocket debug export.
type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultWayfinder returns config with sensible defaults: a 20x20 area of
// unit cells and no agents.
func DefaultWayfinder() Wayfinder {
	return Wayfinder{
		LogLevel:     "info",
		TickInterval: 100 * time.Millisecond,
		Strategy:     geo.StrategyAStar.String(),
		Grid: GridConfig{
			Origin:     orb.Point{0, 0},
			ExtentX:    20,
			ExtentZ:    20,
			CellRadius: 0.5,
		},
		Vitality: vitality.DefaultSettings(),
		Agent:    ai.DefaultSettings(),
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "wayfinder",
			Password: "wayfinder",
			DBName:   "wayfinder",
			SSLMode:  "disable",
		},
		Trace: TraceConfig{
			Dir: "trace",
		},
		Debug: DebugConfig{
			Addr: "127.0.0.1:8090",
		},
	}
}

// PathFromEnv returns the config path, honoring WAYFINDER_CONFIG.
func PathFromEnv() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// LoadWayfinder loads config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadWayfinder(path string) (Wayfinder, error) {
	cfg := DefaultWayfinder()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := validateSchema(data); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// SearchStrategy returns the parsed strategy name.
func (c Wayfinder) SearchStrategy() (geo.Strategy, error) {
	return geo.ParseStrategy(c.Strategy)
}

// AgentSettings returns the agent settings with the configured strategy applied.
func (c Wayfinder) AgentSettings() (ai.Settings, error) {
	s := c.Agent
	strategy, err := c.SearchStrategy()
	if err != nil {
		return s, err
	}
	s.Strategy = strategy
	return s, nil
}

// Validate performs the semantic checks the schema cannot express.
func (c Wayfinder) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}

	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("tick_interval must be positive, got %v", c.TickInterval))
	}

	if _, err := c.SearchStrategy(); err != nil {
		errs = append(errs, err)
	}

	if c.Grid.CellRadius <= 0 {
		errs = append(errs, fmt.Errorf("grid.cell_radius must be positive, got %v", c.Grid.CellRadius))
	}
	if c.Grid.ExtentX <= 0 || c.Grid.ExtentZ <= 0 {
		errs = append(errs, fmt.Errorf("grid extents must be positive, got %vx%v", c.Grid.ExtentX, c.Grid.ExtentZ))
	}
	for i, r := range c.Grid.Obstacles.Rects {
		if r.Min[0] > r.Max[0] || r.Min[1] > r.Max[1] {
			errs = append(errs, fmt.Errorf("grid.obstacles.rects[%d]: min exceeds max", i))
		}
	}
	for i, circle := range c.Grid.Obstacles.Circles {
		if circle.Radius <= 0 {
			errs = append(errs, fmt.Errorf("grid.obstacles.circles[%d]: radius must be positive", i))
		}
	}

	if err := c.Vitality.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Agent.Validate(); err != nil {
		errs = append(errs, err)
	} else if c.Agent.HighThreshold > c.Vitality.Max {
		errs = append(errs, fmt.Errorf("agent.high_threshold %v exceeds vitality.max %v",
			c.Agent.HighThreshold, c.Vitality.Max))
	}

	names := make(map[string]struct{}, len(c.Agents))
	for i, a := range c.Agents {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: name is required", i))
			continue
		}
		if _, dup := names[a.Name]; dup {
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate name %q", i, a.Name))
		}
		names[a.Name] = struct{}{}
	}

	ids := make(map[string]struct{}, len(c.RecoveryZones))
	for i, z := range c.RecoveryZones {
		if z.ID == "" {
			errs = append(errs, fmt.Errorf("recovery_zones[%d]: id is required", i))
			continue
		}
		if _, dup := ids[z.ID]; dup {
			errs = append(errs, fmt.Errorf("recovery_zones[%d]: duplicate id %q", i, z.ID))
		}
		ids[z.ID] = struct{}{}
		if z.Radius < 0 {
			errs = append(errs, fmt.Errorf("recovery_zones[%d]: radius must be non-negative", i))
		}
	}

	if c.Finish != nil && (c.Finish.Min[0] > c.Finish.Max[0] || c.Finish.Min[1] > c.Finish.Max[1]) {
		errs = append(errs, errors.New("finish: min exceeds max"))
	}

	if c.Database.Enabled && c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required when the journal is enabled"))
	}
	if c.Trace.Enabled && c.Trace.Dir == "" {
		errs = append(errs, errors.New("trace.dir is required when tracing is enabled"))
	}
	if c.Debug.Enabled && c.Debug.Addr == "" {
		errs = append(errs, errors.New("debug.addr is required when the debug export is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
