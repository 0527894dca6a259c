package config

import "time"

// Config holds the main mobwatch configuration
type Config struct {
	Bridge        BridgeConfig        `toml:"bridge"`
	Simulation    SimulationConfig    `toml:"simulation"`
	World         WorldConfig         `toml:"world"`
	Movement      MovementConfig      `toml:"movement"`
	Camera        CameraConfig        `toml:"camera"`
	Activity      ActivityConfig      `toml:"activity"`
	Storage       StorageConfig       `toml:"storage"`
	Observer      ObserverConfig      `toml:"observer"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
}

type BridgeConfig struct {
	Source           string `toml:"source"`
	Endpoint         string `toml:"endpoint"`
	SpoolDir         string `toml:"spool_dir"`
	PollInterval     string `toml:"poll_interval"`
	MaxInFlight      int    `toml:"max_in_flight"`
	CommandTimeout   string `toml:"command_timeout"`
	StrictSequencing bool   `toml:"strict_sequencing"`
	StaleAfter       string `toml:"stale_after"`
}

type SimulationConfig struct {
	Agents  int    `toml:"agents"`
	Cadence string `toml:"cadence"`
	Seed    int64  `toml:"seed"`
}

type WorldConfig struct {
	MapFile  string  `toml:"map_file"`
	TileSize float64 `toml:"tile_size"`
	Width    float64 `toml:"width"`
	Height   float64 `toml:"height"`
}

type MovementConfig struct {
	Speed     float64 `toml:"speed"`
	MaxNodes  int     `toml:"max_nodes"`
	Heuristic string  `toml:"heuristic"`
}

type CameraConfig struct {
	MinZoom         float64 `toml:"min_zoom"`
	MaxZoom         float64 `toml:"max_zoom"`
	PanMargin       float64 `toml:"pan_margin"`
	Animation       string  `toml:"animation"`
	PersistDebounce string  `toml:"persist_debounce"`
	PanStep         float64 `toml:"pan_step"`
	ZoomStep        float64 `toml:"zoom_step"`
	ViewportWidth   float64 `toml:"viewport_width"`
	ViewportHeight  float64 `toml:"viewport_height"`
}

type ActivityConfig struct {
	Capacity int  `toml:"capacity"`
	Journal  bool `toml:"journal"`
}

type StorageConfig struct {
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type ObserverConfig struct {
	Listen            string `toml:"listen"`
	BroadcastInterval string `toml:"broadcast_interval"`
}

type NotificationsConfig struct {
	Terminal bool `toml:"terminal"`
	Toasts   bool `toml:"toasts"`
}

type LoggingConfig struct {
	File  string `toml:"file"`
	Debug bool   `toml:"debug"`
}

// duration parses s, falling back to def when s is empty, malformed or
// not positive
func duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (b BridgeConfig) PollIntervalDuration() time.Duration {
	return duration(b.PollInterval, 2*time.Second)
}

func (b BridgeConfig) CommandTimeoutDuration() time.Duration {
	return duration(b.CommandTimeout, 5*time.Second)
}

func (b BridgeConfig) StaleAfterDuration() time.Duration {
	return duration(b.StaleAfter, 10*time.Minute)
}

func (s SimulationConfig) CadenceDuration() time.Duration {
	return duration(s.Cadence, 1500*time.Millisecond)
}

func (c CameraConfig) AnimationDuration() time.Duration {
	return duration(c.Animation, 300*time.Millisecond)
}

func (c CameraConfig) PersistDebounceDuration() time.Duration {
	return duration(c.PersistDebounce, 500*time.Millisecond)
}

func (o ObserverConfig) BroadcastIntervalDuration() time.Duration {
	return duration(o.BroadcastInterval, time.Second)
}
