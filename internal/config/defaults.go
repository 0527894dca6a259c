package config

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			Source:         "simulated",
			Endpoint:       "http://127.0.0.1:7420",
			SpoolDir:       "spool",
			PollInterval:   "2s",
			MaxInFlight:    2,
			CommandTimeout: "5s",
			StaleAfter:     "10m",
		},
		Simulation: SimulationConfig{
			Agents:  5,
			Cadence: "1.5s",
		},
		World: WorldConfig{
			TileSize: 32,
			Width:    768,
			Height:   512,
		},
		Movement: MovementConfig{
			Speed:     96,
			MaxNodes:  1000,
			Heuristic: "manhattan",
		},
		Camera: CameraConfig{
			MinZoom:         0.5,
			MaxZoom:         3,
			PanMargin:       0.25,
			Animation:       "300ms",
			PersistDebounce: "500ms",
			PanStep:         48,
			ZoomStep:        1.25,
			ViewportWidth:   800,
			ViewportHeight:  600,
		},
		Activity: ActivityConfig{
			Capacity: 50,
			Journal:  true,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "state.db",
		},
		Observer: ObserverConfig{
			Listen:            "127.0.0.1:7421",
			BroadcastInterval: "1s",
		},
		Notifications: NotificationsConfig{
			Terminal: false,
			Toasts:   true,
		},
		Logging: LoggingConfig{
			File: "mobwatch.log",
		},
	}
}
