package config

import "time"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Game    GameConfig
	Logging LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Host string
	Env  string // "development" or "production"
}

// GameConfig holds session-lifecycle configuration. Per-game settings
// (rounds, categories, timers) live in the domain with their clamp
// ranges; these are server-side knobs only.
type GameConfig struct {
	RoomCodeLength      int
	StaleSessionTimeout time.Duration
	CleanupInterval     time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
}

// Default returns the baseline configuration; cmd/server overlays
// flags and environment variables on top of it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
			Env:  "development",
		},
		Game: GameConfig{
			RoomCodeLength:      6,
			StaleSessionTimeout: 2 * time.Hour,
			CleanupInterval:     10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return c.Server.Host + ":" + c.Server.Port
}
