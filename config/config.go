package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ddevcap/fontprefs/prefs"
)

type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// ExternalURL is the publicly reachable URL of the service. Its origin is
	// allowed to make credentialed cross-origin requests.
	ExternalURL string `env:"EXTERNAL_URL" envDefault:"http://localhost:8080"`
	// CORSOrigins is an additional set of origins (comma-separated) that are
	// allowed to make credentialed cross-origin requests.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	// CookieTTLDays is how many days a saved preference cookie lives.
	CookieTTLDays int `env:"COOKIE_TTL_DAYS" envDefault:"30"`
	// DefaultFontSize is the unit-less font size used until the user saves one.
	DefaultFontSize string `env:"DEFAULT_FONT_SIZE" envDefault:"16"`
	// DefaultFontColor is the font color used until the user saves one.
	DefaultFontColor string `env:"DEFAULT_FONT_COLOR" envDefault:"#000000"`
	// CSSCacheTTL is how long a rendered preference stylesheet is reused.
	CSSCacheTTL time.Duration `env:"CSS_CACHE_TTL" envDefault:"30s"`
	// SaveMaxPerWindow is the number of preference writes allowed per IP
	// within SaveWindow. 0 disables the limit.
	SaveMaxPerWindow int `env:"SAVE_MAX_PER_WINDOW" envDefault:"60"`
	// SaveWindow is the window over which writes are counted.
	SaveWindow time.Duration `env:"SAVE_WINDOW" envDefault:"1m"`
	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	// LogLevel is the minimum slog level (debug, info, warn, error).
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses configuration from environment variables.
// Returns an error if a value cannot be parsed into the expected type.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if cfg.CookieTTLDays <= 0 {
		return Config{}, fmt.Errorf("config: COOKIE_TTL_DAYS must be positive, got %d", cfg.CookieTTLDays)
	}
	return cfg, nil
}

// Defaults returns the default preference values keyed by preference key.
func (c Config) Defaults() map[string]string {
	return map[string]string{
		prefs.KeyFontSize:  c.DefaultFontSize,
		prefs.KeyFontColor: c.DefaultFontColor,
	}
}
