package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// FileConfig mirrors the JSON config layout. Durations are millisecond
// integers except the rate window, which is whole seconds.
type FileConfig struct {
	Server    ServerConfig    `json:"server"`
	Engine    EngineConfig    `json:"engine"`
	Router    RouterConfig    `json:"router"`
	Storage   StorageConfig   `json:"storage"`
	Profiling ProfilingConfig `json:"profiling"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// EngineConfig tunes the queue, the worker pool, and the retry policy.
type EngineConfig struct {
	QueueSize         int `json:"queueSize"`
	Concurrency       int `json:"concurrency"`
	RateLimit         int `json:"rateLimit"`
	RateWindowSeconds int `json:"rateWindowSeconds"`
	MaxAttempts       int `json:"maxAttempts"`
	BackoffBaseMs     int `json:"backoffBaseMs"`
	BackoffMaxMs      int `json:"backoffMaxMs"`
	BuildDelayMs      int `json:"buildDelayMs"`
	RouteTimeoutMs    int `json:"routeTimeoutMs"`
	SwapTimeoutMs     int `json:"swapTimeoutMs"`
}

// RouterConfig selects and tunes the routing backend.
type RouterConfig struct {
	Mode            string  `json:"mode"`
	Seed            int64   `json:"seed"`
	QuoteFailRate   float64 `json:"quoteFailRate"`
	SwapRejectRate  float64 `json:"swapRejectRate"`
	SwapNetworkRate float64 `json:"swapNetworkRate"`
	Endpoint        string  `json:"endpoint"`
	Wallet          string  `json:"wallet"`
	FeeFloor        float64 `json:"feeFloor"`
}

// StorageConfig points the durable journal at postgres. Disabled means
// jobs live only in memory.
type StorageConfig struct {
	Enabled    bool   `json:"enabled"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	User       string `json:"user"`
	Password   string `json:"password"`
	Database   string `json:"database"`
	ConnString string `json:"connString"`
}

// ProfilingConfig enables continuous profiling.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
	AppName       string `json:"appName"`
}

// Router backend modes.
const (
	RouterModeSimulated = "simulated"
	RouterModeLive      = "live"
)

// Default applies the stock configuration.
func Default() FileConfig {
	return FileConfig{
		Server: ServerConfig{Addr: ":8080"},
		Engine: EngineConfig{
			QueueSize:         256,
			Concurrency:       10,
			RateLimit:         100,
			RateWindowSeconds: 60,
			MaxAttempts:       3,
			BackoffBaseMs:     1000,
			BackoffMaxMs:      30000,
			BuildDelayMs:      500,
			RouteTimeoutMs:    5000,
			SwapTimeoutMs:     60000,
		},
		Router: RouterConfig{Mode: RouterModeSimulated},
	}
}

// Load reads the JSON config file over the defaults. An empty path keeps
// the defaults untouched.
func Load(path string) (FileConfig, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c FileConfig) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is empty")
	}
	e := c.Engine
	if e.QueueSize <= 0 {
		return fmt.Errorf("engine.queueSize must be > 0")
	}
	if e.Concurrency <= 0 {
		return fmt.Errorf("engine.concurrency must be > 0")
	}
	if e.RateLimit < 0 {
		return fmt.Errorf("engine.rateLimit must be >= 0")
	}
	if e.RateLimit > 0 && e.RateWindowSeconds <= 0 {
		return fmt.Errorf("engine.rateWindowSeconds must be > 0 when rate limiting")
	}
	if e.MaxAttempts <= 0 {
		return fmt.Errorf("engine.maxAttempts must be > 0")
	}
	if e.BackoffBaseMs <= 0 || e.BackoffMaxMs < e.BackoffBaseMs {
		return fmt.Errorf("engine backoff range is invalid")
	}
	switch c.Router.Mode {
	case RouterModeSimulated:
	case RouterModeLive:
		if c.Router.Endpoint == "" {
			return fmt.Errorf("router.endpoint is required in live mode")
		}
	default:
		return fmt.Errorf("router.mode must be %q or %q", RouterModeSimulated, RouterModeLive)
	}
	return nil
}

// RateWindow returns the limiter window as a duration.
func (e EngineConfig) RateWindow() time.Duration {
	return time.Duration(e.RateWindowSeconds) * time.Second
}

// BackoffBase returns the first retry delay.
func (e EngineConfig) BackoffBase() time.Duration {
	return time.Duration(e.BackoffBaseMs) * time.Millisecond
}

// BackoffMax returns the retry delay ceiling.
func (e EngineConfig) BackoffMax() time.Duration {
	return time.Duration(e.BackoffMaxMs) * time.Millisecond
}

// BuildDelay returns the transaction build pause.
func (e EngineConfig) BuildDelay() time.Duration {
	return time.Duration(e.BuildDelayMs) * time.Millisecond
}

// RouteTimeout returns the price-discovery deadline.
func (e EngineConfig) RouteTimeout() time.Duration {
	return time.Duration(e.RouteTimeoutMs) * time.Millisecond
}

// SwapTimeout returns the settlement deadline.
func (e EngineConfig) SwapTimeout() time.Duration {
	return time.Duration(e.SwapTimeoutMs) * time.Millisecond
}
