package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "WalletSync"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultShutdownDelay    = 10 * time.Second
	defaultSyncLockTTL      = 30 * time.Second
	defaultSyncPerMinute    = 30
	defaultExplorerTimeout  = 10 * time.Second
	defaultExplorerRate     = 300
	defaultExplorerRetries  = 2
	defaultExplorerPages    = 5
	defaultExplorerPageSize = 100
	defaultWalletCacheTTL   = 5 * time.Minute
	defaultDepositTopic     = "wallet.deposits"
	maxExplorerPageSize     = 100
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
)

// defaultExplorerURLs holds the public etherscan-family endpoint for each network.
var defaultExplorerURLs = map[string]string{
	"ethereum": "https://api.etherscan.io/api",
	"bsc":      "https://api.bscscan.com/api",
	"polygon":  "https://api.polygonscan.com/api",
	"arbitrum": "https://api.arbiscan.io/api",
	"base":     "https://api.basescan.org/api",
	"optimism": "https://api-optimistic.etherscan.io/api",
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	SyncLockTTL    time.Duration
	SyncPerMinute  int
	WebhookSecret  string
	WalletCacheTTL time.Duration
	Explorer       ExplorerConfig
	Kafka          KafkaConfig
}

// ExplorerConfig configures the block-explorer client shared by every network.
type ExplorerConfig struct {
	Timeout    time.Duration
	RateLimit  int // requests per minute
	MaxRetries int
	MaxPages   int
	PageSize   int
	Endpoints  map[string]ExplorerEndpoint
}

// ExplorerEndpoint is the per-network explorer location and credential.
type ExplorerEndpoint struct {
	URL    string
	APIKey string
}

// KafkaConfig enables deposit notifications on a Kafka topic when Brokers is set.
type KafkaConfig struct {
	Brokers      []string
	DepositTopic string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		Explorer: ExplorerConfig{
			Endpoints: make(map[string]ExplorerEndpoint, len(defaultExplorerURLs)),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(os.Getenv("KAFKA_BROKERS")),
			DepositTopic: getEnv("KAFKA_DEPOSIT_TOPIC", defaultDepositTopic),
		},
	}

	if v := os.Getenv(shutdownSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownSecondsEnvVar, err)
		}
		cfg.ShutdownPeriod = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(shutdownDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", shutdownDurationEnvVar, err)
		}
		cfg.ShutdownPeriod = d
	}

	var err error
	if cfg.SyncLockTTL, err = getDuration("SYNC_LOCK_TTL", defaultSyncLockTTL); err != nil {
		return Config{}, err
	}
	if cfg.SyncPerMinute, err = getInt("SYNC_RATE_LIMIT", defaultSyncPerMinute); err != nil {
		return Config{}, err
	}
	if cfg.WalletCacheTTL, err = getDuration("WALLET_CACHE_TTL", defaultWalletCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.Explorer.Timeout, err = getDuration("EXPLORER_TIMEOUT", defaultExplorerTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Explorer.RateLimit, err = getInt("EXPLORER_RATE_LIMIT", defaultExplorerRate); err != nil {
		return Config{}, err
	}
	if cfg.Explorer.MaxRetries, err = getInt("EXPLORER_MAX_RETRIES", defaultExplorerRetries); err != nil {
		return Config{}, err
	}
	if cfg.Explorer.MaxPages, err = getInt("EXPLORER_MAX_PAGES", defaultExplorerPages); err != nil {
		return Config{}, err
	}
	if cfg.Explorer.PageSize, err = getInt("EXPLORER_PAGE_SIZE", defaultExplorerPageSize); err != nil {
		return Config{}, err
	}
	if cfg.Explorer.PageSize < 1 || cfg.Explorer.PageSize > maxExplorerPageSize {
		return Config{}, fmt.Errorf("EXPLORER_PAGE_SIZE must be between 1 and %d", maxExplorerPageSize)
	}
	if cfg.Explorer.MaxPages < 1 {
		return Config{}, fmt.Errorf("EXPLORER_MAX_PAGES must be positive")
	}

	for network, url := range defaultExplorerURLs {
		prefix := "EXPLORER_" + strings.ToUpper(network)
		cfg.Explorer.Endpoints[network] = ExplorerEndpoint{
			URL:    getEnv(prefix+"_URL", url),
			APIKey: os.Getenv(prefix + "_API_KEY"),
		}
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDevelopment reports whether the app runs in a local/dev environment where
// Postgres and Redis may be replaced by in-memory backends.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// ConfiguredNetworks lists the networks that have both an endpoint and an API key.
func (e ExplorerConfig) ConfiguredNetworks() []string {
	networks := make([]string, 0, len(e.Endpoints))
	for name, ep := range e.Endpoints {
		if ep.URL != "" && ep.APIKey != "" {
			networks = append(networks, name)
		}
	}
	return networks
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
