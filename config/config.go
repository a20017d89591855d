package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gamerooms/database"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	GuildID        string // Primary Discord guild ID, commands register globally when empty
	RoomCategoryID string // Parent category for room channels

	// Database configuration
	DatabaseURL      string
	DatabaseName     string
	DatabaseMaxConns int `validate:"gte=1"`

	// Room lifecycle
	// LockTTL bounds how long a crashed creation attempt can block retries
	LockTTL time.Duration `validate:"min=1s"`
	// AFKIdle is the inactivity before the countdown starts, AFKCountdown the
	// window before eviction and AFKTick the announcement interval
	AFKIdle      time.Duration `validate:"min=1s"`
	AFKCountdown time.Duration `validate:"min=1s"`
	AFKTick      time.Duration
	// CloseDelay keeps a finished game readable before its channel is removed
	CloseDelay    time.Duration
	ShutdownGrace time.Duration

	// Games
	GuessMin       int
	GuessMax       int
	GuessPoints    int64 `validate:"gte=0"`
	HighLowPoints  int64 `validate:"gte=0"`
	CountingTarget int   `validate:"gte=2"`
	CountingPoints int64 `validate:"gte=0"`

	// Leaderboard cache
	LeaderboardRefresh time.Duration `validate:"min=1s"`
	LeaderboardSize    int           `validate:"gte=1,lte=1000"`

	// Shared leaderboard cache, in-process cache when RedisAddr is empty
	RedisAddr     string
	RedisPassword string

	// NATS configuration
	NATSServers string // Room lifecycle fan-out, disabled when empty

	// Ops HTTP
	HTTPAddr string

	// Admins allowed to set balances directly
	AdminDiscordIDs []string

	// Logging
	LogLevel string

	// Environment
	Environment string `validate:"oneof=development production test"`
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsAdmin reports whether the Discord user may run administrative commands
func (c *Config) IsAdmin(discordID string) bool {
	for _, id := range c.AdminDiscordIDs {
		if id == discordID {
			return true
		}
	}
	return false
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		GuildID:        os.Getenv("GUILD_ID"),
		RoomCategoryID: os.Getenv("ROOM_CATEGORY_ID"),

		// Database
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DatabaseName:     os.Getenv("DATABASE_NAME"),
		DatabaseMaxConns: 10,

		// Room lifecycle defaults
		LockTTL:       15 * time.Second,
		AFKIdle:       30 * time.Second,
		AFKCountdown:  90 * time.Second,
		AFKTick:       10 * time.Second,
		CloseDelay:    5 * time.Second,
		ShutdownGrace: 10 * time.Second,

		// Games
		GuessMin:       1,
		GuessMax:       100,
		GuessPoints:    10,
		HighLowPoints:  2,
		CountingTarget: 30,
		CountingPoints: 10,

		// Leaderboard
		LeaderboardRefresh: time.Minute,
		LeaderboardSize:    100,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),

		// NATS
		NATSServers: os.Getenv("NATS_SERVERS"),

		// HTTP
		HTTPAddr: getEnvWithDefault("HTTP_ADDR", ":8080"),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	durations := map[string]*time.Duration{
		"LOCK_TTL":            &config.LockTTL,
		"AFK_IDLE":            &config.AFKIdle,
		"AFK_COUNTDOWN":       &config.AFKCountdown,
		"AFK_TICK":            &config.AFKTick,
		"ROOM_CLOSE_DELAY":    &config.CloseDelay,
		"SHUTDOWN_GRACE":      &config.ShutdownGrace,
		"LEADERBOARD_REFRESH": &config.LeaderboardRefresh,
	}
	for key, target := range durations {
		if value := os.Getenv(key); value != "" {
			parsed, err := time.ParseDuration(value)
			if err != nil {
				return nil, fmt.Errorf("invalid %s %q: %w", key, value, err)
			}
			*target = parsed
		}
	}

	ints := map[string]*int{
		"GUESS_MIN":          &config.GuessMin,
		"GUESS_MAX":          &config.GuessMax,
		"COUNTING_TARGET":    &config.CountingTarget,
		"LEADERBOARD_SIZE":   &config.LeaderboardSize,
		"DATABASE_MAX_CONNS": &config.DatabaseMaxConns,
	}
	for key, target := range ints {
		if value := os.Getenv(key); value != "" {
			if parsed, err := strconv.Atoi(value); err == nil {
				*target = parsed
			}
		}
	}

	points := map[string]*int64{
		"GUESS_POINTS":    &config.GuessPoints,
		"HIGHLOW_POINTS":  &config.HighLowPoints,
		"COUNTING_POINTS": &config.CountingPoints,
	}
	for key, target := range points {
		if value := os.Getenv(key); value != "" {
			if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
				*target = parsed
			}
		}
	}

	// Parse admin Discord IDs
	if adminIDs := os.Getenv("ADMIN_DISCORD_IDS"); adminIDs != "" {
		for _, id := range strings.Split(adminIDs, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				config.AdminDiscordIDs = append(config.AdminDiscordIDs, id)
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if config.GuessMin >= config.GuessMax {
		return nil, fmt.Errorf("GUESS_MIN must be below GUESS_MAX")
	}
	if config.AFKTick <= 0 || config.AFKTick > config.AFKCountdown {
		return nil, fmt.Errorf("AFK_TICK must be positive and no longer than AFK_COUNTDOWN")
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:        "test",
		LockTTL:            15 * time.Second,
		AFKIdle:            30 * time.Second,
		AFKCountdown:       90 * time.Second,
		AFKTick:            10 * time.Second,
		CloseDelay:         0,
		ShutdownGrace:      time.Second,
		GuessMin:           1,
		GuessMax:           100,
		GuessPoints:        10,
		HighLowPoints:      2,
		CountingTarget:     30,
		CountingPoints:     10,
		LeaderboardRefresh: time.Minute,
		LeaderboardSize:    100,
		AdminDiscordIDs:    []string{"999999"},
		LogLevel:           "debug",
	}
}
