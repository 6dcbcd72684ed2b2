package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port int `toml:"port"`

	// Key-value store
	Store         string        `toml:"store"` // redis or memory
	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	StoreTimeout  time.Duration `toml:"store_timeout"`

	// Archive database
	DatabaseType string `toml:"database_type"` // sqlite or postgres
	DatabaseURL  string `toml:"database_url"`

	// Stats and retention
	StatsFile       string        `toml:"stats_file"`
	RetentionWindow time.Duration `toml:"retention_window"`
	RetentionCron   string        `toml:"retention_cron"`
	StatsSyncCron   string        `toml:"stats_sync_cron"`
	DailyStatsCron  string        `toml:"daily_stats_cron"`

	StarsRepo    string        `toml:"stars_repo"`
	StarsRefresh time.Duration `toml:"stars_refresh"`

	CORSOrigins []string `toml:"cors_origins"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	ConfigFile string `toml:"-"`
}

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"

	defaultSQLiteURL = "file:data/archive.db"
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Port:            5001,
		Store:           StoreRedis,
		RedisAddr:       "localhost:6379",
		StoreTimeout:    3 * time.Second,
		DatabaseType:    "sqlite",
		StatsFile:       "data/stats.json",
		RetentionWindow: 7 * 24 * time.Hour,
		RetentionCron:   "0 0 4 * * *",
		StatsSyncCron:   "0 */5 * * * *",
		DailyStatsCron:  "0 0 0 * * *",
		StarsRepo:       "htuzel/ama-flalingo",
		StarsRefresh:    6 * time.Hour,
		CORSOrigins:     []string{"http://localhost:3000"},
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// LoadDotEnv loads variables from .env files into the environment without
// overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ParseFlags builds the configuration. Precedence, highest first:
// flags, environment, the TOML file from -config or ASKANY_CONFIG, defaults.
func ParseFlags(args []string) (Config, error) {
	// First pass only locates the config file.
	probe := Defaults()
	pfs := newFlagSet(&probe)
	pfs.SetOutput(io.Discard)
	if err := pfs.Parse(args); err != nil {
		cfg := Defaults()
		return Config{}, newFlagSet(&cfg).Parse(args)
	}

	cfg := Defaults()
	cfg.ConfigFile = probe.ConfigFile
	if cfg.ConfigFile == "" {
		cfg.ConfigFile = os.Getenv("ASKANY_CONFIG")
	}
	if cfg.ConfigFile != "" {
		if _, err := toml.DecodeFile(cfg.ConfigFile, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", cfg.ConfigFile, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	// Flags were already validated by the probe; this pass lets them win.
	if err := newFlagSet(&cfg).Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.DatabaseURL == "" && cfg.DatabaseType == "sqlite" {
		cfg.DatabaseURL = defaultSQLiteURL
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newFlagSet(cfg *Config) *flag.FlagSet {
	fs := flag.NewFlagSet("askany", flag.ContinueOnError)

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "TOML config file")
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")

	fs.StringVar(&cfg.Store, "store", cfg.Store, "Key-value store (redis or memory)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address host:port")
	fs.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password (prefer env)")
	fs.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database number")
	fs.DurationVar(&cfg.StoreTimeout, "store-timeout", cfg.StoreTimeout, "Timeout for each store call")

	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Archive database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Archive database type (sqlite or postgres)")

	fs.StringVar(&cfg.StatsFile, "stats-file", cfg.StatsFile, "Durable stats snapshot path")
	fs.DurationVar(&cfg.RetentionWindow, "retention", cfg.RetentionWindow, "Session retention window")
	fs.StringVar(&cfg.RetentionCron, "retention-cron", cfg.RetentionCron, "Retention sweep schedule (cron with seconds)")
	fs.StringVar(&cfg.StatsSyncCron, "stats-sync-cron", cfg.StatsSyncCron, "Stats file sync schedule")
	fs.StringVar(&cfg.DailyStatsCron, "daily-stats-cron", cfg.DailyStatsCron, "Daily stats snapshot schedule")

	fs.StringVar(&cfg.StarsRepo, "stars-repo", cfg.StarsRepo, "GitHub repository owner/name for the star count")
	fs.DurationVar(&cfg.StarsRefresh, "stars-refresh", cfg.StarsRefresh, "Star count refresh interval")

	fs.Var((*stringList)(&cfg.CORSOrigins), "cors-origins", "Comma-separated allowed CORS origins")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text or json)")
	return fs
}

func applyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s env variable", name)
		}
		*dst = n
		return nil
	}
	dur := func(name string, dst *time.Duration) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s env variable", name)
		}
		*dst = d
		return nil
	}

	if err := num("PORT", &cfg.Port); err != nil {
		return err
	}
	str("ASKANY_STORE", &cfg.Store)

	// REDIS_HOST/REDIS_PORT are accepted for older deployments.
	if host := os.Getenv("REDIS_HOST"); host != "" {
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		cfg.RedisAddr = host + ":" + port
	}
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	if err := num("REDIS_DB", &cfg.RedisDB); err != nil {
		return err
	}
	if err := dur("STORE_TIMEOUT", &cfg.StoreTimeout); err != nil {
		return err
	}

	str("DATABASE_TYPE", &cfg.DatabaseType)
	str("DATABASE_URL", &cfg.DatabaseURL)

	str("STATS_FILE", &cfg.StatsFile)
	if err := dur("RETENTION_WINDOW", &cfg.RetentionWindow); err != nil {
		return err
	}
	str("RETENTION_CRON", &cfg.RetentionCron)
	str("STATS_SYNC_CRON", &cfg.StatsSyncCron)
	str("DAILY_STATS_CRON", &cfg.DailyStatsCron)

	str("STARS_REPO", &cfg.StarsRepo)
	if err := dur("STARS_REFRESH", &cfg.StarsRefresh); err != nil {
		return err
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Store != StoreRedis && c.Store != StoreMemory {
		return fmt.Errorf("unknown store %q (use redis or memory)", c.Store)
	}
	if c.Store == StoreRedis && c.RedisAddr == "" {
		return errors.New("redis address required (use -redis-addr or REDIS_ADDR env)")
	}
	if c.StoreTimeout <= 0 {
		return errors.New("store timeout must be positive")
	}
	switch c.DatabaseType {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return errors.New("database URL required for postgres (use -d or DATABASE_URL env)")
		}
	default:
		return fmt.Errorf("unknown database type %q (use sqlite or postgres)", c.DatabaseType)
	}
	if c.RetentionWindow <= 0 {
		return errors.New("retention window must be positive")
	}
	if c.StarsRefresh <= 0 {
		return errors.New("stars refresh interval must be positive")
	}
	if c.StatsFile == "" {
		return errors.New("stats file path required")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unknown log format %q (use text or json)", c.LogFormat)
	}
	return nil
}

func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// Logger builds the process logger described by the config.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = splitList(v)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
