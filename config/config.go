package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config - runtime configuration read from the environment
type Config struct {
	HTTPAddr    string
	CORSOrigins string

	Database DatabaseConfig

	PathResolution int
	PathSolver     string
	TickInterval   time.Duration
	LayoutFile     string

	EventFlushSize     int
	EventFlushInterval time.Duration

	LogLevel  string
	LogFormat string
}

// DatabaseConfig - gorm connection settings
type DatabaseConfig struct {
	Driver     string // "mysql" | "sqlite"
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

// DSN - MySQL data source name
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// Load reads the configuration. Call godotenv.Load first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":3000"),
		CORSOrigins: getenv("CORS_ORIGINS", "http://localhost:5173, http://localhost:3000"),
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Host:       os.Getenv("MYSQL_HOST"),
			User:       os.Getenv("MYSQL_USER"),
			Password:   os.Getenv("MYSQL_PASSWORD"),
			Name:       os.Getenv("MYSQL_DATABASE"),
			SQLitePath: getenv("SQLITE_PATH", "robotsim.db"),
		},
		PathSolver: getenv("PATH_SOLVER", "dijkstra"),
		LayoutFile: os.Getenv("LAYOUT_FILE"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogFormat:  os.Getenv("LOG_FORMAT"),
	}

	var err error
	if cfg.Database.Port, err = intEnv("MYSQL_PORT", 3306); err != nil {
		return nil, err
	}
	if cfg.PathResolution, err = intEnv("PATH_RESOLUTION", 5); err != nil {
		return nil, err
	}
	if cfg.PathResolution <= 0 {
		return nil, fmt.Errorf("PATH_RESOLUTION must be positive, got %d", cfg.PathResolution)
	}
	if cfg.TickInterval, err = durationEnv("TICK_INTERVAL", 16*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.EventFlushSize, err = intEnv("EVENT_FLUSH_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.EventFlushInterval, err = durationEnv("EVENT_FLUSH_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}

	switch cfg.Database.Driver {
	case "sqlite":
	case "mysql":
		d := cfg.Database
		if d.Host == "" || d.User == "" || d.Password == "" || d.Name == "" {
			return nil, fmt.Errorf("MySQL 환경 변수가 모두 설정되지 않았습니다: MYSQL_HOST, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE")
		}
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
