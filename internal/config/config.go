package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr          string
	DatabaseURL       string
	RedisAddr         string
	RepoTimeout       time.Duration
	ShutdownTimeout   time.Duration
	LogLevel          string
	OpeningHour       int
	ClosingHour       int
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration
}

// Load reads configuration from the environment, with a local .env file as a
// convenience for development. DatabaseURL empty means run on the in-memory
// store; RedisAddr empty means in-process locking only.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CLINICOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("redis.addr", "")
	v.SetDefault("repo.timeout", "5s")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("clinic.opening_hour", 9)
	v.SetDefault("clinic.closing_hour", 20)

	_ = v.BindEnv("http.addr", "CLINICOPS_HTTP_ADDR", "HTTP_ADDR")
	_ = v.BindEnv("database.url", "CLINICOPS_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("database.max_open_conns", "CLINICOPS_DATABASE_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.max_idle_conns", "CLINICOPS_DATABASE_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.conn_max_lifetime", "CLINICOPS_DATABASE_CONN_MAX_LIFETIME")
	_ = v.BindEnv("database.conn_max_idle_time", "CLINICOPS_DATABASE_CONN_MAX_IDLE_TIME")
	_ = v.BindEnv("redis.addr", "CLINICOPS_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("repo.timeout", "CLINICOPS_REPO_TIMEOUT")
	_ = v.BindEnv("shutdown.timeout", "CLINICOPS_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "CLINICOPS_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("clinic.opening_hour", "CLINICOPS_CLINIC_OPENING_HOUR")
	_ = v.BindEnv("clinic.closing_hour", "CLINICOPS_CLINIC_CLOSING_HOUR")

	repoTimeout, err := time.ParseDuration(v.GetString("repo.timeout"))
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := time.ParseDuration(v.GetString("shutdown.timeout"))
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := time.ParseDuration(v.GetString("database.conn_max_lifetime"))
	if err != nil {
		return Config{}, err
	}
	connMaxIdleTime, err := time.ParseDuration(v.GetString("database.conn_max_idle_time"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		HTTPAddr:          strings.TrimSpace(v.GetString("http.addr")),
		DatabaseURL:       v.GetString("database.url"),
		RedisAddr:         strings.TrimSpace(v.GetString("redis.addr")),
		RepoTimeout:       repoTimeout,
		ShutdownTimeout:   shutdownTimeout,
		LogLevel:          v.GetString("log.level"),
		OpeningHour:       v.GetInt("clinic.opening_hour"),
		ClosingHour:       v.GetInt("clinic.closing_hour"),
		DBMaxOpenConns:    v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:    v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime: connMaxLifetime,
		DBConnMaxIdleTime: connMaxIdleTime,
	}, nil
}
