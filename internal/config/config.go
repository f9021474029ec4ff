package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Session  SessionConfig  `mapstructure:"session"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr               string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	MaxMultipartMemory int64         `mapstructure:"max_multipart_memory_mb" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=trace debug info warn warning error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type StorageConfig struct {
	Backend string          `mapstructure:"backend" validate:"required,oneof=local s3"`
	Local   LocalConfig     `mapstructure:"local"`
	S3      S3StorageConfig `mapstructure:"s3"`
}

type LocalConfig struct {
	Root string `mapstructure:"root"`
}

type S3StorageConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type AWSConfig struct {
	Profile string `mapstructure:"profile"`
}

type SessionConfig struct {
	Backend      string        `mapstructure:"backend" validate:"required,oneof=memory redis jwt"`
	TTL          time.Duration `mapstructure:"ttl" validate:"gt=0"`
	CookieName   string        `mapstructure:"cookie_name" validate:"required"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type AuthConfig struct {
	BcryptCost         int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	MinPasswordLength  int    `mapstructure:"min_password_length" validate:"gte=1,lte=72"`
	AllowRoleSelection bool   `mapstructure:"allow_role_selection"`
	AdminUsername      string `mapstructure:"admin_username"`
	AdminPassword      string `mapstructure:"admin_password"`
}

type SweeperConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
	Grace    time.Duration `mapstructure:"grace" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("DBDRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_multipart_memory_mb", 32)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.path", "data/dbdrive.db")
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.root", "data/uploads")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "dbdrive")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("aws.profile", "")
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookie_name", "dbdrive_session")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("session.jwt_secret", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.min_password_length", 3)
	v.SetDefault("auth.allow_role_selection", false)
	v.SetDefault("auth.admin_username", "")
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("sweeper.interval", 10*time.Minute)
	v.SetDefault("sweeper.grace", time.Hour)
	v.SetDefault("metrics.enabled", true)
}

func normalize(cfg *Config) {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
	cfg.Storage.S3.Prefix = strings.Trim(cfg.Storage.S3.Prefix, "/")
	cfg.Auth.AdminUsername = strings.TrimSpace(cfg.Auth.AdminUsername)
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
