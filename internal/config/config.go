// Package config provides the configuration structures and the loader used by
// every binary of the warranty service.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"
	// Embedded zone database so that Location resolves in minimal images.
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// MinSecretLength is the shortest JWT signing secret accepted at startup.
const MinSecretLength = 32

// Config is the root configuration of the service.
type Config struct {
	Env                     string `yaml:"env" env:"ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	Location                string `yaml:"location" env:"LOCATION" env-default:"Asia/Riyadh"`
	SeedProducts            bool   `yaml:"seed_products" env:"SEED_PRODUCTS"`
	GRPCHealthAddress       string `yaml:"grpc_health_address" env:"GRPC_HEALTH_ADDRESS" env-default:":50051"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Auth                    `yaml:"auth"`
	Scheduler               `yaml:"scheduler"`
}

// HTTPServer holds the listener settings.
type HTTPServer struct {
	AddressHTTP    string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP    time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
	RequestsPerSec float64       `yaml:"requests_per_sec" env-default:"20"`
	RequestsBurst  int           `yaml:"requests_burst" env-default:"40"`
}

// RedisConnection holds the Redis client settings.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user" env:"REDIS_USER"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env-default:"5m"`
}

// RabbitMQ holds the broker settings. An empty URL disables publishing.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url" env:"RABBITMQ_URL"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken holds the session token settings.
type JWTToken struct {
	JWTSecretKey     string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL         time.Duration `yaml:"token_ttl" env-default:"60m"`
	RefreshThreshold time.Duration `yaml:"refresh_threshold" env-default:"10m"`
}

// Auth holds the login throttling settings.
type Auth struct {
	LoginAttemptsPerMinute int `yaml:"login_attempts_per_minute" env-default:"5"`
	LoginBurst             int `yaml:"login_burst" env-default:"5"`
}

// Scheduler holds the expiry notification settings.
type Scheduler struct {
	Interval time.Duration `yaml:"interval" env-default:"12h"`
}

// MustLoad reads the configuration pointed to by CONFIG_PATH and stops the
// process when it is missing or invalid.
func MustLoad() *Config {
	// .env is optional
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load reads and validates the configuration file at path. Environment
// variables override file values.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the required values are present and well formed.
func (c *Config) Validate() error {
	var errs []error

	if c.StorageConnectionString == "" {
		errs = append(errs, errors.New("storage_connection_string is required"))
	} else if err := validateDSN(c.StorageConnectionString); err != nil {
		errs = append(errs, err)
	}

	switch {
	case c.JWTSecretKey == "":
		errs = append(errs, errors.New("jwt_secret_key is required"))
	case len(c.JWTSecretKey) < MinSecretLength:
		errs = append(errs, fmt.Errorf("jwt_secret_key must be at least %d characters", MinSecretLength))
	}

	if c.TokenTTL > 0 && c.RefreshThreshold >= c.TokenTTL {
		errs = append(errs, errors.New("refresh_threshold must be shorter than token_ttl"))
	}

	if _, err := time.LoadLocation(c.Location); err != nil {
		errs = append(errs, fmt.Errorf("location: %w", err))
	}

	return errors.Join(errs...)
}

// TimeLocation returns the configured location for calendar computations.
func (c *Config) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validateDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("storage_connection_string: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("storage_connection_string must use the postgres:// scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("storage_connection_string has no host")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"StorageConnectionString: %s\n"+
			"Location: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"  CacheTTL: %s\n"+
			"RabbitMQ:\n"+
			"  Enabled: %t\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  TokenTTL: %s\n"+
			"  RefreshThreshold: %s\n",
		c.Env,
		redactDSN(c.StorageConnectionString),
		c.Location,
		c.AddressRedis,
		c.DB,
		c.CacheTTL,
		c.RabbitMQURL != "",
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.TokenTTL,
		c.RefreshThreshold,
	)
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<invalid>"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
