package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Pricing PricingConfig `mapstructure:"pricing"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// General application configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// Configuration for the API server
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORS configuration
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

// Configuration for the valuation engine
type PricingConfig struct {
	RiskFreeRate    float64 `mapstructure:"risk_free_rate"`
	SimulationPaths int     `mapstructure:"simulation_paths"`
	Seed            int64   `mapstructure:"seed"`
	RandomizeSeed   bool    `mapstructure:"randomize_seed"`
	Workers         int     `mapstructure:"workers"`
	ChunkSize       int     `mapstructure:"chunk_size"`
	WarrantUnits    int     `mapstructure:"warrant_units"`
}

// Configuration for the valuation event publisher
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	QueueSize    int           `mapstructure:"queue_size"`
	Overflow     string        `mapstructure:"overflow"` // drop_oldest, drop_newest, block or reject
	Breaker      BreakerConfig `mapstructure:"breaker"`
}

// Circuit breaker guarding the publisher
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// Configuration for metrics
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// Configuration for Prometheus metrics
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads the configuration from defaults, an optional YAML file and
// PRICER_ environment variables, in increasing precedence. An empty path
// falls back to GetConfigPath; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = GetConfigPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("PRICER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "structured-pricer")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.rate_limit", 100)
	v.SetDefault("api.rate_burst", 200)
	v.SetDefault("api.cors.allowed_origins", []string{"*"})
	v.SetDefault("api.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("api.cors.allowed_headers", []string{"Authorization", "Content-Type"})

	// Pricing defaults
	v.SetDefault("pricing.risk_free_rate", 0.04)
	v.SetDefault("pricing.simulation_paths", 10000)
	v.SetDefault("pricing.seed", 42)
	v.SetDefault("pricing.randomize_seed", false)
	v.SetDefault("pricing.workers", 4)
	v.SetDefault("pricing.chunk_size", 1000)
	v.SetDefault("pricing.warrant_units", 100)

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "pricing.valuations")
	v.SetDefault("kafka.write_timeout", "5s")
	v.SetDefault("kafka.batch_timeout", "10ms")
	v.SetDefault("kafka.queue_size", 1024)
	v.SetDefault("kafka.overflow", "drop_oldest")
	v.SetDefault("kafka.breaker.max_failures", 5)
	v.SetDefault("kafka.breaker.timeout", "30s")
	v.SetDefault("kafka.breaker.max_requests", 1)

	// Metrics defaults
	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.port", 9090)
}

func GetConfigPath() string {
	configPath := os.Getenv("PRICER_CONFIG_PATH")
	if configPath != "" {
		return configPath
	}

	return "./config/config.yaml"
}
