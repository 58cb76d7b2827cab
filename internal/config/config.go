package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/davidbz/basalt/internal/transport/bedrock"
)

// Config represents the service configuration.
type Config struct {
	Server    ServerConfig
	CORS      CORSConfig
	Transport TransportConfig
	Bedrock   bedrock.Config
	Cache     CacheConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"300"`
}

// CORSConfig contains CORS policy settings.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// TransportConfig selects which ModelInvoker the container wires in.
type TransportConfig struct {
	// Mode is "bedrock" for the live AWS transport or "echo" for the
	// in-memory development transport.
	Mode string `env:"TRANSPORT_MODE" envDefault:"bedrock"`
}

// CacheConfig contains response cache settings.
type CacheConfig struct {
	Enabled  bool   `env:"CACHE_ENABLED"        envDefault:"false"`
	Addr     string `env:"CACHE_REDIS_ADDR"     envDefault:"localhost:6379"`
	Password string `env:"CACHE_REDIS_PASSWORD"`
	DB       int    `env:"CACHE_REDIS_DB"       envDefault:"0"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*TransportConfig
	*bedrock.Config
	*CacheConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Transport,
		&cfg.Bedrock,
		&cfg.Cache,
	}
}
