package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Chains   []ChainConfig  `mapstructure:"chains"`
	Notion   NotionConfig   `mapstructure:"notion"`
	POAP     POAPConfig     `mapstructure:"poap"`
	Gate     GateConfig     `mapstructure:"gate"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MiddlewareTimeout time.Duration `mapstructure:"middleware_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`

	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// ChainConfig describes one supported blockchain: its id, display name,
// block-explorer address URL prefix, and JSON-RPC endpoint for reads.
type ChainConfig struct {
	ID          int64  `mapstructure:"id"`
	Name        string `mapstructure:"name"`
	ExplorerURL string `mapstructure:"explorer_url"`
	RPCURL      string `mapstructure:"rpc_url"`
}

type NotionConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type POAPConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type GateConfig struct {
	ChainTimeout time.Duration   `mapstructure:"chain_timeout"`
	CookieDomain string          `mapstructure:"cookie_domain"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if len(cfg.Chains) == 0 {
		cfg.Chains = DefaultChains()
	}

	return &cfg, nil
}

// DefaultChains returns the built-in supported blockchains
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{ID: 1, Name: "Ethereum Mainnet", ExplorerURL: "https://etherscan.io/address/"},
		{ID: 4, Name: "Ethereum Testnet (Rinkeby)", ExplorerURL: "https://rinkeby.etherscan.io/address/"},
		{ID: 137, Name: "Polygon", ExplorerURL: "https://polygonscan.com/address/"},
		{ID: 80001, Name: "Polygon Testnet (Mumbai)", ExplorerURL: "https://mumbai.polygonscan.com/address/"},
	}
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.middleware_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "tokengate")
	v.SetDefault("database.database", "tokengate")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.access_token_ttl", "15m")

	// Notion
	v.SetDefault("notion.api_url", "https://api.notion.com/v1")
	v.SetDefault("notion.timeout", "15s")

	// POAP
	v.SetDefault("poap.api_url", "https://api.poap.xyz")
	v.SetDefault("poap.timeout", "10s")

	// Gate
	v.SetDefault("gate.chain_timeout", "10s")
	v.SetDefault("gate.rate_limit.requests_per_minute", 30)
	v.SetDefault("gate.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.password", "POSTGRES_PASSWORD")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// External APIs
	v.BindEnv("notion.api_key", "NOTION_API_KEY")
	v.BindEnv("notion.api_url", "NOTION_API_URL")
	v.BindEnv("poap.api_url", "POAP_API_URL")

	// Gate
	v.BindEnv("gate.cookie_domain", "COOKIE_DOMAIN")
}
