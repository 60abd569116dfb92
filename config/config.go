package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Environment string         `json:"environment"`
	Server      ServerConfig   `json:"server"`
	Database    DatabaseConfig `json:"database"`
	Redis       RedisConfig    `json:"redis"`
	Gateways    GatewaysConfig `json:"gateways"`
	Billing     BillingConfig  `json:"billing"`
}

type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

type DatabaseConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	User         string        `json:"user"`
	Password     string        `json:"password"`
	DBName       string        `json:"dbname"`
	SSLMode      string        `json:"sslmode"`
	MaxOpenConns int           `json:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns"`
	MaxLifetime  time.Duration `json:"max_lifetime"`
}

type RedisConfig struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

// GatewaysConfig holds provider credentials. All of them are optional: an
// adapter without credentials reports itself unconfigured and the selector
// routes around it.
type GatewaysConfig struct {
	Stripe   StripeConfig   `json:"stripe"`
	Xendit   XenditConfig   `json:"xendit"`
	Razorpay RazorpayConfig `json:"razorpay"`
	Mock     MockConfig     `json:"mock"`
}

type StripeConfig struct {
	Secret        string `json:"secret"`
	WebhookSecret string `json:"webhook_secret"`
	Sandbox       bool   `json:"sandbox"`
}

type XenditConfig struct {
	Secret        string `json:"secret"`
	CallbackToken string `json:"callback_token"`
}

type RazorpayConfig struct {
	KeyID         string `json:"key_id"`
	KeySecret     string `json:"key_secret"`
	WebhookSecret string `json:"webhook_secret"`
}

type MockConfig struct {
	Enabled       bool   `json:"enabled"`
	WebhookSecret string `json:"webhook_secret"`
}

type BillingConfig struct {
	DefaultProvider string        `json:"default_provider"`
	InvoiceDueDays  int           `json:"invoice_due_days"`
	SweepInterval   time.Duration `json:"sweep_interval"`
	RateLimitRPS    float64       `json:"rate_limit_rps"`
	RateLimitBurst  int           `json:"rate_limit_burst"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	config.Environment = env

	configDir, err := filepath.Abs("config")
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.json")

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}

		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	config.loadFromEnv()
	config.setEnvironmentDefaults()

	return config, nil
}

func (c *Config) loadFromEnv() {
	if host := os.Getenv("DB_HOST"); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Database.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		c.Database.DBName = dbname
	}
	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		c.Database.SSLMode = sslmode
	}

	if host := os.Getenv("REDIS_HOST"); host != "" {
		c.Redis.Host = host
	}
	if port := os.Getenv("REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Redis.Port = p
		}
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}

	if secret := os.Getenv("STRIPE_SECRET"); secret != "" {
		c.Gateways.Stripe.Secret = secret
	}
	if secret := os.Getenv("STRIPE_WEBHOOK_SECRET"); secret != "" {
		c.Gateways.Stripe.WebhookSecret = secret
	}

	if secret := os.Getenv("XENDIT_SECRET"); secret != "" {
		c.Gateways.Xendit.Secret = secret
	}
	if token := os.Getenv("XENDIT_CALLBACK_TOKEN"); token != "" {
		c.Gateways.Xendit.CallbackToken = token
	}

	if keyID := os.Getenv("RAZORPAY_KEY_ID"); keyID != "" {
		c.Gateways.Razorpay.KeyID = keyID
	}
	if keySecret := os.Getenv("RAZORPAY_KEY_SECRET"); keySecret != "" {
		c.Gateways.Razorpay.KeySecret = keySecret
	}
	if secret := os.Getenv("RAZORPAY_WEBHOOK_SECRET"); secret != "" {
		c.Gateways.Razorpay.WebhookSecret = secret
	}

	if enabled := os.Getenv("MOCK_GATEWAY_ENABLED"); enabled != "" {
		c.Gateways.Mock.Enabled = enabled == "true" || enabled == "1"
	}
	if secret := os.Getenv("MOCK_WEBHOOK_SECRET"); secret != "" {
		c.Gateways.Mock.WebhookSecret = secret
	}

	if provider := os.Getenv("DEFAULT_PROVIDER"); provider != "" {
		c.Billing.DefaultProvider = provider
	}
	if days := os.Getenv("INVOICE_DUE_DAYS"); days != "" {
		if d, err := strconv.Atoi(days); err == nil {
			c.Billing.InvoiceDueDays = d
		}
	}
	if interval := os.Getenv("SWEEP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Billing.SweepInterval = d
		}
	}

	if serverPort := os.Getenv("SERVER_PORT"); serverPort != "" {
		c.Server.Port = serverPort
	}
}

func (c *Config) setEnvironmentDefaults() {
	switch c.Environment {
	case "production":
		c.setProductionDefaults()
	case "staging":
		c.setStagingDefaults()
	default: // development
		c.setDevelopmentDefaults()
	}

	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Billing.DefaultProvider == "" {
		c.Billing.DefaultProvider = "stripe"
	}
	if c.Billing.InvoiceDueDays == 0 {
		c.Billing.InvoiceDueDays = 7
	}
	if c.Billing.SweepInterval == 0 {
		c.Billing.SweepInterval = time.Hour
	}
}

func (c *Config) setDevelopmentDefaults() {
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = time.Hour
	}
	if c.Billing.RateLimitRPS == 0 {
		c.Billing.RateLimitRPS = 1000.0
	}
	if c.Billing.RateLimitBurst == 0 {
		c.Billing.RateLimitBurst = 2000
	}
	// Development gets the mock gateway unless explicitly disabled.
	if !c.Gateways.Mock.Enabled && os.Getenv("MOCK_GATEWAY_ENABLED") == "" {
		c.Gateways.Mock.Enabled = true
		if c.Gateways.Mock.WebhookSecret == "" {
			c.Gateways.Mock.WebhookSecret = "dev-mock-secret"
		}
	}
}

func (c *Config) setStagingDefaults() {
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 50
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 12 * time.Hour
	}
	if c.Billing.RateLimitRPS == 0 {
		c.Billing.RateLimitRPS = 500.0
	}
	if c.Billing.RateLimitBurst == 0 {
		c.Billing.RateLimitBurst = 1000
	}
}

func (c *Config) setProductionDefaults() {
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 100
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 20
	}
	if c.Database.MaxLifetime == 0 {
		c.Database.MaxLifetime = time.Hour
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 24 * time.Hour
	}
	if c.Billing.RateLimitRPS == 0 {
		c.Billing.RateLimitRPS = 100.0
	}
	if c.Billing.RateLimitBurst == 0 {
		c.Billing.RateLimitBurst = 200
	}
}

// Validate checks the infrastructure settings. Gateway credentials are
// deliberately not required here: which providers are live is an operational
// choice, and the selector copes with unconfigured adapters.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database port is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
