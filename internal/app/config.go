package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/instasupply/internal/mail"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (INSTA_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (INSTA_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string `default:"redis://localhost:6379/0" usage:"Redis URL or host:port (INSTA_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	ImageBaseURL string `default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)" flag:"image-base-url"`
	JWT          JWTConfig
	OTP          OTPConfig
	SMTP         SMTPConfig
	Kafka        KafkaConfig
	Orders       OrdersConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// JWTConfig controls session tokens.
type JWTConfig struct {
	Secret string        `usage:"HMAC secret for session tokens (INSTA_JWT_SECRET or JWT_SECRET)"`
	TTL    time.Duration `default:"168h" usage:"Session token lifetime"`
}

// OTPConfig controls one-time passwords.
type OTPConfig struct {
	TTL        time.Duration `default:"1m" usage:"One-time password lifetime"`
	BcryptCost int           `default:"10" usage:"bcrypt cost for password hashes"`
}

// SMTPConfig controls OTP mail delivery. With no host, codes are logged.
type SMTPConfig struct {
	Host     string `default:"" usage:"SMTP host; empty logs OTPs instead of mailing them"`
	Port     int    `default:"587" usage:"SMTP port"`
	User     string `default:"" usage:"SMTP user"`
	Password string `default:"" usage:"SMTP password"`
	From     string `default:"InstaSupply <no-reply@instasupply.app>" usage:"Sender address"`
}

// KafkaConfig controls the notification event stream. When disabled the API
// writes notifications directly.
type KafkaConfig struct {
	Enabled bool     `default:"false" usage:"Publish notifications to Kafka"`
	Brokers []string `default:"localhost:9092" usage:"Kafka bootstrap brokers"`
	Topic   string   `default:"insta.notifications" usage:"Notification topic"`
	Group   string   `default:"insta-notification-worker" usage:"Worker consumer group"`
	Workers int      `default:"4" usage:"Worker concurrency"`
	Buffer  int      `default:"1024" usage:"Producer queue size"`

	WorkerAddr string `default:"0.0.0.0:8081" usage:"Worker health endpoint address"`
}

// OrdersConfig controls order lifecycle rules.
type OrdersConfig struct {
	StrictTransitions bool `default:"false" usage:"Enforce the order status transition table" flag:"strict-transitions"`
}

// RateLimitConfig controls the per-client fixed window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
	// TrustProxy keys clients by X-Forwarded-For. Leave off unless the API
	// sits behind a proxy that sets it.
	TrustProxy bool `default:"false" usage:"Key rate limits by the proxy supplied client address" flag:"trust-proxy"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// Mail returns the SMTP settings in the form the mailer expects.
func (c SMTPConfig) Mail() mail.Config {
	return mail.Config{
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		From:     c.From,
	}
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "INSTA",
		Files:     []string{"config.yaml", "/etc/insta/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports missing required settings.
func (c *Config) Validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set INSTA_DATABASE_URL or DATABASE_URL")
	case c.JWT.Secret == "":
		return errors.New("JWT secret is required: set INSTA_JWT_SECRET or JWT_SECRET")
	case c.Kafka.Enabled && len(c.Kafka.Brokers) == 0:
		return errors.New("kafka is enabled but no brokers are set")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's INSTA_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if v := os.Getenv("REDIS_URL"); v != "" && os.Getenv("INSTA_REDIS_URL") == "" {
		c.RedisURL = v
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = os.Getenv("JWT_SECRET")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" && os.Getenv("INSTA_KAFKA_BROKERS") == "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}
