// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Twilio     TwilioConfig     `mapstructure:"twilio"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Push       PushConfig       `mapstructure:"push"`
	Sweeper    SweeperConfig    `mapstructure:"sweeper"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
	Businesses []Business       `mapstructure:"businesses"`
	AutoReply  AutoReplyConfig  `mapstructure:"autoreply"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type TwilioConfig struct {
	AccountSID     string `mapstructure:"account_sid"`
	AuthToken      string `mapstructure:"auth_token"`
	BaseURL        string `mapstructure:"base_url"`
	OperatorNumber string `mapstructure:"operator_number"`
	Timeout        int    `mapstructure:"timeout"`
}

type AuthConfig struct {
	PIN           string `mapstructure:"pin"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type PushConfig struct {
	VAPIDPublicKey      string               `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey     string               `mapstructure:"vapid_private_key"`
	SubscriptionTTLDays int                  `mapstructure:"subscription_ttl_days"`
	FanoutConcurrency   int                  `mapstructure:"fanout_concurrency"`
	Timeout             int                  `mapstructure:"timeout"`
	CircuitBreaker      CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"`
	Timeout          int     `mapstructure:"timeout"`
	FailureRatio     float64 `mapstructure:"failure_ratio"`
	ConsecutiveFails uint32  `mapstructure:"consecutive_fails"`
}

type SweeperConfig struct {
	IntervalHours int `mapstructure:"interval_hours"`
}

type MiddlewareConfig struct {
	RateLimit      int      `mapstructure:"rate_limit"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Business is one managed phone line. The set is fixed at deploy time.
type Business struct {
	ID        string `mapstructure:"id" json:"id"`
	Name      string `mapstructure:"name" json:"name"`
	ShortName string `mapstructure:"short_name" json:"short_name"`
	Number    string `mapstructure:"number" json:"number"`
	Color     string `mapstructure:"color" json:"color"`
}

// AutoReplyConfig holds the per-number missed-call SMS bodies. Numbers
// without a tailored entry fall back to the generic message.
type AutoReplyConfig struct {
	Messages map[string]string `mapstructure:"messages"`
	Fallback string            `mapstructure:"fallback"`
}

func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 10)
	viper.SetDefault("server.write_timeout", 10)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("twilio.base_url", "https://api.twilio.com/2010-04-01")
	viper.SetDefault("twilio.timeout", 30)
	viper.SetDefault("push.subscription_ttl_days", 30)
	viper.SetDefault("push.fanout_concurrency", 8)
	viper.SetDefault("push.timeout", 10)
	viper.SetDefault("push.circuit_breaker.max_requests", 3)
	viper.SetDefault("push.circuit_breaker.interval", 60)
	viper.SetDefault("push.circuit_breaker.timeout", 60)
	viper.SetDefault("push.circuit_breaker.failure_ratio", 0.6)
	viper.SetDefault("push.circuit_breaker.consecutive_fails", 5)
	viper.SetDefault("sweeper.interval_hours", 6)
	viper.SetDefault("middleware.rate_limit", 100)
	viper.SetDefault("middleware.rate_limit_burst", 1000)
	viper.SetDefault("middleware.enable_cors", true)
	viper.SetDefault("middleware.allowed_origins", []string{"*"})
	viper.SetDefault("autoreply.fallback",
		"Hey, I'm sorry I missed your call! Please reply with what you need and your location and I'll get right back to you. — Costa")

	// Secrets come from the environment in deployment.
	envBindings := map[string]string{
		"twilio.account_sid":     "TWILIO_ACCOUNT_SID",
		"twilio.auth_token":      "TWILIO_AUTH_TOKEN",
		"auth.pin":               "AUTH_PIN",
		"auth.webhook_secret":    "WEBHOOK_SECRET",
		"push.vapid_public_key":  "VAPID_PUBLIC_KEY",
		"push.vapid_private_key": "VAPID_PRIVATE_KEY",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// GetAddr returns the Redis connection address.
func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SubscriptionTTL returns the push-subscription time-to-live.
func (c *Config) SubscriptionTTL() time.Duration {
	return time.Duration(c.Push.SubscriptionTTLDays) * 24 * time.Hour
}

// BusinessByNumber looks up a configured business by its phone number.
func (c *Config) BusinessByNumber(number string) (*Business, bool) {
	for i := range c.Businesses {
		if c.Businesses[i].Number == number {
			return &c.Businesses[i], true
		}
	}
	return nil, false
}

// AutoReplyFor returns the canned missed-call SMS for a dialed number,
// falling back to the generic message when the number has no tailored
// entry.
func (c *Config) AutoReplyFor(number string) string {
	if msg, ok := c.AutoReply.Messages[number]; ok {
		return msg
	}
	return c.AutoReply.Fallback
}
