package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PaymobConfig carries the gateway credentials injected into the payment flow.
type PaymobConfig struct {
	BaseURL             string
	APIKey              string
	HMACSecret          string
	CardIntegrationID   int
	WalletIntegrationID int
	IframeID            string
	Currency            string
	Timeout             time.Duration
}

// MailConfig configures outbound confirmation email.
type MailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	CORSAllowOrigins    string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	NotificationChannel string
	JWTSecret           string
	Paymob              PaymobConfig
	Mail                MailConfig
	PaymentRateLimit    int
	StalePaymentAge     time.Duration
	StaleSweepSchedule  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("LEARNHUB")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "LearnHub API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("notification.channel", "learnhub")
	v.SetDefault("paymob.base_url", "https://accept.paymob.com")
	v.SetDefault("paymob.currency", "EGP")
	v.SetDefault("paymob.timeout", "15s")
	v.SetDefault("payment.rate_limit", 10)
	v.SetDefault("payment.stale_age", "2h")
	v.SetDefault("payment.sweep_schedule", "@every 30m")
	v.SetDefault("mail.from_name", "LearnHub")

	gatewayTimeout, err := parseDuration(v.GetString("paymob.timeout"), 15*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid paymob timeout: %w", err)
	}

	staleAge, err := parseDuration(v.GetString("payment.stale_age"), 2*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stale payment age: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		NotificationChannel: v.GetString("notification.channel"),
		JWTSecret:           v.GetString("jwt.secret"),
		Paymob: PaymobConfig{
			BaseURL:             strings.TrimRight(v.GetString("paymob.base_url"), "/"),
			APIKey:              v.GetString("paymob.api_key"),
			HMACSecret:          v.GetString("paymob.hmac_secret"),
			CardIntegrationID:   v.GetInt("paymob.card_integration_id"),
			WalletIntegrationID: v.GetInt("paymob.wallet_integration_id"),
			IframeID:            v.GetString("paymob.iframe_id"),
			Currency:            strings.ToUpper(v.GetString("paymob.currency")),
			Timeout:             gatewayTimeout,
		},
		Mail: MailConfig{
			SendGridAPIKey: v.GetString("sendgrid.api_key"),
			FromEmail:      v.GetString("mail.from_email"),
			FromName:       v.GetString("mail.from_name"),
		},
		PaymentRateLimit:   v.GetInt("payment.rate_limit"),
		StalePaymentAge:    staleAge,
		StaleSweepSchedule: v.GetString("payment.sweep_schedule"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.Paymob.HMACSecret == "" {
		return Config{}, fmt.Errorf("paymob hmac secret must be provided")
	}

	if cfg.PaymentRateLimit <= 0 {
		cfg.PaymentRateLimit = 10
	}

	return cfg, nil
}

func parseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}
