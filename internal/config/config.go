package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingEnv = errors.New("environment variables not loaded properly")

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	DBSSLMode  string

	AppPort   string
	AppEnv    string
	JWTSecret string

	RedisAddr        string
	KafkaBrokers     []string
	OrderEventsTopic string
	OtelEndpoint     string

	Currency      string
	PaymentExpiry time.Duration
	StorefrontURL string
	LabelBaseURL  string

	Payment PaymentConfig
}

// PaymentConfig carries the credentials of every payment provider.
// Providers listed in Enabled are validated when the registry is built.
type PaymentConfig struct {
	Enabled []string

	PayPalClientID string
	PayPalSecret   string
	StripeSecret   string
	EscrowAPIKey   string

	Gateway GatewayConfig
}

type GatewayConfig struct {
	Alias       string
	SecretKey   string
	PaymentURL  string
	RefundURL   string
	CallbackURL string
	SuccessURL  string
	CancelURL   string
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AppPort:   getEnv("APP_PORT", "8080"),
		AppEnv:    os.Getenv("APP_ENV"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "vinmarket.orders"),
		OtelEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		Currency:      getEnv("CURRENCY", "EUR"),
		PaymentExpiry: 48 * time.Hour,
		StorefrontURL: strings.TrimRight(os.Getenv("STOREFRONT_URL"), "/"),
		LabelBaseURL:  getEnv("LABEL_BASE_URL", "https://labels.vinmarket.local"),

		Payment: PaymentConfig{
			Enabled:        splitList(getEnv("PAYMENT_PROVIDERS", "PAYPAL,STRIPE,ESCROW,BANK_GATEWAY")),
			PayPalClientID: os.Getenv("PAYPAL_CLIENT_ID"),
			PayPalSecret:   os.Getenv("PAYPAL_SECRET"),
			StripeSecret:   os.Getenv("STRIPE_SECRET_KEY"),
			EscrowAPIKey:   os.Getenv("ESCROW_API_KEY"),
			Gateway: GatewayConfig{
				Alias:       os.Getenv("GATEWAY_ALIAS"),
				SecretKey:   os.Getenv("GATEWAY_SECRET_KEY"),
				PaymentURL:  os.Getenv("GATEWAY_PAYMENT_URL"),
				RefundURL:   os.Getenv("GATEWAY_REFUND_URL"),
				CallbackURL: os.Getenv("GATEWAY_CALLBACK_URL"),
				SuccessURL:  os.Getenv("GATEWAY_SUCCESS_URL"),
				CancelURL:   os.Getenv("GATEWAY_CANCEL_URL"),
			},
		},
	}

	if v := os.Getenv("PAYMENT_EXPIRY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.New("invalid PAYMENT_EXPIRY: " + err.Error())
		}
		cfg.PaymentExpiry = d
	}

	if cfg.DBHost == "" || cfg.JWTSecret == "" {
		return nil, ErrMissingEnv
	}

	return cfg, nil
}

// ProviderEnabled reports whether name appears in PAYMENT_PROVIDERS.
func (p PaymentConfig) ProviderEnabled(name string) bool {
	for _, e := range p.Enabled {
		if strings.EqualFold(e, name) {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
