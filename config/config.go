// Package config resolves process configuration once at start-up.
//
// Values come from the environment, optionally seeded from a .env file. Nothing outside
// this package reads os.Getenv for secrets or tunables; the resolved Config is passed
// to the components that need it.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	GinMode        string
	AllowedOrigins []string

	MongoURI     string
	DatabaseName string

	JWTSecret    string
	JWTTTL       time.Duration
	CookieSecure bool
	CookieDomain string

	AdminEmail    string
	AdminPassword string

	Storage StorageConfig
	Mail    MailConfig
	Store   StoreIdentity

	ClientURL string

	Razorpay RazorpayConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Log      LogConfig
}

type StorageConfig struct {
	// Provider is "gcs", "r2" or empty (uploads disabled).
	Provider          string
	GCSBucket         string
	CredentialsFile   string
	R2Bucket          string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Endpoint        string
	R2PublicDomain    string
	MaxUploadSizeMB   int
	MaxProductImages  int
}

type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled reports whether outbound mail is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != "" && m.User != ""
}

// StoreIdentity is printed in the header of every invoice.
type StoreIdentity struct {
	Name    string
	Address string
	Contact string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Currency  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

type LogConfig struct {
	Level      string
	Format     string
	Output     string
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		Port:           v.GetString("PORT"),
		GinMode:        v.GetString("GIN_MODE"),
		AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),

		MongoURI:     v.GetString("MONGODB_URI"),
		DatabaseName: v.GetString("DATABASE_NAME"),

		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTTTL:       time.Duration(v.GetInt("JWT_TTL_HOURS")) * time.Hour,
		CookieSecure: v.GetBool("COOKIE_SECURE"),
		CookieDomain: v.GetString("COOKIE_DOMAIN"),

		AdminEmail:    strings.ToLower(strings.TrimSpace(v.GetString("ADMIN_EMAIL"))),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),

		Storage: StorageConfig{
			Provider:          strings.ToLower(v.GetString("STORAGE_PROVIDER")),
			GCSBucket:         v.GetString("GCS_BUCKET"),
			CredentialsFile:   v.GetString("CREDENTIALS_FILE_LOCATION"),
			R2Bucket:          v.GetString("R2_BUCKET"),
			R2AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			R2SecretAccessKey: v.GetString("R2_SECRET_ACCESS_KEY"),
			R2Endpoint:        v.GetString("R2_ENDPOINT"),
			R2PublicDomain:    strings.TrimRight(v.GetString("R2_PUBLIC_DOMAIN"), "/"),
			MaxUploadSizeMB:   v.GetInt("MAX_UPLOAD_SIZE_MB"),
			MaxProductImages:  v.GetInt("MAX_PROD_IMAGES"),
		},
		Mail: MailConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("MAIL_FROM"),
		},
		Store: StoreIdentity{
			Name:    v.GetString("STORE_NAME"),
			Address: v.GetString("STORE_ADDRESS"),
			Contact: v.GetString("STORE_CONTACT"),
		},
		ClientURL: strings.TrimRight(v.GetString("CLIENT_URL"), "/"),
		Razorpay: RazorpayConfig{
			KeyID:     v.GetString("RAZORPAY_KEY_ID"),
			KeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
			BaseURL:   v.GetString("RAZORPAY_BASE_URL"),
			Currency:  v.GetString("RAZORPAY_CURRENCY"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      time.Duration(v.GetInt("DASHBOARD_CACHE_TTL_SECONDS")) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(v.GetString("KAFKA_BROKERS")),
			OrderTopic: v.GetString("KAFKA_ORDER_TOPIC"),
		},
		Log: LogConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Format:     v.GetString("LOG_FORMAT"),
			Output:     v.GetString("LOG_OUTPUT"),
			FilePath:   v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.User
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.DatabaseName == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive")
	}
	switch c.Storage.Provider {
	case "", "gcs", "r2":
	default:
		return fmt.Errorf("unknown STORAGE_PROVIDER %q", c.Storage.Provider)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DATABASE_NAME", "fashAt")
	v.SetDefault("JWT_TTL_HOURS", 15*24)
	v.SetDefault("COOKIE_SECURE", true)

	v.SetDefault("MAX_UPLOAD_SIZE_MB", 5)
	v.SetDefault("MAX_PROD_IMAGES", 5)

	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)

	v.SetDefault("STORE_NAME", "Fash Alt")
	v.SetDefault("STORE_ADDRESS", "123 Business St, City, Country")
	v.SetDefault("STORE_CONTACT", "Phone: +1234567890 | Email: example@example.com")

	v.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1")
	v.SetDefault("RAZORPAY_CURRENCY", "INR")

	v.SetDefault("DASHBOARD_CACHE_TTL_SECONDS", 60)
	v.SetDefault("KAFKA_ORDER_TOPIC", "orders")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_FILE", "logs/app.log")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 10)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
