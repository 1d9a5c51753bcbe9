package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	// StatementTimeout is applied to every pooled connection; zero leaves the server default.
	StatementTimeout time.Duration
	AutoMigrate      bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type StorageConfig struct {
	Endpoint        string
	AccessKey       string
	SecretKey       string
	BucketResources string
	UseSSL          bool
	Region          string
}

type SecurityConfig struct {
	JWTAccessSecret  string
	JWTAccessTTL     time.Duration
	JWTRefreshTTL    time.Duration
	SignatureSecret  string
	SignatureKeyID   string
	SignatureSkew    time.Duration
	CredentialPepper string
	MaxSessions      int
}

type VaultConfig struct {
	Backend        string
	OTPTTL         time.Duration
	TokenTTL       time.Duration
	OTPAttempts    int
	ResendLimit    int
	ResendWindow   time.Duration
	RedisKeyPrefix string
}

type PaymentsConfig struct {
	Provider            string
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeURL           string
	Timeout             time.Duration
}

type JobsConfig struct {
	Enabled    bool
	ExpireSpec string
	PurgeSpec  string
}

type QueueConfig struct {
	Stream            string
	Group             string
	Consumer          string
	VisibilityTimeout time.Duration
	ClaimInterval     time.Duration
	MaxLen            int64
}

type ContentConfig struct {
	PreviewRunes int
	DownloadTTL  time.Duration
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	TLS              TLSConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Vault            VaultConfig
	Payments         PaymentsConfig
	Jobs             JobsConfig
	Queue            QueueConfig
	Content          ContentConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("CONTENTGATE")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "mapstructure"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func (c *AppConfig) validate() error {
	switch c.Vault.Backend {
	case "postgres", "redis":
	default:
		return fmt.Errorf("vault.backend must be postgres or redis, got %q", c.Vault.Backend)
	}
	switch c.Payments.Provider {
	case "stripe", "sandbox":
	default:
		return fmt.Errorf("payments.provider must be stripe or sandbox, got %q", c.Payments.Provider)
	}
	if c.Environment == "production" {
		if c.Security.JWTAccessSecret == "" || c.Security.CredentialPepper == "" {
			return fmt.Errorf("security.jwtaccesssecret and security.credentialpepper are required in production")
		}
		if c.Payments.Provider == "sandbox" {
			return fmt.Errorf("sandbox payments are not allowed in production")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.statementtimeout", "15s")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.bucketresources", "contentgate-resources")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("security.jwtaccessttl", "15m")
	v.SetDefault("security.jwtrefreshttl", "720h") // 30 days
	v.SetDefault("security.signaturekeyid", "payments")
	v.SetDefault("security.signatureskew", "5m")
	v.SetDefault("security.maxsessions", 10)

	v.SetDefault("vault.backend", "postgres")
	v.SetDefault("vault.otpttl", "10m")
	v.SetDefault("vault.tokenttl", "5m")
	v.SetDefault("vault.otpattempts", 5)
	v.SetDefault("vault.resendlimit", 3)
	v.SetDefault("vault.resendwindow", "10m")
	v.SetDefault("vault.rediskeyprefix", "cred")

	v.SetDefault("payments.provider", "sandbox")
	v.SetDefault("payments.timeout", "5s")

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.expirespec", "0 * * * * *")
	v.SetDefault("jobs.purgespec", "0 0 * * * *")

	v.SetDefault("queue.stream", "notifications")
	v.SetDefault("queue.maxlen", 10000)

	v.SetDefault("content.previewrunes", 200)
	v.SetDefault("content.downloadttl", "15m")
}
