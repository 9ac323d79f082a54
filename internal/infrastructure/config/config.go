// Package config loads the charging backend configuration from
// config.toml and CHARGING_-prefixed environment variables, fills in
// defaults, and rejects unsafe combinations before startup continues.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root of all runtime settings.
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Charging  ChargingConfig
	Payment   PaymentConfig
	Billing   BillingConfig
	TMF       TMFConfig
	Kafka     KafkaConfig
	Invoice   InvoiceConfig
	Telemetry TelemetryConfig
}

// AppConfig identifies the process and the port it listens on.
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds PostgreSQL connection and pool settings.
// Lifetime values are minutes.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

// RedisConfig holds the checkout session cache settings.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig selects level ("debug".."error"), format ("json" or
// "console") and output ("stdout", "stderr" or a file path).
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// HTTPConfig holds server timeouts and request limits.
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	TrustedProxies   []string
	CORSAllowOrigins []string
}

// ChargingConfig tunes the charge resolution pipeline.
type ChargingConfig struct {
	GatewayType        string        // gateway used for pending charges
	ChargeTimeout      time.Duration // max wait for the gateway before timing out a charge
	SessionTTL         time.Duration // checkout session retention
	DailySweepHour     int           // hour of day (0-23) for the renovation sweep
	NearExpirationDays int           // days before expiration to start warning customers
	UsagePeriod        string        // settlement period for pay-per-use contracts
}

// PaymentConfig points at the redirect payment gateway.
type PaymentConfig struct {
	APIURL    string
	APIKey    string
	ReturnURL string
	CancelURL string
	Timeout   time.Duration
}

// BillingConfig points at the revenue sharing service.
type BillingConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// TMFConfig holds the TM Forum API endpoints the backend calls out to.
type TMFConfig struct {
	UsageURL     string
	OrderingURL  string
	InventoryURL string
	Timeout      time.Duration
}

// KafkaConfig holds the notification broker settings.
type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// InvoiceConfig holds invoice generation settings.
type InvoiceConfig struct {
	MediaDir string
}

// TelemetryConfig holds the OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // plaintext connection, development only
}

// Load reads config.toml (from the working directory or /app), layers
// CHARGING_-prefixed environment variables on top, fills defaults and
// validates the result. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CHARGING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Charging: ChargingConfig{
			GatewayType:        v.GetString("charging.gateway_type"),
			ChargeTimeout:      v.GetDuration("charging.charge_timeout"),
			SessionTTL:         v.GetDuration("charging.session_ttl"),
			DailySweepHour:     v.GetInt("charging.daily_sweep_hour"),
			NearExpirationDays: v.GetInt("charging.near_expiration_days"),
			UsagePeriod:        v.GetString("charging.usage_period"),
		},
		Payment: PaymentConfig{
			APIURL:    v.GetString("payment.api_url"),
			APIKey:    v.GetString("payment.api_key"),
			ReturnURL: v.GetString("payment.return_url"),
			CancelURL: v.GetString("payment.cancel_url"),
			Timeout:   v.GetDuration("payment.timeout"),
		},
		Billing: BillingConfig{
			URL:     v.GetString("billing.url"),
			APIKey:  v.GetString("billing.api_key"),
			Timeout: v.GetDuration("billing.timeout"),
		},
		TMF: TMFConfig{
			UsageURL:     v.GetString("tmf.usage_url"),
			OrderingURL:  v.GetString("tmf.ordering_url"),
			InventoryURL: v.GetString("tmf.inventory_url"),
			Timeout:      v.GetDuration("tmf.timeout"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: v.GetStringSlice("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		Invoice: InvoiceConfig{
			MediaDir: v.GetString("invoice.media_dir"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}
}

// Zero values count as unset so that defaults apply even when an
// operator exports an empty variable.
func strOr(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func intOr(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

func durOr(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}

func (c *Config) applyDefaults() {
	strOr(&c.App.Name, "charging-backend")
	strOr(&c.App.Env, "development")
	strOr(&c.App.Port, "8006")

	strOr(&c.Database.Host, "localhost")
	intOr(&c.Database.Port, 5432)
	strOr(&c.Database.User, "postgres")
	strOr(&c.Database.DBName, "charging")
	strOr(&c.Database.SSLMode, "disable")
	intOr(&c.Database.MaxOpenConns, 25)
	intOr(&c.Database.MaxIdleConns, 5)
	intOr(&c.Database.ConnMaxLifetime, 60)
	intOr(&c.Database.ConnMaxIdleTime, 30)

	strOr(&c.Redis.Host, "localhost")
	intOr(&c.Redis.Port, 6379)

	strOr(&c.Log.Level, "info")
	strOr(&c.Log.Format, "console")
	strOr(&c.Log.Output, "stdout")

	durOr(&c.HTTP.ReadTimeout, 15*time.Second)
	durOr(&c.HTTP.WriteTimeout, 15*time.Second)
	durOr(&c.HTTP.IdleTimeout, 60*time.Second)
	intOr(&c.HTTP.MaxHeaderBytes, 1<<20)
	if c.HTTP.MaxBodySize == 0 {
		c.HTTP.MaxBodySize = 10 << 20
	}

	strOr(&c.Charging.GatewayType, "redirect")
	durOr(&c.Charging.ChargeTimeout, 5*time.Minute)
	durOr(&c.Charging.SessionTTL, 30*time.Minute)
	intOr(&c.Charging.DailySweepHour, 5)
	intOr(&c.Charging.NearExpirationDays, 7)
	strOr(&c.Charging.UsagePeriod, "monthly")

	durOr(&c.Payment.Timeout, 30*time.Second)
	durOr(&c.Billing.Timeout, 30*time.Second)
	durOr(&c.TMF.Timeout, 30*time.Second)

	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"localhost:9092"}
	}
	strOr(&c.Kafka.Topic, "charging.notifications")

	strOr(&c.Invoice.MediaDir, "./media/invoices")

	strOr(&c.Telemetry.CollectorEndpoint, "localhost:4317")
	if c.Telemetry.SamplingRatio == 0 {
		c.Telemetry.SamplingRatio = 1.0
	}
	strOr(&c.Telemetry.ServiceName, "charging-backend")
	// Telemetry.Insecure stays false unless set, keeping TLS on.
}

func (c *Config) validate() error {
	if err := c.Database.validate(); err != nil {
		return err
	}
	if err := c.Charging.validate(); err != nil {
		return err
	}
	if c.App.Env == "production" {
		if err := c.validateProduction(); err != nil {
			return err
		}
	}
	if r := c.Telemetry.SamplingRatio; r < 0.0 || r > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", r)
	}
	return nil
}

func (d *DatabaseConfig) validate() error {
	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if d.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			d.MaxIdleConns, d.MaxOpenConns)
	}
	return nil
}

func (c *ChargingConfig) validate() error {
	if c.DailySweepHour < 0 || c.DailySweepHour > 23 {
		return fmt.Errorf("charging.daily_sweep_hour must be between 0 and 23, got %d", c.DailySweepHour)
	}
	if c.NearExpirationDays < 0 {
		return fmt.Errorf("charging.near_expiration_days cannot be negative")
	}
	return nil
}

// validateProduction enforces the settings a live deployment must not
// run without. The payment gateway fields are mandatory because every
// committed charge flows through the gateway.
func (c *Config) validateProduction() error {
	if c.Database.Password == "" {
		return fmt.Errorf("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}
	if c.Payment.APIURL == "" {
		return fmt.Errorf("payment.api_url is required in production")
	}
	if c.Payment.APIKey == "" {
		return fmt.Errorf("payment.api_key is required in production")
	}
	if c.Payment.ReturnURL == "" {
		return fmt.Errorf("payment.return_url is required in production")
	}
	return nil
}

// DSN builds a postgres:// connection URL. Credentials are URL-escaped
// so passwords with reserved characters survive intact.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
