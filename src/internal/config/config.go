package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/api-sage/stable-wallet/src/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=wallet_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultChannelID = "WalletOps"
const defaultChannelKey = "WalletOpsKey001"

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	CORSAllowedOrigins []string

	StoreDriver   string
	DatabaseDSN   string
	MigrationsDir string
	SnapshotPath  string
	PebbleDir     string

	ChannelID  string
	ChannelKey string

	JWTSecret string
	TokenTTL  time.Duration

	FiatToStableRate domain.Rate
	StableToFiatRate domain.Rate
	FiatScale        int32
	StableScale      int32
	WithdrawalPolicy domain.WithdrawalPolicy
	TransferMode     domain.TransferMode

	LoginRateLimit  int
	LoginRateWindow time.Duration
	RedisAddr       string

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads an optional .env file and config.yaml, then environment variables prefixed WALLET_.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("WALLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	fiatToStable, err := domain.ParseRate(v.GetString("conversion.fiat_to_stable_rate"))
	if err != nil {
		return Config{}, fmt.Errorf("conversion.fiat_to_stable_rate: %w", err)
	}

	stableToFiat := fiatToStable.Inverse()
	if raw := strings.TrimSpace(v.GetString("conversion.stable_to_fiat_rate")); raw != "" {
		stableToFiat, err = domain.ParseRate(raw)
		if err != nil {
			return Config{}, fmt.Errorf("conversion.stable_to_fiat_rate: %w", err)
		}
	}

	policy, err := domain.ParseWithdrawalPolicy(v.GetString("withdrawal.policy"))
	if err != nil {
		return Config{}, fmt.Errorf("withdrawal.policy: %w", err)
	}

	mode, err := domain.ParseTransferMode(v.GetString("transfer.mode"))
	if err != nil {
		return Config{}, fmt.Errorf("transfer.mode: %w", err)
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("store.driver")))
	switch driver {
	case "memory", "file", "postgres", "pebble":
	default:
		return Config{}, fmt.Errorf("store.driver: unsupported driver %q", driver)
	}

	secret := strings.TrimSpace(v.GetString("auth.jwt_secret"))
	if len(secret) < 16 {
		return Config{}, fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}

	cfg := Config{
		ServiceName: v.GetString("service_name"),
		Env:         v.GetString("env"),
		LogLevel:    v.GetString("log_level"),

		HTTPAddr:        v.GetString("http.addr"),
		ReadTimeout:     v.GetDuration("http.read_timeout"),
		WriteTimeout:    v.GetDuration("http.write_timeout"),
		ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),

		CORSAllowedOrigins: splitList(v.GetString("http.cors_allowed_origins")),

		StoreDriver:   driver,
		DatabaseDSN:   normalizeConnectionString(v.GetString("store.database_dsn")),
		MigrationsDir: v.GetString("store.migrations_dir"),
		SnapshotPath:  v.GetString("store.snapshot_path"),
		PebbleDir:     v.GetString("store.pebble_dir"),

		ChannelID:  strings.TrimSpace(v.GetString("admin.channel_id")),
		ChannelKey: strings.TrimSpace(v.GetString("admin.channel_key")),

		JWTSecret: secret,
		TokenTTL:  v.GetDuration("auth.token_ttl"),

		FiatToStableRate: fiatToStable,
		StableToFiatRate: stableToFiat,
		FiatScale:        v.GetInt32("conversion.fiat_scale"),
		StableScale:      v.GetInt32("conversion.stable_scale"),
		WithdrawalPolicy: policy,
		TransferMode:     mode,

		LoginRateLimit:  v.GetInt("auth.login_rate_limit"),
		LoginRateWindow: v.GetDuration("auth.login_rate_window"),
		RedisAddr:       strings.TrimSpace(v.GetString("redis.addr")),

		KafkaBrokers: splitList(v.GetString("kafka.brokers")),
		KafkaTopic:   v.GetString("kafka.topic"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "stable-wallet")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("http.cors_allowed_origins", "*")

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.database_dsn", defaultConnectionString)
	v.SetDefault("store.migrations_dir", filepath.Join("src", "migrations"))
	v.SetDefault("store.snapshot_path", "database.json")
	v.SetDefault("store.pebble_dir", "data/ledger")

	v.SetDefault("admin.channel_id", defaultChannelID)
	v.SetDefault("admin.channel_key", defaultChannelKey)

	v.SetDefault("auth.jwt_secret", "change-me-wallet-secret")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.login_rate_limit", 5)
	v.SetDefault("auth.login_rate_window", "1m")

	v.SetDefault("conversion.fiat_to_stable_rate", "1/655")
	v.SetDefault("conversion.stable_to_fiat_rate", "")
	v.SetDefault("conversion.fiat_scale", 2)
	v.SetDefault("conversion.stable_scale", 6)
	v.SetDefault("withdrawal.policy", string(domain.WithdrawalDebitOnly))
	v.SetDefault("transfer.mode", string(domain.TransferModeImmediate))

	v.SetDefault("redis.addr", "")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "wallet.ledger.events")
}

// NewViper returns a viper instance with the service defaults applied and no sources attached.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
