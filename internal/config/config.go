package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	JWTSecret           string
	SignupTokenTTL      time.Duration // observed 1h in the original signup flow
	LoginTokenTTL       time.Duration // observed 30m in the original login flow
	WalletEnforced      bool          // purchase debits the wallet and rejects on insufficient funds
	DefaultPerUserCap   int
	FaucetMaxAmount     float64
	OracleCommand       string
	OracleArgs          []string // passed before the external property id, never through a shell
	OracleTimeout       time.Duration
	OracleMaxOutput     int64
	OracleMaxConcurrent int64
	DatasetPath         string // optional CSV summarized once at startup for the advisor
	GeminiAPIKey        string
	GeminiModel         string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "3001")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SIGNUP_TOKEN_TTL", "1h")
	viper.SetDefault("LOGIN_TOKEN_TTL", "30m")
	viper.SetDefault("WALLET_ENFORCED", true)
	viper.SetDefault("DEFAULT_PER_USER_CAP", 200)
	viper.SetDefault("FAUCET_MAX_AMOUNT", 1000000)
	viper.SetDefault("ORACLE_COMMAND", "python3")
	viper.SetDefault("ORACLE_ARGS", "src/logic/sync_oracle.py")
	viper.SetDefault("ORACLE_TIMEOUT", "30s")
	viper.SetDefault("ORACLE_MAX_OUTPUT_BYTES", 10<<20)
	viper.SetDefault("ORACLE_MAX_CONCURRENT", 4)
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-pro")

	cfg := &Config{
		Env:                 viper.GetString("APP_ENV"),
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		JWTSecret:           viper.GetString("JWT_SECRET"),
		SignupTokenTTL:      viper.GetDuration("SIGNUP_TOKEN_TTL"),
		LoginTokenTTL:       viper.GetDuration("LOGIN_TOKEN_TTL"),
		WalletEnforced:      viper.GetBool("WALLET_ENFORCED"),
		DefaultPerUserCap:   viper.GetInt("DEFAULT_PER_USER_CAP"),
		FaucetMaxAmount:     viper.GetFloat64("FAUCET_MAX_AMOUNT"),
		OracleCommand:       viper.GetString("ORACLE_COMMAND"),
		OracleArgs:          strings.Fields(viper.GetString("ORACLE_ARGS")),
		OracleTimeout:       viper.GetDuration("ORACLE_TIMEOUT"),
		OracleMaxOutput:     viper.GetInt64("ORACLE_MAX_OUTPUT_BYTES"),
		OracleMaxConcurrent: viper.GetInt64("ORACLE_MAX_CONCURRENT"),
		DatasetPath:         strings.TrimSpace(viper.GetString("DATASET_PATH")),
		GeminiAPIKey:        viper.GetString("GEMINI_API_KEY"),
		GeminiModel:         viper.GetString("GEMINI_MODEL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return nil, errors.New("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret"
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
