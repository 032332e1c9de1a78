package config

import (
	"fmt"
	"os"

	"strings"

	httpapi "github.com/driftlabs/waitlist-api/internal/api/http"
	"github.com/driftlabs/waitlist-api/internal/crypt"
	"github.com/driftlabs/waitlist-api/internal/mail"
	"github.com/driftlabs/waitlist-api/internal/ratelimit"
	"github.com/driftlabs/waitlist-api/internal/store"
	"github.com/driftlabs/waitlist-api/log"
	"github.com/spf13/viper"
)

// Config represents the global configuration for the service.
type Config struct {
	DB     store.Config     `mapstructure:"mysql"`
	Logger log.Config       `mapstructure:"logger"`
	HTTP   httpapi.Config   `mapstructure:"http"`
	Redis  ratelimit.Config `mapstructure:"redis"`
	Crypto crypt.Config     `mapstructure:"crypto"`
	Mailer mail.Config      `mapstructure:"mailer"`
}

// LoadConfig loads the configuration from a file and/or environment variables.
// Environment variables take precedence over config file values.
func LoadConfig(cfgFile string) (*Config, error) {
	viper.SetConfigType("toml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	bindEnvVars()

	// Config file is optional - the service can run on env vars alone
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %v", err)
			}
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("$HOME/config/waitlist-api")
		viper.AddConfigPath("/etc/waitlist-api")
		_ = viper.ReadInConfig()
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config into struct: %v", err)
	}

	// Build the MySQL DSN from individual env vars if it is not set directly
	if config.DB.DSN == "" {
		host := os.Getenv("MYSQL_HOST")
		port := os.Getenv("MYSQL_PORT")
		user := os.Getenv("MYSQL_USER")
		password := os.Getenv("MYSQL_PASSWORD")
		database := os.Getenv("MYSQL_DATABASE")

		if host != "" && user != "" && password != "" && database != "" {
			if port == "" {
				port = "3306"
			}
			config.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8&parseTime=true",
				user, password, host, port, database)
		}
	}

	return &config, nil
}

// bindEnvVars binds environment variables to config keys so that flat names
// like MYSQL_DSN work alongside the nested MYSQL__DSN form.
func bindEnvVars() {
	// MySQL
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.automigrate", "MYSQL_AUTOMIGRATE")
	viper.BindEnv("mysql.max_open_connections", "MYSQL_MAX_OPEN_CONNECTIONS")
	viper.BindEnv("mysql.max_idle_connections", "MYSQL_MAX_IDLE_CONNECTIONS")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.add_source", "LOG_ADD_SOURCE")

	// HTTP
	viper.BindEnv("http.port", "HTTP_PORT")
	viper.BindEnv("http.address", "HTTP_ADDRESS")
	viper.BindEnv("http.allowed_origins", "HTTP_ALLOWED_ORIGINS")
	viper.BindEnv("http.debug_bypass", "HTTP_DEBUG_BYPASS")
	viper.BindEnv("http.signup_policy", "HTTP_SIGNUP_POLICY")
	viper.BindEnv("http.count_fallback", "HTTP_COUNT_FALLBACK")

	// Redis rate limit backend
	viper.BindEnv("redis.url", "REDIS_URL")

	// Crypto
	viper.BindEnv("crypto.encryption_key", "CRYPTO_ENCRYPTION_KEY")
	viper.BindEnv("crypto.hash_secret", "CRYPTO_HASH_SECRET")

	// Mailer
	viper.BindEnv("mailer.sendgrid_api_key", "MAILER_SENDGRID_API_KEY")
	viper.BindEnv("mailer.resend_api_key", "MAILER_RESEND_API_KEY")
	viper.BindEnv("mailer.smtp_host", "MAILER_SMTP_HOST")
	viper.BindEnv("mailer.smtp_port", "MAILER_SMTP_PORT")
	viper.BindEnv("mailer.smtp_username", "MAILER_SMTP_USERNAME")
	viper.BindEnv("mailer.smtp_password", "MAILER_SMTP_PASSWORD")
	viper.BindEnv("mailer.from_email", "MAILER_FROM_EMAIL")
	viper.BindEnv("mailer.from_email_name", "MAILER_FROM_EMAIL_NAME")
	viper.BindEnv("mailer.reply_to", "MAILER_REPLY_TO")
	viper.BindEnv("mailer.public_base_url", "MAILER_PUBLIC_BASE_URL")
	viper.BindEnv("mailer.worker_interval", "MAILER_WORKER_INTERVAL")
}
