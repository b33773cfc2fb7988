package config

import (
	"strings"
	"time"

	"go-payroll/internal/shared/connection"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv string
	Port   string

	Database connection.PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Payroll  PayrollConfig

	ConnectRetries int
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Broker             string
	OutboxPollInterval time.Duration
	PayslipGroupID     string
}

type AuthConfig struct {
	JWTSecret     string
	RBACModelPath string
}

type PayrollConfig struct {
	ExpectedHoursPerDay  int
	PayslipStorageDir    string
	PayslipPublicBaseURL string
	ConfigCacheTTL       time.Duration
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads an optional .env file and then the process environment.
// Environment variables always win over .env values.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := Config{
		AppEnv: v.GetString("APP_ENV"),
		Port:   v.GetString("PORT"),
		Database: connection.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Addr: v.GetString("REDIS_ADDR"),
		},
		Kafka: KafkaConfig{
			Broker:             v.GetString("KAFKA_BROKER"),
			OutboxPollInterval: v.GetDuration("OUTBOX_POLL_INTERVAL"),
			PayslipGroupID:     v.GetString("KAFKA_PAYSLIP_GROUP_ID"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("JWT_SECRET"),
			RBACModelPath: v.GetString("RBAC_MODEL_PATH"),
		},
		Payroll: PayrollConfig{
			ExpectedHoursPerDay:  v.GetInt("PAYROLL_EXPECTED_HOURS_PER_DAY"),
			PayslipStorageDir:    v.GetString("PAYSLIP_STORAGE_DIR"),
			PayslipPublicBaseURL: v.GetString("PAYSLIP_PUBLIC_BASE_URL"),
			ConfigCacheTTL:       v.GetDuration("PAYROLL_CONFIG_CACHE_TTL"),
		},
		ConnectRetries: v.GetInt("CONNECT_RETRIES"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("OUTBOX_POLL_INTERVAL", "3s")
	v.SetDefault("KAFKA_PAYSLIP_GROUP_ID", "go-payroll-payslip")
	v.SetDefault("PAYROLL_EXPECTED_HOURS_PER_DAY", 8)
	v.SetDefault("PAYSLIP_STORAGE_DIR", "storage/payslips")
	v.SetDefault("PAYSLIP_PUBLIC_BASE_URL", "/files/payslips")
	v.SetDefault("PAYROLL_CONFIG_CACHE_TTL", "10m")
	v.SetDefault("CONNECT_RETRIES", 5)
}
