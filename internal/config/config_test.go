package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New())

	assert.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, 8, cfg.Payroll.ExpectedHoursPerDay)
	assert.Equal(t, 10*time.Minute, cfg.Payroll.ConfigCacheTTL)
	assert.Equal(t, 3*time.Second, cfg.Kafka.OutboxPollInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("PAYROLL_EXPECTED_HOURS_PER_DAY", "7")
	t.Setenv("DB_NAME", "payroll")

	cfg, err := load(viper.New())

	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 7, cfg.Payroll.ExpectedHoursPerDay)
	assert.Equal(t, "payroll", cfg.Database.Name)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := load(viper.New())

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_InvalidHours(t *testing.T) {
	t.Setenv("PAYROLL_EXPECTED_HOURS_PER_DAY", "0")

	_, err := load(viper.New())

	assert.ErrorIs(t, err, ErrInvalidConfig)
}
