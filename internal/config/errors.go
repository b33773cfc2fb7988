package config

import (
	"errors"
	"fmt"
)

var ErrInvalidConfig = errors.New("invalid configuration")

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: PORT is required", ErrInvalidConfig)
	}
	if c.Payroll.ExpectedHoursPerDay <= 0 || c.Payroll.ExpectedHoursPerDay > 24 {
		return fmt.Errorf("%w: PAYROLL_EXPECTED_HOURS_PER_DAY must be between 1 and 24", ErrInvalidConfig)
	}
	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: JWT_SECRET is required in production", ErrInvalidConfig)
	}
	if c.ConnectRetries <= 0 {
		return fmt.Errorf("%w: CONNECT_RETRIES must be positive", ErrInvalidConfig)
	}
	return nil
}
