package config

import (
	"time"

	"github.com/pkg/errors"
)

// Security holds the token secrets and the lifetimes/thresholds of the
// account lifecycle.
type Security struct {
	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	OTPTTL             time.Duration `env:"OTP_TTL" envDefault:"10m"`
	ResetTokenTTL      time.Duration `env:"RESET_TOKEN_TTL" envDefault:"15m"`
	MaxLoginAttempts   int           `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LockoutWindow      time.Duration `env:"LOCKOUT_WINDOW" envDefault:"15m"`
	MatchIPAddress     bool          `env:"MATCH_IP_ADDRESS" envDefault:"false"`
}

// Validate rejects missing or shared secrets.
func (s Security) Validate() error {
	if s.AccessTokenSecret == "" {
		return errors.New("[Security.Validate] ACCESS_TOKEN_SECRET is required")
	}
	if s.RefreshTokenSecret == "" {
		return errors.New("[Security.Validate] REFRESH_TOKEN_SECRET is required")
	}
	if s.AccessTokenSecret == s.RefreshTokenSecret {
		return errors.New("[Security.Validate] access and refresh secrets must differ")
	}
	return nil
}
