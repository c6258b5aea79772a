package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/rs/zerolog/log"
)

// EnvVars is the environment-backed configuration. Field values are parsed
// once at startup; accessors implement the Config interfaces.
type EnvVars struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Fleet Console"`
	Env     string `env:"ENV" envDefault:"DEV"`

	UpstreamBaseURL        string `env:"UPSTREAM_API_URL" envDefault:"http://localhost:8000"`
	UpstreamTimeoutSeconds int    `env:"UPSTREAM_TIMEOUT_SECONDS" envDefault:"5"`

	SessionTTLHours int    `env:"SESSION_TTL_HOURS" envDefault:"24"`
	RememberTTLDays int    `env:"REMEMBER_TTL_DAYS" envDefault:"30"`
	RedisAddr       string `env:"REDIS_ADDR"`

	// SessionSecretHex is the CSRF/session signing key, 32 bytes hex-encoded.
	// Required in production; generated per startup otherwise.
	SessionSecretHex string `env:"SESSION_SECRET"`

	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"20"`

	sessionSecret []byte
}

var _ Config = &EnvVars{}

func newEnvVars() (*EnvVars, error) {
	e := &EnvVars{}
	if err := env.Parse(e); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}

	secret, err := e.loadSessionSecret()
	if err != nil {
		return nil, err
	}
	e.sessionSecret = secret

	return e, nil
}

// loadSessionSecret decodes SESSION_SECRET (64 hex characters, 32 bytes).
// In production the secret must be set; in development a random key is
// generated per startup, so sessions will not survive a restart.
func (e *EnvVars) loadSessionSecret() ([]byte, error) {
	if e.SessionSecretHex != "" {
		secret, err := hex.DecodeString(e.SessionSecretHex)
		if err != nil || len(secret) != 32 {
			return nil, fmt.Errorf("SESSION_SECRET must be 64 hex characters (32 bytes)")
		}
		return secret, nil
	}

	if e.GetEnv() == "PROD" {
		return nil, fmt.Errorf("SESSION_SECRET is required in production")
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	log.Warn().Msg("using random session secret, set SESSION_SECRET for production")
	return secret, nil
}

func (e *EnvVars) GetPort() string {
	port := e.Port
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e *EnvVars) GetAppName() string {
	return e.AppName
}

func (e *EnvVars) GetEnv() string {
	return strings.ToUpper(e.Env)
}

func (e *EnvVars) GetUpstreamBaseURL() string {
	return strings.TrimSuffix(e.UpstreamBaseURL, "/")
}

func (e *EnvVars) GetUpstreamTimeout() time.Duration {
	return time.Duration(e.UpstreamTimeoutSeconds) * time.Second
}

func (e *EnvVars) GetSessionTTL() time.Duration {
	return time.Duration(e.SessionTTLHours) * time.Hour
}

func (e *EnvVars) GetRememberTTL() time.Duration {
	return time.Duration(e.RememberTTLDays) * 24 * time.Hour
}

func (e *EnvVars) GetRedisAddr() string {
	return e.RedisAddr
}

func (e *EnvVars) GetSessionSecret() []byte {
	return e.sessionSecret
}

func (e *EnvVars) GetRateLimitRPS() int {
	return e.RateLimitRPS
}

func (e *EnvVars) GetRateLimitBurst() int {
	return e.RateLimitBurst
}
