package config

import "time"

type Config interface {
	EnvConfig
	UpstreamConfig
	SessionConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type UpstreamConfig interface {
	GetUpstreamBaseURL() string
	GetUpstreamTimeout() time.Duration
}

type SessionConfig interface {
	GetSessionTTL() time.Duration
	GetRememberTTL() time.Duration
	GetRedisAddr() string
}

type SecurityConfig interface {
	GetSessionSecret() []byte
	GetRateLimitRPS() int
	GetRateLimitBurst() int
}

func New() (Config, error) {
	return newEnvVars()
}
