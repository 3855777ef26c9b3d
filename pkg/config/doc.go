// Package config loads environment-driven configuration structs.
//
// Structs declare their variables with caarlos0/env tags:
//
//	type Config struct {
//	    MaxAttempts int           `env:"DISPATCH_MAX_ATTEMPTS" envDefault:"5"`
//	    BaseDelay   time.Duration `env:"DISPATCH_RETRY_BASE_DELAY" envDefault:"2s"`
//	}
//
// Load reads a .env file once per process (a missing file is fine), then
// parses the environment into the struct. Each struct type is parsed once and
// cached; later calls for the same type copy the cached value.
package config
