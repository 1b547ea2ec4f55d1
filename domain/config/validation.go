package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the dotted path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates application configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *AppConfig) ValidationErrors {
	v.errors = nil

	v.validateStorage(config)
	v.validateLogging(config)
	v.validateHistory(config)
	v.validateResilience(config)
	v.validateLock(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) validateStorage(config *AppConfig) {
	s := config.Storage
	switch s.Driver {
	case "":
		v.addError("storage.driver", "driver is required")
	case DriverMemory, DriverEtcd:
	case DriverFilesystem, DriverBadger:
		if s.Dir == "" {
			v.addError("storage.dir", fmt.Sprintf("dir is required for %s", s.Driver))
		}
	case DriverSQLite, DriverPostgres, DriverMongoDB:
		if s.DSN == "" {
			v.addError("storage.dsn", fmt.Sprintf("dsn is required for %s", s.Driver))
		}
	case DriverRedis:
		if s.Address == "" {
			v.addError("storage.address", "address is required for redis")
		}
	case DriverDynamoDB:
		if s.Region == "" && s.Endpoint == "" {
			v.addError("storage.region", "region or endpoint is required for dynamodb")
		}
	case DriverGCS:
		if s.Bucket == "" {
			v.addError("storage.bucket", "bucket is required for gcs")
		}
	default:
		v.addError("storage.driver", fmt.Sprintf("unknown driver: %s", s.Driver))
	}

	if s.Timeout < 0 {
		v.addError("storage.timeout", "timeout must be non-negative")
	}
	if s.DB < 0 {
		v.addError("storage.db", "db must be non-negative")
	}
	if s.PoolSize < 0 {
		v.addError("storage.pool_size", "pool_size must be non-negative")
	}
	if s.BusyTimeout < 0 {
		v.addError("storage.busy_timeout", "busy_timeout must be non-negative")
	}
	if s.JournalMode != "" && !slices.Contains(JournalModes(), strings.ToUpper(s.JournalMode)) {
		v.addError("storage.journal_mode", fmt.Sprintf("unknown journal mode: %s", s.JournalMode))
	}
}

func (v *Validator) validateLogging(config *AppConfig) {
	if config.Logging.Level != "" {
		validLevels := map[string]bool{
			"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
		}
		if !validLevels[strings.ToLower(config.Logging.Level)] {
			v.addError("logging.level", fmt.Sprintf("invalid level: %s", config.Logging.Level))
		}
	}
	if config.Logging.Format != "" && config.Logging.Format != "json" && config.Logging.Format != "console" {
		v.addError("logging.format", fmt.Sprintf("invalid format: %s", config.Logging.Format))
	}
}

func (v *Validator) validateHistory(config *AppConfig) {
	if config.History.Capacity < 0 {
		v.addError("history.capacity", "capacity must be non-negative")
	}
}

func (v *Validator) validateResilience(config *AppConfig) {
	r := config.Resilience
	if r.Timeout < 0 {
		v.addError("resilience.timeout", "timeout must be non-negative")
	}

	if r.Retry.Enabled {
		if r.Retry.MaxAttempts <= 0 {
			v.addError("resilience.retry.max_attempts", "max_attempts must be positive when enabled")
		}
		if r.Retry.Multiplier < 1 {
			v.addError("resilience.retry.multiplier", "multiplier must be >= 1")
		}
	}

	if r.CircuitBreaker.Enabled && r.CircuitBreaker.Threshold <= 0 {
		v.addError("resilience.circuit_breaker.threshold", "threshold must be positive when enabled")
	}

	if r.Bulkhead.Enabled && r.Bulkhead.MaxConcurrent <= 0 {
		v.addError("resilience.bulkhead.max_concurrent", "max_concurrent must be positive when enabled")
	}

	if r.RateLimit.Enabled {
		if r.RateLimit.Rate <= 0 {
			v.addError("resilience.rate_limit.rate", "rate must be positive when enabled")
		}
		if r.RateLimit.Burst <= 0 {
			v.addError("resilience.rate_limit.burst", "burst must be positive when enabled")
		}
	}
}

func (v *Validator) validateLock(config *AppConfig) {
	if !config.Lock.Distributed {
		return
	}
	if config.Storage.Driver != DriverRedis {
		v.addError("lock.distributed", "distributed locks require the redis driver")
	}
	if config.Lock.TTL <= 0 {
		v.addError("lock.ttl", "ttl must be positive for distributed locks")
	}
}
