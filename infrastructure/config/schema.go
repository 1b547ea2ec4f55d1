package config

import (
	"encoding/json"

	domainconfig "github.com/felixgeelhaar/plantkeep/domain/config"
)

// JSONSchema represents a JSON Schema document.
type JSONSchema struct {
	Schema      string                 `json:"$schema,omitempty"`
	ID          string                 `json:"$id,omitempty"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Type        string                 `json:"type,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
	Default     any                    `json:"default,omitempty"`
	Minimum     *float64               `json:"minimum,omitempty"`
	Format      string                 `json:"format,omitempty"`
}

// GenerateSchema generates a JSON Schema for AppConfig, with defaults taken
// from domainconfig.Default().
func GenerateSchema() *JSONSchema {
	def := domainconfig.Default()
	return &JSONSchema{
		Schema:      "https://json-schema.org/draft/2020-12/schema",
		ID:          "https://github.com/felixgeelhaar/plantkeep/plantkeep-config.schema.json",
		Title:       "Plantkeep Configuration",
		Description: "Configuration schema for the plantkeep offline cache",
		Type:        "object",
		Required:    []string{"storage"},
		Properties: map[string]*JSONSchema{
			"storage":    generateStorageSchema(def),
			"logging":    generateLoggingSchema(def),
			"history":    generateHistorySchema(def),
			"resilience": generateResilienceSchema(def),
			"user":       generateUserSchema(),
			"lock":       generateLockSchema(def),
		},
	}
}

func generateStorageSchema(def *domainconfig.AppConfig) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Key-value backend",
		Required:    []string{"driver"},
		Properties: map[string]*JSONSchema{
			"driver": {
				Type:    "string",
				Enum:    domainconfig.Drivers(),
				Default: def.Storage.Driver,
			},
			"dir": {
				Type:        "string",
				Description: "Data directory (filesystem, badger)",
				Default:     def.Storage.Dir,
			},
			"dsn": {
				Type:        "string",
				Description: "Connection string (sqlite, postgres, mongodb)",
			},
			"address":  {Type: "string", Description: "host:port (redis)"},
			"password": {Type: "string", Description: "Password (redis)"},
			"prefix":   {Type: "string", Description: "Key namespace shared by every key"},
			"table":    {Type: "string", Description: "Table or collection name"},
			"database": {Type: "string", Description: "Database name (mongodb)"},
			"region":   {Type: "string", Description: "AWS region (dynamodb)"},
			"bucket":   {Type: "string", Description: "Bucket name (gcs)"},
			"endpoint": {Type: "string", Description: "Endpoint override (dynamodb, gcs)"},
			"timeout":  durationSchema("Per-request timeout", def.Storage.Timeout),
			"db":       {Type: "integer", Description: "Database index (redis)", Minimum: floatPtr(0)},
			"pool_size": {
				Type:        "integer",
				Description: "Maximum open connections (sqlite, redis)",
				Minimum:     floatPtr(0),
			},
			"journal_mode": {
				Type:        "string",
				Description: "Journal mode (sqlite)",
				Enum:        domainconfig.JournalModes(),
			},
			"busy_timeout": durationSchema("Wait on a locked database (sqlite)", def.Storage.BusyTimeout),
		},
	}
}

func generateLoggingSchema(def *domainconfig.AppConfig) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Logging settings",
		Properties: map[string]*JSONSchema{
			"level": {
				Type:    "string",
				Enum:    []string{"trace", "debug", "info", "warn", "error"},
				Default: def.Logging.Level,
			},
			"format": {
				Type:    "string",
				Enum:    []string{"json", "console"},
				Default: def.Logging.Format,
			},
		},
	}
}

func generateHistorySchema(def *domainconfig.AppConfig) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Scan history settings",
		Properties: map[string]*JSONSchema{
			"capacity": {
				Type:        "integer",
				Description: "Maximum retained scans, newest first",
				Minimum:     floatPtr(0),
				Default:     def.History.Capacity,
			},
		},
	}
}

func generateResilienceSchema(def *domainconfig.AppConfig) *JSONSchema {
	r := def.Resilience
	return &JSONSchema{
		Type:        "object",
		Description: "Remote fetch resilience",
		Properties: map[string]*JSONSchema{
			"timeout": durationSchema("Per-attempt timeout", r.Timeout),
			"retry": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"enabled":       {Type: "boolean", Default: r.Retry.Enabled},
					"max_attempts":  {Type: "integer", Minimum: floatPtr(1), Default: r.Retry.MaxAttempts},
					"initial_delay": durationSchema("", r.Retry.InitialDelay),
					"multiplier":    {Type: "number", Minimum: floatPtr(1), Default: r.Retry.Multiplier},
				},
			},
			"circuit_breaker": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"enabled":   {Type: "boolean", Default: r.CircuitBreaker.Enabled},
					"threshold": {Type: "integer", Description: "Consecutive failures before opening", Minimum: floatPtr(1), Default: r.CircuitBreaker.Threshold},
					"timeout":   durationSchema("How long the circuit stays open", r.CircuitBreaker.Timeout),
				},
			},
			"bulkhead": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"enabled":        {Type: "boolean", Default: r.Bulkhead.Enabled},
					"max_concurrent": {Type: "integer", Minimum: floatPtr(1), Default: r.Bulkhead.MaxConcurrent},
				},
			},
			"rate_limit": {
				Type: "object",
				Properties: map[string]*JSONSchema{
					"enabled": {Type: "boolean"},
					"rate":    {Type: "integer", Description: "Fetches per second", Minimum: floatPtr(1)},
					"burst":   {Type: "integer", Minimum: floatPtr(1)},
				},
			},
		},
	}
}

func generateUserSchema() *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Default session; an empty id means guest",
		Properties: map[string]*JSONSchema{
			"id":    {Type: "string"},
			"email": {Type: "string", Format: "email"},
		},
	}
}

func generateLockSchema(def *domainconfig.AppConfig) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: "Per-key locking",
		Properties: map[string]*JSONSchema{
			"distributed": {Type: "boolean", Description: "Use redis locks (redis driver only)"},
			"ttl":         durationSchema("Distributed lock lease", def.Lock.TTL),
		},
	}
}

func durationSchema(desc string, def domainconfig.Duration) *JSONSchema {
	s := &JSONSchema{Type: "string", Description: desc, Format: "duration"}
	if def > 0 {
		s.Default = def.Duration().String()
	}
	return s
}

func floatPtr(f float64) *float64 {
	return &f
}

// SchemaJSON returns the JSON Schema as a JSON string.
func SchemaJSON() (string, error) {
	data, err := json.MarshalIndent(GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
