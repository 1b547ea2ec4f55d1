package observability

import (
	"io"
	"time"
)

// Config configures tracing.
type Config struct {
	// ServiceName is the service name reported on every span.
	ServiceName string

	// ServiceVersion is the service version.
	ServiceVersion string

	// Environment is the deployment environment (device, staging, ...).
	Environment string

	// Exporter selects where spans go.
	Exporter ExporterType

	// Endpoint is the OTLP collector address (host:port).
	Endpoint string

	// Insecure disables TLS for the OTLP exporter.
	Insecure bool

	// Output receives spans from the stdout exporter. Defaults to stderr.
	Output io.Writer

	// SampleRate is the fraction of loads traced (0.0 to 1.0).
	SampleRate float64

	// BatchTimeout is the maximum delay before spans are exported.
	BatchTimeout time.Duration
}

// ExporterType identifies a span exporter.
type ExporterType string

const (
	// ExporterOTLP exports spans over OTLP/gRPC.
	ExporterOTLP ExporterType = "otlp"

	// ExporterStdout writes spans as JSON.
	ExporterStdout ExporterType = "stdout"

	// ExporterNoop discards spans.
	ExporterNoop ExporterType = "noop"
)

// Exporters lists the supported exporter names.
func Exporters() []string {
	return []string{string(ExporterNoop), string(ExporterStdout), string(ExporterOTLP)}
}

// DefaultConfig returns a configuration that discards spans.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "plantkeep",
		ServiceVersion: "0.1.0",
		Environment:    "device",
		Exporter:       ExporterNoop,
		SampleRate:     1.0,
		BatchTimeout:   5 * time.Second,
	}
}

// Option configures the provider.
type Option func(*Config)

// WithServiceName sets the service name.
func WithServiceName(name string) Option {
	return func(c *Config) {
		c.ServiceName = name
	}
}

// WithServiceVersion sets the service version.
func WithServiceVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithEnvironment sets the deployment environment.
func WithEnvironment(env string) Option {
	return func(c *Config) {
		c.Environment = env
	}
}

// WithOTLP exports spans to an OTLP collector.
func WithOTLP(endpoint string, insecure bool) Option {
	return func(c *Config) {
		c.Exporter = ExporterOTLP
		c.Endpoint = endpoint
		c.Insecure = insecure
	}
}

// WithStdout writes spans to w.
func WithStdout(w io.Writer) Option {
	return func(c *Config) {
		c.Exporter = ExporterStdout
		c.Output = w
	}
}

// WithSampleRate sets the sampling ratio.
func WithSampleRate(rate float64) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}
