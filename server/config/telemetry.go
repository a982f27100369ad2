package config

// TelemetryConfig defines tracing configuration
type TelemetryConfig struct {
	// TracingEnabled determines whether to collect and export traces
	TracingEnabled bool `default:"false"`
	// SampleRatio is the fraction of traces sampled when tracing is enabled
	SampleRatio float64 `default:"1"`
}
