package config

import "time"

type PlaygroundConfig struct {
	Port             int           `default:"3000"`
	Debug            bool          `default:"false"`
	AllowedOrigins   []string      `default:"*"`
	Platform         PlatformType  `default:"LOCAL"`
	ShutdownTimeout  time.Duration `default:"30s"`
	StaleProjectDays int           `default:"90"`
	GaugeInterval    time.Duration `default:"10m"`
}
