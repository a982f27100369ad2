package config

type SentryConfig struct {
	Dsn              string
	Debug            bool `default:"false"`
	AttachStacktrace bool `default:"true"`
}
