package config

type PlatformType string

const (
	Local      PlatformType = "LOCAL"
	Staging    PlatformType = "STAGING"
	Production PlatformType = "PRODUCTION"
)
