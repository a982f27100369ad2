package config

import "time"

// MovementConfig locates the package directory and bounds every CLI invocation.
type MovementConfig struct {
	Dir            string        `default:"./app/aptos"`
	Binary         string        `default:"movement"`
	ProbeTimeout   time.Duration `default:"15s"`
	InitTimeout    time.Duration `default:"60s"`
	CompileTimeout time.Duration `default:"120s"`
	DeployTimeout  time.Duration `default:"180s"`
	KillDelay      time.Duration `default:"5s"`
}
