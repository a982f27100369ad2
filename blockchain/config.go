package blockchain

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const defaultProfile = "default"

var ErrConfigMissing = errors.New("Movement config.yaml file does not exist")

// CLIConfig is the profile file the CLI writes on init.
type CLIConfig struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

type Profile struct {
	Network   string `yaml:"network"`
	PublicKey string `yaml:"public_key"`
	Account   string `yaml:"account"`
	RestURL   string `yaml:"rest_url"`
	FaucetURL string `yaml:"faucet_url"`
}

// ReadCLIConfig parses the CLI profile file at path.
func ReadCLIConfig(path string) (*CLIConfig, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrConfigMissing
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config.yaml")
	}

	var conf CLIConfig
	if err := yaml.Unmarshal(b, &conf); err != nil {
		return nil, errors.Wrap(err, "failed to parse config.yaml")
	}
	return &conf, nil
}

// DefaultAccount returns the account address of the default profile.
func (c *CLIConfig) DefaultAccount() (string, bool) {
	if c == nil {
		return "", false
	}
	profile, ok := c.Profiles[defaultProfile]
	if !ok || profile.Account == "" {
		return "", false
	}
	return profile.Account, true
}
