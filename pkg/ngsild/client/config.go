package client

import (
	"io"

	"github.com/contextsource/ngsild-client/pkg/ngsild/errors"
	yaml "gopkg.in/yaml.v2"
)

type BrokerConfig struct {
	Endpoint string `yaml:"endpoint"`
	Tenant   string `yaml:"tenant"`
	Debug    string `yaml:"debug"`
}

type Config struct {
	Broker   BrokerConfig `yaml:"broker"`
	Contexts []string     `yaml:"contexts"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Broker.Endpoint == "" {
		return nil, errors.NewFormatError("broker endpoint must not be empty")
	}

	return cfg, nil
}

//NewContextBrokerClientFromConfig creates a client from a loaded configuration
func NewContextBrokerClientFromConfig(cfg *Config) ContextBrokerClient {
	options := make([]func(*cbClient), 0, 2)

	if cfg.Broker.Tenant != "" {
		options = append(options, Tenant(cfg.Broker.Tenant))
	}

	if cfg.Broker.Debug != "" {
		options = append(options, Debug(cfg.Broker.Debug))
	}

	return NewContextBrokerClient(cfg.Broker.Endpoint, options...)
}
