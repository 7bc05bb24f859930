package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/STTM-NSU/options-tracker/internal/logger"
	"gopkg.in/yaml.v3"
)

type BrokerConfig struct {
	Address            string        `yaml:"address"`
	ClientID           string        `yaml:"client_id"`
	Timeout            time.Duration `yaml:"timeout"`
	RequestsPerMinute  int           `yaml:"requests_per_minute"`
	InstrumentCacheTTL time.Duration `yaml:"instrument_cache_ttl"`
}

const (
	_brokerAddressDefault      = "https://api.robinhood.com"
	_brokerClientIDDefault     = "c82SH0WZOsabOXGP2sxqcj34FxkvfnWRZBKlBjFS"
	_brokerTimeoutDefault      = 30 * time.Second
	_brokerRPMDefault          = 120
	_instrumentCacheTTLDefault = 24 * time.Hour
)

func (c *BrokerConfig) Setup() error {
	if c.Address == "" {
		c.Address = _brokerAddressDefault
	}
	if _, err := url.Parse(c.Address); err != nil {
		return err
	}
	if c.ClientID == "" {
		c.ClientID = _brokerClientIDDefault
	}
	if c.Timeout <= 0 {
		c.Timeout = _brokerTimeoutDefault
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = _brokerRPMDefault
	}
	if c.InstrumentCacheTTL <= 0 {
		c.InstrumentCacheTTL = _instrumentCacheTTLDefault
	}

	return nil
}

type QuotesConfig struct {
	Address           string        `yaml:"address"`
	APIKey            string        `yaml:"-"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

const (
	_quotesAddressDefault = "https://api.tdameritrade.com"
	_quotesTimeoutDefault = 10 * time.Second
	_quotesRPMDefault     = 120 // td ameritrade allows 120 T/M per key
)

func (c *QuotesConfig) Setup() error {
	if c.Address == "" {
		c.Address = _quotesAddressDefault
	}
	if _, err := url.Parse(c.Address); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		c.Timeout = _quotesTimeoutDefault
	}
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = _quotesRPMDefault
	}

	return nil
}

type RefreshConfig struct {
	QuotesInterval    time.Duration `yaml:"quotes_interval"`
	PositionsInterval time.Duration `yaml:"positions_interval"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

type StorageConfig struct {
	Enabled       bool          `yaml:"enabled"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

type LoggingConfig struct {
	Level string            `yaml:"level"`
	File  logger.FileConfig `yaml:"file"`
}

type TrackerConfig struct {
	Broker  BrokerConfig  `yaml:"broker"`
	Quotes  QuotesConfig  `yaml:"quotes"`
	Refresh RefreshConfig `yaml:"refresh"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

const (
	_quotesIntervalDefault    = 30 * time.Second
	_positionsIntervalDefault = 15 * time.Minute
	_serverPortDefault        = "8080"
	_flushIntervalDefault     = 1 * time.Minute
	_logLevelDefault          = "info"
)

func (c *TrackerConfig) ValidateAndSetup() error {
	if err := c.Broker.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup broker", err)
	}
	if err := c.Quotes.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup quotes", err)
	}

	if c.Refresh.QuotesInterval <= 0 {
		c.Refresh.QuotesInterval = _quotesIntervalDefault
	}
	if c.Refresh.PositionsInterval <= 0 {
		c.Refresh.PositionsInterval = _positionsIntervalDefault
	}
	if c.Refresh.PositionsInterval < c.Refresh.QuotesInterval {
		return fmt.Errorf("positions interval %s shorter than quotes interval %s",
			c.Refresh.PositionsInterval, c.Refresh.QuotesInterval)
	}

	if c.Server.Port == "" {
		c.Server.Port = _serverPortDefault
	}
	if c.Storage.FlushInterval <= 0 {
		c.Storage.FlushInterval = _flushIntervalDefault
	}
	if c.Logging.Level == "" {
		c.Logging.Level = _logLevelDefault
	}

	return nil
}

func LoadTrackerConfig(filename string) (TrackerConfig, error) {
	var cfg TrackerConfig
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
