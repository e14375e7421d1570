package ops

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yanun0323/errors"
	"gopkg.in/yaml.v3"

	"marketdata/internal/broker"
	"marketdata/internal/bus"
	"marketdata/internal/gateway"
	"marketdata/internal/obs"
	"marketdata/pkg/conn"
	"marketdata/pkg/exception"
)

// FileConfig mirrors the config file layout.
type FileConfig struct {
	Bus       bus.Config          `json:"bus" yaml:"bus"`
	Store     StoreConfig         `json:"store" yaml:"store"`
	Gateway   GatewayConfig       `json:"gateway" yaml:"gateway"`
	Broker    broker.Config       `json:"broker" yaml:"broker"`
	Profiling obs.ProfilingConfig `json:"profiling" yaml:"profiling"`
}

// StoreConfig is the store section.
type StoreConfig struct {
	conn.Option     `yaml:",inline"`
	ConnMaxLifetime Duration `json:"connMaxLifetime" yaml:"connMaxLifetime"`
}

// GatewayConfig is the gateway section.
type GatewayConfig struct {
	Timeout     Duration `json:"timeout" yaml:"timeout"`
	Listen      string   `json:"listen" yaml:"listen"`
	MetricsAddr string   `json:"metricsAddr" yaml:"metricsAddr"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Bus         bus.Config
	Store       conn.Option
	Gateway     gateway.Config
	Broker      broker.Config
	Listen      string
	MetricsAddr string
	Profiling   obs.ProfilingConfig
}

const (
	defaultListen      = ":8080"
	defaultMetricsAddr = ":9100"
)

// Default returns a configuration running everything in memory.
func Default() Loaded {
	return Loaded{
		Bus:         bus.DefaultConfig(),
		Store:       conn.Option{Driver: conn.DriverSQLite},
		Gateway:     gateway.DefaultConfig(),
		Broker:      broker.DefaultConfig(),
		Listen:      defaultListen,
		MetricsAddr: defaultMetricsAddr,
	}
}

// Load reads a JSON or YAML config file, chosen by extension, and resolves it.
// An empty path yields Default.
func Load(path string) (Loaded, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data according to ext (".json", ".yaml" or ".yml") and resolves it.
func Parse(data []byte, ext string) (Loaded, error) {
	var cfg FileConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "decode yaml config")
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, errors.Wrap(err, "decode json config")
		}
	}

	loaded := resolve(cfg)
	if err := loaded.Validate(); err != nil {
		return Loaded{}, err
	}
	return loaded, nil
}

func resolve(cfg FileConfig) Loaded {
	out := Default()

	out.Bus = cfg.Bus
	if out.Bus.Driver == "" {
		out.Bus.Driver = bus.DriverMemory
	}
	if out.Bus.QueueSize <= 0 {
		out.Bus.QueueSize = bus.DefaultConfig().QueueSize
	}

	out.Store = cfg.Store.Option
	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))
	if out.Store.Driver == "" {
		out.Store.Driver = conn.DriverSQLite
	}
	out.Store.ConnMaxLifetime = time.Duration(cfg.Store.ConnMaxLifetime)

	if cfg.Gateway.Timeout > 0 {
		out.Gateway.Timeout = time.Duration(cfg.Gateway.Timeout)
	}
	if cfg.Gateway.Listen != "" {
		out.Listen = cfg.Gateway.Listen
	}
	if cfg.Gateway.MetricsAddr != "" {
		out.MetricsAddr = cfg.Gateway.MetricsAddr
	}

	if cfg.Broker.Workers > 0 {
		out.Broker.Workers = cfg.Broker.Workers
	}
	if cfg.Broker.QueueSize > 0 {
		out.Broker.QueueSize = cfg.Broker.QueueSize
	}

	out.Profiling = cfg.Profiling
	return out
}

// Validate checks the resolved configuration.
func (l Loaded) Validate() error {
	if err := l.Bus.Validate(); err != nil {
		return err
	}
	switch l.Store.Driver {
	case conn.DriverPostgres, conn.DriverSQLite:
	default:
		return errors.Wrapf(exception.ErrUnknownDriver, "store driver: %s", l.Store.Driver)
	}
	if l.Gateway.Timeout <= 0 {
		return errors.Wrap(exception.ErrInvalidArgument, "gateway timeout must be > 0")
	}
	if l.Broker.Workers <= 0 {
		return errors.Wrap(exception.ErrInvalidArgument, "broker workers must be > 0")
	}
	return nil
}

// Duration is a time.Duration written as a string such as "5s" in config files.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.Wrapf(err, "duration must be a string, got %s", b)
	}
	return d.set(s)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.set(node.Value)
}

func (d *Duration) set(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", s)
	}
	*d = Duration(v)
	return nil
}
