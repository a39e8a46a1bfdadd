// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package config loads the YAML configuration shared by the sactank
// commands.
package config

import (
	"bytes"
	"io"
	"io/ioutil"
	"net"
	"strconv"
	"time"

	"github.com/danjacques/gotracebuf/support/logging"
	"github.com/danjacques/gotracebuf/tank"
	"github.com/danjacques/gotracebuf/tracebuf"
	"github.com/danjacques/gotracebuf/transfer"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Remuxer names.
const (
	// RemuxerCommand runs an external remux tool.
	RemuxerCommand = "command"
	// RemuxerArchive stores the stream directly, optionally compressed.
	RemuxerArchive = "archive"
)

// Config is the complete sactank configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Client  ClientConfig  `yaml:"client"`
	Convert ConvertConfig `yaml:"convert"`
	Tank    TankConfig    `yaml:"tank"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the transfer server.
type ServerConfig struct {
	// Listen is the address to accept transfers on.
	Listen string `yaml:"listen"`
	// SACDir receives transferred SAC files.
	SACDir string `yaml:"sac_dir"`
	// TempDir stages incoming files. If empty, a directory under SACDir is
	// used.
	TempDir     string        `yaml:"temp_dir"`
	MaxFileSize int64         `yaml:"max_file_size"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ClientConfig configures the transfer client.
type ClientConfig struct {
	// Address is the server to send files to.
	Address string `yaml:"address"`
	// SACDir holds the files named by ListFile.
	SACDir string `yaml:"sac_dir"`
	// ListFile names the files to send, one per line after a header line.
	ListFile    string        `yaml:"list_file"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// ConvertConfig configures SAC conversion.
type ConvertConfig struct {
	MaxSamples        int     `yaml:"max_samples"`
	MinSampleInterval float64 `yaml:"min_sample_interval"`
}

// TankConfig configures batching and rotation.
type TankConfig struct {
	// Dir receives tank files.
	Dir string `yaml:"dir"`
	// Stream is the tracebuf stream that conversions append to.
	Stream    string `yaml:"stream"`
	BatchSize int    `yaml:"batch_size"`

	// Remuxer is RemuxerCommand or RemuxerArchive.
	Remuxer      string           `yaml:"remuxer"`
	RemuxCommand string           `yaml:"remux_command"`
	Compression  tank.Compression `yaml:"compression"`

	// LedgerDir, if not empty, enables the conversion ledger.
	LedgerDir string `yaml:"ledger_dir"`

	S3 S3Config `yaml:"s3"`
}

// S3Config configures tank archival. Archival is disabled if Bucket is empty.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	// PathStyle addresses the bucket in the URL path, as S3-compatible
	// stores commonly require.
	PathStyle bool `yaml:"path_style"`
}

// Enabled returns true if archival is configured.
func (c *S3Config) Enabled() bool { return c.Bucket != "" }

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	// Address, if not empty, serves Prometheus metrics over HTTP.
	Address string `yaml:"address"`
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:      ":" + strconv.Itoa(transfer.DefaultPort),
			SACDir:      "serverSAC",
			MaxFileSize: transfer.DefaultMaxFileSize,
			Timeout:     5 * time.Minute,
		},
		Client: ClientConfig{
			Address:     "localhost:" + strconv.Itoa(transfer.DefaultPort),
			SACDir:      "clientSAC",
			ListFile:    "clientSAC/saclist",
			DialTimeout: transfer.DefaultDialTimeout,
		},
		Convert: ConvertConfig{
			MaxSamples:        tracebuf.DefaultMaxSamples,
			MinSampleInterval: tracebuf.MinSampleInterval,
		},
		Tank: TankConfig{
			Dir:          "serverTank",
			Stream:       "serverTank/tracebuf",
			BatchSize:    tank.DefaultBatchSize,
			Remuxer:      RemuxerCommand,
			RemuxCommand: tank.DefaultRemuxCommand,
			Compression:  tank.CompressionNone,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration file at path. Values it does not set keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading config %q", path)
	}
	return cfg, nil
}

// Parse parses and validates YAML configuration data on top of Defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "parsing YAML")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that c is usable.
func (c *Config) Validate() error {
	for _, section := range []struct {
		name     string
		validate func() error
	}{
		{"server", c.Server.Validate},
		{"client", c.Client.Validate},
		{"convert", c.Convert.Validate},
		{"tank", c.Tank.Validate},
		{"logging", c.Logging.Validate},
		{"metrics", c.Metrics.Validate},
	} {
		if err := section.validate(); err != nil {
			return errors.Wrap(err, section.name)
		}
	}
	return nil
}

// Validate checks the server section.
func (c *ServerConfig) Validate() error {
	if err := validateAddress(c.Listen, true); err != nil {
		return errors.Wrap(err, "listen")
	}
	if c.SACDir == "" {
		return errors.New("sac_dir must not be empty")
	}
	if c.MaxFileSize < 1 {
		return errors.Errorf("max_file_size must be >= 1, got %d", c.MaxFileSize)
	}
	if c.Timeout < 0 {
		return errors.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// Validate checks the client section.
func (c *ClientConfig) Validate() error {
	if err := validateAddress(c.Address, false); err != nil {
		return errors.Wrap(err, "address")
	}
	if c.SACDir == "" {
		return errors.New("sac_dir must not be empty")
	}
	if c.DialTimeout < 0 {
		return errors.Errorf("dial_timeout must not be negative, got %s", c.DialTimeout)
	}
	return nil
}

// Validate checks the convert section.
func (c *ConvertConfig) Validate() error {
	if c.MaxSamples < 1 {
		return errors.Errorf("max_samples must be >= 1, got %d", c.MaxSamples)
	}
	if c.MaxSamples > tracebuf.MaxPacketSamples {
		return errors.Errorf("max_samples must be <= %d, got %d", tracebuf.MaxPacketSamples, c.MaxSamples)
	}
	if c.MinSampleInterval <= 0 {
		return errors.Errorf("min_sample_interval must be positive, got %g", c.MinSampleInterval)
	}
	return nil
}

// Validate checks the tank section.
func (c *TankConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("dir must not be empty")
	}
	if c.Stream == "" {
		return errors.New("stream must not be empty")
	}
	if c.BatchSize < 1 {
		return errors.Errorf("batch_size must be >= 1, got %d", c.BatchSize)
	}

	switch c.Remuxer {
	case RemuxerCommand:
		if c.RemuxCommand == "" {
			return errors.New("remux_command must not be empty")
		}
	case RemuxerArchive:
	default:
		return errors.Errorf("remuxer must be %q or %q, got %q", RemuxerCommand, RemuxerArchive, c.Remuxer)
	}

	if c.S3.Enabled() && c.S3.Region == "" {
		return errors.New("s3: region must be set when a bucket is configured")
	}
	return nil
}

// Validate checks the logging section.
func (c *LoggingConfig) Validate() error {
	_, err := logging.ParseLevel(c.Level)
	return err
}

// Validate checks the metrics section.
func (c *MetricsConfig) Validate() error {
	if c.Address == "" {
		return nil
	}
	return errors.Wrap(validateAddress(c.Address, true), "address")
}

// validateAddress checks a "host:port" address. If listen is true, the host
// may be empty.
func validateAddress(addr string, listen bool) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" && !listen {
		return errors.Errorf("%q has no host", addr)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %q", portStr)
	}
	return nil
}
