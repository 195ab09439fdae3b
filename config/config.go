// Package config contains the node configuration definitions.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/mitchellh/mapstructure"
	"github.com/multiformats/go-multiaddr"
	"github.com/spf13/viper"

	"github.com/biadnet/go-biadnet/p2p/server"
	"github.com/biadnet/go-biadnet/store"
	"github.com/biadnet/go-biadnet/updater"
)

const (
	defaultDataDirName = "biadnet"
	storeFileName      = "content.sql"
)

// Config defines the top level configuration of a node.
type Config struct {
	Store   StoreConfig    `mapstructure:"store"`
	Sketch  SketchConfig   `mapstructure:"sketch"`
	Updater updater.Config `mapstructure:"updater"`
	Server  ServerConfig   `mapstructure:"server"`
	P2P     P2PConfig      `mapstructure:"p2p"`
	Metrics MetricsConfig  `mapstructure:"metrics"`
	Logging LoggerConfig   `mapstructure:"logging"`
}

// StoreConfig defines the content store options.
type StoreConfig struct {
	DataDir string `mapstructure:"data-folder"`
	// CacheSize is the number of content payloads kept in memory.
	CacheSize int `mapstructure:"cache-size"`
	// Connections is the size of the database connection pool.
	Connections int `mapstructure:"connections"`
}

// Path returns the path of the content database.
func (cfg StoreConfig) Path() string {
	return filepath.Join(cfg.DataDir, storeFileName)
}

// SketchConfig defines the sketch parameters, which must be the same for all
// the nodes of a network.
type SketchConfig struct {
	// Network name, from which the sketch hash seeds are derived.
	Network string `mapstructure:"network"`
	Buckets uint32 `mapstructure:"buckets"`
	Hashes  uint8  `mapstructure:"hashes"`
}

// Params returns the sketch parameters for the store.
func (cfg SketchConfig) Params() store.SketchParams {
	return store.ParamsForNetwork(cfg.Network, cfg.Buckets, cfg.Hashes)
}

// ServerConfig defines the request server options.
type ServerConfig struct {
	Timeout             time.Duration `mapstructure:"timeout"`
	QueueSize           int           `mapstructure:"queue-size"`
	RequestsPerInterval int           `mapstructure:"requests-per-interval"`
	Interval            time.Duration `mapstructure:"interval"`
}

// Opts returns the request server options.
func (cfg ServerConfig) Opts(metrics bool) []server.Opt {
	opts := []server.Opt{
		server.WithTimeout(cfg.Timeout),
		server.WithQueueSize(cfg.QueueSize),
		server.WithRequestsPerInterval(cfg.RequestsPerInterval, cfg.Interval),
	}
	if metrics {
		opts = append(opts, server.WithMetrics())
	}
	return opts
}

// P2PConfig defines the libp2p host options.
type P2PConfig struct {
	Listen    []string `mapstructure:"listen"`
	Bootnodes []string `mapstructure:"bootnodes"`
}

// ListenAddrs parses the listen addresses.
func (cfg P2PConfig) ListenAddrs() ([]multiaddr.Multiaddr, error) {
	addrs := make([]multiaddr.Multiaddr, 0, len(cfg.Listen))
	for _, s := range cfg.Listen {
		addr, err := multiaddr.NewMultiaddr(s)
		if err != nil {
			return nil, fmt.Errorf("listen address %q: %w", s, err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// BootnodeAddrs parses the bootnode addresses, which must include the peer ID.
func (cfg P2PConfig) BootnodeAddrs() ([]peer.AddrInfo, error) {
	infos := make([]peer.AddrInfo, 0, len(cfg.Bootnodes))
	for _, s := range cfg.Bootnodes {
		info, err := peer.AddrInfoFromString(s)
		if err != nil {
			return nil, fmt.Errorf("bootnode %q: %w", s, err)
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// MetricsConfig defines the metrics options.
type MetricsConfig struct {
	Enable     bool          `mapstructure:"enable"`
	Listen     string        `mapstructure:"listen"`
	PushURL    string        `mapstructure:"push-url"`
	PushPeriod time.Duration `mapstructure:"push-period"`
}

// DefaultConfig returns the default node configuration.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			DataDir:     filepath.Join(".", defaultDataDirName),
			CacheSize:   1024,
			Connections: 16,
		},
		Sketch: SketchConfig{
			Network: "mainnet",
			Buckets: 2048,
			Hashes:  4,
		},
		Updater: updater.DefaultConfig(),
		Server: ServerConfig{
			Timeout:             25 * time.Second,
			QueueSize:           1000,
			RequestsPerInterval: 100,
			Interval:            time.Second,
		},
		P2P: P2PConfig{
			Listen: []string{"/ip4/0.0.0.0/tcp/7513"},
		},
		Metrics: MetricsConfig{
			Listen:     "127.0.0.1:9513",
			PushPeriod: time.Minute,
		},
		Logging: defaultLoggingConfig(),
	}
}

// LoadConfig reads the config file into vip.
func LoadConfig(fileLocation string, vip *viper.Viper) error {
	if fileLocation == "" {
		return nil
	}
	vip.SetConfigFile(fileLocation)
	if err := vip.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", fileLocation, err)
	}
	return nil
}

// Unmarshal decodes the settings loaded into vip on top of conf.
func Unmarshal(vip *viper.Viper, conf *Config) error {
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := vip.Unmarshal(conf, viper.DecodeHook(hook)); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
