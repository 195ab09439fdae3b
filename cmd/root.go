// Package cmd holds the flags and the config loading shared by the executables.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/biadnet/go-biadnet/config"
	"github.com/biadnet/go-biadnet/config/presets"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

const (
	presetFlag = "preset"
	configFlag = "config"
)

// flagKeys maps the command line flags to the config keys they override.
var flagKeys = map[string]string{
	"data-folder":    "store.data-folder",
	"cache-size":     "store.cache-size",
	"db-connections": "store.connections",
	"network":        "sketch.network",
	"buckets":        "sketch.buckets",
	"hashes":         "sketch.hashes",
	"poll-interval":  "updater.poll-interval",
	"reply-timeout":  "updater.reply-timeout",
	"listen":         "p2p.listen",
	"bootnodes":      "p2p.bootnodes",
	"metrics":        "metrics.enable",
	"metrics-listen": "metrics.listen",
	"metrics-push":   "metrics.push-url",
	"log-encoder":    "logging.log-encoder",
	"log-level":      "logging.level",
}

// AddFlags adds the persistent config flags to the command.
func AddFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	flags := cmd.PersistentFlags()
	flags.StringP(presetFlag, "p", "",
		fmt.Sprintf("preset overwrites default values of the config. options %+s", presets.Options()))
	flags.StringP(configFlag, "c", "", "load configuration from file")

	/** ======================== Store Flags ========================== **/
	flags.StringP("data-folder", "d", def.Store.DataDir, "directory of the content database")
	flags.Int("cache-size", def.Store.CacheSize, "number of content payloads cached in memory")
	flags.Int("db-connections", def.Store.Connections, "size of the database connection pool")

	/** ======================== Sketch Flags ========================== **/
	flags.String("network", def.Sketch.Network, "network name, the sketch seeds are derived from it")
	flags.Uint32("buckets", def.Sketch.Buckets, "number of buckets in the sketch")
	flags.Uint8("hashes", def.Sketch.Hashes, "number of buckets touched by each content id")

	/** ======================== Updater Flags ========================== **/
	flags.Duration("poll-interval", def.Updater.PollInterval, "interval between polls of the peers")
	flags.Duration("reply-timeout", def.Updater.ReplyTimeout, "time to wait for a peer reply")

	/** ======================== P2P Flags ========================== **/
	flags.StringSlice("listen", def.P2P.Listen, "multiaddrs to listen on")
	flags.StringSlice("bootnodes", def.P2P.Bootnodes, "multiaddrs of the peers to connect on start")

	/** ======================== Metrics Flags ========================== **/
	flags.Bool("metrics", def.Metrics.Enable, "collect node metrics")
	flags.String("metrics-listen", def.Metrics.Listen, "address of the metrics server")
	flags.String("metrics-push", def.Metrics.PushURL, "push metrics to url")

	/** ======================== Logging Flags ========================== **/
	flags.String("log-encoder", def.Logging.Encoder, "log encoder, console or json")
	flags.String("log-level", def.Logging.Level, "log level")
}

// LoadConfig builds the config of the command: defaults, then the preset,
// then the config file, then the flags set on the command line.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	conf := config.DefaultConfig()
	preset, err := flags.GetString(presetFlag)
	if err != nil {
		return nil, err
	}
	if preset != "" {
		conf, err = presets.Get(preset)
		if err != nil {
			return nil, err
		}
	}
	file, err := flags.GetString(configFlag)
	if err != nil {
		return nil, err
	}
	vip := viper.New()
	if err := config.LoadConfig(file, vip); err != nil {
		return nil, err
	}
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && err == nil {
			err = vip.BindPFlag(key, f)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if err := config.Unmarshal(vip, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}
