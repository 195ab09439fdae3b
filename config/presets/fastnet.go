package presets

import (
	"time"

	"github.com/biadnet/go-biadnet/config"
)

func init() {
	register("fastnet", fastnet())
}

func fastnet() config.Config {
	conf := config.DefaultConfig()
	conf.Sketch.Network = "fastnet"
	conf.Sketch.Buckets = 512
	conf.Sketch.Hashes = 3

	conf.Updater.PollInterval = 5 * time.Second
	conf.Updater.ReplyTimeout = 5 * time.Second
	conf.Server.Timeout = 5 * time.Second
	conf.Logging.Level = "debug"
	return conf
}
