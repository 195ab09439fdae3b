package presets

import (
	"os"
	"path/filepath"

	"github.com/biadnet/go-biadnet/config"
)

func init() {
	register("standalone", standalone())
}

// standalone runs a single node listening on localhost only.
func standalone() config.Config {
	conf := config.DefaultConfig()
	conf.Store.DataDir = filepath.Join(os.TempDir(), "biadnet-standalone")
	conf.Sketch.Network = "standalone"
	conf.P2P.Listen = []string{"/ip4/127.0.0.1/tcp/0"}
	conf.P2P.Bootnodes = nil
	return conf
}
