package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/biadnet/go-biadnet/config"
)

func loadConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	var conf *config.Config
	c := &cobra.Command{
		Use: "test",
		RunE: func(c *cobra.Command, _ []string) error {
			var err error
			conf, err = LoadConfig(c)
			return err
		},
	}
	AddFlags(c)
	c.SetArgs(args)
	require.NoError(t, c.Execute())
	return conf
}

func TestLoadConfigDefaults(t *testing.T) {
	conf := loadConfig(t)
	require.Equal(t, config.DefaultConfig(), *conf)
}

func TestLoadConfigPreset(t *testing.T) {
	conf := loadConfig(t, "--preset", "fastnet")
	require.Equal(t, "fastnet", conf.Sketch.Network)
	require.Equal(t, 5*time.Second, conf.Updater.PollInterval)
}

func TestLoadConfigPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"sketch": {"network": "file", "buckets": 300},
		"updater": {"poll-interval": "20s"}
	}`), 0o600))

	conf := loadConfig(t,
		"--preset", "fastnet",
		"--config", path,
		"--buckets", "400",
		"--listen", "/ip4/127.0.0.1/tcp/1,/ip4/127.0.0.1/tcp/2",
	)
	// flag over file
	require.Equal(t, uint32(400), conf.Sketch.Buckets)
	// file over preset
	require.Equal(t, "file", conf.Sketch.Network)
	require.Equal(t, 20*time.Second, conf.Updater.PollInterval)
	// preset over defaults
	require.Equal(t, uint8(3), conf.Sketch.Hashes)
	require.Equal(t, []string{"/ip4/127.0.0.1/tcp/1", "/ip4/127.0.0.1/tcp/2"}, conf.P2P.Listen)
}

func TestLoadConfigStoreFlags(t *testing.T) {
	conf := loadConfig(t, "--db-connections", "4", "--cache-size", "10", "-d", "/tmp/store")
	require.Equal(t, 4, conf.Store.Connections)
	require.Equal(t, 10, conf.Store.CacheSize)
	require.Equal(t, "/tmp/store", conf.Store.DataDir)
}

func TestLoadConfigUnknownPreset(t *testing.T) {
	c := &cobra.Command{Use: "test"}
	AddFlags(c)
	require.NoError(t, c.ParseFlags([]string{"--preset", "unknown"}))
	_, err := LoadConfig(c)
	require.Error(t, err)
}
