// biadnet is a node which keeps a content store in sync with its peers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biadnet/go-biadnet/cmd"
)

var (
	version string
	commit  string
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "biadnet",
		Short:         "biadnet content node",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddFlags(root)
	root.AddCommand(nodeCmd(), putCmd(), sketchCmd())
	return root
}

func main() {
	cmd.Version = version
	cmd.Commit = commit
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
