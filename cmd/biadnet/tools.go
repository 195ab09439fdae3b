package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/biadnet/go-biadnet/cmd"
	"github.com/biadnet/go-biadnet/store"
	"github.com/biadnet/go-biadnet/updater"
)

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <file>...",
		Short: "add files to the local content store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) (err error) {
			conf, err := cmd.LoadConfig(c)
			if err != nil {
				return err
			}
			st, err := openStore(zap.NewNop(), conf)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, st.Close())
			}()
			for _, name := range args {
				data, err := os.ReadFile(name)
				if err != nil {
					return err
				}
				if len(data) > updater.MaxContentSize {
					return fmt.Errorf("%s: content exceeds %d bytes", name, updater.MaxContentSize)
				}
				id, err := st.Put(data)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintf(c.OutOrStdout(), "%s\t%s\n", id, name)
			}
			return nil
		},
	}
}

func sketchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sketch",
		Short: "print the state of the local sketch",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) (err error) {
			conf, err := cmd.LoadConfig(c)
			if err != nil {
				return err
			}
			st, err := openStore(zap.NewNop(), conf)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, st.Close())
			}()
			printSketch(c, st)
			return nil
		},
	}
}

func printSketch(c *cobra.Command, st *store.Store) {
	sketch := st.Sketch()
	params := st.Params()
	out := c.OutOrStdout()
	fmt.Fprintf(out, "buckets:    %d\n", sketch.Size())
	fmt.Fprintf(out, "hashes:     %d\n", sketch.K())
	fmt.Fprintf(out, "seeds:      %016x %016x\n", params.Seed0, params.Seed1)
	fmt.Fprintf(out, "content:    %d\n", st.Count())
	if tip, ok := st.Tip(); ok {
		fmt.Fprintf(out, "tip:        %s\n", tip)
	}
	fmt.Fprintf(out, "overloaded: %t\n", sketch.IsOverloaded())
}
