// Package main is the entry point for eventbench, a driver that exercises
// the event dispatch core with synthetic workloads.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dshills/eventcore/internal/config"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "eventbench",
		Short:         "Drive the event dispatch core with synthetic workloads",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (toml, yaml or json)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (console, json)")

	cmd.AddCommand(newRunCmd(opts), newConfigCmd(opts), newVersionCmd())
	return cmd
}

// load resolves the configuration for cmd: defaults, then the config
// file, then EVENTCORE_* environment variables, then changed flags.
func (o *rootOptions) load(cmd *cobra.Command, bindings map[string]string) (config.Config, error) {
	v, err := config.NewViper(o.configPath)
	if err != nil {
		return config.Config{}, err
	}

	persistent := cmd.Root().PersistentFlags()
	if err := bind(v, persistent, "logging.level", "log-level"); err != nil {
		return config.Config{}, err
	}
	if err := bind(v, persistent, "logging.format", "log-format"); err != nil {
		return config.Config{}, err
	}
	for key, flag := range bindings {
		if err := bind(v, cmd.Flags(), key, flag); err != nil {
			return config.Config{}, err
		}
	}
	return config.Decode(v)
}

func bind(v *viper.Viper, flags *pflag.FlagSet, key, name string) error {
	f := flags.Lookup(name)
	if f == nil {
		return fmt.Errorf("unknown flag %q", name)
	}
	return v.BindPFlag(key, f)
}
