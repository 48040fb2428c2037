package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"simpleelastix/internal/logging"
	"simpleelastix/pkg/config"
	"simpleelastix/pkg/elastixbin"
)

const defaultConfigPath = "selx.yaml"

// runner replaces the elastix program in tests.
var runner elastixbin.Runner

// globals holds the persistent flags of the root command.
type globals struct {
	configPath string
	logLevel   string
}

// load reads the configuration and builds the logger it asks for. The
// --log-level flag wins over the file.
func (g *globals) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	log := logging.Console(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level))
	return cfg, log, nil
}

// NewCLI builds the selx command tree.
func NewCLI() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "selx",
		Short:         "Image registration with elastix",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", defaultConfigPath, "Configuration file")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(
		newRegisterCmd(g),
		newParamsCmd(),
		newConfigCmd(g),
	)
	return rootCmd
}

func newConfigCmd(g *globals) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.CreateDefaultConfigFile(g.configPath); err != nil {
				return err
			}
			cmd.Printf("Default configuration written to %s\n", g.configPath)
			return nil
		},
	}

	configCmd.AddCommand(initCmd)
	return configCmd
}
