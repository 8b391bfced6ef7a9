// Package cmds holds the guidevault command line.
package cmds

import (
	"github.com/spf13/cobra"
	"github.com/voyagen/guidevault/internal/config"
	"github.com/voyagen/guidevault/internal/logging"
)

var (
	cfgFile    string
	logConsole bool

	conf *config.Config
)

func init() {
	cobra.OnInitialize(initConfig)
}

// NewRootCLI builds the guidevault command tree.
func NewRootCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "guidevault",
		Short:         "Channel roster and programme guide engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.AddCommand(NewServeCLI())
	rootCmd.AddCommand(NewImportCLI())
	rootCmd.AddCommand(NewGuideCLI())
	rootCmd.AddCommand(NewRemindCLI())
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file; environment variables are used when empty")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "human-readable log output instead of JSON")

	return rootCmd
}

// initConfig loads the configuration and sets up logging.
func initConfig() {
	var err error
	if cfgFile != "" {
		conf, err = config.LoadFromFile(cfgFile)
	} else {
		conf, err = config.Load()
	}
	cobra.CheckErr(err)

	logging.Init(conf.LogLevel, "guidevault", logConsole)
}
