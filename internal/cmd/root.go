package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/Iron-Ham/packstream/internal/cmd/config"
	"github.com/Iron-Ham/packstream/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "packstream",
	Short: "Bundle piped files with esbuild",
	Long: `packstream reads source files into a pipeline, builds them as entry
points with esbuild and writes the bundles (and any extra artifacts) to an
output directory. In watch mode it rebuilds on change and keeps going when a
build fails.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is ./packstream.yaml or $HOME/.config/packstream/packstream.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	configcmd.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("packstream")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PACKSTREAM")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PACKSTREAM_STATS_COLORS for stats.colors
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing default config file is fine; an explicit one is checked
	// by the commands that need it.
	_ = viper.ReadInConfig()
}
