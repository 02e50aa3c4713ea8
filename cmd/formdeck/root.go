package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	verbose      bool
	profilesRoot string
	registryPath string
)

// rootCmd is the application entry point.
var rootCmd = &cobra.Command{
	Use:   "formdeck",
	Short: "Profile-driven form template resolution and document export",
	Long: `FormDeck resolves layered configuration profiles into merged catalogs,
computed bindings, and versioned form templates, then exports filled
documents through a deterministic render pipeline with artifact
integrity verification.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.formdeck.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&profilesRoot, "profiles-root", "", "profiles root directory (default ./profiles)")
	rootCmd.PersistentFlags().StringVar(&registryPath, "registry", "", "flat registry file (optional)")

	_ = viper.BindPFlag("profiles_root", rootCmd.PersistentFlags().Lookup("profiles-root"))
	_ = viper.BindPFlag("registry", rootCmd.PersistentFlags().Lookup("registry"))
}

// initConfig loads configuration from the config file and environment.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("failed to find home directory", "error", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".formdeck")
	}

	viper.SetEnvPrefix("FORMDECK")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		slog.Debug("using config file", "file", viper.ConfigFileUsed())
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	// Using TextHandler for CLI friendliness
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}
