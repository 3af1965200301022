package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pcamen/innodump/internal/config"
	"github.com/pcamen/innodump/internal/logging"
	"github.com/pcamen/innodump/internal/parser"
	"github.com/pcamen/innodump/internal/timeutil"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "innodump",
	Short: "Inspect Inno Setup installers and list their embedded payload",
	RunE:  inspect,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	// i/o
	rootCmd.Flags().StringP("input", "i", "", "path to installer .exe to inspect (required)")
	rootCmd.Flags().BoolP("list-files", "l", false, "list decoded entry records")
	rootCmd.MarkFlagRequired("input")

	// display settings
	rootCmd.Flags().String("timezone", "", "timezone for displayed timestamps (IANA name or e.g. GMT+1)")

	// other opts
	rootCmd.Flags().String("log-level", "info", "log level (trace, debug, info, warn, error, fatal)")
	rootCmd.Flags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stderr and file)")
	rootCmd.Flags().Bool("dry-run", false, "locate the payload without decoding entries (validation)")

	viper.BindPFlag("input", rootCmd.Flags().Lookup("input"))
	viper.BindPFlag("list_files", rootCmd.Flags().Lookup("list-files"))
	viper.BindPFlag("timezone", rootCmd.Flags().Lookup("timezone"))
	viper.BindPFlag("log_level", rootCmd.Flags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.Flags().Lookup("log-output-dir"))
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "innodump"))
		}
		viper.AddConfigPath("/etc/innodump")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("INNODUMP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// inspect runs the main innodump command against the specified installer
func inspect(cmd *cobra.Command, args []string) error {
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir); err != nil {
		return fmt.Errorf("could not set up logging: %w", err)
	}

	if cfg.Timezone != "" {
		if err := timeutil.SetLocalTimezone(cfg.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}

	slog.Info("inspecting installer", "input", cfg.InputFile)

	file, err := os.Open(cfg.InputFile)
	if err != nil {
		return fmt.Errorf("failed to open installer: %w", err)
	}
	defer file.Close()

	if err := parser.Parse(file, cfg); err != nil {
		slog.Error(fmt.Sprintf("error inspecting %s", cfg.InputFile), "error", err)

		return nil
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
