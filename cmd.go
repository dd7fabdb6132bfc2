package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "1.0.0" // Set during build with -ldflags
	config  *Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gofastcache-server",
	Short: "gofastcache - an in-memory TTL cache server with a memcached-style text protocol",
	Long: `gofastcache-server is an in-memory key-value cache speaking a
line-oriented text protocol modeled on the memcached ASCII protocol.

Features:
- set/get/add/replace/append/prepend commands over plain TCP
- per-key TTL with a background sweeper doing random-sample eviction
- sharded store for low-contention concurrent access
- Prometheus metrics on a separate listener`,
	Version: version,
	RunE:    runServer,
}

// runServer starts the cache server and blocks until a shutdown signal
// arrives.
func runServer(cmd *cobra.Command, args []string) error {
	var err error
	config, err = LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := setupLogger(config)
	logger.Info().Str("config", config.String()).Msg("starting gofastcache-server")

	server := NewServer(config, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().Msg("gofastcache-server stopped")
	return nil
}

// configCmd shows the resolved configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		fmt.Println("gofastcache Configuration:")
		fmt.Println(strings.Repeat("=", 31))
		fmt.Printf("Host: %s\n", config.Host)
		fmt.Printf("Port: %d\n", config.Port)
		fmt.Printf("Shards: %d\n", config.Shards)
		fmt.Printf("Cleanup Gap: %v\n", config.CleanupGap)
		fmt.Printf("Sample Fraction: %.2f\n", config.SampleFraction)
		fmt.Printf("Repeat Ratio: %.2f\n", config.RepeatRatio)
		fmt.Printf("Log Level: %s\n", config.LogLevel)
		fmt.Printf("Log Format: %s\n", config.LogFormat)
		fmt.Printf("Metrics Addr: %s\n", config.MetricsAddr)

		return nil
	},
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gofastcache-server v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("host", "H", "127.0.0.1", "Host to bind to")
	rootCmd.PersistentFlags().IntP("port", "p", 11211, "Port to listen on")
	rootCmd.PersistentFlags().Int("shards", 32, "Number of store/lock-manager shards")
	rootCmd.PersistentFlags().Duration("cleanup-gap", 0, "Interval between sweeper passes (default 10s)")
	rootCmd.PersistentFlags().Float64("sample-fraction", 0, "Fraction of the store sampled per sweep pass (default 0.10)")
	rootCmd.PersistentFlags().Float64("repeat-ratio", 0, "Expired-fraction threshold above which the sweeper repeats without sleeping (default 0.25)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().String("metrics-addr", "127.0.0.1:9121", "Address to serve Prometheus metrics on (empty disables)")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("shards", rootCmd.PersistentFlags().Lookup("shards"))
	viper.BindPFlag("cleanup_gap", rootCmd.PersistentFlags().Lookup("cleanup-gap"))
	viper.BindPFlag("sample_fraction", rootCmd.PersistentFlags().Lookup("sample-fraction"))
	viper.BindPFlag("repeat_ratio", rootCmd.PersistentFlags().Lookup("repeat-ratio"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
