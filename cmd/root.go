package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/codecurrent-sandbox/pgregistry/internal/application"
	"github.com/codecurrent-sandbox/pgregistry/internal/config"
	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"github.com/codecurrent-sandbox/pgregistry/internal/metrics"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

var (
	cfgFile string         // Path to custom config file (optional)
	cfg     *config.Config // Global reference to loaded configuration
)

// rootCmd defines the main CLI command for pgregistry
var rootCmd = &cobra.Command{
	Use:   "pgregistry",
	Short: "pgregistry is a PostgreSQL connection profile registry service",
	Long:  `Validates declarative PostgreSQL connection profiles at load time and serves them for bulk import by administration tools.`,
	Example: `
  pgregistry serve --registry servers.yaml
  pgregistry serve --log-level debug --metrics-port 9090
  pgregistry validate --registry /etc/pgregistry/servers.yaml
  pgregistry list
  pgregistry probe`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for version command
		if cmd.Name() == "version" {
			return nil
		}

		// Load configuration (use nil logger to avoid sync issues)
		var err error
		cfg, err = config.Load(cfgFile, nil)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %v", err)
		}

		// Override config with command line flags if specified
		flags := cmd.Flags()
		if flags.Changed("registry") {
			cfg.Registry.Path, _ = flags.GetString("registry")
		}
		if flags.Changed("listen-addr") {
			cfg.HTTP.ListenAddr, _ = flags.GetString("listen-addr")
		}
		if flags.Changed("probe-on-load") {
			cfg.Registry.ProbeOnLoad, _ = flags.GetBool("probe-on-load")
		}
		if flags.Changed("strict-secrets") {
			cfg.Registry.StrictSecrets, _ = flags.GetBool("strict-secrets")
		}
		if flags.Changed("metrics-port") {
			portStr, _ := flags.GetString("metrics-port")
			cfg.Metrics.Port, _ = strconv.Atoi(portStr)
		}

		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior: show help when no subcommand is provided
		if err := cmd.Help(); err != nil {
			fmt.Fprintf(os.Stderr, "Error displaying help: %v\n", err)
		}
	},
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// init is automatically called before main(), sets up flags and subcommands
func init() {
	// Add persistent flags (inherited by all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to custom config file (optional)")

	// CLI flags for registry configuration
	rootCmd.PersistentFlags().String("registry", "", "Path to the connection profile registry file")
	rootCmd.PersistentFlags().String("listen-addr", "", "Address the registry API listens on")
	rootCmd.PersistentFlags().Bool("probe-on-load", false, "Probe every server after loading the registry")
	rootCmd.PersistentFlags().Bool("strict-secrets", false, "Fail when a password_env variable is not set")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-file", "", "Path to the log file")
	rootCmd.PersistentFlags().String("log-format", "console", "Log output format (console or json)")
	rootCmd.PersistentFlags().String("metrics-port", "8181", "Port for Prometheus metrics server")

	// A simple version subcommand
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of pgregistry",
		Long:  "Print the version number of pgregistry along with build information",
		Run: func(cmd *cobra.Command, args []string) {
			// Check if detailed flag is provided
			if detailed, _ := cmd.Flags().GetBool("detailed"); detailed {
				fmt.Println(GetFullVersionInfo())
			} else {
				fmt.Println(GetVersionWithPrefix())
			}
		},
	}
	versionCmd.Flags().BoolP("detailed", "d", false, "Show detailed version information")
	rootCmd.AddCommand(versionCmd)

	// Add serve subcommand
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the registry API server",
		Long:  "Load and validate the connection profile registry, then serve it over HTTP",
		Run: func(cmd *cobra.Command, args []string) {
			if cfgFile != "" {
				absPath, err := filepath.Abs(cfgFile)
				if err != nil {
					logger.Error("Failed to resolve absolute path for config", zap.Error(err))
					os.Exit(1)
				}
				cfgFile = absPath
				logger.Info("Using config file", zap.String("config_file", cfgFile))
			}

			// Use the context passed down from main.go
			ctx := cmd.Context()

			// Initialize metrics
			metrics.RegisterMetrics()

			// Initialize the application
			logger.Info("Starting registry service...")
			app, err := application.New(ctx, cfg)
			if err != nil {
				logger.Error("Failed to initialize the registry service", zap.Error(err))
				os.Exit(1)
			}

			// Set up graceful shutdown handling
			go func() {
				<-ctx.Done() // Wait for cancellation signal
				logger.Info("Shutdown signal received, initiating graceful shutdown...")
				app.Shutdown()
			}()

			// Start serving
			if err := app.Start(ctx); err != nil {
				logger.Error("Failed to start the registry service", zap.Error(err))
				os.Exit(1)
			}

			logger.Info("Registry service started successfully!")
		},
	}
	rootCmd.AddCommand(serveCmd)
}
