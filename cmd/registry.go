package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/codecurrent-sandbox/pgregistry/internal/logger"
	"github.com/codecurrent-sandbox/pgregistry/internal/registry"
	"github.com/codecurrent-sandbox/pgregistry/internal/storage"
	"github.com/codecurrent-sandbox/pgregistry/internal/workers"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// loadRegistryForCLI loads the registry for the offline subcommands,
// exiting with a descriptive message when validation fails.
func loadRegistryForCLI() *registry.Registry {
	opts := []registry.Option{registry.WithLogger(logger.New("registry"))}
	if cfg.Registry.StrictSecrets {
		opts = append(opts, registry.WithStrictSecrets())
	}

	reg, err := registry.Load(cfg.Registry.Path, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registry validation failed:\n%v\n", err)
		os.Exit(1)
	}
	return reg
}

func init() {
	// validate: load the registry and report, nothing else
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the connection profile registry",
		Long:  "Load the registry file and check every profile against the schema. Exits non-zero on the first invalid registry.",
		Run: func(cmd *cobra.Command, args []string) {
			reg := loadRegistryForCLI()
			fmt.Printf("Registry %s is valid: %d profile(s)\n", cfg.Registry.Path, reg.Len())
		},
	}
	rootCmd.AddCommand(validateCmd)

	// list: print every profile as a table
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the connection profiles in the registry",
		Run: func(cmd *cobra.Command, args []string) {
			reg := loadRegistryForCLI()

			var rows [][]string
			for _, p := range reg.Profiles() {
				rows = append(rows, []string{
					p.ID,
					p.Name,
					p.GroupName,
					p.Address(),
					p.MaintenanceDB,
					p.Username,
					p.SSLMode,
					strconv.Itoa(p.ConnectTimeout) + "s",
				})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
				Headers("ID", "Name", "Group", "Address", "Maintenance DB", "Username", "SSL Mode", "Timeout").
				Rows(rows...)

			fmt.Println(t)
		},
	}
	rootCmd.AddCommand(listCmd)

	// probe: check every server's reachability and print the outcome
	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe every server in the registry for reachability",
		Long:  "Dial each profile's maintenance database with its own ssl_mode and connect_timeout, then report the results.",
		Run: func(cmd *cobra.Command, args []string) {
			reg := loadRegistryForCLI()
			ctx := cmd.Context()

			pool := workers.NewWorkerPool(cfg.Registry.ProbeWorkers, cfg.Registry.ProbeQueueSize)
			defer pool.Stop()

			prober := storage.NewProber(logger.New("prober"))
			results := prober.ProbeAll(ctx, reg, pool)

			var rows [][]string
			for _, r := range results {
				latency := r.Latency.Truncate(1e6).String()
				rows = append(rows, []string{
					r.ProfileID,
					r.Name,
					r.Address,
					r.Status,
					r.Database,
					latency,
					strconv.Itoa(r.Attempts),
					r.Error,
				})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
				Headers("ID", "Name", "Address", "Status", "Database", "Latency", "Attempts", "Error").
				Rows(rows...)

			fmt.Println(t)

			reachable, unreachable := prober.Summary()
			logger.Info("Probe sweep complete",
				zap.Int("reachable", reachable),
				zap.Int("unreachable", unreachable))
			if unreachable > 0 {
				os.Exit(1)
			}
		},
	}
	rootCmd.AddCommand(probeCmd)
}
