// Package main is the entrypoint for the Gatekeep admin CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/MacJediWizard/gatekeep/internal/billing"
	"github.com/MacJediWizard/gatekeep/internal/config"
	"github.com/MacJediWizard/gatekeep/internal/db"
	"github.com/MacJediWizard/gatekeep/internal/plan"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gatekeepctl",
		Short: "Gatekeep admin CLI - subscription entitlement operations",
		Long: `gatekeepctl administers a Gatekeep deployment directly against its database.

Run 'gatekeepctl config set-db' to point it at your database, then
'gatekeepctl stats' for a fleet overview.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newStatsCmd(),
		newPlansCmd(),
		newSweepCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gatekeepctl %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Built:      %s\n", BuildDate)
			fmt.Printf("  Go version: %s\n", runtime.Version())
			fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetDBCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultCLIConfigPath()
			if err != nil {
				return err
			}

			cfg, err := config.LoadCLIConfig(path)
			if err != nil {
				return err
			}

			fmt.Printf("Config file: %s\n", path)
			if cfg.DatabaseURL == "" {
				fmt.Println("  database_url: (not set)")
			} else {
				fmt.Printf("  database_url: %s\n", cfg.DatabaseURL)
			}
			return nil
		},
	}
}

func newConfigSetDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-db <database-url>",
		Short: "Set the database URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.DefaultCLIConfigPath()
			if err != nil {
				return err
			}

			cfg, err := config.LoadCLIConfig(path)
			if err != nil {
				return err
			}

			cfg.DatabaseURL = args[0]
			if err := config.SaveCLIConfig(path, cfg); err != nil {
				return err
			}

			fmt.Printf("Database URL saved to %s\n", path)
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show fleet-wide subscription statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			subs, err := database.GetAllSubscriptions(ctx)
			if err != nil {
				return fmt.Errorf("load subscriptions: %w", err)
			}

			stats := billing.Tally(subs)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Total subscriptions:\t%d\n", stats.Total)
			fmt.Fprintf(w, "Active:\t%d\n", stats.Active)
			fmt.Fprintf(w, "Trial:\t%d\n", stats.Trial)
			fmt.Fprintf(w, "Paid:\t%d\n", stats.Paid)
			fmt.Fprintf(w, "Estimated revenue:\t$%.2f\n", stats.EstimatedRevenue)
			fmt.Fprintf(w, "Churn rate:\t%.1f%%\n", stats.ChurnRatePercent)
			return w.Flush()
		},
	}
}

func newPlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Show the plan catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PLAN\tPRICE\tDAYS\tCUSTOMERS\tBRANCHES\tANALYTICS\tSUPPORT\tBRANDING\tAPI")
			for _, p := range plan.AllPlans() {
				info := plan.InfoFor(p)
				fmt.Fprintf(w, "%s\t$%.2f\t%d\t%s\t%s\t%t\t%t\t%t\t%t\n",
					info.Name,
					info.Price,
					info.Days,
					formatLimit(info.Features.MaxCustomers),
					formatLimit(info.Features.MaxBranches),
					info.Features.AdvancedAnalytics,
					info.Features.PrioritySupport,
					info.Features.CustomBranding,
					info.Features.APIAccess,
				)
			}
			return w.Flush()
		},
	}
}

func formatLimit(limit int) string {
	if plan.IsUnlimited(limit) {
		return "unlimited"
	}
	return fmt.Sprintf("%d", limit)
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire all active subscriptions whose period has lapsed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			expired, err := database.ExpireLapsedSubscriptions(ctx, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("expiry sweep: %w", err)
			}

			fmt.Printf("Expired %d lapsed subscription(s)\n", expired)
			return nil
		},
	}
}

// openDatabase connects using DATABASE_URL or the saved CLI configuration.
func openDatabase(ctx context.Context) (*db.DB, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		path, err := config.DefaultCLIConfigPath()
		if err != nil {
			return nil, err
		}
		cfg, err := config.LoadCLIConfig(path)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("no database configured: %w (set DATABASE_URL or run 'gatekeepctl config set-db')", err)
		}
		url = cfg.DatabaseURL
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.WarnLevel)

	dbCfg := db.DefaultConfig(url)
	dbCfg.MaxConns = 5
	dbCfg.MinConns = 1

	return db.New(ctx, dbCfg, logger)
}
