package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"order-reconciliation/internal/config"
	"order-reconciliation/internal/domain"
	"order-reconciliation/internal/gateway"
	"order-reconciliation/internal/logging"
	"order-reconciliation/internal/usecase"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Run flags
	startDate   string
	endDate     string
	saveReports bool
	workers     int
	replayDir   string
	runFor      []string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Reconcile back-office order exports against the fulfilment portals",
	Long: `reconciler downloads the order exports for each configured category,
narrows them with the category filters and looks every order up in the
delivery portal or the legacy order portal. Orders that cannot be confirmed
are written, grouped by report, to Report_<MM_DD_YYYY-HH_MM_SS>.xlsx.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.Development)
		if err != nil {
			return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one reconciliation over a date range",
	Long: `Runs every selected category in order. Dates use DD/MM/YYYY HH:MM and
default to yesterday 00:00 up to now.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List the configured categories in run order",
	Args:  cobra.NoArgs,
	RunE:  listCategories,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file (default ./reconciler.yaml)")

	runCmd.Flags().StringVar(&startDate, "start", "", "Start of the export window (DD/MM/YYYY HH:MM)")
	runCmd.Flags().StringVar(&endDate, "end", "", "End of the export window (DD/MM/YYYY HH:MM)")
	runCmd.Flags().BoolVar(&saveReports, "save-reports", false, "Keep a copy of every downloaded export")
	runCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent lookups per category (default from config)")
	runCmd.Flags().StringVar(&replayDir, "replay-dir", "", "Read saved exports from this directory instead of downloading them")
	runCmd.Flags().StringSliceVar(&runFor, "category", nil, "Category to run, repeatable (default from config)")

	rootCmd.AddCommand(runCmd, categoriesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, domain.ErrConfiguration) {
		return 2
	}
	return 1
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cmd.Flags().Changed("workers") {
		cfg.Run.Workers = workers
	}
	if saveReports {
		cfg.Run.SaveReports = true
	}
	if replayDir != "" {
		cfg.Run.ReplayDir = replayDir
	}
	if len(runFor) > 0 {
		cfg.Run.RunFor = runFor
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	dates, err := domain.ParseDateRange(startDate, endDate, time.Now())
	if err != nil {
		return err
	}
	plans, err := selectPlans()
	if err != nil {
		return err
	}
	if err := checkCredentials(plans); err != nil {
		return err
	}

	// --- Dependency Injection (Wiring the application) ---
	registry := prometheus.NewRegistry()

	var source usecase.ReportSource
	if cfg.Run.ReplayDir != "" {
		source = gateway.NewFileReportSource(cfg.Run.ReplayDir, logger)
	} else {
		source = gateway.NewExportReportSource(gateway.ExportOptions{
			URL:         cfg.Export.URL,
			Headers:     cfg.Export.Headers,
			Timeout:     cfg.Export.Timeout,
			SaveReports: cfg.Run.SaveReports,
			ReportsDir:  cfg.Run.ReportsDir,
		}, logger)
	}

	delivery := gateway.NewDeliveryClient(gateway.DeliveryOptions{
		BaseURL:   cfg.Delivery.BaseURL,
		Username:  cfg.Delivery.Username,
		Password:  cfg.Delivery.Password,
		Timezone:  cfg.Delivery.Timezone,
		Timeout:   cfg.Delivery.Timeout,
		Retries:   cfg.Delivery.Retries,
		Backoff:   cfg.Delivery.Backoff,
		RateLimit: cfg.Delivery.RateLimit,
	}, registry, logger)

	legacy := gateway.NewLegacyClient(gateway.LegacyOptions{
		BaseURL:  cfg.Legacy.BaseURL,
		Username: cfg.Legacy.Username,
		Password: cfg.Legacy.Password,
		Timeout:  cfg.Legacy.Timeout,
		Retries:  cfg.Legacy.Retries,
		Backoff:  cfg.Legacy.Backoff,
	}, gateway.TableResultParser{}, logger)

	writer := gateway.NewWorkbookWriter(cfg.Run.OutputDir, logger)

	reconciliationUseCase := usecase.NewReconciliationUseCase(source, delivery, legacy, writer, logger, usecase.Options{
		Workers:    cfg.Run.Workers,
		Registerer: registry,
	})

	// --- Execute the Usecase ---
	result, err := reconciliationUseCase.Reconcile(ctx, dates, plans)
	if result != nil {
		if perr := printSummary(cmd, result); perr != nil {
			logger.Warn("Unable to print run summary", zap.Error(perr))
		}
	}
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	if result.Cancelled {
		return fmt.Errorf("reconciliation interrupted: %w", context.Cause(ctx))
	}
	return nil
}

func selectPlans() ([]domain.CategoryPlan, error) {
	catalogue, err := config.LoadCatalogue(cfg.Run.CategoriesFile)
	if err != nil {
		return nil, err
	}
	return catalogue.Select(cfg.Run.RunFor)
}

// checkCredentials fails before any request when a selected category needs a
// portal whose login is not configured.
func checkCredentials(plans []domain.CategoryPlan) error {
	for _, p := range plans {
		switch p.Target {
		case domain.TargetDelivery:
			if cfg.Delivery.Username == "" || cfg.Delivery.Password == "" {
				return fmt.Errorf("%w: category %q needs delivery portal credentials", domain.ErrConfiguration, p.Name)
			}
		case domain.TargetLegacy:
			if cfg.Legacy.Username == "" || cfg.Legacy.Password == "" {
				return fmt.Errorf("%w: category %q needs legacy portal credentials", domain.ErrConfiguration, p.Name)
			}
		}
	}
	return nil
}

// runSummary is what gets printed on stdout; the discrepancy rows live in the workbook.
type runSummary struct {
	RunID       string                   `json:"run_id"`
	DateRange   string                   `json:"date_range"`
	Categories  []domain.CategorySummary `json:"categories"`
	Reconciled  bool                     `json:"reconciled"`
	Cancelled   bool                     `json:"cancelled"`
	OutputPath  string                   `json:"output_path,omitempty"`
	OutputError string                   `json:"output_error,omitempty"`
}

func printSummary(cmd *cobra.Command, result *domain.RunResult) error {
	output, err := json.MarshalIndent(runSummary{
		RunID:       result.RunID,
		DateRange:   result.DateRange.String(),
		Categories:  result.Categories,
		Reconciled:  result.Reconciled(),
		Cancelled:   result.Cancelled,
		OutputPath:  result.OutputPath,
		OutputError: result.OutputError,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate JSON summary: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return err
}

func listCategories(cmd *cobra.Command, args []string) error {
	plans, err := selectPlans()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, p := range plans {
		fmt.Fprintf(out, "%d. %s\n", i+1, p.Name)
		fmt.Fprintf(out, "   report:  %s (%s)\n", p.Category.DisplayName(), p.Category)
		fmt.Fprintf(out, "   lookup:  %s\n", p.Target)
		for _, f := range p.Filters {
			note := ""
			if !f.Method.Known() {
				note = " (unsupported, rows pass through)"
			}
			fmt.Fprintf(out, "   filter:  %s %s [%s]%s\n", f.Column, f.Method, strings.Join(f.Values, ", "), note)
		}
	}
	return nil
}
