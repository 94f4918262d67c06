package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"commerce-reconciler/core/lock"
	"commerce-reconciler/core/reconcile"
	"commerce-reconciler/core/storage"
	"commerce-reconciler/feature/orders"
	"commerce-reconciler/feature/pricing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	runDryRun  bool
	runOrderID string
	runWorkers int
	runJSON    bool
)

// runCmd executes one reconciliation run.
var runCmd = &cobra.Command{
	Use:       "run price-sync|order-repair",
	Short:     "Run a reconciliation",
	ValidArgs: []string{string(reconcile.ModePriceSync), string(reconcile.ModeOrderRepair)},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Long: `Run one reconciliation mode against the target store.

  price-sync    copy legacy prices into the target's price records
  order-repair  restore shipping profile links, shipping methods and reservations

The run ends with a summary. The exit status is 0 only when the run completed
with no failed units and nothing left unresolved.

Examples:
  # Preview a price sync without writing
  run price-sync --dry-run

  # Repair a single order and print the summary as JSON
  run order-repair --order-id order_01 --json

  # Repair every order with four workers
  run order-repair --workers 4`,
	RunE: runReconcile,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Report what would change without writing (overrides RUN_DRY_RUN)")
	runCmd.Flags().StringVar(&runOrderID, "order-id", "", "Restrict order-repair to one order")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of units processed concurrently (overrides RUN_WORKERS)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the summary as JSON on stdout")

	RootCmd.AddCommand(runCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	mode, err := reconcile.ParseMode(args[0])
	if err != nil {
		return err
	}
	if runOrderID != "" && mode != reconcile.ModeOrderRepair {
		return fmt.Errorf("--order-id only applies to %s", reconcile.ModeOrderRepair)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(mode == reconcile.ModePriceSync)
	if err != nil {
		return err
	}
	defer a.close()

	runCfg := a.cfg.Run
	if cmd.Flags().Changed("dry-run") {
		runCfg.DryRun = runDryRun
	}
	if runWorkers > 0 {
		runCfg.Workers = runWorkers
	}

	driver, err := newDriver(ctx, a, runCfg)
	if err != nil {
		return err
	}

	var adapter reconcile.Adapter
	switch mode {
	case reconcile.ModePriceSync:
		adapter = pricing.NewSyncAdapter(a.source, a.target, a.cfg.Pricing, runCfg, a.log)
	case reconcile.ModeOrderRepair:
		locker, err := lock.New(ctx, a.cfg.Lock)
		if err != nil {
			a.log.Warn("Distributed lock unavailable, repairing without it", zap.Error(err))
			locker = lock.Noop{}
		}
		defer locker.Close()

		repair := orders.NewRepairAdapter(
			a.target,
			a.cfg.Repair,
			orders.NewGormCatalog(a.target, a.cfg.Repair.DefaultShippingProfileID),
			orders.NewGormShipping(a.target),
			locker,
			a.log,
		)
		repair.OrderID = runOrderID
		adapter = repair
	}

	summary, runErr := driver.Run(ctx, adapter)
	if runJSON {
		if err := writeSummary(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if err := summary.UnresolvedErr(); err != nil {
		for _, u := range summary.Unresolved {
			a.log.Warn("Unresolved", zap.String("key", u.Key), zap.Strings("violations", u.Violations))
		}
		a.log.Error("Run finished with unresolved units", zap.Error(err))
	}
	if code := summary.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// newDriver wires the run recorder and, when enabled, the report publisher.
func newDriver(ctx context.Context, a *app, runCfg reconcile.Config) (*reconcile.Driver, error) {
	driver := reconcile.NewDriver(runCfg, a.log)

	if runCfg.RecordRuns && !runCfg.DryRun {
		recorder := reconcile.NewGormRecorder(a.target)
		if err := recorder.Migrate(ctx); err != nil {
			a.log.Warn("Run records disabled", zap.Error(err))
		} else {
			driver.Recorder = recorder
		}
	}

	if a.cfg.Storage.Enabled {
		client, err := storage.NewClient(a.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		driver.Publisher = &reconcile.StoragePublisher{
			Client: client,
			Bucket: a.cfg.Storage.Bucket,
			Prefix: a.cfg.Storage.Prefix,
		}
	}

	return driver, nil
}

func writeSummary(w io.Writer, summary *reconcile.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
