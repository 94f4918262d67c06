package cmd

import (
	"fmt"

	"commerce-reconciler/core/database"
	"commerce-reconciler/core/storage"
	"commerce-reconciler/feature/integrity"
	"commerce-reconciler/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var fixFlag bool

// integrityCmd groups the environment checks.
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the stores and the report bucket the engine depends on",
}

// schemaCmd checks target and source schemas.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check target and source tables against what the engine reads and writes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		// The source is optional here: a target-only deployment runs order-repair alone.
		var source *gorm.DB
		if conn, err := database.Connect(a.cfg.Source); err != nil {
			a.log.Warn("Optional source connection failed", zap.Error(err))
		} else {
			source = conn
			defer database.Close(conn)
		}

		svc := integrity.NewService(a.target, source, a.cfg.Pricing.SourceProfile(), nil, a.cfg.Storage, a.log)

		matched := true
		a.log.Info("Checking target schema...")
		report, err := svc.CheckTargetSchema()
		if err != nil {
			return fmt.Errorf("target schema check failed: %w", err)
		}
		matched = logSchemaReport(a.log, report) && matched

		if source != nil {
			a.log.Info("Checking source schema...", zap.String("table", a.cfg.Pricing.SourceProfile().Table))
			report, err := svc.CheckSourceSchema()
			if err != nil {
				return fmt.Errorf("source schema check failed: %w", err)
			}
			matched = logSchemaReport(a.log, report) && matched
		}

		if !matched {
			return &exitError{code: 1}
		}
		return nil
	},
}

// reportsCmd checks, and with --fix creates, the report bucket layout.
var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Check and fix the report bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		client, err := storage.NewClient(a.cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage client: %w", err)
		}

		svc := integrity.NewService(a.target, nil, a.cfg.Pricing.SourceProfile(), client, a.cfg.Storage, a.log)
		status, err := svc.CheckReports(cmd.Context())
		if err != nil {
			return fmt.Errorf("report bucket check failed: %w", err)
		}

		if status.BucketExists && len(status.Missing) == 0 {
			a.log.Info("Report bucket is intact.", zap.String("bucket", a.cfg.Storage.Bucket))
			return nil
		}
		a.log.Warn("Report bucket incomplete",
			zap.String("bucket", a.cfg.Storage.Bucket),
			zap.Bool("bucket_exists", status.BucketExists),
			zap.Strings("missing", status.Missing),
		)

		if !fixFlag {
			a.log.Info("Run with --fix to create the bucket and missing folders.")
			return &exitError{code: 1}
		}
		if err := svc.FixReports(cmd.Context(), status); err != nil {
			return fmt.Errorf("failed to fix report bucket: %w", err)
		}
		a.log.Info("Report bucket fixed successfully.")
		return nil
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(schemaCmd, reportsCmd)

	reportsCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create the bucket and missing folders")
}

func logSchemaReport(l *zap.Logger, report *checks.SchemaReport) bool {
	if report.Matched {
		l.Info("Schema matches expected definition.", zap.String("store", report.Store))
		return true
	}

	l.Warn("Schema mismatches found", zap.String("store", report.Store))
	for _, table := range report.TableNames() {
		tbl := report.Tables[table]
		if tbl.Status == "ok" {
			continue
		}
		if len(tbl.MissingColumns) > 0 {
			l.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tbl.MissingColumns))
		}
		if len(tbl.TypeMismatches) > 0 {
			l.Warn("Type Mismatches", zap.String("table", table), zap.Strings("mismatches", tbl.TypeMismatches))
		}
	}
	for _, e := range report.Errors {
		l.Error("Inspection Error", zap.String("error", e))
	}
	return false
}
