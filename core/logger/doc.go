// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments (development vs production).
//
// # Run Correlation
//
// Every reconciliation run has an identifier. The WithRun helper attaches the run id, mode and
// dry-run flag to the logger so that all entries written while processing prices or orders can be
// correlated to a single run.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&cfg.Log)
//	log.Info("Run started")
//
//	l := logger.WithRun(log, run.ID, string(run.Mode), run.DryRun)
//	l.Warn("Order left unresolved", zap.String("order_id", id))
package logger
