package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"commerce-reconciler/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "commerce-reconciler",
	Short: "Commerce Reconciliation Engine",
	Long: `commerce-reconciler brings a commerce platform's store back in line with its sources.
It syncs prices from a legacy catalog database and repairs orders with incomplete fulfillment state.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError ends the process with a status code without logging a failure.
// Runs that finish with failed units or unresolved orders return one.
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func Execute() {
	err := RootCmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}

	// Console encoding with the development config keeps CLI failures readable.
	cfg := &logger.Config{
		Level:  "debug",
		Format: "console",
	}

	l, logErr := logger.New(cfg)
	if logErr == nil {
		l.Error("command failed", zap.Error(err))
		_ = l.Sync()
	} else {
		fmt.Println(err)
	}
	os.Exit(1)
}
