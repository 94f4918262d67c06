package cmd

import (
	"fmt"

	"commerce-reconciler/core/config"
	"commerce-reconciler/core/database"
	"commerce-reconciler/core/logger"
	"commerce-reconciler/core/reconcile"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds what every command needs: configuration, logger and store connections.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	target *gorm.DB
	source *gorm.DB
}

// loadApp loads configuration, builds the logger and connects to the target
// store. When withSource is set the legacy source pool is prepared lazily; the
// run pings it so an unreachable source still produces a failed run summary.
func loadApp(withSource bool) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &app{cfg: cfg, log: l}

	a.target, err = database.Connect(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target store: %w", err)
	}

	if withSource {
		a.source, err = database.Open(cfg.Source)
		if err != nil {
			_ = database.Close(a.target)
			return nil, fmt.Errorf("%w: %w", reconcile.ErrSourceUnavailable, err)
		}
	}

	return a, nil
}

func (a *app) close() {
	_ = database.Close(a.source)
	_ = database.Close(a.target)
	_ = a.log.Sync()
}
