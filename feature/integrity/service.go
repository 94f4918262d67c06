package integrity

import (
	"context"
	"fmt"

	"commerce-reconciler/core/reconcile"
	"commerce-reconciler/core/storage"
	"commerce-reconciler/feature/integrity/checks"
	"commerce-reconciler/feature/orders"
	"commerce-reconciler/feature/pricing"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TargetModels lists every target table the engine reads or writes.
func TargetModels() []any {
	return []any{
		pricing.IdentityMapping{},
		pricing.CurrencyMeta{},
		pricing.CurrencyAlias{},
		pricing.PriceRecord{},
		orders.Order{},
		orders.OrderLine{},
		orders.ShippingProfileLink{},
		orders.ShippingMethodAssignment{},
		orders.ReservationItem{},
		orders.CatalogProduct{},
		orders.ShippingOption{},
		reconcile.RunRecord{},
	}
}

// Service handles integrity checks.
type Service struct {
	target  *gorm.DB
	source  *gorm.DB
	profile pricing.SourceProfile
	client  storage.Client
	bucket  string
	prefix  string
	logger  *zap.Logger
}

// NewService creates a new integrity service. source and client may be nil;
// the checks that need them then fail with an error.
func NewService(target, source *gorm.DB, profile pricing.SourceProfile, client storage.Client, storageCfg storage.Config, logger *zap.Logger) *Service {
	return &Service{
		target:  target,
		source:  source,
		profile: profile,
		client:  client,
		bucket:  storageCfg.Bucket,
		prefix:  storageCfg.Prefix,
		logger:  logger,
	}
}

// CheckTargetSchema compares the target store with the engine's models.
func (s *Service) CheckTargetSchema() (*checks.SchemaReport, error) {
	return checks.CheckModels(s.target, "target", TargetModels()...)
}

// CheckSourceSchema checks that the legacy table has every column of the source profile.
func (s *Service) CheckSourceSchema() (*checks.SchemaReport, error) {
	columns := make([]string, 0, len(s.profile.Columns))
	for _, field := range []string{pricing.ColID, pricing.ColPrice, pricing.ColDiscount, pricing.ColCurrency} {
		if col := s.profile.Column(field); col != "" {
			columns = append(columns, col)
		}
	}
	return checks.CheckColumns(s.source, "source", s.profile.Table, columns)
}

// CheckReports reports the state of the report bucket.
func (s *Service) CheckReports(ctx context.Context) (*checks.ReportsStatus, error) {
	if s.client == nil {
		return nil, fmt.Errorf("storage client is not configured")
	}
	return checks.CheckReports(ctx, s.client, s.bucket, s.reportFolders())
}

// FixReports creates what CheckReports found missing.
func (s *Service) FixReports(ctx context.Context, status *checks.ReportsStatus) error {
	if s.client == nil {
		return fmt.Errorf("storage client is not configured")
	}
	return checks.FixReports(ctx, s.client, s.bucket, s.logger, status)
}

func (s *Service) reportFolders() []string {
	return checks.ReportFolders(s.prefix, []string{string(reconcile.ModePriceSync), string(reconcile.ModeOrderRepair)})
}
