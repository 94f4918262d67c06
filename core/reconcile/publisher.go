package reconcile

import (
	"context"

	"commerce-reconciler/core/storage"
)

// Publisher receives the final summary of every run.
type Publisher interface {
	Publish(ctx context.Context, summary *Summary) error
}

// StoragePublisher uploads summaries as JSON objects to the report bucket.
type StoragePublisher struct {
	Client storage.Client
	Bucket string
	Prefix string
}

// Publish writes the summary to <prefix>/<mode>/<run_id>.json.
func (p *StoragePublisher) Publish(ctx context.Context, s *Summary) error {
	key := storage.ReportKey(p.Prefix, string(s.Mode), s.RunID)
	return storage.PutJSON(ctx, p.Client, p.Bucket, key, s)
}
