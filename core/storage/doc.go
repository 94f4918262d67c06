// Package storage provides an abstraction layer for the object storage that receives run reports.
//
// It wraps the MinIO Go client to provide a simplified interface for checking and creating the
// report bucket and uploading JSON summaries. This abstraction supports both AWS S3 and self-hosted
// MinIO instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it easier
// to mock storage interactions for unit testing (as seen in core/storage/mocks).
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	key := storage.ReportKey(cfg.Storage.Prefix, "price-sync", runID)
//	err = storage.PutJSON(ctx, client, cfg.Storage.Bucket, key, summary)
package storage
