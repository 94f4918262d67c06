package checks

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"commerce-reconciler/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ReportsStatus describes the report bucket.
type ReportsStatus struct {
	BucketExists bool     `json:"bucket_exists"`
	Missing      []string `json:"missing"`
}

// ReportFolders returns the folder of every mode under prefix.
func ReportFolders(prefix string, modes []string) []string {
	folders := make([]string, len(modes))
	for i, mode := range modes {
		folders[i] = path.Join(prefix, mode) + "/"
	}
	return folders
}

// CheckReports reports whether bucket exists and which report folders are missing.
func CheckReports(ctx context.Context, client storage.Client, bucket string, folders []string) (*ReportsStatus, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	status := &ReportsStatus{BucketExists: exists, Missing: []string{}}
	if !exists {
		status.Missing = append(status.Missing, folders...)
		return status, nil
	}

	for _, folder := range folders {
		opts := minio.ListObjectsOptions{
			Prefix:    folder,
			Recursive: false,
			MaxKeys:   1,
		}

		found := false
		for obj := range client.ListObjects(ctx, bucket, opts) {
			if obj.Err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", folder, obj.Err)
			}
			found = true
			break
		}

		if !found {
			status.Missing = append(status.Missing, folder)
		}
	}

	return status, nil
}

// FixReports creates the bucket if needed and a placeholder for every missing folder.
func FixReports(ctx context.Context, client storage.Client, bucket string, logger *zap.Logger, status *ReportsStatus) error {
	if !status.BucketExists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		logger.Info("Created report bucket", zap.String("bucket", bucket))
	}

	for _, folder := range status.Missing {
		_, err := client.PutObject(ctx, bucket, folder, bytes.NewReader([]byte{}), 0, minio.PutObjectOptions{})
		if err != nil {
			logger.Error("Failed to create folder", zap.String("folder", folder), zap.Error(err))
			return err
		}
		logger.Info("Created missing folder", zap.String("folder", folder))
	}
	return nil
}
