/*
Package archive exports workspace snapshots to S3-compatible object storage.

Archives are write-only exports for operators and auditors; the server never restores from
them. Each archive is a single JSON object keyed by its capture time.
*/
package archive

import (
	"context"
	"fmt"
	"time"

	"teamsync/internal/app/workspace"
)

// PresignedURLDuration is how long a presigned archive download link stays valid.
const PresignedURLDuration = 15 * time.Minute

// ServiceConfig holds the settings required to reach the object store.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

// Archiver stores snapshots and hands out download links for them.
type Archiver interface {
	// Archive uploads snap and returns its object key.
	Archive(ctx context.Context, snap workspace.Snapshot, at time.Time) (string, error)

	// PresignDownload returns a time-limited URL for downloading key.
	PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error)
}

// NewArchiver returns the S3-backed Archiver for cfg.
func NewArchiver(ctx context.Context, cfg ServiceConfig) (Archiver, error) {
	return newS3Archiver(ctx, cfg)
}

// ObjectKey returns the object key for a snapshot captured at at.
func ObjectKey(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("snapshots/%s/workspace-%s.json", at.Format("2006/01/02"), at.Format("20060102T150405.000Z"))
}
