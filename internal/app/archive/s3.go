package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"teamsync/internal/app/workspace"
)

const snapshotContentType = "application/json"

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type presigner interface {
	PresignGet(ctx context.Context, bucket, key string, duration time.Duration) (string, error)
}

// sdkPresigner adapts s3.PresignClient to presigner.
type sdkPresigner struct {
	client *s3.PresignClient
}

func (p sdkPresigner) PresignGet(ctx context.Context, bucket, key string, duration time.Duration) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(duration))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// s3Archiver implements Archiver on an S3-compatible bucket.
type s3Archiver struct {
	bucket    string
	uploader  uploader
	presigner presigner
}

func newS3Archiver(ctx context.Context, cfg ServiceConfig) (*s3Archiver, error) {
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client configuration: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Archiver{
		bucket:    cfg.S3BucketName,
		uploader:  manager.NewUploader(client),
		presigner: sdkPresigner{client: s3.NewPresignClient(client)},
	}, nil
}

// Archive uploads snap as JSON under ObjectKey(at).
func (a *s3Archiver) Archive(ctx context.Context, snap workspace.Snapshot, at time.Time) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := ObjectKey(at)

	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(snapshotContentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot %s: %w", key, err)
	}

	return key, nil
}

// PresignDownload returns a GET URL for key valid for duration.
func (a *s3Archiver) PresignDownload(ctx context.Context, key string, duration time.Duration) (string, error) {
	url, err := a.presigner.PresignGet(ctx, a.bucket, key, duration)
	if err != nil {
		return "", fmt.Errorf("presign snapshot %s: %w", key, err)
	}

	return url, nil
}
