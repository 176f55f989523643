package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

// ErrObjectNotFound is returned by DownloadFromS3 when the key does not exist
// in the bucket.
var ErrObjectNotFound = errors.New("object not found in s3 bucket")

// S3DownloadParams configures a direct-from-S3 download. Like the upload
// alternate, this path retries transient failures.
type S3DownloadParams struct {
	Key             string
	DestDir         string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// DownloadFromS3 fetches an object straight from an S3 bucket into
// DestDir/Key, reporting progress against the size from a HEAD lookup.
func DownloadFromS3(ctx context.Context, params S3DownloadParams, progress ProgressFunc, logger log.Logger) error {
	if params.Bucket == "" {
		return fmt.Errorf("bucket must not be empty")
	}
	if params.Key == "" {
		return fmt.Errorf("key must not be empty")
	}

	cfg, err := loadAWSCredentials(ctx, params.Region, params.AccessKeyID, params.SecretAccessKey, logger)
	if err != nil {
		return fmt.Errorf("load aws credentials: %w", err)
	}
	client := s3.NewFromConfig(*cfg)

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(params.Bucket),
		Key:    aws.String(params.Key),
	})
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) {
			if _, ok := apiError.(*types.NotFound); ok {
				return ErrObjectNotFound
			}
		}
		return fmt.Errorf("head object: %w", err)
	}
	size := aws.ToInt64(head.ContentLength)

	progress = monotonic(progress)
	destPath := filepath.Join(params.DestDir, params.Key)

	err = retry.Times(numS3Retries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		result, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(params.Bucket),
			Key:    aws.String(params.Key),
		})
		if err != nil {
			return fmt.Errorf("get object: %w", err), false
		}
		defer result.Body.Close() //nolint:errcheck

		file, err := os.Create(destPath)
		if err != nil {
			return fmt.Errorf("creating file: %w", err), true
		}
		defer file.Close() //nolint:errcheck

		body := newCountingReader(result.Body, func(received int64) {
			progress(percentOf(received, size))
		})
		if _, err := io.Copy(file, body); err != nil {
			return fmt.Errorf("write file: %w", err), false
		}
		return nil, true
	})
	if err != nil {
		return fmt.Errorf("all retries failed: %w", err)
	}

	progress(100)
	return nil
}
