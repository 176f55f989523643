package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

const numS3Retries = 3

// S3UploadParams configures a direct-to-S3 upload for deployments that hold
// bucket credentials and do not need the signing gateway. Unlike the
// signed-URL core, this path retries transient failures.
type S3UploadParams struct {
	RecordingPath   string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// UploadToS3 uploads a recording straight to an S3 bucket under a key equal
// to the file's base name. The same content-type allow-list applies as on the
// signed-URL path.
func UploadToS3(ctx context.Context, params S3UploadParams, logger log.Logger) error {
	if params.Bucket == "" {
		return fmt.Errorf("bucket must not be empty")
	}
	if params.RecordingPath == "" {
		return fmt.Errorf("recording path must not be empty")
	}

	key, contentType, size, err := describeRecording(params.RecordingPath)
	if err != nil {
		return err
	}

	cfg, err := loadAWSCredentials(ctx, params.Region, params.AccessKeyID, params.SecretAccessKey, logger)
	if err != nil {
		return fmt.Errorf("load aws credentials: %w", err)
	}
	client := s3.NewFromConfig(*cfg)

	return retry.Times(numS3Retries).Wait(5 * time.Second).TryWithAbort(func(attempt uint) (error, bool) {
		file, err := os.Open(params.RecordingPath)
		if err != nil {
			return fmt.Errorf("open recording: %w", err), true
		}
		defer file.Close() //nolint:errcheck

		uploader := manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = defaultPartSize
		})
		_, err = uploader.Upload(ctx, &s3.PutObjectInput{
			Body:          file,
			Bucket:        aws.String(params.Bucket),
			Key:           aws.String(key),
			ContentType:   aws.String(contentType),
			ContentLength: aws.Int64(size),
		})
		if err != nil {
			return fmt.Errorf("upload recording: %w", err), false
		}
		return nil, true
	})
}

func describeRecording(path string) (key, contentType string, size int64, err error) {
	key = filepath.Base(path)
	contentType, err = ContentTypeForKey(key)
	if err != nil {
		return "", "", 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", "", 0, fmt.Errorf("stat recording: %w", err)
	}
	return key, contentType, info.Size(), nil
}

func loadAWSCredentials(ctx context.Context, region, accessKeyID, secretKey string, logger log.Logger) (*aws.Config, error) {
	if region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKeyID != "" && secretKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}
	return &cfg, nil
}
