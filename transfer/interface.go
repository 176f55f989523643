package transfer

import (
	"context"

	"github.com/guildrec/go-vodutils/transfer/gateway"
)

// SignerAPI is the slice of the gateway client the uploaders depend on.
type SignerAPI interface {
	SignPut(key string, length int64, contentType string) (gateway.SignedURL, error)
	CreateMultipartSession(key string, length int64, contentType string) (gateway.MultipartSession, error)
	CompleteMultipartSession(key string, orderedTokens []string) error
}

// SizeAPI resolves the byte length of a stored object before download.
type SizeAPI interface {
	ObjectSize(key string) (int64, error)
}

// ClockAdvancer advances the bucket's last-modified clock after a successful
// mutation. Implemented by lastmod.Detector.
type ClockAdvancer interface {
	Advance() error
}

// FileUploader ...
type FileUploader interface {
	Upload(filePath string, progress ProgressFunc) error
}

// FileDownloader ...
type FileDownloader interface {
	Download(ctx context.Context, key, sourceURL, destDir string, progress ProgressFunc) error
}
