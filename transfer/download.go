package transfer

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/guildrec/go-vodutils/transfer/gateway"
	"github.com/melbahja/got"
)

// Downloader streams objects from the store into local files, reporting
// progress against the size the gateway declares for the object.
type Downloader struct {
	api        SizeAPI
	httpClient *http.Client
	logger     log.Logger
}

// NewDownloader ...
func NewDownloader(api SizeAPI, httpClient *http.Client, logger log.Logger) *Downloader {
	if httpClient == nil {
		httpClient = defaultObjectStoreClient()
	}
	return &Downloader{api: api, httpClient: httpClient, logger: logger}
}

// Download fetches sourceURL into destDir/key. Progress is derived from the
// object size reported by the gateway, so a size lookup failure fails the
// download before any bytes move.
func (d *Downloader) Download(ctx context.Context, key, sourceURL, destDir string, progress ProgressFunc) error {
	size, err := d.api.ObjectSize(key)
	if err != nil {
		return fmt.Errorf("resolve size of %s: %w", key, err)
	}

	progress = monotonic(progress)
	destPath := filepath.Join(destDir, key)

	download := got.NewDownload(ctx, sourceURL, destPath)
	download.Client = d.httpClient

	go download.RunProgress(func(current *got.Download) {
		progress(percentOf(int64(current.Size()), size))
	})
	defer func() {
		download.StopProgress = true
	}()

	downloader := got.New()
	downloader.Client = d.httpClient
	if err := downloader.Do(download); err != nil {
		return &gateway.TransferError{Op: fmt.Sprintf("download %s", key), Err: err}
	}

	d.logger.Debugf("Downloaded %s to %s", key, destPath)
	progress(100)
	return nil
}
