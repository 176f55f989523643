// Package transfer moves recordings between the local filesystem and the
// object store. Uploads go through signed URLs issued by the gateway; the
// strategy (single PUT vs sequential multipart) is picked from the file size.
package transfer

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// The object store rejects a single PUT above 5 GiB. The single-part limit
// stays under that with margin for protocol overhead. Files at or above the
// limit take the multipart path.
const defaultSinglePutLimit = 49 * units.GiB / 10

// defaultPartSize must match the part-size policy the gateway uses to decide
// how many part URLs to sign for a given length. The multipart uploader
// cross-checks the counts and fails fast on a mismatch.
const defaultPartSize = 1 * units.GiB

// Policy holds the size thresholds of the strategy selector. The zero value
// means "use the defaults"; tests shrink these to exercise the multipart path
// with small files.
type Policy struct {
	SinglePutLimit int64
	PartSize       int64
}

func (p Policy) withDefaults() Policy {
	if p.SinglePutLimit == 0 {
		p.SinglePutLimit = defaultSinglePutLimit
	}
	if p.PartSize == 0 {
		p.PartSize = defaultPartSize
	}
	return p
}

// UploaderConfig ...
type UploaderConfig struct {
	Policy Policy

	// HTTPClient is used for the signed-URL PUTs against the object store.
	// If nil, a client without a global timeout is used: part uploads of
	// gigabyte ranges legitimately run for minutes.
	HTTPClient *http.Client
}

// Uploader uploads one file per call, choosing the execution path from the
// file size. After a successful upload it advances the bucket's
// last-modified clock.
type Uploader struct {
	api        SignerAPI
	clock      ClockAdvancer
	policy     Policy
	httpClient *http.Client
	logger     log.Logger
}

// NewUploader creates an Uploader. clock may be nil if the caller does not
// track remote changes.
func NewUploader(api SignerAPI, clock ClockAdvancer, config UploaderConfig, logger log.Logger) *Uploader {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = defaultObjectStoreClient()
	}
	return &Uploader{
		api:        api,
		clock:      clock,
		policy:     config.Policy.withDefaults(),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Upload streams the file at filePath to the object store under a key equal
// to the file's base name. Progress is reported as 0..100, non-decreasing.
func (u *Uploader) Upload(filePath string, progress ProgressFunc) error {
	key := filepath.Base(filePath)
	contentType, err := ContentTypeForKey(key)
	if err != nil {
		return err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", filePath, err)
	}
	size := info.Size()

	u.logger.Debugf("Uploading %s (%s) as %s", filePath, units.HumanSizeWithPrecision(float64(size), 3), key)

	progress = monotonic(progress)
	if u.usesMultipart(size) {
		err = u.uploadMultipart(key, filePath, contentType, size, progress)
	} else {
		err = u.uploadSingle(key, filePath, contentType, size, progress)
	}
	if err != nil {
		return err
	}

	u.advanceClock(key)
	return nil
}

// usesMultipart decides the execution path. The boundary is inclusive: a file
// of exactly the single-PUT limit is uploaded in parts.
func (u *Uploader) usesMultipart(size int64) bool {
	return size >= u.policy.SinglePutLimit
}

func (u *Uploader) advanceClock(key string) {
	if u.clock == nil {
		return
	}
	if err := u.clock.Advance(); err != nil {
		// The upload itself succeeded; the local cache is ahead of the
		// remote until the next successful mutation.
		u.logger.Warnf("failed to advance last-modified after uploading %s: %s", key, err)
	}
}

func defaultObjectStoreClient() *http.Client {
	return &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			Proxy:               http.ProxyFromEnvironment,
		},
	}
}
