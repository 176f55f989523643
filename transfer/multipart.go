package transfer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/guildrec/go-vodutils/transfer/gateway"
)

// uploadMultipart uploads the file as sequential fixed-size parts, one signed
// URL per part, and finalizes the session with the part-completion tokens in
// ascending part order. There is no retry and no partial-session cleanup: any
// failure abandons the session for the remote side to garbage-collect.
func (u *Uploader) uploadMultipart(key, filePath, contentType string, size int64, progress ProgressFunc) error {
	session, err := u.api.CreateMultipartSession(key, size, contentType)
	if err != nil {
		return fmt.Errorf("create multipart session for %s: %w", key, err)
	}

	ranges := partition(size, u.policy.PartSize)
	if len(ranges) != len(session.PartURLs) {
		// The gateway sized the session with a different part-size policy
		// than ours. Uploading anyway would truncate or overrun the file.
		return fmt.Errorf("part count mismatch: computed %d ranges of %s, gateway signed %d part URLs",
			len(ranges), units.HumanSize(float64(u.policy.PartSize)), len(session.PartURLs))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			u.logger.Errorf("failed to close file: %s", err)
		}
	}()

	u.logger.Debugf("Uploading %d parts, %s each", len(ranges), units.HumanSize(float64(u.policy.PartSize)))

	tokens := make([]string, 0, len(ranges))
	var uploaded int64
	for i, r := range ranges {
		body := newCountingReader(io.NewSectionReader(file, r.Offset, r.Length), func(sent int64) {
			progress(partPercent(i, len(ranges), sent, r.Length))
		})

		token, err := putObject(u.httpClient, session.PartURLs[i], body, r.Length)
		if err != nil {
			return fmt.Errorf("upload part %d: %w", i+1, err)
		}
		if token == "" {
			return &gateway.TransferError{
				Op:  fmt.Sprintf("upload part %d", i+1),
				Err: errors.New("response carries no part-completion token"),
			}
		}

		tokens = append(tokens, token)
		uploaded += r.Length
		progress(percentOf(uploaded, size))
		u.logger.Debugf("Uploaded part %d/%d", i+1, len(ranges))
	}

	if err := u.api.CompleteMultipartSession(key, tokens); err != nil {
		return fmt.Errorf("finalize multipart upload for %s: %w", key, err)
	}

	progress(100)
	return nil
}
