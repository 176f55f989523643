package transfer

import (
	"fmt"
	"os"
)

// uploadSingle streams the whole file to one signed URL. The file is never
// buffered in memory: the open file handle is the request body.
func (u *Uploader) uploadSingle(key, filePath, contentType string, size int64, progress ProgressFunc) error {
	signed, err := u.api.SignPut(key, size, contentType)
	if err != nil {
		return fmt.Errorf("sign upload for %s: %w", key, err)
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

	body := newCountingReader(file, func(sent int64) {
		progress(percentOf(sent, size))
	})
	if _, err := putObject(u.httpClient, signed, body, size); err != nil {
		return err
	}

	progress(100)
	return nil
}
