package transfer

import (
	"io"
	"net/http"
	"strings"

	"github.com/guildrec/go-vodutils/transfer/gateway"
)

// putObject streams body to a signed URL as one PUT of exactly length bytes.
// It returns the part-completion token from the response's ETag header with
// any wrapping quote characters stripped; single-part callers ignore it.
func putObject(client *http.Client, signed gateway.SignedURL, body io.Reader, length int64) (string, error) {
	method := signed.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequest(method, signed.URL, body)
	if err != nil {
		return "", err
	}
	for k, v := range signed.Headers {
		req.Header.Set(k, v)
	}
	req.ContentLength = length

	resp, err := client.Do(req)
	if err != nil {
		return "", &gateway.TransferError{Op: "object store upload", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &gateway.TransferError{
			Op:         "object store upload",
			StatusCode: resp.StatusCode,
			Body:       string(errorBody),
		}
	}

	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}
