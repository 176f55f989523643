package transfer

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildrec/go-vodutils/transfer/gateway"
)

// partStore fakes the object store side of a multipart upload: one PUT per
// part index, responding with a quoted ETag the way S3-compatible stores do.
type partStore struct {
	mu         sync.Mutex
	bodies     map[int]string
	putOrder   []int
	failAtPart int // 0-based; -1 disables
	omitETag   bool
}

func newPartStore() *partStore {
	return &partStore{bodies: map[int]string{}, failAtPart: -1}
}

func (s *partStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		part, err := strconv.Atoi(r.URL.Query().Get("part"))
		if err != nil {
			http.Error(w, "bad part index", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		s.mu.Lock()
		s.bodies[part] = string(body)
		s.putOrder = append(s.putOrder, part)
		failing := part == s.failAtPart
		s.mu.Unlock()

		if failing {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "disk on fire")
			return
		}
		if !s.omitETag {
			w.Header().Set("ETag", fmt.Sprintf("%q", fmt.Sprintf("etag-%d", part)))
		}
		w.WriteHeader(http.StatusOK)
	})
}

func multipartFixture(t *testing.T, store *partStore, content string, partSize int64) (*Uploader, *fakeSignerAPI, *fakeClock, string) {
	t.Helper()

	server := httptest.NewServer(store.handler())
	t.Cleanup(server.Close)

	api := &fakeSignerAPI{
		createSessionFunc: func(key string, length int64, contentType string) (gateway.MultipartSession, error) {
			// The gateway derives the part count from the length and the
			// shared part-size policy.
			urls := make([]gateway.SignedURL, 0)
			for i := 0; int64(i)*partSize < length; i++ {
				urls = append(urls, gateway.SignedURL{
					URL:    fmt.Sprintf("%s/?part=%d", server.URL, i),
					Method: http.MethodPut,
				})
			}
			return gateway.MultipartSession{PartURLs: urls}, nil
		},
	}
	clock := &fakeClock{}
	config := UploaderConfig{Policy: Policy{SinglePutLimit: 1, PartSize: partSize}}
	uploader := NewUploader(api, clock, config, log.NewLogger())
	filePath := writeTempFile(t, "video.mp4", content)
	return uploader, api, clock, filePath
}

func TestUploadMultipart(t *testing.T) {
	// 100 bytes in 40-byte parts: 40 + 40 + 20
	content := strings.Repeat("abcde", 20)
	store := newPartStore()
	uploader, api, clock, filePath := multipartFixture(t, store, content, 40)

	var reported []int
	err := uploader.Upload(filePath, func(percent int) {
		reported = append(reported, percent)
	})

	require.NoError(t, err)
	assert.Equal(t, 1, api.createCalls)
	assert.Equal(t, []int{0, 1, 2}, store.putOrder, "parts must upload in ascending order")
	assert.Equal(t, content[0:40], store.bodies[0])
	assert.Equal(t, content[40:80], store.bodies[1])
	assert.Equal(t, content[80:100], store.bodies[2])

	// Finalize receives the tokens in part order, quotes stripped.
	assert.Equal(t, 1, api.completeCalls)
	assert.Equal(t, "video.mp4", api.completedKey)
	assert.Equal(t, []string{"etag-0", "etag-1", "etag-2"}, api.completedTokens)

	assert.Equal(t, 1, clock.advances)
	assertMonotonicEndingAt100(t, reported)
}

func TestUploadMultipartPartFailure(t *testing.T) {
	content := strings.Repeat("abcde", 20)
	store := newPartStore()
	store.failAtPart = 1
	uploader, api, clock, filePath := multipartFixture(t, store, content, 40)

	err := uploader.Upload(filePath, nil)

	var transferErr *gateway.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, http.StatusInternalServerError, transferErr.StatusCode)
	assert.Equal(t, "disk on fire", transferErr.Body)
	assert.Contains(t, err.Error(), "part 2", "the error must be attributable to the failing part")

	assert.Equal(t, 0, api.completeCalls, "finalize must not run after a part failure")
	assert.Equal(t, 0, clock.advances)
	assert.Equal(t, []int{0, 1}, store.putOrder, "no parts are attempted past the failure")
}

func TestUploadMultipartMissingToken(t *testing.T) {
	content := strings.Repeat("abcde", 20)
	store := newPartStore()
	store.omitETag = true
	uploader, api, _, filePath := multipartFixture(t, store, content, 40)

	err := uploader.Upload(filePath, nil)

	var transferErr *gateway.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Contains(t, err.Error(), "part-completion token")
	assert.Equal(t, 0, api.completeCalls)
}

func TestUploadMultipartPartCountMismatch(t *testing.T) {
	content := strings.Repeat("abcde", 20)
	filePath := writeTempFile(t, "video.mp4", content)

	api := &fakeSignerAPI{
		createSessionFunc: func(key string, length int64, contentType string) (gateway.MultipartSession, error) {
			// Gateway assumed a different part size and signed two URLs; the
			// local policy computes three ranges.
			return gateway.MultipartSession{PartURLs: []gateway.SignedURL{{URL: "u0"}, {URL: "u1"}}}, nil
		},
	}
	config := UploaderConfig{Policy: Policy{SinglePutLimit: 1, PartSize: 40}}
	uploader := NewUploader(api, nil, config, log.NewLogger())

	err := uploader.Upload(filePath, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "part count mismatch")
	assert.Equal(t, 0, api.completeCalls)
}

func TestUploadMultipartFinalizeFailure(t *testing.T) {
	content := strings.Repeat("abcde", 20)
	store := newPartStore()
	uploader, api, clock, filePath := multipartFixture(t, store, content, 40)
	api.completeErr = &gateway.TransferError{Op: "complete multipart session", StatusCode: http.StatusConflict, Body: "token missing"}

	err := uploader.Upload(filePath, nil)

	require.Error(t, err)
	var transferErr *gateway.TransferError
	assert.ErrorAs(t, err, &transferErr)
	assert.Equal(t, 0, clock.advances, "a failed finalize is a failed upload")
}
