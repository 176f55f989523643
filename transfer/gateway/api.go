// Package gateway talks to the signing/metadata authority that fronts the
// object store. All requests are scoped to a single bucket and authenticated
// with a static bearer token. The authority enforces storage quota when it
// signs upload URLs, so a rejected sign request is the quota check failing.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

// SignedURL is a time-limited, single-use URL authorizing exactly one HTTP
// request against the object store. Expiry is enforced server-side and is not
// tracked here.
type SignedURL struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

// MultipartSession holds the ordered per-part signed URLs of one multipart
// upload. The gateway decides the part count: it returns one URL per part for
// the declared object length and the part-size policy it shares with the
// uploader.
type MultipartSession struct {
	PartURLs []SignedURL `json:"urls"`
}

// Quota is the bucket's storage usage against its configured maximum.
type Quota struct {
	UsageBytes      int64 `json:"usage_bytes"`
	MaxStorageBytes int64 `json:"max_storage_bytes"`
}

type signRequest struct {
	Key         string `json:"key"`
	SizeInBytes int64  `json:"size_in_bytes"`
	ContentType string `json:"content_type"`
}

type completeRequest struct {
	Etags []string `json:"etags"`
}

type lastModifiedDocument struct {
	Value string `json:"value"`
}

type objectSizeResponse struct {
	SizeInBytes int64 `json:"size_in_bytes"`
}

// Client is the HTTP client for one bucket of the signing authority.
// It performs no retries: a failed request is terminal for the enclosing
// transfer, and the caller decides what to do about it.
type Client struct {
	httpClient  *retryablehttp.Client
	baseURL     string
	bucket      string
	accessToken string
	logger      log.Logger
}

// NewClient ...
func NewClient(httpClient *retryablehttp.Client, baseURL, bucket, accessToken string, logger log.Logger) *Client {
	// The transfer core must not retry (a replayed PUT against a single-use
	// signed URL is rejected anyway), so the retrying transport is pinned to
	// zero attempts and only supplies connection pooling. The retry policy is
	// also overridden: the default one treats 5xx responses as retryable and
	// would swallow the response body on giving up.
	httpClient.RetryMax = 0
	httpClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		return false, err
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		bucket:      bucket,
		accessToken: accessToken,
		logger:      logger,
	}
}

// SignPut requests one signed URL for a PUT of exactly length bytes under key.
func (c *Client) SignPut(key string, length int64, contentType string) (SignedURL, error) {
	var signed SignedURL
	err := c.postJSON("sign upload", c.bucketURL("signed-urls"), signRequest{
		Key:         key,
		SizeInBytes: length,
		ContentType: contentType,
	}, http.StatusCreated, &signed)
	if err != nil {
		return SignedURL{}, err
	}
	return signed, nil
}

// CreateMultipartSession requests the full set of per-part signed URLs for an
// object of the given length. The number of URLs in the response determines
// how many parts the uploader must produce.
func (c *Client) CreateMultipartSession(key string, length int64, contentType string) (MultipartSession, error) {
	var session MultipartSession
	err := c.postJSON("create multipart session", c.bucketURL("multipart-uploads"), signRequest{
		Key:         key,
		SizeInBytes: length,
		ContentType: contentType,
	}, http.StatusCreated, &session)
	if err != nil {
		return MultipartSession{}, err
	}
	return session, nil
}

// CompleteMultipartSession finalizes a multipart upload with the
// part-completion tokens in ascending part order. A missing or out-of-order
// token makes the remote side reject the call.
func (c *Client) CompleteMultipartSession(key string, orderedTokens []string) error {
	endpoint := c.bucketURL("multipart-uploads", url.PathEscape(key), "complete")
	return c.postJSON("complete multipart session", endpoint, completeRequest{Etags: orderedTokens}, http.StatusOK, nil)
}

// LastModified fetches the bucket's logical clock value. A bucket that has
// never been mutated has no value yet; that is reported as ErrClockNotSet.
func (c *Client) LastModified() (string, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.bucketURL("last-modified"), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.execute(req)
	if err != nil {
		return "", err
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrClockNotSet
	}
	if err := c.checkStatus("get last-modified", resp, http.StatusOK); err != nil {
		return "", err
	}

	var doc lastModifiedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode last-modified response: %w", err)
	}
	return doc.Value, nil
}

// SetLastModified pushes a new logical clock value for the bucket.
func (c *Client) SetLastModified(value string) error {
	body, err := json.Marshal(lastModifiedDocument{Value: value})
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequest(http.MethodPut, c.bucketURL("last-modified"), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.execute(req)
	if err != nil {
		return err
	}
	defer c.closeBody(resp.Body)

	return c.checkStatus("set last-modified", resp, http.StatusNoContent)
}

// ObjectSize looks up the byte length of a stored object.
func (c *Client) ObjectSize(key string) (int64, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.bucketURL("objects", url.PathEscape(key), "size"), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.execute(req)
	if err != nil {
		return 0, err
	}
	defer c.closeBody(resp.Body)

	if err := c.checkStatus("get object size", resp, http.StatusOK); err != nil {
		return 0, err
	}

	var size objectSizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&size); err != nil {
		return 0, fmt.Errorf("decode object size response: %w", err)
	}
	return size.SizeInBytes, nil
}

// Quota reads the bucket's storage usage and configured maximum.
func (c *Client) Quota() (Quota, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.bucketURL("quota"), nil)
	if err != nil {
		return Quota{}, err
	}
	resp, err := c.execute(req)
	if err != nil {
		return Quota{}, err
	}
	defer c.closeBody(resp.Body)

	if err := c.checkStatus("get quota", resp, http.StatusOK); err != nil {
		return Quota{}, err
	}

	var quota Quota
	if err := json.NewDecoder(resp.Body).Decode(&quota); err != nil {
		return Quota{}, fmt.Errorf("decode quota response: %w", err)
	}
	return quota, nil
}

// SetMaxStorage updates the bucket's maximum storage allowance.
func (c *Client) SetMaxStorage(maxStorageBytes int64) error {
	body, err := json.Marshal(Quota{MaxStorageBytes: maxStorageBytes})
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequest(http.MethodPut, c.bucketURL("quota"), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.execute(req)
	if err != nil {
		return err
	}
	defer c.closeBody(resp.Body)

	return c.checkStatus("set quota", resp, http.StatusNoContent)
}

func (c *Client) postJSON(op, endpoint string, requestBody interface{}, wantStatus int, response interface{}) error {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.execute(req)
	if err != nil {
		return err
	}
	defer c.closeBody(resp.Body)

	if err := c.checkStatus(op, resp, wantStatus); err != nil {
		return err
	}

	if response == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) execute(req *retryablehttp.Request) (*http.Response, error) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	return c.httpClient.Do(req)
}

func (c *Client) checkStatus(op string, resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthorizationError{StatusCode: resp.StatusCode}
	}

	errorBody, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return &TransferError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return &TransferError{Op: op, StatusCode: resp.StatusCode, Body: string(errorBody)}
}

func (c *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Printf(err.Error())
	}
}

func (c *Client) bucketURL(segments ...string) string {
	endpoint := fmt.Sprintf("%s/buckets/%s", c.baseURL, url.PathEscape(c.bucket))
	for _, segment := range segments {
		endpoint += "/" + segment
	}
	return endpoint
}
