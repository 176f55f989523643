package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
)

// Recording is the metadata document stored alongside each uploaded object.
type Recording struct {
	ID        string   `json:"id"`
	Key       string   `json:"key"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	Protected bool     `json:"protected"`
	CreatedAt string   `json:"created_at"`
}

type protectRequest struct {
	Protected bool `json:"protected"`
}

type tagRequest struct {
	Tags []string `json:"tags"`
}

// ListRecordings returns every recording record in the bucket.
func (c *Client) ListRecordings() ([]Recording, error) {
	req, err := retryablehttp.NewRequest(http.MethodGet, c.bucketURL("recordings"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.execute(req)
	if err != nil {
		return nil, err
	}
	defer c.closeBody(resp.Body)

	if err := c.checkStatus("list recordings", resp, http.StatusOK); err != nil {
		return nil, err
	}

	var recordings []Recording
	if err := json.NewDecoder(resp.Body).Decode(&recordings); err != nil {
		return nil, fmt.Errorf("decode recordings response: %w", err)
	}
	return recordings, nil
}

// CreateRecording stores a new recording record.
func (c *Client) CreateRecording(recording Recording) error {
	return c.postJSON("create recording", c.bucketURL("recordings"), recording, http.StatusCreated, nil)
}

// DeleteRecording removes a recording record.
func (c *Client) DeleteRecording(id string) error {
	req, err := retryablehttp.NewRequest(http.MethodDelete, c.bucketURL("recordings", url.PathEscape(id)), nil)
	if err != nil {
		return err
	}
	resp, err := c.execute(req)
	if err != nil {
		return err
	}
	defer c.closeBody(resp.Body)

	return c.checkStatus("delete recording", resp, http.StatusNoContent)
}

// ProtectRecording marks a recording as protected from automatic cleanup, or
// clears the mark.
func (c *Client) ProtectRecording(id string, protected bool) error {
	return c.putJSON("protect recording", c.bucketURL("recordings", url.PathEscape(id), "protection"), protectRequest{Protected: protected})
}

// TagRecording replaces the tag list of a recording.
func (c *Client) TagRecording(id string, tags []string) error {
	return c.putJSON("tag recording", c.bucketURL("recordings", url.PathEscape(id), "tags"), tagRequest{Tags: tags})
}

func (c *Client) putJSON(op, endpoint string, requestBody interface{}) error {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequest(http.MethodPut, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.execute(req)
	if err != nil {
		return err
	}
	defer c.closeBody(resp.Body)

	return c.checkStatus(op, resp, http.StatusNoContent)
}
