package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GenericFailureMessage is shown when the storage service could not be
// reached at all or returned something unreadable.
const GenericFailureMessage = "Connection failed. Is the backend running?"

// Client talks to the remote storage service. All record persistence lives
// behind it; the portal itself holds no database.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ServerRejection is a non-2xx response from the storage service. Message is
// the service-supplied `message` field when the body carried one, and is
// shown to the user verbatim.
type ServerRejection struct {
	Status  int
	Message string
}

func (e *ServerRejection) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("storage service returned HTTP %d", e.Status)
}

// UserMessage picks the text to surface for a failed call: the service's own
// message when it sent one, otherwise the generic connection-failure line.
func UserMessage(err error) string {
	var rejection *ServerRejection
	if errors.As(err, &rejection) && rejection.Message != "" {
		return rejection.Message
	}
	return GenericFailureMessage
}

// do issues one JSON request. A nil out skips body decoding entirely, which
// also covers services that answer deletes with an empty 204.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rejection := &ServerRejection{Status: resp.StatusCode}
		var payload struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil {
			rejection.Message = payload.Message
		}
		return rejection
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}
