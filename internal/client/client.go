// Package client provides an HTTP client for a running yukkuri-service.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API endpoints.
const (
	apiTalk          = "/talk"
	apiCheckLicenses = "/check_licenses"
)

// HTTP headers.
const (
	headerContentType        = "Content-Type"
	headerContentDisposition = "Content-Disposition"
	contentTypeForm          = "application/x-www-form-urlencoded"
	contentTypeWAV           = "audio/wav"
)

var (
	// ErrTextEmpty indicates a talk request without text.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrUnexpectedContentType indicates a response of the wrong media type.
	ErrUnexpectedContentType = errors.New("unexpected content type")
	// ErrEmptyAudio indicates a successful response without audio.
	ErrEmptyAudio = errors.New("received empty audio data")
	// ErrServiceStatus indicates a non-OK response from the service.
	ErrServiceStatus = errors.New("service returned non-OK status")
)

// HTTPClient talks to a yukkuri-service instance.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// TalkRequest is one utterance to render.
type TalkRequest struct {
	Text   string
	Native bool
	// Params holds synthesis parameters by name (type, bas, spd, vol, pit, acc,
	// lmd, fsc). Empty values are not sent.
	Params map[string]string
}

// Audio is a rendered utterance.
type Audio struct {
	Data     []byte
	Filename string
}

// NewHTTPClient creates a client for the service at baseURL (for example
// "http://127.0.0.1:8080").
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Talk posts req as a URL-encoded form and returns the WAV audio. The service
// answers unrenderable text with its fallback utterance, so a nil error does not
// imply that req.Text was spoken.
func (c *HTTPClient) Talk(ctx context.Context, req TalkRequest) (*Audio, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	form := url.Values{}
	form.Set("text", req.Text)

	if req.Native {
		form.Set("native", "1")
	}

	for name, value := range req.Params {
		if value != "" {
			form.Set(name, value)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiTalk, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeForm)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf("%w: expected %s, got %q", ErrUnexpectedContentType, contentTypeWAV, contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}

	return &Audio{Data: data, Filename: attachmentName(resp.Header.Get(headerContentDisposition))}, nil
}

// CheckLicenses returns the license key status reported by the service.
func (c *HTTPClient) CheckLicenses(ctx context.Context) (map[string]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiCheckLicenses, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create license check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("license check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	status := map[string]bool{}

	err = json.NewDecoder(resp.Body).Decode(&status)
	if err != nil {
		return nil, fmt.Errorf("failed to decode license status: %w", err)
	}

	return status, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	return fmt.Errorf("%w: %s, body: %s", ErrServiceStatus, resp.Status, strings.TrimSpace(string(body)))
}

func attachmentName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}

	return params["filename"]
}
