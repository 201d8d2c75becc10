// Package media pushes staged upload files to the external media host and
// owns the lifecycle of their local temp files.
package media

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"harmonia/internal/storage"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxAttempts    = 3
	defaultRetryInterval  = 500 * time.Millisecond
)

// FileUpload describes one staged file bound for the media host.
type FileUpload struct {
	LocalPath   string
	Folder      string
	Filename    string
	ContentType string
}

// Uploader pushes a staged file to the media host and returns its public
// URL. Implementations must remove the local file on every path, success or
// failure included.
type Uploader interface {
	Upload(ctx context.Context, upload FileUpload) (string, error)
}

// Config wires the media host client.
type Config struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	RequestTimeout time.Duration
	MaxAttempts    int
	RetryInterval  time.Duration
}

// Client uploads files over authenticated HTTP PUT with bounded retries.
type Client struct {
	cfg        Config
	endpoint   *url.URL
	httpClient *http.Client
}

// NewClient validates the endpoint and constructs the host client.
func NewClient(cfg Config) (*Client, error) {
	trimmed := strings.TrimSpace(cfg.Endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("media endpoint required")
	}
	endpoint, err := url.Parse(trimmed)
	if err != nil || endpoint.Host == "" {
		return nil, fmt.Errorf("invalid media endpoint %q", cfg.Endpoint)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultRetryInterval
	}
	return &Client{
		cfg:        cfg,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

// Upload pushes the staged file to the media host. The local file is
// removed before returning regardless of outcome.
func (c *Client) Upload(ctx context.Context, upload FileUpload) (string, error) {
	defer func() {
		_ = os.Remove(upload.LocalPath)
	}()

	body, err := os.ReadFile(upload.LocalPath)
	if err != nil {
		return "", fmt.Errorf("read staged file: %w", err)
	}

	key := c.objectKey(upload)
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.cfg.RetryInterval):
			}
		}
		publicURL, err := c.put(ctx, key, upload.ContentType, body)
		if err == nil {
			return publicURL, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}
	return "", storage.UpstreamError("media host upload failed", lastErr)
}

type statusError struct {
	status int
	key    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upload %s: unexpected status %d", e.key, e.status)
}

func retryable(err error) bool {
	if statusErr, ok := err.(*statusError); ok {
		return statusErr.status >= 500
	}
	// Transport-level failures are worth another attempt.
	return true
}

func (c *Client) put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	target := *c.endpoint
	target.Path = path.Join(target.Path, key)
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, target.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	c.signRequest(request, body)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	defer func() {
		_ = response.Body.Close()
	}()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", &statusError{status: response.StatusCode, key: key}
	}
	return c.publicURL(key), nil
}

func (c *Client) signRequest(req *http.Request, body []byte) {
	payload := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(payload[:])
	req.Header.Set("x-content-sha256", payloadHash)
	accessKey := strings.TrimSpace(c.cfg.AccessKey)
	secretKey := strings.TrimSpace(c.cfg.SecretKey)
	if accessKey == "" || secretKey == "" {
		return
	}
	message := strings.Join([]string{req.Method, req.URL.Path, payloadHash}, "\n")
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(message))
	signature := hex.EncodeToString(mac.Sum(nil))
	req.Header.Set("Authorization", fmt.Sprintf("HMAC-SHA256 Credential=%s, Signature=%s", accessKey, signature))
}

func (c *Client) objectKey(upload FileUpload) string {
	folder := strings.Trim(strings.TrimSpace(upload.Folder), "/")
	filename := strings.TrimLeft(strings.TrimSpace(upload.Filename), "/")
	if folder == "" {
		return filename
	}
	return folder + "/" + filename
}

func (c *Client) publicURL(key string) string {
	base := strings.TrimSpace(c.cfg.PublicEndpoint)
	if base == "" {
		base = strings.TrimRight(c.endpoint.String(), "/")
	}
	return strings.TrimRight(base, "/") + "/" + key
}

// UploadAll pushes every staged file concurrently and returns their public
// URLs in input order. Each upload removes its own temp file, so a failed
// batch leaves nothing behind.
func UploadAll(ctx context.Context, uploader Uploader, uploads ...FileUpload) ([]string, error) {
	urls := make([]string, len(uploads))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, upload := range uploads {
		i, upload := i, upload
		group.Go(func() error {
			publicURL, err := uploader.Upload(groupCtx, upload)
			if err != nil {
				return err
			}
			urls[i] = publicURL
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}
