package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

const (
	scope       = "https://www.googleapis.com/auth/devstorage.read_write"
	storageHost = "https://storage.googleapis.com"
	httpTimeout = 10 * time.Second
	pingTimeout = 5 * time.Second
)

// Client talks to the GCS JSON API for health checks and signs upload URLs
// locally with the service-account key.
type Client struct {
	http          *http.Client
	endpoint      string
	bucket        string
	publicBaseURL string
	signer        *urlSigner
}

// NewClient resolves credentials from inline JSON, a key file, or ADC in that
// order. ADC without a service-account key can ping but cannot sign.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	raw, err := credentialsJSON(gcp)
	if err != nil {
		return nil, err
	}

	var (
		creds  *google.Credentials
		signer *urlSigner
	)
	if raw != nil {
		if creds, err = google.CredentialsFromJSON(ctx, raw, scope); err != nil {
			return nil, fmt.Errorf("parsing gcp credentials: %w", err)
		}
		if signer, err = signerFromJSON(raw); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "gcs credentials cannot sign urls")
		}
	} else if creds, err = google.FindDefaultCredentials(ctx, scope); err != nil {
		return nil, fmt.Errorf("finding default gcp credentials: %w", err)
	}
	if signer == nil {
		logg.Warn(ctx, "gcs signer unavailable; presigned uploads will fail")
	}

	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: httpTimeout})
	hc := oauth2.NewClient(tokenCtx, creds.TokenSource)
	hc.Timeout = httpTimeout

	client := &Client{
		http:          hc,
		endpoint:      storageHost,
		bucket:        cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		signer:        signer,
	}
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client initialized")
	return client, nil
}

func credentialsJSON(gcp config.GCPConfig) ([]byte, error) {
	if inline := strings.TrimSpace(gcp.CredentialsJSON); inline != "" {
		return []byte(inline), nil
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		return raw, nil
	}
	return nil, nil
}

func (c *Client) DefaultBucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

func (c *Client) Close() error {
	if c != nil && c.http != nil {
		c.http.CloseIdleConnections()
	}
	return nil
}

// Ping lists at most one object to prove the bucket exists and the token works.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.http == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/storage/v1/b/%s/o?maxResults=1&fields=kind", c.endpoint, url.PathEscape(c.bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("bucket %s: %s: %s", c.bucket, resp.Status, msg)
	}
	return fmt.Errorf("bucket %s: %s", c.bucket, resp.Status)
}

// PublicURL is the stable address photo_urls point at once an upload lands.
func (c *Client) PublicURL(object string) string {
	base, bucket := storageHost, ""
	if c != nil {
		bucket = c.bucket
		if c.publicBaseURL != "" {
			base = c.publicBaseURL
		}
	}
	return base + "/" + bucket + "/" + escapeObject(object)
}
