package gcs

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
)

// urlSigner produces V2 query-string signatures with a service-account key.
type urlSigner struct {
	email string
	key   *rsa.PrivateKey
	now   func() time.Time
}

func signerFromJSON(raw []byte) (*urlSigner, error) {
	jwtCfg, err := google.JWTConfigFromJSON(raw, scope)
	if err != nil {
		return nil, err
	}
	key, err := parsePrivateKey(jwtCfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &urlSigner{email: jwtCfg.Email, key: key, now: time.Now}, nil
}

func parsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if key, ok := parsed.(*rsa.PrivateKey); ok {
			return key, nil
		}
		return nil, errors.New("private key is not RSA")
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// SignedURL returns a PUT url that accepts exactly contentType until expires elapses.
func (c *Client) SignedURL(bucket, object, contentType string, expires time.Duration) (string, error) {
	if c == nil || c.signer == nil {
		return "", errors.New("signing requires service account credentials")
	}
	if bucket == "" {
		bucket = c.bucket
	}
	switch {
	case bucket == "":
		return "", errors.New("bucket is required")
	case strings.TrimSpace(object) == "":
		return "", errors.New("object is required")
	case strings.TrimSpace(contentType) == "":
		return "", errors.New("content type is required")
	case expires <= 0:
		return "", errors.New("expiry must be positive")
	}
	return c.signer.sign(http.MethodPut, bucket, object, contentType, expires)
}

func (s *urlSigner) sign(method, bucket, object, contentType string, expires time.Duration) (string, error) {
	deadline := strconv.FormatInt(s.now().Add(expires).Unix(), 10)
	payload := method + "\n\n" + contentType + "\n" + deadline + "\n/" + bucket + "/" + object

	digest := sha256.Sum256([]byte(payload))
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}

	q := url.Values{
		"GoogleAccessId": {s.email},
		"Expires":        {deadline},
		"Signature":      {base64.StdEncoding.EncodeToString(sig)},
	}
	return storageHost + "/" + bucket + "/" + escapeObject(object) + "?" + q.Encode(), nil
}

func escapeObject(object string) string {
	parts := strings.Split(object, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return strings.Join(parts, "/")
}
