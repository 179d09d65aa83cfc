package media

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/homequote-backend/pkg/errors"
)

type gcsClient interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
	PublicURL(object string) string
}

// Service exposes media-presign semantics.
type Service interface {
	PresignUpload(ctx context.Context, userID uuid.UUID, role enums.Role, input PresignInput) (*PresignOutput, error)
}

// ServiceParams wires the presign service.
type ServiceParams struct {
	GCS            gcsClient
	Bucket         string
	UploadTTL      time.Duration
	MaxUploadBytes int64
	Clock          func() time.Time
}

type service struct {
	gcs       gcsClient
	bucket    string
	uploadTTL time.Duration
	maxBytes  int64
	now       func() time.Time
}

// NewService constructs a media service backed by the GCS signer.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.GCS == nil:
		return nil, errors.New("gcs client required")
	case params.Bucket == "":
		return nil, errors.New("gcs bucket required")
	case params.UploadTTL <= 0:
		return nil, errors.New("upload ttl must be positive")
	case params.MaxUploadBytes <= 0:
		return nil, errors.New("max upload bytes must be positive")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		gcs:       params.GCS,
		bucket:    params.Bucket,
		uploadTTL: params.UploadTTL,
		maxBytes:  params.MaxUploadBytes,
		now:       clock,
	}, nil
}

// PresignInput models the payload required to request an upload URL.
type PresignInput struct {
	Kind      enums.MediaKind
	MimeType  string
	FileName  string
	SizeBytes int64
}

// PresignOutput is returned to the client. PublicURL is what goes into photo_urls
// once the PUT succeeds.
type PresignOutput struct {
	ObjectKey    string    `json:"object_key"`
	SignedPUTURL string    `json:"signed_put_url"`
	PublicURL    string    `json:"public_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *service) PresignUpload(ctx context.Context, userID uuid.UUID, role enums.Role, input PresignInput) (*PresignOutput, error) {
	if userID == uuid.Nil || !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	mimeType, err := s.check(role, input)
	if err != nil {
		return nil, err
	}

	objectKey := buildObjectKey(input.Kind, userID, uuid.New(), input.FileName)
	signedURL, err := s.gcs.SignedURL(s.bucket, objectKey, mimeType, s.uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}
	return &PresignOutput{
		ObjectKey:    objectKey,
		SignedPUTURL: signedURL,
		PublicURL:    s.gcs.PublicURL(objectKey),
		ContentType:  mimeType,
		ExpiresAt:    s.now().UTC().Add(s.uploadTTL),
	}, nil
}

// check applies the kind's upload policy and returns the canonical MIME type.
func (s *service) check(role enums.Role, input PresignInput) (string, error) {
	policy, ok := policies[input.Kind]
	if !ok {
		return "", pkgerrors.Validation("kind", "must be one of requirement_photo, update_photo, avatar")
	}
	if !policy.permits(role) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s uploads are not allowed for %s", input.Kind, role))
	}
	if strings.TrimSpace(input.FileName) == "" {
		return "", pkgerrors.Validation("file_name", "is required")
	}
	switch {
	case input.SizeBytes <= 0:
		return "", pkgerrors.Validation("size_bytes", "must be positive")
	case input.SizeBytes > s.maxBytes:
		return "", pkgerrors.Validation("size_bytes", fmt.Sprintf("must be at most %d bytes", s.maxBytes))
	}
	mimeType, err := normalizeMimeType(input.MimeType)
	if err != nil {
		return "", pkgerrors.Validation("mime_type", err.Error())
	}
	if !policy.accepts(mimeType) {
		return "", pkgerrors.Validation("mime_type", "must be "+policy.describeTypes())
	}
	return mimeType, nil
}

// buildObjectKey lays objects out as <kind>/<user>/<upload id>/<file name>.
func buildObjectKey(kind enums.MediaKind, userID, id uuid.UUID, fileName string) string {
	name := sanitizeFileName(fileName)
	if name == "" {
		name = id.String()
	}
	return path.Join(string(kind), userID.String(), id.String(), name)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "" || clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
