package pubsub

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/homequote-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	c := &Client{project: "homequote-dev"}

	assert.Equal(t, "projects/homequote-dev/subscriptions/analytics-sub", c.resourceName(kindSubscription, " analytics-sub "))
	assert.Equal(t, "projects/homequote-dev/topics/lifecycle", c.resourceName(kindTopic, "lifecycle"))
	assert.Equal(t, "projects/other/topics/x", c.resourceName(kindTopic, "projects/other/topics/x"))
	assert.Equal(t, "projects/homequote-dev/topics/projects-feed", c.resourceName(kindTopic, "projects-feed"))
	assert.Empty(t, c.resourceName(kindTopic, "  "))
	assert.Empty(t, (&Client{}).resourceName(kindTopic, "lifecycle"))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("projects/p/topics/t", nil))
	assert.ErrorIs(t, classify("projects/p/topics/t", status.Error(codes.NotFound, "gone")), ErrMissing)

	err := classify("projects/p/topics/t", status.Error(codes.PermissionDenied, "nope"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissing))
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("lifecycle"))
	assert.Nil(t, c.Subscriber("sub"))
	assert.NoError(t, c.Close())
}

func TestCredentialOptions(t *testing.T) {
	assert.Len(t, credentialOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`, ApplicationCredentials: "/tmp/key.json"}), 1)
	assert.Nil(t, credentialOptions(config.GCPConfig{}))
}
