package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

// ErrMissing reports a topic or subscription that does not exist in the project.
var ErrMissing = errors.New("pubsub resource does not exist")

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

// Client hands out publishers for the lifecycle topic and subscribers for
// the notification and analytics consumers. Each binary verifies only the
// resources it uses.
type Client struct {
	ps      *pubsub.Client
	project string
	cfg     config.PubSubConfig
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	ps, err := pubsub.NewClient(ctx, project, credentialOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("open pubsub: %w", err)
	}
	logg.Info(logg.WithField(ctx, "project", project), "pubsub.ready")
	return &Client{ps: ps, project: project, cfg: cfg}, nil
}

func credentialOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// EnsureTopic fails with ErrMissing when the topic has not been provisioned.
func (c *Client) EnsureTopic(ctx context.Context, name string) error {
	full := c.resourceName(kindTopic, name)
	if full == "" {
		return errors.New("topic name is required")
	}
	_, err := c.ps.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
	return classify(full, err)
}

// EnsureSubscription fails with ErrMissing when the subscription has not been provisioned.
func (c *Client) EnsureSubscription(ctx context.Context, name string) error {
	full := c.resourceName(kindSubscription, name)
	if full == "" {
		return errors.New("subscription name is required")
	}
	_, err := c.ps.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
	return classify(full, err)
}

func classify(resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s: %w", resource, ErrMissing)
	default:
		return fmt.Errorf("check %s: %w", resource, err)
	}
}

// Publisher accepts a topic id or full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	full := c.resourceName(kindTopic, topic)
	if full == "" || c.ps == nil {
		return nil
	}
	return c.ps.Publisher(full)
}

// Subscriber accepts a subscription id or full resource name.
func (c *Client) Subscriber(subscription string) *pubsub.Subscriber {
	full := c.resourceName(kindSubscription, subscription)
	if full == "" || c.ps == nil {
		return nil
	}
	return c.ps.Subscriber(full)
}

func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscriber(c.cfg.NotificationSubscription)
}

func (c *Client) AnalyticsSubscription() *pubsub.Subscriber {
	return c.Subscriber(c.cfg.AnalyticsSubscription)
}

func (c *Client) Close() error {
	if c == nil || c.ps == nil {
		return nil
	}
	return c.ps.Close()
}

// resourceName expands an id to projects/<project>/<kind>/<id>. Names that
// are already fully qualified pass through.
func (c *Client) resourceName(kind, name string) string {
	if c == nil {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.project == "" {
		return ""
	}
	return "projects/" + c.project + "/" + kind + "/" + name
}
