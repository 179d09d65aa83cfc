package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/angelmondragon/homequote-backend/pkg/config"
	"github.com/angelmondragon/homequote-backend/pkg/logger"
)

const (
	// FeedIndex orders every update by creation time under a single partition.
	FeedIndex = "feed-created-index"
	// FeedPartition is the constant partition value used by FeedIndex.
	FeedPartition = "all"
)

var errClientNotInitialized = errors.New("dynamodb client not initialized")

// Client wraps the DynamoDB SDK client with the configured table names.
type Client struct {
	db           *dynamodb.Client
	updatesTable string
	local        bool
	logg         *logger.Logger
}

// NewClient loads AWS configuration and verifies the updates table. When an
// endpoint override is set (DynamoDB Local) a missing table is created.
func NewClient(ctx context.Context, cfg config.DynamoDBConfig, logg *logger.Logger) (*Client, error) {
	table := strings.TrimSpace(cfg.UpdatesTable)
	if table == "" {
		return nil, errors.New("dynamodb updates table is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := &Client{
		db:           dynamodb.NewFromConfig(awsCfg),
		updatesTable: table,
		local:        strings.TrimSpace(cfg.Endpoint) != "",
		logg:         logg,
	}
	if err := client.ensureUpdatesTable(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func loadOptions(cfg config.DynamoDBConfig) []func(*awsconfig.LoadOptions) error {
	var opts []func(*awsconfig.LoadOptions) error
	if region := strings.TrimSpace(cfg.Region); region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(endpoint))
		// DynamoDB Local ignores credentials but the SDK still signs requests.
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	return opts
}

// DB exposes the SDK client for repositories.
func (c *Client) DB() *dynamodb.Client {
	if c == nil {
		return nil
	}
	return c.db
}

// UpdatesTable returns the configured feed table name.
func (c *Client) UpdatesTable() string {
	if c == nil {
		return ""
	}
	return c.updatesTable
}

// Ping describes the updates table.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.db == nil {
		return errClientNotInitialized
	}
	_, err := c.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.updatesTable),
	})
	if err != nil {
		return fmt.Errorf("describing table %q: %w", c.updatesTable, err)
	}
	return nil
}

func (c *Client) ensureUpdatesTable(ctx context.Context) error {
	_, err := c.db.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(c.updatesTable),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) || !c.local {
		return fmt.Errorf("checking table %q: %w", c.updatesTable, err)
	}

	if _, err := c.db.CreateTable(ctx, UpdatesTableInput(c.updatesTable)); err != nil {
		return fmt.Errorf("creating table %q: %w", c.updatesTable, err)
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "table", c.updatesTable), "dynamodb table created")
	}
	return nil
}

// UpdatesTableInput describes the feed table: hash key id plus a global index
// over (feed, created_at) for newest-first listing.
func UpdatesTableInput(name string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("feed"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("created_at"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(FeedIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String("feed"), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String("created_at"), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
}
