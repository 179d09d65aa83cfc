package dynamo

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/angelmondragon/homequote-backend/pkg/config"
)

func applyOptions(t *testing.T, cfg config.DynamoDBConfig) awsconfig.LoadOptions {
	t.Helper()
	var opts awsconfig.LoadOptions
	for _, fn := range loadOptions(cfg) {
		if err := fn(&opts); err != nil {
			t.Fatalf("apply option: %v", err)
		}
	}
	return opts
}

func TestLoadOptionsLocalEndpoint(t *testing.T) {
	opts := applyOptions(t, config.DynamoDBConfig{
		Region:      "us-east-1",
		Endpoint:    "http://localhost:8000",
		AccessKeyID: "local",
		SecretKey:   "local",
	})

	if opts.Region != "us-east-1" {
		t.Fatalf("expected region us-east-1, got %q", opts.Region)
	}
	if opts.BaseEndpoint != "http://localhost:8000" {
		t.Fatalf("expected base endpoint override, got %q", opts.BaseEndpoint)
	}
	if opts.Credentials == nil {
		t.Fatal("expected static credentials for local endpoint")
	}
	creds, err := opts.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve creds: %v", err)
	}
	if creds.AccessKeyID != "local" {
		t.Fatalf("unexpected access key %q", creds.AccessKeyID)
	}
}

func TestLoadOptionsUsesDefaultChainWithoutEndpoint(t *testing.T) {
	opts := applyOptions(t, config.DynamoDBConfig{Region: "eu-west-1", AccessKeyID: "local", SecretKey: "local"})

	if opts.BaseEndpoint != "" {
		t.Fatalf("expected no endpoint override, got %q", opts.BaseEndpoint)
	}
	if opts.Credentials != nil {
		t.Fatal("expected default credential chain when no endpoint is set")
	}
}

func TestUpdatesTableInput(t *testing.T) {
	input := UpdatesTableInput("updates")

	if aws.ToString(input.TableName) != "updates" {
		t.Fatalf("unexpected table name %q", aws.ToString(input.TableName))
	}
	if len(input.KeySchema) != 1 || aws.ToString(input.KeySchema[0].AttributeName) != "id" {
		t.Fatalf("expected id hash key, got %+v", input.KeySchema)
	}
	if len(input.GlobalSecondaryIndexes) != 1 {
		t.Fatalf("expected one global index")
	}
	index := input.GlobalSecondaryIndexes[0]
	if aws.ToString(index.IndexName) != FeedIndex {
		t.Fatalf("unexpected index %q", aws.ToString(index.IndexName))
	}
	if index.KeySchema[1].KeyType != types.KeyTypeRange || aws.ToString(index.KeySchema[1].AttributeName) != "created_at" {
		t.Fatalf("expected created_at range key, got %+v", index.KeySchema[1])
	}
}

func TestNilClientPing(t *testing.T) {
	var c *Client
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error for nil client")
	}
	if c.UpdatesTable() != "" || c.DB() != nil {
		t.Fatal("nil client accessors should return zero values")
	}
}
