package updates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/angelmondragon/homequote-backend/pkg/dynamo"
	"github.com/angelmondragon/homequote-backend/pkg/enums"
	"github.com/angelmondragon/homequote-backend/pkg/pagination"
)

// sortableTime keeps a fixed width so created_at sorts lexically.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

var (
	// ErrNotFound is returned when the update does not exist.
	ErrNotFound = errors.New("update not found")
	// ErrNotAuthor is returned when a non-admin deletes someone else's update.
	ErrNotAuthor = errors.New("update belongs to another user")
)

// Item is a feed post as stored.
type Item struct {
	ID         uuid.UUID
	AuthorID   uuid.UUID
	AuthorRole enums.Role
	Body       string
	PhotoURLs  []string
	CreatedAt  time.Time
}

// Repository persists feed posts.
type Repository interface {
	Put(ctx context.Context, item Item) error
	ListNewest(ctx context.Context, limit int, after *pagination.Cursor) ([]Item, error)
	Delete(ctx context.Context, id, requesterID uuid.UUID, asAdmin bool) error
}

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type record struct {
	ID         string   `dynamodbav:"id"`
	Feed       string   `dynamodbav:"feed"`
	AuthorID   string   `dynamodbav:"author_id"`
	AuthorRole string   `dynamodbav:"author_role"`
	Body       string   `dynamodbav:"body"`
	PhotoURLs  []string `dynamodbav:"photo_urls,omitempty"`
	CreatedAt  string   `dynamodbav:"created_at"`
}

type dynamoRepository struct {
	db    dynamoAPI
	table string
}

// NewRepository returns a DynamoDB backed feed repository.
func NewRepository(db dynamoAPI, table string) (Repository, error) {
	if db == nil {
		return nil, errors.New("dynamodb client required")
	}
	if table == "" {
		return nil, errors.New("updates table required")
	}
	return &dynamoRepository{db: db, table: table}, nil
}

// NewRepositoryFromClient wires the repository to the shared dynamo client.
func NewRepositoryFromClient(client *dynamo.Client) (Repository, error) {
	if client == nil {
		return nil, errors.New("dynamodb client required")
	}
	return NewRepository(client.DB(), client.UpdatesTable())
}

func (r *dynamoRepository) Put(ctx context.Context, item Item) error {
	av, err := attributevalue.MarshalMap(toRecord(item))
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.table),
		Item:                     av,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": "id"},
	})
	if err != nil {
		return fmt.Errorf("put update: %w", err)
	}
	return nil
}

func (r *dynamoRepository) ListNewest(ctx context.Context, limit int, after *pagination.Cursor) ([]Item, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(dynamo.FeedIndex),
		KeyConditionExpression: aws.String("#feed = :feed"),
		ExpressionAttributeNames: map[string]string{
			"#feed": "feed",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":feed": &types.AttributeValueMemberS{Value: dynamo.FeedPartition},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}
	if after != nil {
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"id":         &types.AttributeValueMemberS{Value: after.ID.String()},
			"feed":       &types.AttributeValueMemberS{Value: dynamo.FeedPartition},
			"created_at": &types.AttributeValueMemberS{Value: after.CreatedAt.UTC().Format(sortableTime)},
		}
	}

	out, err := r.db.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}

	var records []record
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, fmt.Errorf("unmarshal updates: %w", err)
	}
	items := make([]Item, 0, len(records))
	for _, rec := range records {
		item, err := fromRecord(rec)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *dynamoRepository) Delete(ctx context.Context, id, requesterID uuid.UUID, asAdmin bool) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id.String()},
		},
		ConditionExpression:                 aws.String("attribute_exists(#id)"),
		ExpressionAttributeNames:            map[string]string{"#id": "id"},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}
	if !asAdmin {
		input.ConditionExpression = aws.String("attribute_exists(#id) AND #author = :author")
		input.ExpressionAttributeNames["#author"] = "author_id"
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":author": &types.AttributeValueMemberS{Value: requesterID.String()},
		}
	}

	_, err := r.db.DeleteItem(ctx, input)
	if err == nil {
		return nil
	}
	var cfe *types.ConditionalCheckFailedException
	if errors.As(err, &cfe) {
		if len(cfe.Item) == 0 {
			return ErrNotFound
		}
		return ErrNotAuthor
	}
	return fmt.Errorf("delete update: %w", err)
}

func toRecord(item Item) record {
	return record{
		ID:         item.ID.String(),
		Feed:       dynamo.FeedPartition,
		AuthorID:   item.AuthorID.String(),
		AuthorRole: string(item.AuthorRole),
		Body:       item.Body,
		PhotoURLs:  item.PhotoURLs,
		CreatedAt:  item.CreatedAt.UTC().Format(sortableTime),
	}
}

func fromRecord(rec record) (Item, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return Item{}, fmt.Errorf("invalid update id %q: %w", rec.ID, err)
	}
	authorID, err := uuid.Parse(rec.AuthorID)
	if err != nil {
		return Item{}, fmt.Errorf("invalid author id %q: %w", rec.AuthorID, err)
	}
	createdAt, err := time.Parse(sortableTime, rec.CreatedAt)
	if err != nil {
		return Item{}, fmt.Errorf("invalid created_at %q: %w", rec.CreatedAt, err)
	}
	return Item{
		ID:         id,
		AuthorID:   authorID,
		AuthorRole: enums.Role(rec.AuthorRole),
		Body:       rec.Body,
		PhotoURLs:  rec.PhotoURLs,
		CreatedAt:  createdAt,
	}, nil
}
