package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"

	"lrt-predictor/internal/domain/entity"
)

// sessionItem is one row per session. Entries are stored as JSON strings in
// submission order; ttl is an epoch-seconds attribute for DynamoDB TTL.
type sessionItem struct {
	SessionID string   `dynamodbav:"session_id"`
	Entries   []string `dynamodbav:"entries"`
	TTL       int64    `dynamodbav:"ttl,omitempty"`
}

type HistoryRepo struct {
	Client dynamodbiface.DynamoDBAPI
	Table  string
	TTL    time.Duration

	now func() time.Time
}

func NewHistoryRepo(client dynamodbiface.DynamoDBAPI, table string, ttl time.Duration) *HistoryRepo {
	return &HistoryRepo{Client: client, Table: table, TTL: ttl, now: time.Now}
}

func (r *HistoryRepo) key(sessionID string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"session_id": {S: aws.String(sessionID)},
	}
}

func (r *HistoryRepo) expiry() string {
	return strconv.FormatInt(r.now().Add(r.TTL).Unix(), 10)
}

func (r *HistoryRepo) Append(ctx context.Context, sessionID string, entry entity.HistoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}

	in := &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.Table),
		Key:              r.key(sessionID),
		UpdateExpression: aws.String("SET entries = list_append(if_not_exists(entries, :empty), :entry)"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":empty": {L: []*dynamodb.AttributeValue{}},
			":entry": {L: []*dynamodb.AttributeValue{{S: aws.String(string(data))}}},
		},
	}
	if r.TTL > 0 {
		// An expired item that has not been reaped yet must not be extended.
		in.UpdateExpression = aws.String(*in.UpdateExpression + ", #ttl = :ttl")
		in.ConditionExpression = aws.String("attribute_not_exists(#ttl) OR #ttl >= :now")
		in.ExpressionAttributeNames = map[string]*string{"#ttl": aws.String("ttl")}
		in.ExpressionAttributeValues[":ttl"] = &dynamodb.AttributeValue{N: aws.String(r.expiry())}
		in.ExpressionAttributeValues[":now"] = &dynamodb.AttributeValue{N: aws.String(strconv.FormatInt(r.now().Unix(), 10))}
	}

	_, err = r.Client.UpdateItemWithContext(ctx, in)
	if isConditionFailed(err) {
		return r.replace(ctx, sessionID, string(data))
	}
	if err != nil {
		return fmt.Errorf("dynamodb append history: %w", err)
	}
	return nil
}

// replace starts a fresh session item holding a single entry.
func (r *HistoryRepo) replace(ctx context.Context, sessionID, entry string) error {
	item, err := dynamodbattribute.MarshalMap(sessionItem{
		SessionID: sessionID,
		Entries:   []string{entry},
		TTL:       r.now().Add(r.TTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("encode session item: %w", err)
	}
	_, err = r.Client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.Table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb append history: %w", err)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var aerr awserr.Error
	return errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException
}

// List returns the session's entries and extends its lifetime. Items past
// their ttl read as empty since DynamoDB deletes expired items lazily.
func (r *HistoryRepo) List(ctx context.Context, sessionID string) ([]entity.HistoryEntry, error) {
	out, err := r.Client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.Table),
		Key:            r.key(sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb list history: %w", err)
	}

	entries := []entity.HistoryEntry{}
	if len(out.Item) == 0 {
		return entries, nil
	}

	var item sessionItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("decode session item: %w", err)
	}
	if item.TTL > 0 && item.TTL < r.now().Unix() {
		return entries, nil
	}

	for _, raw := range item.Entries {
		var e entity.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		entries = append(entries, e)
	}

	if r.TTL > 0 {
		if err := r.touch(ctx, sessionID); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

func (r *HistoryRepo) touch(ctx context.Context, sessionID string) error {
	_, err := r.Client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.Table),
		Key:                       r.key(sessionID),
		UpdateExpression:          aws.String("SET #ttl = :ttl"),
		ConditionExpression:       aws.String("attribute_exists(session_id)"),
		ExpressionAttributeNames:  map[string]*string{"#ttl": aws.String("ttl")},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{":ttl": {N: aws.String(r.expiry())}},
	})
	if isConditionFailed(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("dynamodb refresh ttl: %w", err)
	}
	return nil
}

func (r *HistoryRepo) Clear(ctx context.Context, sessionID string) error {
	_, err := r.Client.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.Table),
		Key:       r.key(sessionID),
	})
	if err != nil {
		return fmt.Errorf("dynamodb clear history: %w", err)
	}
	return nil
}
