package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/smartprep/auth-api/internal/domain"
)

// OtpRepo provides typed DynamoDB operations for the otp_codes table.
// PK: email, SK: otp_id (ULID, so newest records sort last).
type OtpRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOtpRepo(client *dynamodb.Client, tableName string) *OtpRepo {
	return &OtpRepo{client: client, tableName: tableName}
}

func (r *OtpRepo) Put(ctx context.Context, c *domain.OtpCode) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal otp code: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put otp code: %w", domain.ErrDependency)
	}
	return nil
}

// LatestPending returns the most recently created unused, unexpired record
// for (email, purpose), or domain.ErrNotFound. Reissued codes supersede older
// pending ones purely through the newest-first ordering; consumed and expired
// records are filtered out here, so a replayed code simply finds nothing.
func (r *OtpRepo) LatestPending(ctx context.Context, email, purpose string, now int64) (*domain.OtpCode, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("email = :e"),
		FilterExpression:       aws.String("purpose = :p AND is_used = :f AND expires_at > :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e":   &types.AttributeValueMemberS{Value: email},
			":p":   &types.AttributeValueMemberS{Value: purpose},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("query otp codes: %w", domain.ErrDependency)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("no pending otp for %s/%s: %w", email, purpose, domain.ErrNotFound)
	}
	var c domain.OtpCode
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkUsed flips is_used from false to true. The condition makes the flip
// atomic: when several verify attempts race on the same code, exactly one
// succeeds and the rest get domain.ErrNotFound.
func (r *OtpRepo) MarkUsed(ctx context.Context, email, otpID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              compositeKey("email", email, "otp_id", otpID),
		UpdateExpression: aws.String("SET is_used = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
		ConditionExpression: aws.String("is_used = :f"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("otp already consumed: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("mark otp used: %w", domain.ErrDependency)
	}
	return nil
}

// IncrementAttempts bumps the failed-compare counter on a record.
func (r *OtpRepo) IncrementAttempts(ctx context.Context, email, otpID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              compositeKey("email", email, "otp_id", otpID),
		UpdateExpression: aws.String("ADD attempts :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("increment otp attempts: %w", domain.ErrDependency)
	}
	return nil
}

// DeleteByEmail removes every OTP record for an email, used or not.
// Called once a flow completes so nothing lingers until the sweeper runs.
func (r *OtpRepo) DeleteByEmail(ctx context.Context, email string) error {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
		},
		ProjectionExpression: aws.String("email, otp_id"),
	})
	if err != nil {
		return fmt.Errorf("query otp codes: %w", domain.ErrDependency)
	}
	return r.batchDelete(ctx, out.Items)
}

// DeleteExpired removes every record whose expires_at has passed and returns
// how many were deleted. Best-effort housekeeping: a full table scan is fine
// here because the TTL backstop keeps the table small.
func (r *OtpRepo) DeleteExpired(ctx context.Context, now int64) (int, error) {
	deleted := 0
	var startKey map[string]types.AttributeValue
	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(r.tableName),
			FilterExpression: aws.String("expires_at < :now"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
			},
			ProjectionExpression: aws.String("email, otp_id"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return deleted, fmt.Errorf("scan otp codes: %w", domain.ErrDependency)
		}
		if err := r.batchDelete(ctx, out.Items); err != nil {
			return deleted, err
		}
		deleted += len(out.Items)
		if out.LastEvaluatedKey == nil {
			return deleted, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// batchDelete deletes the given (email, otp_id) key items in chunks of 25,
// the BatchWriteItem maximum.
func (r *OtpRepo) batchDelete(ctx context.Context, items []map[string]types.AttributeValue) error {
	for len(items) > 0 {
		n := len(items)
		if n > 25 {
			n = 25
		}
		reqs := make([]types.WriteRequest, 0, n)
		for _, item := range items[:n] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: map[string]types.AttributeValue{
					"email":  item["email"],
					"otp_id": item["otp_id"],
				}},
			})
		}
		_, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: reqs},
		})
		if err != nil {
			return fmt.Errorf("batch delete otp codes: %w", domain.ErrDependency)
		}
		items = items[n:]
	}
	return nil
}
