package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/felixgeelhaar/plantkeep/domain/kv"
)

const (
	attrKey = "key"
	// batchLimit is the BatchWriteItem request cap.
	batchLimit = 25
)

// item is one key-value pair in the table.
type item struct {
	Key       string `dynamodbav:"key"`
	Value     []byte `dynamodbav:"value"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
}

// Store is a DynamoDB-backed implementation of kv.Store.
type Store struct {
	api          API
	tableName    string
	keyPrefix    string
	queryTimeout time.Duration
	hits         atomic.Int64
	misses       atomic.Int64
}

// NewStore connects to DynamoDB using the default AWS credential chain.
func NewStore(ctx context.Context, opts ...ConfigOption) (*Store, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	api, err := NewAPI(ctx, cfg)
	if err != nil {
		return nil, errors.Join(kv.ErrConnectionFailed, err)
	}

	return NewStoreFromAPI(api, cfg), nil
}

// NewStoreFromAPI creates a store over an existing client.
func NewStoreFromAPI(api API, cfg Config) *Store {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultConfig().QueryTimeout
	}
	return &Store{
		api:          api,
		tableName:    cfg.TableName,
		keyPrefix:    cfg.KeyPrefix,
		queryTimeout: cfg.QueryTimeout,
	}
}

func (s *Store) prefixKey(key string) string {
	return s.keyPrefix + key
}

func (s *Store) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: s.prefixKey(key)},
	}
}

// Get retrieves a value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, wrapError(err)
	}

	if result.Item == nil {
		s.misses.Add(1)
		return nil, false, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(result.Item, &it); err != nil {
		return nil, false, err
	}

	s.hits.Add(1)
	return it.Value, true, nil
}

// Set stores a value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kv.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	av, err := attributevalue.MarshalMap(item{
		Key:       s.prefixKey(key),
		Value:     value,
		UpdatedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	})
	return wrapError(err)
}

// Delete removes a key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.keyAttr(key),
	})
	return wrapError(err)
}

// DeleteMany removes keys in batches of 25.
func (s *Store) DeleteMany(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefixKey(k)
	}
	return s.batchDelete(ctx, prefixed)
}

// Clear removes every item whose key carries the store's prefix.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := expression.NewBuilder().WithProjection(expression.NamesList(expression.Name(attrKey)))
	if s.keyPrefix != "" {
		b = b.WithFilter(expression.Name(attrKey).BeginsWith(s.keyPrefix))
	}
	expr, err := b.Build()
	if err != nil {
		return fmt.Errorf("build scan expression: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var lastKey map[string]types.AttributeValue
	for {
		result, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(s.tableName),
			ExclusiveStartKey:         lastKey,
			ProjectionExpression:      expr.Projection(),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		})
		if err != nil {
			return wrapError(err)
		}

		var keys []string
		for _, raw := range result.Items {
			if v, ok := raw[attrKey].(*types.AttributeValueMemberS); ok && strings.HasPrefix(v.Value, s.keyPrefix) {
				keys = append(keys, v.Value)
			}
		}
		if err := s.batchDelete(ctx, keys); err != nil {
			return err
		}

		if len(result.LastEvaluatedKey) == 0 {
			return nil
		}
		lastKey = result.LastEvaluatedKey
	}
}

func (s *Store) batchDelete(ctx context.Context, rawKeys []string) error {
	for i := 0; i < len(rawKeys); i += batchLimit {
		end := min(i+batchLimit, len(rawKeys))

		reqs := make([]types.WriteRequest, 0, end-i)
		for _, k := range rawKeys[i:end] {
			reqs = append(reqs, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						attrKey: &types.AttributeValueMemberS{Value: k},
					},
				},
			})
		}

		_, err := s.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.tableName: reqs},
		})
		if err != nil {
			return wrapError(err)
		}
	}
	return nil
}

// Stats returns store statistics. Size is not tracked for DynamoDB.
func (s *Store) Stats() kv.Stats {
	return kv.Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   -1,
	}
}

func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(kv.ErrOperationTimeout, err)
	}
	return err
}

// Ensure interface compliance.
var (
	_ kv.Store         = (*Store)(nil)
	_ kv.BatchDeleter  = (*Store)(nil)
	_ kv.StatsProvider = (*Store)(nil)
	_ API              = (*dynamodb.Client)(nil)
)
