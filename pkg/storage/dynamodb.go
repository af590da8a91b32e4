package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	appconfig "github.com/learnhub/admin-plane/pkg/config"
)

const batchWriteChunk = 25

// DynamoDBStore implements Store using AWS DynamoDB.
type DynamoDBStore struct {
	client *dynamodb.Client
	table  string
	logger *slog.Logger
}

// NewDynamoDBStore creates a DynamoDB-backed store.
func NewDynamoDBStore(ctx context.Context, cfg *appconfig.Config, logger *slog.Logger) (*DynamoDBStore, error) {
	var awsCfg aws.Config
	var err error

	// Local endpoints get static credentials; production uses the default
	// AWS credentials chain.
	if cfg.DynamoDBEndpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKey,
				cfg.AWSSecretKey,
				"",
			)),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})

	store := &DynamoDBStore{
		client: client,
		table:  cfg.TableName,
		logger: logger,
	}

	if err := store.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("DynamoDB health check failed: %w", err)
	}

	logger.Info("DynamoDB store initialized",
		slog.String("table", cfg.TableName),
		slog.String("region", cfg.Region),
		slog.String("endpoint", cfg.DynamoDBEndpoint))

	return store, nil
}

// marshalItem marshals entity and injects the key attributes.
func marshalItem(key Key, entity any) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	item[AttrPK] = &types.AttributeValueMemberS{Value: key.PK}
	item[AttrSK] = &types.AttributeValueMemberS{Value: key.SK}
	return item, nil
}

func keyAttributes(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrPK: &types.AttributeValueMemberS{Value: key.PK},
		AttrSK: &types.AttributeValueMemberS{Value: key.SK},
	}
}

// buildCondition renders the closed condition vocabulary into a DynamoDB
// condition expression.
func buildCondition(cond *Condition) (expr string, names map[string]string, values map[string]types.AttributeValue) {
	if cond == nil {
		return "", nil, nil
	}
	switch cond.Kind {
	case CondNotExists:
		return "attribute_not_exists(#pk)", map[string]string{"#pk": AttrPK}, nil
	case CondExists:
		return "attribute_exists(#pk)", map[string]string{"#pk": AttrPK}, nil
	case CondAttrEquals:
		return "#attr = :val",
			map[string]string{"#attr": cond.Attr},
			map[string]types.AttributeValue{":val": &types.AttributeValueMemberS{Value: cond.Value}}
	}
	return "", nil, nil
}

func startKeyAttributes(startKey map[string]string) map[string]types.AttributeValue {
	if len(startKey) == 0 {
		return nil
	}
	attrs := make(map[string]types.AttributeValue, len(startKey))
	for k, v := range startKey {
		attrs[k] = &types.AttributeValueMemberS{Value: v}
	}
	return attrs
}

func nextKeyStrings(lek map[string]types.AttributeValue) map[string]string {
	if len(lek) == 0 {
		return nil
	}
	next := make(map[string]string, len(lek))
	for k, v := range lek {
		if s, ok := v.(*types.AttributeValueMemberS); ok {
			next[k] = s.Value
		}
	}
	return next
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tc *types.TransactionCanceledException
	if errors.As(err, &tc) {
		for _, reason := range tc.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

// Get loads the item at key into out.
func (s *DynamoDBStore) Get(ctx context.Context, key Key, out any) error {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttributes(key),
	})
	if err != nil {
		s.logger.Error("failed to get item",
			slog.String("pk", key.PK),
			slog.String("sk", key.SK),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to get item: %w", err)
	}
	if len(result.Item) == 0 {
		return ErrNotFound
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return nil
}

// Put writes entity at key, optionally guarded by cond.
func (s *DynamoDBStore) Put(ctx context.Context, key Key, entity any, cond *Condition) error {
	item, err := marshalItem(key, entity)
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}
	if expr, names, values := buildCondition(cond); expr != "" {
		input.ConditionExpression = aws.String(expr)
		input.ExpressionAttributeNames = names
		input.ExpressionAttributeValues = values
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		s.logger.Error("failed to put item",
			slog.String("pk", key.PK),
			slog.String("sk", key.SK),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

// Delete removes the item at key.
func (s *DynamoDBStore) Delete(ctx context.Context, key Key) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttributes(key),
	})
	if err != nil {
		s.logger.Error("failed to delete item",
			slog.String("pk", key.PK),
			slog.String("sk", key.SK),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// Query reads one page of rows from a single partition.
func (s *DynamoDBStore) Query(ctx context.Context, in QueryInput) (*QueryOutput, error) {
	keyCond := "#pk = :pk"
	names := map[string]string{"#pk": AttrPK}
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: in.PK},
	}

	switch {
	case in.SKPrefix != "":
		keyCond += " AND begins_with(#sk, :skprefix)"
		names["#sk"] = AttrSK
		values[":skprefix"] = &types.AttributeValueMemberS{Value: in.SKPrefix}
	case in.SKFrom != "" && in.SKTo != "":
		keyCond += " AND #sk BETWEEN :from AND :to"
		names["#sk"] = AttrSK
		values[":from"] = &types.AttributeValueMemberS{Value: in.SKFrom}
		values[":to"] = &types.AttributeValueMemberS{Value: in.SKTo}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(in.Forward),
		ExclusiveStartKey:         startKeyAttributes(in.StartKey),
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(in.Limit)
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		s.logger.Error("failed to query partition",
			slog.String("pk", in.PK),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query partition: %w", err)
	}

	return &QueryOutput{
		Items:   result.Items,
		NextKey: nextKeyStrings(result.LastEvaluatedKey),
	}, nil
}

// QueryIndex reads one page of rows from a secondary index.
func (s *DynamoDBStore) QueryIndex(ctx context.Context, in IndexQueryInput) (*QueryOutput, error) {
	keys, ok := IndexKeys[in.Index]
	if !ok {
		return nil, fmt.Errorf("unknown index %q", in.Index)
	}
	partAttr, sortAttr := keys[0], keys[1]

	keyCond := "#part = :part"
	names := map[string]string{"#part": partAttr}
	values := map[string]types.AttributeValue{
		":part": &types.AttributeValueMemberS{Value: in.Value},
	}
	if in.From != "" && in.To != "" {
		keyCond += " AND #sort BETWEEN :from AND :to"
		names["#sort"] = sortAttr
		values[":from"] = &types.AttributeValueMemberS{Value: in.From}
		values[":to"] = &types.AttributeValueMemberS{Value: in.To}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		IndexName:                 aws.String(in.Index),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(in.Forward),
		ExclusiveStartKey:         startKeyAttributes(in.StartKey),
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(in.Limit)
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		s.logger.Error("failed to query index",
			slog.String("index", in.Index),
			slog.String("value", in.Value),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query index %s: %w", in.Index, err)
	}

	return &QueryOutput{
		Items:   result.Items,
		NextKey: nextKeyStrings(result.LastEvaluatedKey),
	}, nil
}

// Scan reads one page of rows across an entity namespace.
func (s *DynamoDBStore) Scan(ctx context.Context, in ScanInput) (*QueryOutput, error) {
	filter := "begins_with(#pk, :prefix)"
	names := map[string]string{"#pk": AttrPK}
	values := map[string]types.AttributeValue{
		":prefix": &types.AttributeValueMemberS{Value: in.PKPrefix},
	}
	switch {
	case in.SKEquals != "":
		filter += " AND #sk = :sk"
		names["#sk"] = AttrSK
		values[":sk"] = &types.AttributeValueMemberS{Value: in.SKEquals}
	case in.SKPrefix != "":
		filter += " AND begins_with(#sk, :skprefix)"
		names["#sk"] = AttrSK
		values[":skprefix"] = &types.AttributeValueMemberS{Value: in.SKPrefix}
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ExclusiveStartKey:         startKeyAttributes(in.StartKey),
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(in.Limit)
	}

	result, err := s.client.Scan(ctx, input)
	if err != nil {
		s.logger.Error("failed to scan namespace",
			slog.String("prefix", in.PKPrefix),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to scan namespace: %w", err)
	}

	return &QueryOutput{
		Items:   result.Items,
		NextKey: nextKeyStrings(result.LastEvaluatedKey),
	}, nil
}

// BatchWrite applies unconditional puts and deletes in chunks of 25.
func (s *DynamoDBStore) BatchWrite(ctx context.Context, ops []WriteOp) error {
	for start := 0; start < len(ops); start += batchWriteChunk {
		end := start + batchWriteChunk
		if end > len(ops) {
			end = len(ops)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, op := range ops[start:end] {
			if op.Delete {
				requests = append(requests, types.WriteRequest{
					DeleteRequest: &types.DeleteRequest{Key: keyAttributes(op.Key)},
				})
				continue
			}
			item, err := marshalItem(op.Key, op.Entity)
			if err != nil {
				return err
			}
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		_, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{s.table: requests},
		})
		if err != nil {
			s.logger.Error("failed to batch write",
				slog.Int("count", len(requests)),
				slog.String("error", err.Error()))
			return fmt.Errorf("failed to batch write: %w", err)
		}
	}
	return nil
}

// TransactWrite applies all ops atomically.
func (s *DynamoDBStore) TransactWrite(ctx context.Context, ops []WriteOp) error {
	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		if op.Delete {
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(s.table),
					Key:       keyAttributes(op.Key),
				},
			})
			continue
		}

		item, err := marshalItem(op.Key, op.Entity)
		if err != nil {
			return err
		}
		put := &types.Put{
			TableName: aws.String(s.table),
			Item:      item,
		}
		if expr, names, values := buildCondition(op.Cond); expr != "" {
			put.ConditionExpression = aws.String(expr)
			put.ExpressionAttributeNames = names
			put.ExpressionAttributeValues = values
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		s.logger.Error("failed to transact write",
			slog.Int("count", len(items)),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to transact write: %w", err)
	}
	return nil
}

// HealthCheck verifies the table is reachable.
func (s *DynamoDBStore) HealthCheck(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return fmt.Errorf("DynamoDB health check failed: %w", err)
	}
	return nil
}

// Close releases resources (the DynamoDB client needs no explicit cleanup).
func (s *DynamoDBStore) Close() error {
	s.logger.Info("DynamoDB store closed")
	return nil
}
