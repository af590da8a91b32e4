// Command init-dynamodb creates the admin plane's single wide-row table
// with its four global secondary indexes. Intended for local development
// against dynamodb-local; it drops and recreates an existing table.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	appconfig "github.com/learnhub/admin-plane/pkg/config"
	"github.com/learnhub/admin-plane/pkg/storage"
)

func main() {
	ctx := context.Background()

	cfg, err := appconfig.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("Initializing DynamoDB table",
		slog.String("endpoint", cfg.DynamoDBEndpoint),
		slog.String("region", cfg.Region),
		slog.String("table", cfg.TableName))

	var awsCfg aws.Config
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
		log.Fatalf("Failed to load AWS config: %v", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})

	// Drop an existing table so the schema is always current.
	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(cfg.TableName),
	})
	if err == nil {
		logger.Info("Table already exists, deleting and recreating",
			slog.String("table", cfg.TableName))

		_, err = client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
			TableName: aws.String(cfg.TableName),
		})
		if err != nil {
			log.Fatalf("Failed to delete existing table: %v", err)
		}

		waiter := dynamodb.NewTableNotExistsWaiter(client)
		err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(cfg.TableName),
		}, 60)
		if err != nil {
			log.Fatalf("Failed waiting for table deletion: %v", err)
		}

		logger.Info("Existing table deleted successfully")
	}

	logger.Info("Creating DynamoDB table", slog.String("table", cfg.TableName))

	// Attribute definitions cover the primary key plus every index key.
	attrs := []types.AttributeDefinition{
		{AttributeName: aws.String(storage.AttrPK), AttributeType: types.ScalarAttributeTypeS},
		{AttributeName: aws.String(storage.AttrSK), AttributeType: types.ScalarAttributeTypeS},
	}
	seen := map[string]bool{storage.AttrPK: true, storage.AttrSK: true}

	indexNames := make([]string, 0, len(storage.IndexKeys))
	for name := range storage.IndexKeys {
		indexNames = append(indexNames, name)
	}
	sort.Strings(indexNames)

	var gsis []types.GlobalSecondaryIndex
	for _, name := range indexNames {
		keys := storage.IndexKeys[name]
		for _, attr := range keys {
			if !seen[attr] {
				seen[attr] = true
				attrs = append(attrs, types.AttributeDefinition{
					AttributeName: aws.String(attr),
					AttributeType: types.ScalarAttributeTypeS,
				})
			}
		}
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName: aws.String(name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(keys[0]), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String(keys[1]), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{
				ProjectionType: types.ProjectionTypeAll,
			},
			ProvisionedThroughput: &types.ProvisionedThroughput{
				ReadCapacityUnits:  aws.Int64(5),
				WriteCapacityUnits: aws.Int64(5),
			},
		})
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:            aws.String(cfg.TableName),
		AttributeDefinitions: attrs,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(storage.AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(storage.AttrSK), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: gsis,
		BillingMode:            types.BillingModeProvisioned,
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
	})
	if err != nil {
		log.Fatalf("Failed to create table: %v", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(cfg.TableName),
	}, 60)
	if err != nil {
		log.Fatalf("Failed waiting for table creation: %v", err)
	}

	logger.Info("Table created successfully", slog.String("table", cfg.TableName))

	output, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(cfg.TableName),
	})
	if err != nil {
		log.Fatalf("Failed to describe table: %v", err)
	}

	fmt.Printf("\nTable: %s\n", *output.Table.TableName)
	fmt.Printf("Status: %s\n", output.Table.TableStatus)
	fmt.Printf("\nPrimary Key:\n")
	fmt.Printf("  - Partition Key: %s (HASH)\n", storage.AttrPK)
	fmt.Printf("  - Sort Key: %s (RANGE)\n", storage.AttrSK)
	fmt.Printf("\nGlobal Secondary Indexes:\n")
	for _, name := range indexNames {
		keys := storage.IndexKeys[name]
		fmt.Printf("  - %s: %s / %s\n", name, keys[0], keys[1])
	}
	fmt.Println("\nReady to use.")
}
