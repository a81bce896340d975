// Package dynamodb reads flat recipe records from a DynamoDB table for
// ingestion.
package dynamodb

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"recipegraph/application/ingestion"
)

// ScanAPI is the slice of the DynamoDB client the source uses.
type ScanAPI interface {
	Scan(ctx context.Context, params *awsdynamodb.ScanInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error)
}

var recordAttributes = []string{
	"id", "title", "description", "url", "category", "cuisine", "author",
	"cookingMethod", "servings", "prep_time", "cook_time", "total_time",
	"image_url", "ingredients", "instructions", "tags",
}

// Source pages through a table with Scan. Items without a title are
// filtered out server-side.
type Source struct {
	client    ScanAPI
	tableName string
	pageSize  int32
	expr      expression.Expression
	logger    *zap.Logger

	lastKey map[string]types.AttributeValue
	done    bool
}

var _ ingestion.RecipeSource = (*Source)(nil)

// NewSource creates a scanning source over tableName.
func NewSource(client ScanAPI, tableName string, pageSize int, logger *zap.Logger) (*Source, error) {
	names := make([]expression.NameBuilder, 0, len(recordAttributes))
	for _, a := range recordAttributes {
		names = append(names, expression.Name(a))
	}
	projection := expression.NamesList(names[0], names[1:]...)
	filter := expression.Name("title").AttributeExists()

	expr, err := expression.NewBuilder().
		WithProjection(projection).
		WithFilter(filter).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	if pageSize <= 0 {
		pageSize = 25
	}
	return &Source{
		client:    client,
		tableName: tableName,
		pageSize:  int32(pageSize),
		expr:      expr,
		logger:    logger,
	}, nil
}

// NextPage scans the next page. The last page is returned together with
// io.EOF.
func (s *Source) NextPage(ctx context.Context) ([]ingestion.RecipeRecord, error) {
	if s.done {
		return nil, io.EOF
	}

	result, err := s.client.Scan(ctx, &awsdynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		Limit:                     aws.Int32(s.pageSize),
		ProjectionExpression:      s.expr.Projection(),
		FilterExpression:          s.expr.Filter(),
		ExpressionAttributeNames:  s.expr.Names(),
		ExpressionAttributeValues: s.expr.Values(),
		ExclusiveStartKey:         s.lastKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.tableName, err)
	}

	var records []ingestion.RecipeRecord
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &records); err != nil {
		return nil, fmt.Errorf("failed to decode recipe items: %w", err)
	}

	s.logger.Debug("Scanned recipe page",
		zap.String("table", s.tableName),
		zap.Int32("scanned", result.ScannedCount),
		zap.Int("records", len(records)),
	)

	s.lastKey = result.LastEvaluatedKey
	if s.lastKey == nil {
		s.done = true
		return records, io.EOF
	}
	return records, nil
}
