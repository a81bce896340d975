package dynamodb

import (
	"context"
	"errors"
	"io"
	"testing"

	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeScanner struct {
	pages  []*awsdynamodb.ScanOutput
	inputs []*awsdynamodb.ScanInput
	err    error
}

func (f *fakeScanner) Scan(_ context.Context, in *awsdynamodb.ScanInput, _ ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	out := f.pages[0]
	f.pages = f.pages[1:]
	return out, nil
}

func item(id, title string, ingredients ...string) map[string]types.AttributeValue {
	list := make([]types.AttributeValue, len(ingredients))
	for i, ing := range ingredients {
		list[i] = &types.AttributeValueMemberS{Value: ing}
	}
	return map[string]types.AttributeValue{
		"id":          &types.AttributeValueMemberS{Value: id},
		"title":       &types.AttributeValueMemberS{Value: title},
		"ingredients": &types.AttributeValueMemberL{Value: list},
	}
}

func TestSourcePagesUntilLastEvaluatedKeyIsNil(t *testing.T) {
	lastKey := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "r-1"}}
	scanner := &fakeScanner{pages: []*awsdynamodb.ScanOutput{
		{Items: []map[string]types.AttributeValue{item("r-1", "Tomato Soup", "2 tomatoes")}, LastEvaluatedKey: lastKey},
		{Items: []map[string]types.AttributeValue{item("r-2", "Aioli")}},
	}}

	src, err := NewSource(scanner, "recipes", 10, zap.NewNop())
	require.NoError(t, err)

	page, err := src.NextPage(context.Background())
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Tomato Soup", page[0].Title)
	assert.Equal(t, []string{"2 tomatoes"}, page[0].Ingredients)

	page, err = src.NextPage(context.Background())
	assert.ErrorIs(t, err, io.EOF)
	require.Len(t, page, 1)
	assert.Equal(t, "r-2", page[0].ID)

	_, err = src.NextPage(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	require.Len(t, scanner.inputs, 2)
	first := scanner.inputs[0]
	assert.Equal(t, "recipes", *first.TableName)
	assert.Equal(t, int32(10), *first.Limit)
	assert.NotNil(t, first.ProjectionExpression)
	assert.NotNil(t, first.FilterExpression)
	assert.Nil(t, first.ExclusiveStartKey)
	assert.Equal(t, lastKey, scanner.inputs[1].ExclusiveStartKey)
}

func TestSourceScanError(t *testing.T) {
	src, err := NewSource(&fakeScanner{err: errors.New("throttled")}, "recipes", 0, zap.NewNop())
	require.NoError(t, err)

	_, err = src.NextPage(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}
