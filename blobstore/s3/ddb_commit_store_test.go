package s3

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/scego/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCatalog is an in-memory stand-in for the DynamoDB commit table. It
// honors the conditional-put semantics the commit store relies on.
type fakeCatalog struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue // "uri#version" -> item
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{items: make(map[string]map[string]types.AttributeValue)}
}

func itemKey(item map[string]types.AttributeValue) string {
	uri := item["base_uri"].(*types.AttributeValueMemberS).Value
	version := item["version"].(*types.AttributeValueMemberN).Value
	return uri + "#" + version
}

func (c *fakeCatalog) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := itemKey(params.Item)
	if aws.ToString(params.ConditionExpression) == "attribute_not_exists(version)" {
		if _, exists := c.items[key]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("version taken")}
		}
	}
	c.items[key] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (c *fakeCatalog) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	uri := params.ExpressionAttributeValues[":uri"].(*types.AttributeValueMemberS).Value

	var matched []map[string]types.AttributeValue
	for _, item := range c.items {
		if item["base_uri"].(*types.AttributeValueMemberS).Value == uri {
			matched = append(matched, item)
		}
	}

	// Descending by version, as ScanIndexForward=false requests.
	sort.Slice(matched, func(a, b int) bool {
		va, _ := strconv.ParseUint(matched[a]["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		vb, _ := strconv.ParseUint(matched[b]["version"].(*types.AttributeValueMemberN).Value, 10, 64)
		return va > vb
	})
	if params.Limit != nil && len(matched) > int(*params.Limit) {
		matched = matched[:*params.Limit]
	}

	return &dynamodb.QueryOutput{Items: matched}, nil
}

func (c *fakeCatalog) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{}, nil
}

func (c *fakeCatalog) DeleteItem(_ context.Context, _ *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return &dynamodb.DeleteItemOutput{}, nil
}

func readAll(t *testing.T, blob blobstore.Blob) []byte {
	t.Helper()
	buf := make([]byte, blob.Size())
	_, err := blob.ReadAt(context.Background(), buf, 0)
	require.NoError(t, err)
	return buf
}

func newTestCommitStore(catalog *fakeCatalog) *DDBCommitStore {
	s3Store := NewStore(new(MockS3Client), "runs-bucket", "runs")
	return NewDDBCommitStore(s3Store, catalog, "scego-commits", "s3://runs-bucket/runs")
}

func TestCommitStoreCurrentEmpty(t *testing.T) {
	store := newTestCommitStore(newFakeCatalog())

	_, err := store.Open(context.Background(), "CURRENT")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestCommitStoreCommitAndResolve(t *testing.T) {
	ctx := context.Background()
	store := newTestCommitStore(newFakeCatalog())

	require.NoError(t, store.Put(ctx, "CURRENT", []byte("run-001.sce")))

	blob, err := store.Open(ctx, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "run-001.sce", string(readAll(t, blob)))

	// A later commit supersedes the first.
	require.NoError(t, store.Put(ctx, "CURRENT", []byte("run-002.sce")))

	blob, err = store.Open(ctx, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "run-002.sce", string(readAll(t, blob)))
}

// staleCatalog reports an outdated latest version, as seen by a committer
// that lost a race between its read and its conditional write.
type staleCatalog struct {
	*fakeCatalog
}

func (c *staleCatalog) Query(_ context.Context, _ *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{{
			"base_uri":      &types.AttributeValueMemberS{Value: "s3://runs-bucket/runs"},
			"version":       &types.AttributeValueMemberN{Value: "1"},
			"snapshot_path": &types.AttributeValueMemberS{Value: "run-001.sce"},
		}},
	}, nil
}

func TestCommitStoreConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	catalog := newFakeCatalog()

	// Another writer already owns versions 1 and 2.
	for v := 1; v <= 2; v++ {
		_, err := catalog.PutItem(ctx, &dynamodb.PutItemInput{
			Item: map[string]types.AttributeValue{
				"base_uri":      &types.AttributeValueMemberS{Value: "s3://runs-bucket/runs"},
				"version":       &types.AttributeValueMemberN{Value: strconv.Itoa(v)},
				"snapshot_path": &types.AttributeValueMemberS{Value: fmt.Sprintf("run-%03d.sce", v)},
			},
		})
		require.NoError(t, err)
	}

	s3Store := NewStore(new(MockS3Client), "runs-bucket", "runs")
	store := NewDDBCommitStore(s3Store, &staleCatalog{catalog}, "scego-commits", "s3://runs-bucket/runs")

	// The stale read sees version 1, so the commit targets the taken
	// version 2 and must lose.
	err := store.Put(ctx, "CURRENT", []byte("run-loser.sce"))
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestCommitStoreManyVersions(t *testing.T) {
	ctx := context.Background()
	store := newTestCommitStore(newFakeCatalog())

	for v := 1; v <= 5; v++ {
		require.NoError(t, store.Put(ctx, "CURRENT", []byte(fmt.Sprintf("run-%03d.sce", v))))
	}

	blob, err := store.Open(ctx, "CURRENT")
	require.NoError(t, err)
	assert.Equal(t, "run-005.sce", string(readAll(t, blob)))
}
