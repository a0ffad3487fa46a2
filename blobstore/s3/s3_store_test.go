package s3

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/scego/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real bucket; set SCEGO_S3_BUCKET to enable.
func TestIntegrationS3Store(t *testing.T) {
	bucket := os.Getenv("SCEGO_S3_BUCKET")
	if bucket == "" {
		t.Skip("skipping S3 integration test: SCEGO_S3_BUCKET not set")
	}

	ctx := context.Background()
	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err)

	client := s3.NewFromConfig(cfg)

	prefix := fmt.Sprintf("scego-it-%d/", time.Now().UnixNano())
	store := NewStore(client, bucket, prefix)

	t.Run("stream, list, ranged read", func(t *testing.T) {
		name := "run-001.sce"
		data := make([]byte, 1<<20)
		_, err := rand.Read(data)
		require.NoError(t, err)

		w, err := store.Create(ctx, name)
		require.NoError(t, err)
		n, err := w.Write(data)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)
		require.NoError(t, w.Close())

		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, names, name)

		blob, err := store.Open(ctx, name)
		require.NoError(t, err)
		assert.Equal(t, int64(len(data)), blob.Size())

		// Ranged reads are how frame sections come back; check two
		// offsets against the source buffer.
		buf := make([]byte, 256)
		_, err = blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, data[:256], buf)

		_, err = blob.ReadAt(ctx, buf, 4096)
		require.NoError(t, err)
		assert.Equal(t, data[4096:4352], buf)

		require.NoError(t, blob.Close())
		require.NoError(t, store.Delete(ctx, name))
	})

	t.Run("missing blob", func(t *testing.T) {
		_, err := store.Open(ctx, "never-written")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})
}
