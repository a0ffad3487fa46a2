package minio

import (
	"context"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live MinIO at localhost:9000; skips when unreachable.
func TestIntegrationMinioStore(t *testing.T) {
	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("minio client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("minio not available: %v", err)
	}

	const bucket = "scego-it"
	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, WithPrefix("runs/"))

	t.Run("put, open, ranged read", func(t *testing.T) {
		data := []byte("persisted embedding run")
		require.NoError(t, store.Put(ctx, "run-001.sce", data))

		blob, err := store.Open(ctx, "run-001.sce")
		require.NoError(t, err)
		require.Equal(t, int64(len(data)), blob.Size())

		buf := make([]byte, len(data))
		n, err := blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		assert.Equal(t, len(data), n)
		assert.Equal(t, data, buf)
		require.NoError(t, blob.Close())

		blob, err = store.Open(ctx, "run-001.sce")
		require.NoError(t, err)
		rc, err := blob.ReadRange(ctx, 10, 9)
		require.NoError(t, err)
		part, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "embedding", string(part))
		require.NoError(t, rc.Close())
		require.NoError(t, blob.Close())
	})

	t.Run("list and delete", func(t *testing.T) {
		names, err := store.List(ctx, "")
		require.NoError(t, err)
		assert.Contains(t, names, "run-001.sce")

		require.NoError(t, store.Delete(ctx, "run-001.sce"))
		_, err = store.Open(ctx, "run-001.sce")
		require.Error(t, err)

		// Idempotent delete.
		assert.NoError(t, store.Delete(ctx, "run-001.sce"))
	})

	t.Run("streaming create", func(t *testing.T) {
		wb, err := store.Create(ctx, "run-002.sce")
		require.NoError(t, err)
		_, err = wb.Write([]byte("streamed "))
		require.NoError(t, err)
		_, err = wb.Write([]byte("frames"))
		require.NoError(t, err)
		require.NoError(t, wb.Close())

		blob, err := store.Open(ctx, "run-002.sce")
		require.NoError(t, err)
		assert.Equal(t, int64(15), blob.Size())
		require.NoError(t, blob.Close())

		_ = store.Delete(ctx, "run-002.sce")
	})
}
