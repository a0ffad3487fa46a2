// Package minio implements blobstore.Store for MinIO and other
// S3-compatible object storage (Ceph, Garage, SeaweedFS), using the
// official MinIO Go client.
//
// It is the air-gap friendly result sink: persisted embedding runs can be
// pushed to a self-hosted MinIO deployment without any AWS dependency.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "embeddings", minioblob.WithPrefix("runs/"))
//	err = persistence.Save(ctx, store, "run-042", res)
//
// Reads are served as ranged GETs, so loading a single animation frame
// from a large persisted run does not fetch the whole object. Writes
// stream through an io.Pipe into a single PutObject call and become
// visible only when Close succeeds.
package minio
