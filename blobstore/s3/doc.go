// Package s3 implements blobstore.Store on Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("runs/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// Snapshots read through ranged GETs, so loading a single animation frame
// from a multi-gigabyte run fetches only that frame's bytes. Writes
// stream through multipart uploads with CRC32C validation.
//
// Three store flavors cover different deployments:
//
//   - Store: standard buckets, the default choice
//   - ExpressStore: S3 Express One Zone directory buckets, for
//     latency-sensitive frame serving, with conditional writes
//   - DDBCommitStore: standard bucket plus a DynamoDB run catalog that
//     gives concurrent pipelines an atomically updated CURRENT pointer
//
// Wrap any of them in blobstore.NewCachingStore to keep hot blocks in
// memory between reads.
package s3
