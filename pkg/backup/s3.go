package backup

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// S3Store stores archives in an S3 (or S3-compatible) bucket. Keys map to
// object keys under an optional prefix, so the bucket layout mirrors the
// keyspace.
//
// Thread safety:
// The underlying S3 client is safe for concurrent use, so the store is
// too.
type S3Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3StoreConfig contains configuration for the S3 archive store.
type S3StoreConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the S3 bucket name. The bucket must already exist.
	Bucket string

	// KeyPrefix is an optional prefix for all object keys.
	// Example: "lodestone/backups/" results in keys like
	// "lodestone/backups/<instance>/<timestamp>.tar.gz".
	KeyPrefix string
}

// NewS3Store creates a new S3-backed archive store and verifies bucket
// access. The bucket must already exist - this function does not create
// it.
func NewS3Store(ctx context.Context, cfg S3StoreConfig) (*S3Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, apperrors.New(apperrors.CodeBadRequest, "S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, apperrors.New(apperrors.CodeBadRequest, "bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeIOFailure, err, "failed to access bucket %q", cfg.Bucket)
	}

	return &S3Store{
		client: cfg.Client,
		bucket: cfg.Bucket,
		// Normalized so objectKey() and List() agree on the separator
		// regardless of how the prefix was written in the config.
		keyPrefix: strings.Trim(cfg.KeyPrefix, "/"),
	}, nil
}

func (s *S3Store) objectKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return path.Join(s.keyPrefix, key)
}

// listPrefix maps a keyspace prefix onto the bucket, keeping the trailing
// slash that path.Join would strip. Without it a listing for "inst/" would
// also match sibling instances like "instance-2/".
func (s *S3Store) listPrefix(prefix string) string {
	full := s.objectKey(prefix)
	wantSlash := prefix == "" || strings.HasSuffix(prefix, "/")
	if full != "" && wantSlash && !strings.HasSuffix(full, "/") {
		full += "/"
	}
	return full
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   r,
	})
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeIOFailure, err, "failed to upload archive %s", key)
	}
	return nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "archive %s not found", key)
		}
		return nil, apperrors.Wrapf(apperrors.CodeIOFailure, err, "failed to download archive %s", key)
	}
	return result.Body, nil
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	var entries []Entry

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.listPrefix(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeIOFailure, "failed to list archives", err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if s.keyPrefix != "" {
				stripped, ok := strings.CutPrefix(key, s.keyPrefix+"/")
				if !ok {
					// Outside our namespace; ignore.
					continue
				}
				key = stripped
			}
			entry := Entry{Key: key}
			if object.Size != nil {
				entry.Size = *object.Size
			}
			if object.LastModified != nil {
				entry.LastModified = object.LastModified.UTC()
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeIOFailure, err, "failed to delete archive %s", key)
	}
	return nil
}
