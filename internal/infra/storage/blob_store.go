// Package storage persists KYC document uploads in blob storage via gocloud.dev.
package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gocloud.dev/blob"

	// Registered bucket URL schemes.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"

	"passport/config"
	"passport/internal/domain/lifecycle"
	"passport/internal/domain/service"
	"passport/internal/errors"
)

// blobDocumentStore implements the DocumentStore interface on top of a gocloud bucket.
type blobDocumentStore struct {
	bucket    *blob.Bucket
	bucketURL string
	logger    *slog.Logger
}

// Params holds dependencies for the document store, injected by Fx
type Params struct {
	fx.In
	fx.Lifecycle

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// NewDocumentStore opens the configured bucket and manages it through the fx lifecycle.
func NewDocumentStore(params Params) (service.DocumentStore, error) {
	if params.Config.Storage == nil || params.Config.Storage.BucketURL == "" {
		return nil, errors.New("storage bucket URL is required")
	}

	bucket, err := blob.OpenBucket(params.Ctx, params.Config.Storage.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %s", params.Config.Storage.BucketURL)
	}

	store := &blobDocumentStore{
		bucket:    bucket,
		bucketURL: params.Config.Storage.BucketURL,
		logger:    params.Logger,
	}

	params.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			ctx, cancel := context.WithTimeout(stopCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if accessible, err := bucket.IsAccessible(ctx); err == nil && !accessible {
				params.Logger.Warn("document bucket no longer accessible on shutdown")
			}

			return store.Close()
		},
	})

	return store, nil
}

// NewBlobDocumentStore wraps an already opened bucket. Used in tests with memblob.
func NewBlobDocumentStore(bucket *blob.Bucket, bucketURL string, logger *slog.Logger) service.DocumentStore {
	return &blobDocumentStore{
		bucket:    bucket,
		bucketURL: bucketURL,
		logger:    logger,
	}
}

// Save writes the document bytes under the given key and returns its storage location.
func (s *blobDocumentStore) Save(ctx context.Context, key, contentType string, data []byte) (string, error) {
	opts := &blob.WriterOptions{ContentType: contentType}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return "", errors.Wrapf(err, "failed to write document %s", key)
	}

	s.logger.Info("KYC document stored",
		slog.String("key", key),
		slog.Int("size", len(data)),
	)

	return s.bucketURL + "/" + key, nil
}

// Close releases the underlying bucket resources.
func (s *blobDocumentStore) Close() error {
	return errors.WithStack(s.bucket.Close())
}
