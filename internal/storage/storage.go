// Package storage issues upload URLs for product images.
package storage

import (
	"context"
	"time"
)

// ObjectStorage is what the product service needs from a bucket
type ObjectStorage interface {
	// GenerateUploadURL returns a presigned PUT URL valid for expiresIn
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	// ObjectURL is the address the uploaded object will be served from
	ObjectURL(storageKey string) string
}
