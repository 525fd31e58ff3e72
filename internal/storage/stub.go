package storage

import (
	"context"
	"errors"
	"time"
)

var _ ObjectStorage = (*StubObjectStorage)(nil)

// StubObjectStorage hands out fake URLs. It is used when no bucket is
// configured, e.g. in local development.
type StubObjectStorage struct {
	BaseURL string
}

// NewStubObjectStorage creates a StubObjectStorage
func NewStubObjectStorage() *StubObjectStorage {
	return &StubObjectStorage{BaseURL: "https://storage.example.com"}
}

func (s *StubObjectStorage) GenerateUploadURL(
	ctx context.Context,
	storageKey, contentType string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	return s.BaseURL + "/upload/" + storageKey + "?expires=" + expiresAt.UTC().Format(time.RFC3339), expiresAt, nil
}

func (s *StubObjectStorage) ObjectURL(storageKey string) string {
	return s.BaseURL + "/" + storageKey
}
