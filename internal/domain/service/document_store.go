package service

import "context"

// DocumentStore defines the interface for persisting KYC document bytes.
// Implementations return the location (URL) under which the bytes were stored;
// only that location is kept on the account record.
type DocumentStore interface {
	// Save writes the document bytes under the given key and returns its location.
	Save(ctx context.Context, key, contentType string, data []byte) (string, error)

	// Close releases any resources held by the store.
	Close() error
}
