package storage

import "context"

// ObjectStore persists raw media. The returned object name is an opaque
// reference; callers never interpret it.
type ObjectStore interface {
	Put(ctx context.Context, data []byte, folder, contentType string) (objectName string, err error)
	Get(ctx context.Context, objectName string) ([]byte, error)
}
