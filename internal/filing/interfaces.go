package filing

import (
	"context"
	"time"
)

// Store persists filing records and their acquisition status.
type Store interface {
	GetFilingsByIDs(ctx context.Context, ids []string) ([]Filing, error)
	GetPendingFilings(ctx context.Context, limit int) ([]Filing, error)
	SetInProgress(ctx context.Context, id string) error
	SetTerminalStatus(ctx context.Context, id, localPath, storageKey string, status Status, errMsg string) error
}

// BlobStore writes document bytes and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, key string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
