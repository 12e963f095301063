package services

import "time"

// BlobStore is the storage collaborator: durable uploads plus short-lived
// signed URLs for private objects. Implementations live in utils (local
// disk and remote HTTP store).
type BlobStore interface {
	// Put stores the bytes under key and returns a durable URL. Public
	// objects are directly reachable at the returned URL; private objects
	// need SignURL for delivery.
	Put(key string, data []byte, public bool) (string, error)

	// SignURL mints a time-limited delivery URL for a private object.
	SignURL(key string, ttl time.Duration) (string, error)
}
