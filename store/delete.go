package store

import "context"

// Deleter is implemented by stores that can remove a record outright. The
// submission service uses it to roll back a freshly created job whose
// enqueue was rejected, so a QueueFull submission leaves the store
// unchanged.
type Deleter interface {
	Delete(ctx context.Context, id string) error
}
