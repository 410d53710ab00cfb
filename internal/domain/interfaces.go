package domain

import "context"

// FeedWorker defines the interface for odds update sources.
// Events are delivered on an unbuffered channel that is closed once the
// worker has stopped, so nothing arrives after Disconnect returns.
type FeedWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	Events() <-chan OddsChangeEvent
}

// MatchRepository is the indexed-record storage for the dataset.
type MatchRepository interface {
	GetAll(ctx context.Context) ([]Match, error)
	Put(ctx context.Context, match Match) error
	PutAll(ctx context.Context, matches []Match) error
}

// KeyValueStore is the small string store used for scroll and selection state.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
