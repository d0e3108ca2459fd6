package vectorstore

import "context"

// New resolves a Store from a location string. An empty location selects
// the in-memory store; anything else is treated as a Qdrant gRPC
// endpoint. config.Load always supplies a location (QDRANT_LOCATION or its
// default), so the in-memory store is reached only by callers that pass ""
// directly, such as tests.
func New(ctx context.Context, location, collection string, dim int, metric Metric) (Store, error) {
	var store Store
	if location == "" {
		store = NewMemory()
	} else {
		s, err := NewQdrant(location, collection)
		if err != nil {
			return nil, err
		}
		store = s
	}
	if err := store.EnsureCollection(ctx, collection, dim, metric); err != nil {
		return nil, err
	}
	return store, nil
}
