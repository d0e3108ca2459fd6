// Package vectorstore is the adapter between the core and a nearest-neighbor
// vector index. Point identity is a deterministic uint64 derived from a
// block id (see PointID), so re-indexing a block is an idempotent replace
// rather than an insert.
package vectorstore

import (
	"context"
	"crypto/md5" //nolint:gosec // used as a deterministic id hash, not for security
	"encoding/binary"
)

// Point is a single vector-store record: a fixed-dimension vector plus an
// opaque string payload carried alongside it.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]string
}

// Hit is a single nearest-neighbor search result.
type Hit struct {
	ID      uint64
	Score   float32
	Payload map[string]string
}

// Metric selects the distance function a collection is created with.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
	MetricDot       Metric = "dot"
)

// Store is the minimal set of vector-store operations the core depends on.
type Store interface {
	// EnsureCollection creates the collection if absent and leaves an
	// existing one unchanged. The Qdrant store also checks an existing
	// collection's vector size and returns an apierrors.ErrFatalConfig
	// error when it differs from dim.
	EnsureCollection(ctx context.Context, name string, dim int, metric Metric) error
	// Upsert atomically replaces any prior point sharing a point's id.
	Upsert(ctx context.Context, points []Point) error
	// Delete removes points by id. Deleting an absent id is not an error.
	Delete(ctx context.Context, ids []uint64) error
	// Query returns the nearest neighbors of vector, closest first. A
	// backend-level "no results" condition is returned as an empty slice,
	// not an error.
	Query(ctx context.Context, vector []float32, limit int) ([]Hit, error)
	// DropAndRecreate deletes the collection and recreates it immediately
	// with the same configuration it was last ensured with.
	DropAndRecreate(ctx context.Context) error
	Close() error
}

// PointID derives the deterministic point id for a block id: the first 8
// bytes of its MD5 digest, interpreted as a big-endian uint64. Stable across
// processes so re-inserting a block replaces its prior point instead of
// duplicating it.
func PointID(blockID string) uint64 {
	sum := md5.Sum([]byte(blockID)) //nolint:gosec
	return binary.BigEndian.Uint64(sum[:8])
}
