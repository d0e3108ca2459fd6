package vectorstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"ragcompanion/internal/apierrors"
)

// qdrantStore is a Store backed by a Qdrant collection, addressed by its
// gRPC endpoint (port 6334 by default).
type qdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     Metric
}

// NewQdrant connects to a Qdrant instance. dsn may carry an api_key query
// parameter: "http://localhost:6334?api_key=...".
func NewQdrant(dsn, collection string) (Store, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant location: %w", err)
	}
	host := parsed.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := parsed.Port()
	if port == "" {
		port = "6334"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant location: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: portNum}
	if parsed.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := parsed.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &qdrantStore{client: client, collection: collection}, nil
}

func distanceOf(m Metric) qdrant.Distance {
	switch m {
	case MetricEuclidean:
		return qdrant.Distance_Euclid
	case MetricDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

func (q *qdrantStore) EnsureCollection(ctx context.Context, name string, dim int, metric Metric) error {
	if dim <= 0 {
		return fmt.Errorf("vector dimension must be > 0")
	}
	q.collection = name
	q.dimension = dim
	q.metric = metric

	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return q.checkDimension(ctx, name, dim)
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: distanceOf(metric),
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

// checkDimension fails when an already-existing collection's configured
// vector size does not match dim, the current embedder's output dimension.
// The vector dimension is fixed at collection creation time: a mismatch
// means the collection was built for a different embedder, and every
// subsequent upsert or query would silently compare vectors of
// incompatible size, so this is a fatal startup condition (apierrors.ErrFatalConfig),
// surfaced by the caller the same way a failure to create the collection
// already is.
func (q *qdrantStore) checkDimension(ctx context.Context, name string, dim int) error {
	info, err := q.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return fmt.Errorf("get collection info: %w", err)
	}
	existing := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
	if existing != uint64(dim) {
		return fmt.Errorf("collection %q has vector size %d, embedder produces %d: %w",
			name, existing, dim, apierrors.ErrFatalConfig)
	}
	return nil
}

func (q *qdrantStore) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	pts := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = v
		}
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		pts = append(pts, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(p.ID),
			Vectors: qdrant.NewVectorsDense(vec),
			Payload: qdrant.NewValueMap(payload),
		})
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         pts,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (q *qdrantStore) Delete(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pids = append(pids, qdrant.NewIDNum(id))
	}
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pids...),
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

func (q *qdrantStore) Query(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	lim := uint64(limit)

	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		// A backend-level "collection not found" / "no points" condition
		// means there is simply nothing to return yet, not a transport
		// failure worth propagating.
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("query points: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		payload := make(map[string]string, len(r.Payload))
		for k, v := range r.Payload {
			payload[k] = v.GetStringValue()
		}
		hits = append(hits, Hit{ID: r.Id.GetNum(), Score: r.Score, Payload: payload})
	}
	return hits, nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "doesn't exist")
}

func (q *qdrantStore) DropAndRecreate(ctx context.Context) error {
	if err := q.client.DeleteCollection(ctx, q.collection); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return q.EnsureCollection(ctx, q.collection, q.dimension, q.metric)
}

func (q *qdrantStore) Close() error { return q.client.Close() }
