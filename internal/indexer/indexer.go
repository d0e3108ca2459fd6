// Package indexer periodically sweeps the knowledge base for updated
// blocks, embeds them, and upserts them into the vector store.
package indexer

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ragcompanion/internal/apierrors"
	"ragcompanion/internal/embedder"
	"ragcompanion/internal/observability"
	"ragcompanion/internal/siyuanapi"
	"ragcompanion/internal/vectorstore"
)

const upstreamTimeLayout = "20060102150405"

// DefaultInterval is the sweep period used when none is configured.
const DefaultInterval = 5 * time.Minute

// NotesClient is the subset of siyuanapi.Client the indexer depends on.
type NotesClient interface {
	BlocksUpdatedAfter(ctx context.Context, since string) ([]siyuanapi.Block, error)
}

// Indexer runs the periodic sweep described in the component design: read
// cursor, fetch deltas, embed, batch-upsert, advance cursor.
type Indexer struct {
	notes      NotesClient
	emb        embedder.Embedder
	vec        vectorstore.Store
	cursorPath string
	interval   time.Duration
	log        zerolog.Logger

	// sweeping guards against overlapping scheduler firings: at most one
	// sweep runs at a time, and a tick that lands while one is in flight
	// is coalesced (skipped) rather than queued.
	sweeping atomic.Bool
}

// New constructs an Indexer. interval <= 0 uses DefaultInterval.
func New(notes NotesClient, emb embedder.Embedder, vec vectorstore.Store, cursorPath string, interval time.Duration, log zerolog.Logger) *Indexer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Indexer{notes: notes, emb: emb, vec: vec, cursorPath: cursorPath, interval: interval, log: log}
}

var _ NotesClient = (*siyuanapi.Client)(nil)

// Run performs an initial sweep (deleting the cursor first if
// forceUpdateIndex is set) and then sweeps on a fixed ticker until ctx is
// cancelled.
func (ix *Indexer) Run(ctx context.Context, forceUpdateIndex bool) {
	if forceUpdateIndex {
		if err := ix.deleteCursor(); err != nil {
			ix.log.Warn().Err(err).Msg("failed to delete cursor for force_update_index")
		}
	}
	ix.runSweepGuarded(ctx)

	ticker := time.NewTicker(ix.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ix.runSweepGuarded(ctx)
		}
	}
}

func (ix *Indexer) runSweepGuarded(ctx context.Context) {
	if !ix.sweeping.CompareAndSwap(false, true) {
		ix.log.Debug().Msg("sweep already in progress, skipping tick")
		return
	}
	defer ix.sweeping.Store(false)

	// Every log line this sweep produces through the context-derived
	// logger (Sweep's own and the failure line below) shares a sweep_id, so a slow or
	// failing sweep can be picked out from the next tick's in the log
	// stream without comparing timestamps.
	ctx = observability.WithSweepID(ctx, uuid.NewString())
	if err := ix.Sweep(ctx); err != nil {
		observability.LoggerWithTrace(ctx).Error().Err(err).Msg("index sweep failed")
	}
}

// Sweep executes one sweep. On failure the cursor is left unchanged so the
// next sweep re-considers the same window (at-least-once reindexing).
func (ix *Indexer) Sweep(ctx context.Context) error {
	log := observability.LoggerWithTrace(ctx)
	cursor, err := ix.readCursor()
	if err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}
	now := time.Now().Unix()
	// SiYuan's updated-after query expects the same naive local-time
	// YYYYMMDDHHMMSS format its own sql layer writes, not UTC.
	since := time.Unix(cursor, 0).Local().Format(upstreamTimeLayout)

	blocks, err := ix.notes.BlocksUpdatedAfter(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch updated blocks: %w: %w", apierrors.ErrIndexing, err)
	}
	if len(blocks) == 0 {
		log.Debug().Str("since", since).Msg("no updated blocks since last sweep")
		return ix.writeCursor(now)
	}

	points := make([]vectorstore.Point, 0, len(blocks))
	for _, b := range blocks {
		vec, err := ix.emb.Encode(ctx, b.Content)
		if err != nil {
			return fmt.Errorf("embed block %s: %w: %w", b.ID, apierrors.ErrIndexing, err)
		}
		points = append(points, vectorstore.Point{
			ID:     vectorstore.PointID(b.ID),
			Vector: vec,
			Payload: map[string]string{
				"block_id":    b.ID,
				"document_id": b.RootID,
				"content":     b.Content,
			},
		})
	}

	if err := ix.vec.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert batch: %w: %w", apierrors.ErrIndexing, err)
	}
	log.Info().Int("blocks", len(blocks)).Msg("sweep upserted updated blocks")
	return ix.writeCursor(now)
}

// Reset drops and recreates the vector collection and deletes the
// persisted cursor, so the next sweep reindexes the whole knowledge base.
// Supplements the startup-only force_update_index flag with an equivalent
// operation callable at runtime.
func (ix *Indexer) Reset(ctx context.Context) error {
	if err := ix.vec.DropAndRecreate(ctx); err != nil {
		return fmt.Errorf("drop and recreate collection: %w", err)
	}
	return ix.deleteCursor()
}

func (ix *Indexer) readCursor() (int64, error) {
	raw, err := os.ReadFile(ix.cursorPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func (ix *Indexer) writeCursor(value int64) error {
	return os.WriteFile(ix.cursorPath, []byte(strconv.FormatInt(value, 10)), 0o644)
}

func (ix *Indexer) deleteCursor() error {
	err := os.Remove(ix.cursorPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
