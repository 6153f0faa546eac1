// Package rag retrieves grounding records for a question and assembles
// them into the context block sent to the generation service.
package rag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"campus-assistant/config"
	apperrors "campus-assistant/errors"
	"campus-assistant/knowledge"
	"campus-assistant/metrics"
	"campus-assistant/search"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CorpusLoader supplies the three corpora. knowledge.Loader implements it.
type CorpusLoader interface {
	Load() (*knowledge.Set, error)
}

// Limits is the retrieval funnel: per-corpus result budgets, the over-fetch
// factor, the post-ranking score ceiling and the FAQ fallback size.
type Limits struct {
	FAQs         int
	Departments  int
	Procedures   int
	FallbackFAQs int
	Overfetch    int
	MaxScore     float64
}

func DefaultLimits() Limits {
	return Limits{FAQs: 5, Departments: 3, Procedures: 3, FallbackFAQs: 5, Overfetch: 3, MaxScore: 0.5}
}

func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		FAQs:         cfg.FAQResults,
		Departments:  cfg.DepartmentResults,
		Procedures:   cfg.ProcedureResults,
		FallbackFAQs: cfg.FallbackFAQs,
		Overfetch:    cfg.OverfetchFactor,
		MaxScore:     cfg.MaxScore,
	}
}

// Snapshot is one immutable generation of corpora and their indexes.
// Readers hold on to the snapshot they started with; reload replaces it.
type Snapshot struct {
	Generation  uint64
	Set         *knowledge.Set
	FAQs        *search.Index
	Departments *search.Index
	Procedures  *search.Index
	BuiltAt     time.Time
}

// BuildSnapshot indexes every corpus of set.
func BuildSnapshot(set *knowledge.Set, opts search.Options, generation uint64) (*Snapshot, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: no corpora", apperrors.ErrIndexUnavailable)
	}
	return &Snapshot{
		Generation:  generation,
		Set:         set,
		FAQs:        search.BuildIndex(set.FAQs.Name, set.FAQs.Records, search.DefaultProjector, opts),
		Departments: search.BuildIndex(set.Departments.Name, set.Departments.Records, search.DefaultProjector, opts),
		Procedures:  search.BuildIndex(set.Procedures.Name, set.Procedures.Records, search.DefaultProjector, opts),
		BuiltAt:     time.Now(),
	}, nil
}

// Results holds the filtered, ranked matches of one query per corpus.
// Slices may be shared with the query cache and must not be modified.
type Results struct {
	FAQs        []search.MatchResult
	Departments []search.MatchResult
	Procedures  []search.MatchResult
}

// Retriever owns the live snapshot and answers queries against it. It is
// safe for concurrent use.
type Retriever struct {
	snapshot atomic.Pointer[Snapshot]
	reloadMu sync.Mutex

	loader  CorpusLoader
	opts    search.Options
	limits  Limits
	cache   *lru.Cache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRetriever loads and indexes the corpora. A failure here is
// ErrIndexUnavailable and should stop the process. cacheSize <= 0
// disables the query cache; m may be nil.
func NewRetriever(loader CorpusLoader, opts search.Options, limits Limits, cacheSize int, m *metrics.Metrics, logger *zap.Logger) (*Retriever, error) {
	r := &Retriever{
		loader:  loader,
		opts:    opts,
		limits:  limits,
		metrics: m,
		logger:  logger,
	}
	if cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create query cache: %w", err)
		}
		r.cache = cache
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Snapshot returns the snapshot currently served.
func (r *Retriever) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Reload rebuilds every index from the loader off to the side and swaps it
// in atomically. On failure the previous snapshot stays live.
func (r *Retriever) Reload() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	set, err := r.loader.Load()
	if err != nil {
		err = apperrors.Mark(err, apperrors.ErrIndexUnavailable)
		r.metrics.RecordReload(err, 0, 0, 0)
		return err
	}

	var generation uint64 = 1
	if prev := r.snapshot.Load(); prev != nil {
		generation = prev.Generation + 1
	}
	snap, err := BuildSnapshot(set, r.opts, generation)
	if err != nil {
		r.metrics.RecordReload(err, 0, 0, 0)
		return err
	}

	r.snapshot.Store(snap)
	if r.cache != nil {
		r.cache.Purge()
	}
	r.metrics.RecordReload(nil, snap.FAQs.Len(), snap.Departments.Len(), snap.Procedures.Len())
	r.logger.Info("Search indexes built",
		zap.Uint64("generation", generation),
		zap.Int("faqs", snap.FAQs.Len()),
		zap.Int("departments", snap.Departments.Len()),
		zap.Int("procedures", snap.Procedures.Len()))
	return nil
}

// Retrieve runs the over-fetch, filter and truncate funnel against all
// three corpora in parallel. An empty query yields empty results.
func (r *Retriever) Retrieve(ctx context.Context, query string) (Results, error) {
	return r.retrieve(ctx, r.snapshot.Load(), query)
}

func (r *Retriever) retrieve(ctx context.Context, snap *Snapshot, query string) (Results, error) {
	if err := ctx.Err(); err != nil {
		return Results{}, err
	}
	if snap == nil {
		return Results{}, apperrors.ErrIndexUnavailable
	}

	normalized := search.Normalize(query)
	r.logger.Debug("Normalized search question", zap.String("query", normalized))
	if normalized == "" {
		r.logger.Debug("Skipping retrieval", zap.Error(apperrors.ErrEmptyQuery))
		return Results{}, nil
	}

	cacheKey := fmt.Sprintf("%d\x00%s", snap.Generation, normalized)
	if r.cache != nil {
		if cached, ok := r.cache.Get(cacheKey); ok {
			r.metrics.RecordCacheLookup(true)
			return cached.(Results), nil
		}
		r.metrics.RecordCacheLookup(false)
	}

	start := time.Now()
	var res Results
	g, gctx := errgroup.WithContext(ctx)
	run := func(ix *search.Index, k int, dst *[]search.MatchResult) {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			*dst = ix.Top(normalized, k, r.limits.Overfetch, r.limits.MaxScore)
			return nil
		})
	}
	run(snap.FAQs, r.limits.FAQs, &res.FAQs)
	run(snap.Departments, r.limits.Departments, &res.Departments)
	run(snap.Procedures, r.limits.Procedures, &res.Procedures)
	if err := g.Wait(); err != nil {
		return Results{}, err
	}

	elapsed := time.Since(start)
	r.metrics.RecordRetrieval(elapsed, len(res.FAQs), len(res.Departments), len(res.Procedures))
	r.logger.Debug("Retrieved grounding records",
		zap.String("query", normalized),
		zap.Int("faqs", len(res.FAQs)),
		zap.Int("departments", len(res.Departments)),
		zap.Int("procedures", len(res.Procedures)),
		zap.Duration("elapsed", elapsed))

	if r.cache != nil {
		r.cache.Add(cacheKey, res)
	}
	return res, nil
}

// BuildContext retrieves records for query and assembles the grounding
// context, falling back to the head of the FAQ corpus when no FAQ matched.
func (r *Retriever) BuildContext(ctx context.Context, query string) (Context, Results, error) {
	snap := r.snapshot.Load()
	res, err := r.retrieve(ctx, snap, query)
	if err != nil {
		return Context{}, Results{}, err
	}

	var fallback []knowledge.Record
	if len(res.FAQs) == 0 {
		fallback = snap.Set.FAQs.Head(r.limits.FallbackFAQs)
	}
	assembled := Assemble(
		search.Records(res.FAQs),
		search.Records(res.Departments),
		search.Records(res.Procedures),
		fallback,
	)
	if assembled.UsedFallback {
		r.metrics.RecordFallback()
		r.logger.Debug("No FAQ matched, using fallback FAQs", zap.Int("count", len(fallback)))
	}
	return assembled, res, nil
}
