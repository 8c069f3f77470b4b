package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"sakeai/searchservice/internal/domain"
	"sakeai/searchservice/internal/metrics"
)

// rankingKeywords seed the popularity ranking. Broad queries so review
// volume, not keyword match, decides the order.
var rankingKeywords = []string{"純米大吟醸", "純米吟醸", "日本酒 人気"}

const (
	rankingTopN          = 5
	defaultRankingTTL    = 10 * time.Minute
	maxConcurrentRanking = 3
)

// RankingCacheBackend is an optional second cache tier shared between
// replicas. The in-process cache always fronts it.
type RankingCacheBackend interface {
	Get(ctx context.Context) ([]domain.Item, bool, error)
	Set(ctx context.Context, items []domain.Item, ttl time.Duration) error
}

// Ranker serves the "popular now" list: top listings across a few broad
// queries ordered by the pseudo-popularity score (review count times review
// average) the marketplace adapter computes per item.
type Ranker struct {
	provider Provider
	ttl      time.Duration
	backend  RankingCacheBackend

	mu       sync.Mutex
	cachedAt time.Time
	cached   []domain.Item
}

type RankerOption func(*Ranker)

func WithRankingTTL(ttl time.Duration) RankerOption {
	return func(r *Ranker) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithRankingBackend(backend RankingCacheBackend) RankerOption {
	return func(r *Ranker) {
		r.backend = backend
	}
}

func NewRanker(provider Provider, opts ...RankerOption) *Ranker {
	r := &Ranker{
		provider: provider,
		ttl:      defaultRankingTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Ranker) Ranking(ctx context.Context) (domain.RankingResponse, error) {
	r.mu.Lock()
	if len(r.cached) > 0 && time.Since(r.cachedAt) < r.ttl {
		items := append([]domain.Item(nil), r.cached...)
		r.mu.Unlock()
		metrics.RankingCacheHitsTotal.Inc()
		return domain.RankingResponse{Items: items, Cached: true}, nil
	}
	r.mu.Unlock()

	if r.backend != nil {
		if items, ok, err := r.backend.Get(ctx); err != nil {
			slog.Warn("ranking cache backend read failed", "error", err)
		} else if ok && len(items) > 0 {
			r.storeLocal(items)
			metrics.RankingCacheHitsTotal.Inc()
			return domain.RankingResponse{Items: items, Cached: true}, nil
		}
	}

	metrics.RankingCacheMissesTotal.Inc()
	items, err := r.fetch(ctx)
	if err != nil {
		return domain.RankingResponse{}, err
	}

	r.storeLocal(items)
	if r.backend != nil {
		if err := r.backend.Set(ctx, items, r.ttl); err != nil {
			slog.Warn("ranking cache backend write failed", "error", err)
		}
	}
	return domain.RankingResponse{Items: items, Cached: false}, nil
}

func (r *Ranker) storeLocal(items []domain.Item) {
	r.mu.Lock()
	r.cached = append([]domain.Item(nil), items...)
	r.cachedAt = time.Now()
	r.mu.Unlock()
}

// fetch queries every seed keyword, keeps listings with a title and an
// image, deduplicates by listing ID keeping the higher popularity, and
// returns the top entries by popularity. A keyword that fails is skipped;
// fetch only errors when every keyword failed.
func (r *Ranker) fetch(ctx context.Context) ([]domain.Item, error) {
	var (
		mu      sync.Mutex
		all     []domain.Item
		lastErr error
	)

	sem := semaphore.NewWeighted(maxConcurrentRanking)
	var wg sync.WaitGroup
	for _, keyword := range rankingKeywords {
		wg.Add(1)
		go func(keyword string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			items, err := r.provider.Search(ctx, domain.SearchRequest{Keyword: keyword})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				slog.Warn("ranking fetch failed", "keyword", keyword, "error", err)
				return
			}
			all = append(all, items...)
		}(keyword)
	}
	wg.Wait()

	byID := make(map[string]domain.Item, len(all))
	for _, item := range all {
		if item.Title == "" || item.Image == "" {
			continue
		}
		existing, exists := byID[item.ID]
		if !exists || existing.Popularity < item.Popularity {
			byID[item.ID] = item
		}
	}

	items := make([]domain.Item, 0, len(byID))
	for _, item := range byID {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Popularity != items[j].Popularity {
			return items[i].Popularity > items[j].Popularity
		}
		return items[i].ID < items[j].ID
	})
	if len(items) > rankingTopN {
		items = items[:rankingTopN]
	}

	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return items, nil
}
