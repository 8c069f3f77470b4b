package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"sakeai/searchservice/internal/domain"
	"sakeai/searchservice/internal/metrics"
)

// maxConcurrentProviders caps the simultaneous marketplace calls. Both
// configured marketplaces normally fit, the cap matters when tests register
// many fakes.
const maxConcurrentProviders = 4

// priceToleranceYen and priceTolerancePct define "near enough" for the
// dedupe collision rule: two listings of the same product from different
// shops whose prices differ within max(¥300, 5% of the cheaper) are treated
// as the same offer and the cheaper wins.
const (
	priceToleranceYen = 300
	priceTolerancePct = 0.05
)

type preparedSearch struct {
	keyword  string
	mode     domain.Mode
	minPrice *int
	maxPrice *int
	noFilter bool
}

func (s *Service) prepareSearch(request domain.SearchRequest) (preparedSearch, error) {
	keyword := NormalizeQuery(request.Keyword)
	if keyword == "" {
		return preparedSearch{}, ErrInvalidKeyword
	}

	if request.MinPrice != nil && *request.MinPrice < 0 {
		return preparedSearch{}, ErrInvalidPriceRange
	}
	if request.MaxPrice != nil && *request.MaxPrice < 0 {
		return preparedSearch{}, ErrInvalidPriceRange
	}
	if request.MinPrice != nil && request.MaxPrice != nil && *request.MinPrice > *request.MaxPrice {
		return preparedSearch{}, ErrInvalidPriceRange
	}

	if len(s.providers) == 0 {
		return preparedSearch{}, ErrNoProviders
	}

	return preparedSearch{
		keyword:  keyword,
		mode:     domain.NormalizeMode(string(request.Mode)),
		minPrice: request.MinPrice,
		maxPrice: request.MaxPrice,
		noFilter: request.NoFilter || s.noFilter,
	}, nil
}

// Search runs the full pipeline: concurrent marketplace fetches under the
// request timeout, ordered merge + dedupe, rule filter, mode-aware sort,
// and the curated fallback when nothing survives. A failed marketplace
// degrades to an empty list; only invalid input fails the request.
func (s *Service) Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	prepared, err := s.prepareSearch(request)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startedAt := time.Now()
	statuses := make([]domain.ProviderStatus, len(s.providers))
	// Per-provider buckets keep the merge deterministic: items are combined
	// in provider registration order after every fetch settles, regardless
	// of which goroutine finished first.
	buckets := make([][]domain.Item, len(s.providers))

	providerRequest := domain.SearchRequest{
		Keyword:  prepared.keyword,
		Mode:     prepared.mode,
		MinPrice: prepared.minPrice,
		MaxPrice: prepared.maxPrice,
	}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(maxConcurrentProviders)
	var wg sync.WaitGroup
	for i, provider := range s.providers {
		wg.Add(1)
		go func(index int, current Provider) {
			defer wg.Done()

			name := strings.ToLower(strings.TrimSpace(current.Name()))

			if err := sem.Acquire(runCtx, 1); err != nil {
				mu.Lock()
				statuses[index] = domain.ProviderStatus{Name: name, Error: "context cancelled"}
				mu.Unlock()
				return
			}
			defer sem.Release(1)

			now := time.Now()
			if blocked, until, lastErr := s.isProviderBlocked(name, now); blocked {
				mu.Lock()
				statuses[index] = domain.ProviderStatus{
					Name:  name,
					Error: fmt.Sprintf("provider temporarily unhealthy until %s: %s", until.UTC().Format(time.RFC3339), lastErr),
				}
				mu.Unlock()
				return
			}

			fetchStartedAt := time.Now()
			var items []domain.Item
			searchErr := RetryWithBackoff(runCtx, DefaultRetryConfig(), func() error {
				var err error
				items, err = current.Search(runCtx, providerRequest)
				return err
			})
			s.recordProviderResult(name, prepared.keyword, searchErr, time.Since(fetchStartedAt), time.Now())

			status := domain.ProviderStatus{Name: name, OK: searchErr == nil, Count: len(items)}
			if searchErr != nil {
				status.Error = searchErr.Error()
				slog.Warn("marketplace search failed",
					"provider", name,
					"keyword", prepared.keyword,
					"error", searchErr)
			}

			mu.Lock()
			statuses[index] = status
			buckets[index] = items
			mu.Unlock()
		}(i, provider)
	}
	wg.Wait()

	merged := mergeItems(buckets)
	total := len(merged)

	filtered := merged
	if !prepared.noFilter {
		filtered = make([]domain.Item, 0, len(merged))
		for _, item := range merged {
			if PassesRules(item, prepared.mode, s.bounds, prepared.minPrice, prepared.maxPrice) {
				filtered = append(filtered, item)
			}
		}
	}
	afterFilter := len(filtered)

	sortItems(filtered, prepared.mode)

	fallback := false
	if len(filtered) == 0 {
		filtered = append([]domain.Item(nil), s.fallback...)
		fallback = true
		metrics.FallbackServedTotal.Inc()
		slog.Info("serving fallback items", "keyword", prepared.keyword, "total", total)
	}

	return domain.SearchResponse{
		Keyword:     prepared.keyword,
		Items:       filtered,
		Total:       total,
		AfterFilter: afterFilter,
		NoFilter:    prepared.noFilter,
		Mode:        prepared.mode,
		Fallback:    fallback,
		Providers:   statuses,
		ElapsedMS:   time.Since(startedAt).Milliseconds(),
	}, nil
}

// mergeItems flattens the per-provider buckets in registration order and
// deduplicates by normalized title + volume. On a key collision the kept
// item keeps the first-seen slot (and Rank); the winning payload is decided
// by preferOver.
func mergeItems(buckets [][]domain.Item) []domain.Item {
	merged := make([]domain.Item, 0, 64)
	index := make(map[string]int, 64)

	for _, bucket := range buckets {
		for _, item := range bucket {
			key := DedupeKey(item.Title)
			if key == "" {
				key = string(item.Source) + "|" + item.ID
			}
			at, exists := index[key]
			if !exists {
				item.Rank = len(merged)
				index[key] = len(merged)
				merged = append(merged, item)
				continue
			}
			if preferOver(item, merged[at]) {
				item.Rank = merged[at].Rank
				merged[at] = item
			}
		}
	}
	return merged
}

// preferOver decides a dedupe collision. A priced listing beats an unpriced
// one; two near-priced listings resolve to the cheaper; otherwise the
// incumbent (first seen) stays.
func preferOver(candidate, incumbent domain.Item) bool {
	switch {
	case candidate.Price == nil:
		return false
	case incumbent.Price == nil:
		return true
	}
	if !pricesNear(*candidate.Price, *incumbent.Price) {
		return false
	}
	return *candidate.Price < *incumbent.Price
}

func pricesNear(a, b int) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	lower := a
	if b < a {
		lower = b
	}
	tolerance := int(float64(lower) * priceTolerancePct)
	if tolerance < priceToleranceYen {
		tolerance = priceToleranceYen
	}
	return diff <= tolerance
}
