package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"sakeai/searchservice/internal/domain"
)

var (
	ErrInvalidKeyword    = errors.New("keyword is required")
	ErrInvalidPriceRange = errors.New("price range is invalid")
	ErrNoProviders       = errors.New("no marketplace providers configured")
)

// Provider is one marketplace adapter. Search returns the unified items for
// a query; any upstream failure is returned as an error and the aggregator
// degrades that source to an empty list without failing the request.
type Provider interface {
	Name() string
	Info() domain.ProviderInfo
	Search(ctx context.Context, request domain.SearchRequest) ([]domain.Item, error)
}

// Service runs the per-request aggregation pipeline: concurrent marketplace
// fetches, merge + dedupe, rule filter, mode-aware scoring, fallback.
// Provider order is significant: it decides which source wins first-seen
// dedupe collisions.
type Service struct {
	providers []Provider
	timeout   time.Duration
	bounds    domain.FilterBounds
	noFilter  bool
	fallback  []domain.Item

	healthMu sync.Mutex
	health   map[string]*providerHealth
}

type ServiceOption func(*Service)

func WithFilterBounds(bounds domain.FilterBounds) ServiceOption {
	return func(s *Service) {
		if bounds.PriceFloor > 0 && bounds.PriceCeiling > bounds.PriceFloor {
			s.bounds = bounds
		}
	}
}

// WithNoFilter globally disables the rule filter. Debug use only.
func WithNoFilter(disabled bool) ServiceOption {
	return func(s *Service) {
		s.noFilter = disabled
	}
}

func WithFallbackItems(items []domain.Item) ServiceOption {
	return func(s *Service) {
		s.fallback = items
	}
}

func NewService(providers []Provider, timeout time.Duration, opts ...ServiceOption) *Service {
	kept := make([]Provider, 0, len(providers))
	for _, provider := range providers {
		if provider == nil || provider.Name() == "" {
			continue
		}
		kept = append(kept, provider)
	}

	if timeout <= 0 {
		timeout = 2500 * time.Millisecond
	}

	svc := &Service{
		providers: kept,
		timeout:   timeout,
		bounds:    domain.DefaultFilterBounds(),
		health:    make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if len(svc.fallback) == 0 {
		svc.fallback = DefaultFallbackItems(nil)
	}
	return svc
}

func (s *Service) Providers() []domain.ProviderInfo {
	if len(s.providers) == 0 {
		return nil
	}
	items := make([]domain.ProviderInfo, 0, len(s.providers))
	for _, provider := range s.providers {
		info := provider.Info()
		if info.Name == "" {
			info.Name = provider.Name()
		}
		if info.Label == "" {
			info.Label = info.Name
		}
		items = append(items, info)
	}
	return items
}
