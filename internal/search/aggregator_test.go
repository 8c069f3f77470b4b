package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"sakeai/searchservice/internal/domain"
)

func intPtr(v int) *int { return &v }

type fakeProvider struct {
	name  string
	items []domain.Item
	err   error
	calls int
	delay time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{Name: f.name, Label: f.name, Enabled: true}
}

func (f *fakeProvider) Search(ctx context.Context, _ domain.SearchRequest) ([]domain.Item, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Item(nil), f.items...), nil
}

func testItem(id, title string, price *int, source domain.Source) domain.Item {
	return domain.Item{
		ID:     id,
		Title:  title,
		Price:  price,
		Image:  "https://img.example/" + id + ".jpg",
		Shop:   "shop-" + id,
		Source: source,
		URL:    "https://shop.example/" + id,
	}
}

func TestSearchRejectsEmptyKeyword(t *testing.T) {
	svc := NewService([]Provider{&fakeProvider{name: "rakuten"}}, time.Second)
	_, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "   "})
	if !errors.Is(err, ErrInvalidKeyword) {
		t.Fatalf("expected ErrInvalidKeyword, got %v", err)
	}
}

func TestSearchRejectsInvalidPriceRange(t *testing.T) {
	svc := NewService([]Provider{&fakeProvider{name: "rakuten"}}, time.Second)

	cases := []struct {
		name     string
		min, max *int
	}{
		{"negative min", intPtr(-1), nil},
		{"negative max", nil, intPtr(-100)},
		{"min above max", intPtr(5000), intPtr(3000)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), domain.SearchRequest{
				Keyword:  "獺祭",
				MinPrice: tc.min,
				MaxPrice: tc.max,
			})
			if !errors.Is(err, ErrInvalidPriceRange) {
				t.Fatalf("expected ErrInvalidPriceRange, got %v", err)
			}
		})
	}
}

func TestSearchWithoutProviders(t *testing.T) {
	svc := NewService(nil, time.Second)
	_, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "獺祭"})
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("expected ErrNoProviders, got %v", err)
	}
}

func TestSearchServesFallbackWhenEmpty(t *testing.T) {
	svc := NewService([]Provider{
		&fakeProvider{name: "rakuten"},
		&fakeProvider{name: "yahoo"},
	}, time.Second)

	response, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "存在しない銘柄xyz"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !response.Fallback {
		t.Fatalf("expected fallback response")
	}
	if len(response.Items) == 0 {
		t.Fatalf("fallback must not be empty")
	}
	if response.AfterFilter != 0 {
		t.Fatalf("afterFilter = %d, want 0", response.AfterFilter)
	}
	for _, item := range response.Items {
		if item.URL == "" {
			t.Fatalf("fallback item %q has no URL", item.ID)
		}
	}
}

func TestSearchIsolatesFailingProvider(t *testing.T) {
	healthy := &fakeProvider{name: "rakuten", items: []domain.Item{
		testItem("r1", "獺祭 純米大吟醸 720ml", intPtr(5400), domain.SourceRakuten),
	}}
	broken := &fakeProvider{name: "yahoo", err: errors.New("upstream exploded")}

	svc := NewService([]Provider{healthy, broken}, time.Second)
	response, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "獺祭"})
	if err != nil {
		t.Fatalf("one failing marketplace must not fail the request: %v", err)
	}
	if response.Fallback {
		t.Fatalf("healthy marketplace results must be served, not fallback")
	}
	if len(response.Items) != 1 || response.Items[0].ID != "r1" {
		t.Fatalf("unexpected items: %+v", response.Items)
	}

	byName := map[string]domain.ProviderStatus{}
	for _, status := range response.Providers {
		byName[status.Name] = status
	}
	if !byName["rakuten"].OK {
		t.Fatalf("rakuten status should be OK: %+v", byName["rakuten"])
	}
	if byName["yahoo"].OK || byName["yahoo"].Error == "" {
		t.Fatalf("yahoo status should carry the error: %+v", byName["yahoo"])
	}
}

func TestSearchSlowProviderDoesNotBlock(t *testing.T) {
	fast := &fakeProvider{name: "rakuten", items: []domain.Item{
		testItem("r1", "八海山 特別本醸造 720ml", intPtr(1500), domain.SourceRakuten),
	}}
	slow := &fakeProvider{name: "yahoo", delay: 2 * time.Second, items: []domain.Item{
		testItem("y1", "久保田 千寿 720ml", intPtr(1400), domain.SourceYahoo),
	}}

	svc := NewService([]Provider{fast, slow}, 150*time.Millisecond)
	started := time.Now()
	response, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "日本酒"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("search took %v, timeout not enforced", elapsed)
	}
	if len(response.Items) != 1 || response.Items[0].ID != "r1" {
		t.Fatalf("expected only the fast marketplace's item, got %+v", response.Items)
	}
}

func TestMergeDeduplicatesNearPrices(t *testing.T) {
	rakutenItems := []domain.Item{
		testItem("r1", "獺祭 純米大吟醸45 720ml", intPtr(4180), domain.SourceRakuten),
	}
	yahooItems := []domain.Item{
		// Same bottle, cheaper within tolerance: the Yahoo offer should win
		// while keeping the first-seen slot.
		testItem("y1", "【獺祭】純米大吟醸45 720ml", intPtr(3980), domain.SourceYahoo),
	}

	svc := NewService([]Provider{
		&fakeProvider{name: "rakuten", items: rakutenItems},
		&fakeProvider{name: "yahoo", items: yahooItems},
	}, time.Second)

	response, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "獺祭"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.Total != 1 {
		t.Fatalf("total = %d, want 1 after dedupe", response.Total)
	}
	if response.Items[0].ID != "y1" {
		t.Fatalf("cheaper listing should win the collision, got %q", response.Items[0].ID)
	}
}

func TestMergeKeepsDistantPricesFirstSeen(t *testing.T) {
	a := testItem("r1", "十四代 本丸 1800ml", intPtr(30000), domain.SourceRakuten)
	b := testItem("y1", "十四代 本丸 1800ml", intPtr(15000), domain.SourceYahoo)

	merged := mergeItems([][]domain.Item{{a}, {b}})
	if len(merged) != 1 {
		t.Fatalf("merged = %d items, want 1", len(merged))
	}
	if merged[0].ID != "r1" {
		t.Fatalf("prices far apart: first-seen must stay, got %q", merged[0].ID)
	}
}

func TestMergePrefersPricedOverUnpriced(t *testing.T) {
	unpriced := testItem("r1", "久保田 萬寿 720ml", nil, domain.SourceRakuten)
	priced := testItem("y1", "久保田 萬寿 720ml", intPtr(8800), domain.SourceYahoo)

	merged := mergeItems([][]domain.Item{{unpriced}, {priced}})
	if len(merged) != 1 || merged[0].ID != "y1" {
		t.Fatalf("priced listing must win, got %+v", merged)
	}
}

func TestMergeVolumeSeparatesListings(t *testing.T) {
	small := testItem("r1", "八海山 普通酒 720ml", intPtr(1500), domain.SourceRakuten)
	large := testItem("y1", "八海山 普通酒 1800ml", intPtr(2800), domain.SourceYahoo)

	merged := mergeItems([][]domain.Item{{small}, {large}})
	if len(merged) != 2 {
		t.Fatalf("different volumes must not dedupe, got %d items", len(merged))
	}
}

func TestSearchSetListingsByMode(t *testing.T) {
	items := []domain.Item{
		testItem("single", "八海山 特別本醸造 720ml", intPtr(1500), domain.SourceRakuten),
		testItem("set", "日本酒 飲み比べ セット 720ml×5", intPtr(5500), domain.SourceRakuten),
	}
	svc := NewService([]Provider{&fakeProvider{name: "rakuten", items: items}}, time.Second)

	normal, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "日本酒", Mode: domain.ModeNormal})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range normal.Items {
		if item.ID == "set" {
			t.Fatalf("set listing must be filtered in normal mode")
		}
	}

	gift, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "日本酒", Mode: domain.ModeGift})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, item := range gift.Items {
		if item.ID == "set" {
			found = true
		}
	}
	if !found {
		t.Fatalf("set listing must survive in gift mode")
	}
}

func TestSearchNoFilterBypassesRules(t *testing.T) {
	items := []domain.Item{
		testItem("cheap", "日本酒カップ 180ml", intPtr(250), domain.SourceRakuten),
	}
	svc := NewService([]Provider{&fakeProvider{name: "rakuten", items: items}}, time.Second)

	filtered, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "日本酒"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !filtered.Fallback {
		t.Fatalf("below-floor item should be filtered away, leaving fallback")
	}

	raw, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "日本酒", NoFilter: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw.Fallback || len(raw.Items) != 1 {
		t.Fatalf("nofilter must pass everything through, got %+v", raw)
	}
	if !raw.NoFilter {
		t.Fatalf("response must echo the nofilter bypass")
	}
}

func TestSearchUserPriceWindowEndToEnd(t *testing.T) {
	items := []domain.Item{
		testItem("in-gift", "純米吟醸 ギフト 化粧箱入 720ml", intPtr(5000), domain.SourceRakuten),
		testItem("in-plain", "純米吟醸 720ml", intPtr(5000), domain.SourceRakuten),
		testItem("below", "純米吟醸 300ml", intPtr(1200), domain.SourceRakuten),
		testItem("above", "純米大吟醸 1800ml", intPtr(12000), domain.SourceRakuten),
		testItem("unpriced", "純米吟醸 720ml 化粧箱", nil, domain.SourceRakuten),
	}
	svc := NewService([]Provider{&fakeProvider{name: "rakuten", items: items}}, time.Second)

	response, err := svc.Search(context.Background(), domain.SearchRequest{
		Keyword:  "純米吟醸 ギフト",
		Mode:     domain.ModeGift,
		MinPrice: intPtr(3000),
		MaxPrice: intPtr(8000),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if response.AfterFilter > response.Total {
		t.Fatalf("afterFilter %d > total %d", response.AfterFilter, response.Total)
	}
	if len(response.Items) != 2 {
		t.Fatalf("expected exactly the two in-window items, got %+v", response.Items)
	}
	// Same price, one carries gift vocabulary: it must rank first in gift mode.
	if response.Items[0].ID != "in-gift" {
		t.Fatalf("gift-vocabulary item must outrank the plain one, got %q first", response.Items[0].ID)
	}
}

func TestProviderCircuitBreakerBlocksAfterFailures(t *testing.T) {
	broken := &fakeProvider{name: "yahoo", err: errors.New("boom")}
	svc := NewService([]Provider{broken}, time.Second)

	for i := 0; i < providerFailureThreshold; i++ {
		if _, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "日本酒"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	blocked, until, _ := svc.isProviderBlocked("yahoo", time.Now())
	if !blocked {
		t.Fatalf("provider should be blocked after %d consecutive failures", providerFailureThreshold)
	}
	if !until.After(time.Now()) {
		t.Fatalf("block window must extend into the future")
	}

	callsBefore := broken.calls
	if _, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "日本酒"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if broken.calls != callsBefore {
		t.Fatalf("blocked provider must not be called")
	}
}

func TestProviderDiagnosticsReflectResults(t *testing.T) {
	healthy := &fakeProvider{name: "rakuten", items: []domain.Item{
		testItem("r1", "獺祭 純米大吟醸 720ml", intPtr(5400), domain.SourceRakuten),
	}}
	svc := NewService([]Provider{healthy}, time.Second)

	if _, err := svc.Search(context.Background(), domain.SearchRequest{Keyword: "獺祭"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !svc.UpstreamAlive() {
		t.Fatalf("upstream should be alive after a successful fetch")
	}

	diags := svc.ProviderDiagnostics()
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostics entry, got %d", len(diags))
	}
	d := diags[0]
	if d.Name != "rakuten" || d.TotalRequests != 1 || d.TotalFailures != 0 {
		t.Fatalf("unexpected diagnostics: %+v", d)
	}
	if d.LastSuccessAt == nil {
		t.Fatalf("lastSuccessAt must be set")
	}
}
