package search

import "sakeai/searchservice/internal/domain"

// DefaultFallbackItems returns the curated always-valid list served when a
// search produces zero items after filtering. Each entry links to a
// marketplace search page rather than a single listing so the link cannot
// go stale. wrap may be nil when no affiliate program is configured.
func DefaultFallbackItems(wrap func(rawURL string, source domain.Source) string) []domain.Item {
	if wrap == nil {
		wrap = func(rawURL string, _ domain.Source) string { return rawURL }
	}
	return []domain.Item{
		{
			ID:     "fallback-dassai-39",
			Title:  "【フォールバック】獺祭 純米大吟醸 39",
			Source: domain.SourceRakuten,
			URL:    wrap("https://search.rakuten.co.jp/search/mall/%E7%8D%BA%E7%A5%AD+39/", domain.SourceRakuten),
		},
		{
			ID:     "fallback-kubota-senju",
			Title:  "【フォールバック】久保田 千寿 吟醸",
			Source: domain.SourceRakuten,
			URL:    wrap("https://search.rakuten.co.jp/search/mall/%E4%B9%85%E4%BF%9D%E7%94%B0+%E5%8D%83%E5%AF%BF/", domain.SourceRakuten),
		},
		{
			ID:     "fallback-hakkaisan",
			Title:  "【フォールバック】八海山 特別本醸造",
			Source: domain.SourceRakuten,
			URL:    wrap("https://search.rakuten.co.jp/search/mall/%E5%85%AB%E6%B5%B7%E5%B1%B1/", domain.SourceRakuten),
		},
	}
}
