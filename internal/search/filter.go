package search

import (
	"strings"

	"sakeai/searchservice/internal/domain"
)

// bannedWords reject a listing outright: wrong beverage categories,
// drinkware, and packaging-only products that match sake keywords.
var bannedWords = []string{
	"梅酒",
	"みりん",
	"味醂",
	"焼酎",
	"ビール",
	"ワイン",
	"ウイスキー",
	"グラス",
	"猪口",
	"徳利",
	"酒器",
	"化粧箱のみ",
	"空箱",
	"ラベルのみ",
}

// setWords mark multi-bottle bundles and tasting sets. Rejected for normal
// use, kept for gift use.
var setWords = []string{
	"セット",
	"詰め合わせ",
	"飲み比べ",
	"飲みくらべ",
	"福袋",
	"本セット",
}

func containsAny(title string, words []string) bool {
	for _, word := range words {
		if strings.Contains(title, word) {
			return true
		}
	}
	return false
}

// PassesRules is the hard rule filter. It never mutates the item.
//
// Price policy: an item with an unknown price passes the configured sane
// window (the upstream sometimes omits prices for valid listings), but when
// the caller asked for an explicit min/max the price must be known and in
// range.
func PassesRules(item domain.Item, mode domain.Mode, bounds domain.FilterBounds, minPrice, maxPrice *int) bool {
	if strings.TrimSpace(item.Title) == "" {
		return false
	}
	if strings.TrimSpace(item.Image) == "" {
		return false
	}

	if item.Price != nil {
		price := *item.Price
		if price < bounds.PriceFloor || price > bounds.PriceCeiling {
			return false
		}
	}
	if minPrice != nil {
		if item.Price == nil || *item.Price < *minPrice {
			return false
		}
	}
	if maxPrice != nil {
		if item.Price == nil || *item.Price > *maxPrice {
			return false
		}
	}

	if containsAny(item.Title, bannedWords) {
		return false
	}
	if mode != domain.ModeGift && containsAny(item.Title, setWords) {
		return false
	}
	return true
}
