package search

import (
	"sort"
	"strings"

	"sakeai/searchservice/internal/domain"
)

// gradeSignals is ordered from highest designation to lowest. Matching is
// first-hit-wins because the longer designations contain the shorter ones
// as substrings (純米大吟醸 contains both 大吟醸 and 吟醸).
var gradeSignals = []struct {
	word  string
	bonus int
}{
	{"純米大吟醸", 5},
	{"大吟醸", 4},
	{"純米吟醸", 4},
	{"吟醸", 3},
	{"純米", 2},
	{"本醸造", 1},
}

// giftWords signal gift suitability: wrapping, occasions, presentation.
var giftWords = []string{
	"ギフト",
	"贈り物",
	"プレゼント",
	"御祝",
	"お祝い",
	"内祝",
	"御歳暮",
	"お歳暮",
	"御中元",
	"お中元",
	"父の日",
	"母の日",
	"化粧箱",
	"桐箱",
	"熨斗",
	"のし",
	"包装",
	"ラッピング",
}

const singleServingMaxML = 300

// ScoreItem computes the additive relevance score for one listing. Higher
// is better. The grade bonus applies in both modes; the rest depends on
// purchase intent.
func ScoreItem(item domain.Item, mode domain.Mode) int {
	title := NormalizeQuery(item.Title)
	score := 0

	for _, signal := range gradeSignals {
		if strings.Contains(title, signal.word) {
			score += signal.bonus
			break
		}
	}

	hasGiftWord := containsAny(title, giftWords)
	hasSetWord := containsAny(title, setWords)

	if mode == domain.ModeGift {
		if hasGiftWord {
			score += 3
		}
		if item.Price != nil {
			price := *item.Price
			switch {
			case price >= 3000 && price <= 5000:
				score += 2
			case price >= 8000 && price <= 15000:
				score += 2
			case price > 20000:
				score--
			}
		}
		return score
	}

	if hasSetWord {
		score -= 3
	}
	if hasGiftWord {
		score -= 2
	}
	if ml := ParseVolumeML(item.Title); ml > 0 && ml <= singleServingMaxML {
		score++
	}
	if item.Price != nil {
		price := *item.Price
		switch {
		case price >= 1000 && price <= 3000:
			score += 2
		case price < 1000:
			score -= 2
		}
	}
	return score
}

// sortItems orders by score desc, price asc (unknown price last), then the
// original merged index. Scores are precomputed so the comparator is cheap
// and consistent.
func sortItems(items []domain.Item, mode domain.Mode) {
	if len(items) < 2 {
		return
	}
	scores := make([]int, len(items))
	for i, item := range items {
		scores[i] = ScoreItem(item, mode)
	}
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if scores[i] != scores[j] {
			return scores[i] > scores[j]
		}
		pi, pj := items[i].Price, items[j].Price
		switch {
		case pi != nil && pj != nil && *pi != *pj:
			return *pi < *pj
		case pi != nil && pj == nil:
			return true
		case pi == nil && pj != nil:
			return false
		}
		return items[i].Rank < items[j].Rank
	})

	sorted := make([]domain.Item, len(items))
	for pos, idx := range order {
		sorted[pos] = items[idx]
	}
	copy(items, sorted)
}
