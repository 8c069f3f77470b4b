package search

import (
	"testing"

	"sakeai/searchservice/internal/domain"
)

func filterItem(title string, price *int) domain.Item {
	return domain.Item{
		ID:     "x",
		Title:  title,
		Price:  price,
		Image:  "https://img.example/x.jpg",
		Source: domain.SourceRakuten,
		URL:    "https://shop.example/x",
	}
}

func TestPassesRules(t *testing.T) {
	bounds := domain.DefaultFilterBounds()

	cases := []struct {
		name string
		item domain.Item
		mode domain.Mode
		want bool
	}{
		{"plain bottle", filterItem("八海山 特別本醸造 720ml", intPtr(1500)), domain.ModeNormal, true},
		{"below floor", filterItem("日本酒 ミニボトル", intPtr(500)), domain.ModeNormal, false},
		{"below floor gift mode", filterItem("日本酒 ミニボトル", intPtr(500)), domain.ModeGift, false},
		{"above ceiling", filterItem("限定古酒", intPtr(80000)), domain.ModeNormal, false},
		{"unknown price", filterItem("獺祭 純米大吟醸 720ml", nil), domain.ModeNormal, true},
		{"plum wine", filterItem("紀州 梅酒 720ml", intPtr(1800)), domain.ModeNormal, false},
		{"shochu", filterItem("芋焼酎 900ml", intPtr(2000)), domain.ModeNormal, false},
		{"drinkware", filterItem("江戸切子 冷酒グラス", intPtr(3500)), domain.ModeNormal, false},
		{"empty box", filterItem("一升瓶用 化粧箱のみ", intPtr(900)), domain.ModeGift, false},
		{"set in normal mode", filterItem("日本酒 飲み比べ セット", intPtr(5500)), domain.ModeNormal, false},
		{"set in gift mode", filterItem("日本酒 飲み比べ セット", intPtr(5500)), domain.ModeGift, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PassesRules(tc.item, tc.mode, bounds, nil, nil)
			if got != tc.want {
				t.Fatalf("PassesRules(%q, %s) = %v, want %v", tc.item.Title, tc.mode, got, tc.want)
			}
		})
	}
}

func TestPassesRulesRequiresTitleAndImage(t *testing.T) {
	bounds := domain.DefaultFilterBounds()

	noTitle := filterItem("", intPtr(2000))
	if PassesRules(noTitle, domain.ModeNormal, bounds, nil, nil) {
		t.Fatalf("item without title must be rejected")
	}

	noImage := filterItem("八海山 720ml", intPtr(2000))
	noImage.Image = ""
	if PassesRules(noImage, domain.ModeNormal, bounds, nil, nil) {
		t.Fatalf("item without image must be rejected")
	}
}

func TestPassesRulesExplicitWindowNeedsKnownPrice(t *testing.T) {
	bounds := domain.DefaultFilterBounds()
	item := filterItem("獺祭 純米大吟醸 720ml", nil)

	if !PassesRules(item, domain.ModeNormal, bounds, nil, nil) {
		t.Fatalf("unpriced item passes when no explicit window is set")
	}
	if PassesRules(item, domain.ModeNormal, bounds, intPtr(3000), nil) {
		t.Fatalf("unpriced item must fail an explicit min bound")
	}
	if PassesRules(item, domain.ModeNormal, bounds, nil, intPtr(8000)) {
		t.Fatalf("unpriced item must fail an explicit max bound")
	}
}

func TestPassesRulesCustomBounds(t *testing.T) {
	bounds := domain.FilterBounds{PriceFloor: 2000, PriceCeiling: 10000}
	if PassesRules(filterItem("普通酒 720ml", intPtr(1500)), domain.ModeNormal, bounds, nil, nil) {
		t.Fatalf("price below custom floor must be rejected")
	}
	if !PassesRules(filterItem("普通酒 720ml", intPtr(2500)), domain.ModeNormal, bounds, nil, nil) {
		t.Fatalf("price within custom window must pass")
	}
}
