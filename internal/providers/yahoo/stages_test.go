package yahoo

import (
	"testing"
)

func TestBuildStagesLadder(t *testing.T) {
	from, to := 3000, 8000
	stages := BuildStages("【獺祭】純米大吟醸 箱入り 720 ml 送料無料", BaseParams{
		AppID:       "app",
		PriceFrom:   &from,
		PriceTo:     &to,
		AffiliateID: "vc-id",
	})
	if len(stages) != 3 {
		t.Fatalf("stages = %d, want 3", len(stages))
	}

	a, b, c := stages[0], stages[1], stages[2]

	if a.Stage != StageNormalized || b.Stage != StageLoosened || c.Stage != StageBrowse {
		t.Fatalf("stage order wrong: %s %s %s", a.Stage, b.Stage, c.Stage)
	}

	if got := a.Params.Get("query"); got != "獺祭 純米大吟醸 箱入り 720ml" {
		t.Fatalf("stage A query = %q", got)
	}
	if a.Params.Get("sort") != "-score" {
		t.Fatalf("stage A sort = %q", a.Params.Get("sort"))
	}

	// Loosened: packaging qualifier and volume token removed.
	if got := b.Params.Get("query"); got != "獺祭 純米大吟醸" {
		t.Fatalf("stage B query = %q", got)
	}
	if b.Params.Get("sort") != "+price" {
		t.Fatalf("stage B sort = %q", b.Params.Get("sort"))
	}

	if c.Params.Get("query") != "" || c.QueryForView != "" {
		t.Fatalf("stage C must browse with an empty query")
	}
	if c.Params.Get("sort") != "+price" {
		t.Fatalf("stage C sort = %q", c.Params.Get("sort"))
	}

	for _, stage := range stages {
		if stage.Params.Get("appid") != "app" {
			t.Fatalf("stage %s missing appid", stage.Stage)
		}
		if stage.Params.Get("genre_category_id") != defaultGenreSake {
			t.Fatalf("stage %s genre = %q", stage.Stage, stage.Params.Get("genre_category_id"))
		}
		if stage.Params.Get("price_from") != "3000" || stage.Params.Get("price_to") != "8000" {
			t.Fatalf("stage %s price bounds missing", stage.Stage)
		}
		if stage.Params.Get("affiliate_type") != "vc" || stage.Params.Get("affiliate_id") != "vc-id" {
			t.Fatalf("stage %s affiliate tagging missing", stage.Stage)
		}
		if stage.Params.Get("in_stock") != "true" {
			t.Fatalf("stage %s in_stock missing", stage.Stage)
		}
		if stage.Params.Get("results") != "20" || stage.Params.Get("image_size") != "300" {
			t.Fatalf("stage %s defaults wrong: %v", stage.Stage, stage.Params)
		}
	}
}

func TestBuildStagesDefaults(t *testing.T) {
	stages := BuildStages("八海山", BaseParams{AppID: "app"})
	a := stages[0]
	if a.Params.Get("price_from") != "" || a.Params.Get("price_to") != "" {
		t.Fatalf("absent price bounds must not appear in params")
	}
	if a.Params.Get("affiliate_type") != "" {
		t.Fatalf("absent affiliate id must not add tagging params")
	}
	if a.Params.Get("start") != "1" {
		t.Fatalf("start default = %q", a.Params.Get("start"))
	}
}
