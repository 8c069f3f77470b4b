package yahoo

import (
	"net/url"
	"strconv"

	"sakeai/searchservice/internal/search"
)

// Stage identifies one rung of the progressive query ladder. Compound
// Japanese product phrases often return zero hits once packaging qualifiers
// are included; each later stage broadens the match instead of giving up on
// the marketplace.
type Stage string

const (
	StageNormalized Stage = "A"
	StageLoosened   Stage = "B"
	StageBrowse     Stage = "C"
)

const defaultGenreSake = "1359"

// BaseParams is everything a staged call needs besides the query itself.
type BaseParams struct {
	AppID       string
	GenreID     string
	Results     int
	Start       int
	ImageSize   int
	Sort        string
	PriceFrom   *int
	PriceTo     *int
	AffiliateID string
}

// BuiltStage carries the complete upstream parameter set for one attempt.
type BuiltStage struct {
	Stage        Stage
	Params       url.Values
	QueryForView string
}

// BuildStages expands one raw query into three attempts: the normalized
// query sorted by relevance, the loosened query sorted by price ascending,
// and a bare category browse sorted by price ascending. Price bounds and
// affiliate tagging ride along on every stage.
func BuildStages(rawQuery string, base BaseParams) []BuiltStage {
	normalized := search.NormalizeQuery(rawQuery)
	loosened := search.LoosenQuery(normalized)

	genre := base.GenreID
	if genre == "" {
		genre = defaultGenreSake
	}
	results := base.Results
	if results <= 0 {
		results = 20
	}
	start := base.Start
	if start <= 0 {
		start = 1
	}
	imageSize := base.ImageSize
	if imageSize <= 0 {
		imageSize = 300
	}
	relevanceSort := base.Sort
	if relevanceSort == "" {
		relevanceSort = "-score"
	}

	common := func(stage Stage, query, sort string) BuiltStage {
		params := url.Values{}
		params.Set("appid", base.AppID)
		params.Set("genre_category_id", genre)
		params.Set("in_stock", "true")
		params.Set("results", strconv.Itoa(results))
		params.Set("start", strconv.Itoa(start))
		params.Set("image_size", strconv.Itoa(imageSize))
		params.Set("sort", sort)
		params.Set("query", query)
		if base.PriceFrom != nil && *base.PriceFrom > 0 {
			params.Set("price_from", strconv.Itoa(*base.PriceFrom))
		}
		if base.PriceTo != nil && *base.PriceTo > 0 {
			params.Set("price_to", strconv.Itoa(*base.PriceTo))
		}
		if base.AffiliateID != "" {
			params.Set("affiliate_type", "vc")
			params.Set("affiliate_id", base.AffiliateID)
		}
		return BuiltStage{Stage: stage, Params: params, QueryForView: query}
	}

	return []BuiltStage{
		common(StageNormalized, normalized, relevanceSort),
		common(StageLoosened, loosened, "+price"),
		common(StageBrowse, "", "+price"),
	}
}
