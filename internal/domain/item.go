package domain

// Source identifies which marketplace a listing came from.
type Source string

const (
	SourceRakuten Source = "rakuten"
	SourceYahoo   Source = "yahoo"
)

// Mode is the caller-declared purchase intent. It changes both the rule
// filter (set listings are rejected for normal use) and the scorer.
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeGift   Mode = "gift"
)

func NormalizeMode(raw string) Mode {
	switch Mode(raw) {
	case ModeGift:
		return ModeGift
	default:
		return ModeNormal
	}
}

// Item is the unified product record built fresh per request from upstream
// marketplace responses. Price is nil when the upstream did not supply one.
// Rank is the item's position in the merged pre-sort order and is only used
// as the final sort tie-break.
type Item struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Price      *int    `json:"price"`
	Image      string  `json:"image,omitempty"`
	Shop       string  `json:"shop,omitempty"`
	Source     Source  `json:"source"`
	URL        string  `json:"url"`
	Rank       int     `json:"-"`
	Popularity float64 `json:"-"`
}

type SearchRequest struct {
	Keyword  string
	Mode     Mode
	MinPrice *int
	MaxPrice *int
	NoFilter bool
}

type ProviderStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type SearchResponse struct {
	Keyword     string           `json:"keyword"`
	Items       []Item           `json:"items"`
	Total       int              `json:"total"`
	AfterFilter int              `json:"afterFilter"`
	NoFilter    bool             `json:"noFilter"`
	Mode        Mode             `json:"mode"`
	Fallback    bool             `json:"fallback"`
	Providers   []ProviderStatus `json:"providers"`
	ElapsedMS   int64            `json:"elapsedMs"`
}

type RankingResponse struct {
	Items  []Item `json:"items"`
	Cached bool   `json:"cached"`
}

type ProviderInfo struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// FilterBounds is the absolute sane price window for a single bottle.
// Values are tunable through configuration; the defaults match typical
// sake retail prices.
type FilterBounds struct {
	PriceFloor   int
	PriceCeiling int
}

func DefaultFilterBounds() FilterBounds {
	return FilterBounds{PriceFloor: 900, PriceCeiling: 50000}
}
