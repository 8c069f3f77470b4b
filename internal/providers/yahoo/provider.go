package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sakeai/searchservice/internal/affiliate"
	"sakeai/searchservice/internal/domain"
)

const (
	defaultEndpointV3 = "https://shopping.yahooapis.jp/ShoppingWebService/V3/itemSearch"
	defaultEndpointV1 = "https://shopping.yahooapis.jp/ShoppingWebService/V1/json/itemSearch"
)

// Provider queries Yahoo Shopping. The current V3 schema is tried with the
// staged query ladder; when every stage comes back empty the deprecated V1
// schema is tried once at the loosest stage's parameters before giving up.
type Provider struct {
	appID      string
	endpointV3 string
	endpointV1 string
	genreID    string
	userAgent  string
	http       *http.Client
	wrapper    affiliate.Wrapper
}

type Config struct {
	AppID      string
	EndpointV3 string
	EndpointV1 string
	GenreID    string
	UserAgent  string
	Client     *http.Client
	Wrapper    affiliate.Wrapper
}

func New(cfg Config) *Provider {
	endpointV3 := strings.TrimSpace(cfg.EndpointV3)
	if endpointV3 == "" {
		endpointV3 = defaultEndpointV3
	}
	endpointV1 := strings.TrimSpace(cfg.EndpointV1)
	if endpointV1 == "" {
		endpointV1 = defaultEndpointV1
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2500 * time.Millisecond}
	}
	return &Provider{
		appID:      strings.TrimSpace(cfg.AppID),
		endpointV3: endpointV3,
		endpointV1: endpointV1,
		genreID:    strings.TrimSpace(cfg.GenreID),
		userAgent:  cfg.UserAgent,
		http:       httpClient,
		wrapper:    cfg.Wrapper,
	}
}

func (p *Provider) Name() string { return "yahoo" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    "yahoo",
		Label:   "Yahoo! Shopping",
		Enabled: p.appID != "",
	}
}

func (p *Provider) Search(ctx context.Context, request domain.SearchRequest) ([]domain.Item, error) {
	if p.appID == "" {
		return nil, nil
	}

	stages := BuildStages(request.Keyword, BaseParams{
		AppID:     p.appID,
		GenreID:   p.genreID,
		PriceFrom: request.MinPrice,
		PriceTo:   request.MaxPrice,
	})

	var lastErr error
	for _, stage := range stages {
		items, err := p.fetchV3(ctx, stage)
		if err != nil {
			lastErr = err
			continue
		}
		if len(items) > 0 {
			return items, nil
		}
	}

	// Every V3 stage was empty or failed. One legacy attempt with the
	// loosest stage's parameters.
	last := stages[len(stages)-1]
	items, err := p.fetchV1(ctx, last)
	if err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	if len(items) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return items, nil
}

type v3Hit struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price *int   `json:"price"`
	URL   string `json:"url"`
	Image struct {
		Medium string `json:"medium"`
		Small  string `json:"small"`
	} `json:"image"`
	Seller struct {
		Name string `json:"name"`
	} `json:"seller"`
	Review struct {
		Count int     `json:"count"`
		Rate  float64 `json:"rate"`
	} `json:"review"`
}

type v3Response struct {
	Hits []v3Hit `json:"hits"`
}

func (p *Provider) fetchV3(ctx context.Context, stage BuiltStage) ([]domain.Item, error) {
	body, err := p.get(ctx, p.endpointV3, stage.Params)
	if err != nil {
		return nil, fmt.Errorf("yahoo v3 stage %s: %w", stage.Stage, err)
	}
	if !looksLikeJSON(body) {
		slog.Warn("yahoo v3 returned non-JSON body", "stage", string(stage.Stage))
		return nil, nil
	}

	var parsed v3Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		slog.Warn("yahoo v3 body did not match schema", "stage", string(stage.Stage), "error", err)
		return nil, nil
	}

	items := make([]domain.Item, 0, len(parsed.Hits))
	for _, hit := range parsed.Hits {
		if hit.Code == "" || hit.URL == "" {
			continue
		}
		image := hit.Image.Medium
		if image == "" {
			image = hit.Image.Small
		}
		items = append(items, domain.Item{
			ID:         hit.Code,
			Title:      hit.Name,
			Price:      hit.Price,
			Image:      image,
			Shop:       hit.Seller.Name,
			Source:     domain.SourceYahoo,
			URL:        p.wrapper.Wrap(hit.URL, domain.SourceYahoo),
			Popularity: float64(hit.Review.Count) * hit.Review.Rate,
		})
	}
	return items, nil
}

// v1Hit is the deprecated schema's listing shape. Prices arrive as strings.
type v1Hit struct {
	Name  string `json:"Name"`
	URL   string `json:"Url"`
	Price struct {
		Value string `json:"_value"`
	} `json:"Price"`
	Image struct {
		Medium string `json:"Medium"`
	} `json:"Image"`
	Store struct {
		Name string `json:"Name"`
	} `json:"Store"`
}

func (p *Provider) fetchV1(ctx context.Context, stage BuiltStage) ([]domain.Item, error) {
	params := url.Values{}
	params.Set("appid", p.appID)
	params.Set("genre_category_id", stage.Params.Get("genre_category_id"))
	params.Set("hits", stage.Params.Get("results"))
	params.Set("query", stage.QueryForView)
	if v := stage.Params.Get("price_from"); v != "" {
		params.Set("price_from", v)
	}
	if v := stage.Params.Get("price_to"); v != "" {
		params.Set("price_to", v)
	}

	body, err := p.get(ctx, p.endpointV1, params)
	if err != nil {
		return nil, fmt.Errorf("yahoo v1: %w", err)
	}
	hits := extractV1Hits(body)

	items := make([]domain.Item, 0, len(hits))
	for _, hit := range hits {
		if hit.URL == "" || hit.Name == "" {
			continue
		}
		var price *int
		if hit.Price.Value != "" {
			if parsed, err := strconv.Atoi(strings.TrimSpace(hit.Price.Value)); err == nil && parsed > 0 {
				price = &parsed
			}
		}
		items = append(items, domain.Item{
			ID:     "yahoo-v1:" + hit.URL,
			Title:  hit.Name,
			Price:  price,
			Image:  hit.Image.Medium,
			Shop:   hit.Store.Name,
			Source: domain.SourceYahoo,
			URL:    p.wrapper.Wrap(hit.URL, domain.SourceYahoo),
		})
	}
	return items, nil
}

// extractV1Hits tolerates the historical response shapes the deprecated API
// produced: a flat hit array, and a nested ResultSet wrapper whose Result
// may hold the hits directly, under a "Hit" key, as an array or as a single
// object. Anything unparseable is zero hits, not an error.
func extractV1Hits(body []byte) []v1Hit {
	if !looksLikeJSON(body) {
		return nil
	}

	var flat []v1Hit
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat
	}

	var wrapped struct {
		Hits      []v1Hit         `json:"hits"`
		ResultSet json.RawMessage `json:"ResultSet"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil
	}
	if len(wrapped.Hits) > 0 {
		return wrapped.Hits
	}
	if len(wrapped.ResultSet) == 0 {
		return nil
	}

	var resultSet struct {
		Result json.RawMessage `json:"Result"`
	}
	if err := json.Unmarshal(wrapped.ResultSet, &resultSet); err != nil || len(resultSet.Result) == 0 {
		return nil
	}
	return parseV1Result(resultSet.Result)
}

func parseV1Result(raw json.RawMessage) []v1Hit {
	var withHit struct {
		Hit json.RawMessage `json:"Hit"`
	}
	if err := json.Unmarshal(raw, &withHit); err == nil && len(withHit.Hit) > 0 {
		raw = withHit.Hit
	}

	var many []v1Hit
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var one v1Hit
	if err := json.Unmarshal(raw, &one); err == nil && one.Name != "" {
		return []v1Hit{one}
	}
	return nil
}

func looksLikeJSON(body []byte) bool {
	trimmed := strings.TrimSpace(string(body))
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}

func (p *Provider) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, nil
}
