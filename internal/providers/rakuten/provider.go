package rakuten

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sakeai/searchservice/internal/affiliate"
	"sakeai/searchservice/internal/domain"
)

const (
	defaultEndpoint = "https://app.rakuten.co.jp/services/api/IchibaItem/Search/20220601"
	defaultHits     = 20
)

// Provider queries the Rakuten Ichiba item search API. One call per search;
// price bounds are pushed upstream as minPrice/maxPrice so the API does the
// coarse cut.
type Provider struct {
	appID     string
	endpoint  string
	userAgent string
	hits      int
	http      *http.Client
	wrapper   affiliate.Wrapper
}

type Config struct {
	AppID     string
	Endpoint  string
	UserAgent string
	Hits      int
	Client    *http.Client
	Wrapper   affiliate.Wrapper
}

func New(cfg Config) *Provider {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	hits := cfg.Hits
	if hits <= 0 || hits > 30 {
		hits = defaultHits
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2500 * time.Millisecond}
	}
	return &Provider{
		appID:     strings.TrimSpace(cfg.AppID),
		endpoint:  strings.TrimRight(endpoint, "?"),
		userAgent: cfg.UserAgent,
		hits:      hits,
		http:      httpClient,
		wrapper:   cfg.Wrapper,
	}
}

func (p *Provider) Name() string { return "rakuten" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    "rakuten",
		Label:   "Rakuten Ichiba",
		Enabled: p.appID != "",
	}
}

type apiImage struct {
	ImageURL string `json:"imageUrl"`
}

type apiItem struct {
	ItemCode        string     `json:"itemCode"`
	ItemName        string     `json:"itemName"`
	ItemPrice       *int       `json:"itemPrice"`
	ItemURL         string     `json:"itemUrl"`
	ShopName        string     `json:"shopName"`
	MediumImageURLs []apiImage `json:"mediumImageUrls"`
	SmallImageURLs  []apiImage `json:"smallImageUrls"`
	ReviewCount     int        `json:"reviewCount"`
	ReviewAverage   float64    `json:"reviewAverage"`
}

type apiResponse struct {
	Items []struct {
		Item apiItem `json:"Item"`
	} `json:"Items"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (p *Provider) Search(ctx context.Context, request domain.SearchRequest) ([]domain.Item, error) {
	if p.appID == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("applicationId", p.appID)
	params.Set("keyword", request.Keyword)
	params.Set("hits", strconv.Itoa(p.hits))
	params.Set("imageFlag", "1")
	if request.MinPrice != nil && *request.MinPrice > 0 {
		params.Set("minPrice", strconv.Itoa(*request.MinPrice))
	}
	if request.MaxPrice != nil && *request.MaxPrice > 0 {
		params.Set("maxPrice", strconv.Itoa(*request.MaxPrice))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("rakuten: build request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rakuten: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("rakuten: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rakuten: status %d", resp.StatusCode)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("rakuten: decode: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("rakuten: api error %s: %s", parsed.Error, parsed.ErrorDescription)
	}

	items := make([]domain.Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		raw := entry.Item
		if raw.ItemCode == "" || raw.ItemURL == "" {
			continue
		}
		item := domain.Item{
			ID:         raw.ItemCode,
			Title:      raw.ItemName,
			Price:      raw.ItemPrice,
			Image:      firstImage(raw),
			Shop:       raw.ShopName,
			Source:     domain.SourceRakuten,
			URL:        p.wrapper.Wrap(raw.ItemURL, domain.SourceRakuten),
			Popularity: float64(raw.ReviewCount) * raw.ReviewAverage,
		}
		items = append(items, item)
	}
	return items, nil
}

func firstImage(raw apiItem) string {
	if len(raw.MediumImageURLs) > 0 && raw.MediumImageURLs[0].ImageURL != "" {
		return raw.MediumImageURLs[0].ImageURL
	}
	if len(raw.SmallImageURLs) > 0 {
		return raw.SmallImageURLs[0].ImageURL
	}
	return ""
}
