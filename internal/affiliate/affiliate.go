// Package affiliate rewrites raw product URLs into tracked outbound redirect
// URLs. Everything here is pure URL templating: the destination is
// percent-encoded into a query parameter and no network calls are made.
package affiliate

import (
	"net/url"

	"sakeai/searchservice/internal/domain"
)

const (
	moshimoBase       = "https://af.moshimo.com/af/c/click"
	valueCommerceBase = "https://ck.jp.ap.valuecommerce.com/servlet/referral"
)

// MoshimoIDs are the fixed tracking-partner identifiers for Rakuten listings.
type MoshimoIDs struct {
	AID  string
	PID  string
	PCID string
	PLID string
}

// ValueCommerceIDs are the fixed tracking-partner identifiers for Yahoo
// Shopping listings.
type ValueCommerceIDs struct {
	SID string
	PID string
}

func WrapMoshimo(rawURL string, ids MoshimoIDs) string {
	values := url.Values{}
	values.Set("a_id", ids.AID)
	values.Set("p_id", ids.PID)
	values.Set("pc_id", ids.PCID)
	values.Set("pl_id", ids.PLID)
	values.Set("url", rawURL)
	return moshimoBase + "?" + values.Encode()
}

func WrapValueCommerce(rawURL string, ids ValueCommerceIDs) string {
	values := url.Values{}
	values.Set("sid", ids.SID)
	values.Set("pid", ids.PID)
	values.Set("vc_url", rawURL)
	return valueCommerceBase + "?" + values.Encode()
}

// Wrapper selects the marketplace-specific template by source tag.
type Wrapper struct {
	Moshimo       MoshimoIDs
	ValueCommerce ValueCommerceIDs
}

func (w Wrapper) Wrap(rawURL string, source domain.Source) string {
	switch source {
	case domain.SourceYahoo:
		return WrapValueCommerce(rawURL, w.ValueCommerce)
	default:
		return WrapMoshimo(rawURL, w.Moshimo)
	}
}
