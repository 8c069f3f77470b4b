package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

var (
	bracketPattern = regexp.MustCompile(`[【】\[\]（）()／/・]+`)
	ml720Pattern   = regexp.MustCompile(`(?i)\b720\s*ml\b`)
	liter18Pattern = regexp.MustCompile(`(?i)\b1\.8\s*l\b`)
	promoPattern   = regexp.MustCompile(`送料無料|ポイント|最安|限定|公式|正規品`)
	spacePattern   = regexp.MustCompile(`\s+`)

	packagingPattern = regexp.MustCompile(`化粧箱|箱入り|箱付|ギフト箱|飲み比べ|セット`)
	volumePattern    = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(ml|l)\b`)

	tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)
)

// NormalizeQuery canonicalizes raw free-text search input: full-width
// punctuation is folded to half-width, brackets become spaces, volume tokens
// are canonicalized (720 ml -> 720ml, 1.8 l / 一升 -> 1800ml), promotional
// noise words are stripped, and whitespace is collapsed. The transform is a
// fixpoint: normalizing an already-normalized string returns it unchanged.
func NormalizeQuery(raw string) string {
	s := strings.TrimSpace(width.Fold.String(raw))
	if s == "" {
		return ""
	}
	s = bracketPattern.ReplaceAllString(s, " ")
	s = ml720Pattern.ReplaceAllString(s, "720ml")
	s = liter18Pattern.ReplaceAllString(s, "1800ml")
	s = strings.ReplaceAll(s, "一升", "1800ml")
	s = promoPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// LoosenQuery strips packaging, gift and bundle qualifiers plus explicit
// volume tokens from an already-normalized query, producing a broader-match
// variant for fallback search.
func LoosenQuery(normalized string) string {
	if normalized == "" {
		return ""
	}
	s := packagingPattern.ReplaceAllString(normalized, " ")
	s = volumePattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ParseVolumeML extracts a bottle volume in milliliters from a title.
// Supports "720ml", "1.8L" and the traditional 一升 measure. Returns 0 when
// no volume is recognizable.
func ParseVolumeML(title string) int {
	s := strings.ToLower(width.Fold.String(title))
	if strings.Contains(s, "一升") {
		return 1800
	}
	match := volumePattern.FindStringSubmatch(s)
	if len(match) < 3 {
		return 0
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil || value <= 0 {
		return 0
	}
	if match[2] == "l" {
		value *= 1000
	}
	return int(value)
}

// DedupeKey derives the key under which two listings are considered the same
// physical product: the lower-cased, punctuation-stripped, whitespace-collapsed
// title, concatenated with the parsed bottle volume when one is extractable.
func DedupeKey(title string) string {
	folded := strings.ToLower(NormalizeQuery(title))
	tokens := tokenPattern.FindAllString(folded, -1)
	if len(tokens) == 0 {
		return ""
	}
	key := strings.Join(tokens, " ")
	if ml := ParseVolumeML(title); ml > 0 {
		key = fmt.Sprintf("%s|%dml", key, ml)
	}
	return key
}
