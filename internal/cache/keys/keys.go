// Package keys derives cache keys for WFS responses.
package keys

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const featurePrefix = "wfs:features"

// FeatureKey returns a key identifying one GetFeature response. The hash
// covers the endpoint and the full encoded query, so any parameter
// difference (filter text, paging, type) yields a different key.
func FeatureKey(endpoint, typeName string, params url.Values) string {
	sum := xxhash.New()
	_, _ = sum.WriteString(endpoint)
	_, _ = sum.WriteString("?")
	_, _ = sum.WriteString(params.Encode())
	return fmt.Sprintf("%s:%s:q=%016x", featurePrefix, sanitizeTypeName(strings.TrimSpace(typeName)), sum.Sum64())
}

func sanitizeTypeName(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-' || r == '.':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
