// Package ogc builds WFS 2.0.0 requests and interprets WFS responses.
package ogc

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/geoportal-wfs/internal/core/model"
)

const (
	Version      = "2.0.0"
	OutputFormat = "application/json"
	SRSName      = "CRS:84"
)

// WFSEndpoint returns the keyed geoportal WFS URL for base.
func WFSEndpoint(base, apiKey string) string {
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(apiKey) + "/geoportail/wfs"
}

func baseParams(request string) url.Values {
	params := url.Values{}
	params.Set("service", "WFS")
	params.Set("version", Version)
	params.Set("request", request)
	return params
}

func BuildGetCapabilitiesParams() url.Values {
	return baseParams("GetCapabilities")
}

// Page holds the pagination parsed out of a parameter bag. A nil field means
// the query carries no such parameter.
type Page struct {
	Count      *int
	StartIndex *int
}

// ParsePage reads _limit and _start. Values that are not integers are
// reported in the returned slice and left out of the page.
func ParsePage(p model.Params) (Page, []string) {
	var page Page
	var bad []string
	if p.Has(KeyLimit) {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Get(KeyLimit))); err == nil {
			page.Count = &n
		} else {
			bad = append(bad, KeyLimit)
		}
	}
	if p.Has(KeyStart) {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Get(KeyStart))); err == nil {
			page.StartIndex = &n
		} else {
			bad = append(bad, KeyStart)
		}
	}
	return page, bad
}

// BuildFeatureFilter returns the complete cql_filter for q, or "" when the
// query needs none.
func BuildFeatureFilter(q model.FeatureQuery) (string, error) {
	filter, _ := BuildCQLFilter(q.Params)
	if strings.TrimSpace(q.Intersects) == "" {
		return filter, nil
	}
	pred, err := IntersectsPredicate(GeometryAttr(q.Params), q.Intersects)
	if err != nil {
		return "", fmt.Errorf("intersects geometry: %w", err)
	}
	return JoinPredicates(filter, pred), nil
}

// BuildGetFeatureParams returns the GetFeature query for q along with the
// parameter keys that were dropped because they could not be interpreted.
func BuildGetFeatureParams(q model.FeatureQuery) (url.Values, []string, error) {
	filter, err := BuildFeatureFilter(q)
	if err != nil {
		return nil, nil, err
	}
	params := baseParams("GetFeature")
	params.Set("typename", q.TypeName)
	params.Set("outputFormat", OutputFormat)
	params.Set("srsName", SRSName)

	page, dropped := ParsePage(q.Params)
	if page.Count != nil {
		params.Set("count", strconv.Itoa(*page.Count))
	}
	if page.StartIndex != nil {
		params.Set("startIndex", strconv.Itoa(*page.StartIndex))
	}
	if filter != "" {
		params.Set("cql_filter", filter)
	}
	return params, dropped, nil
}
