package wfsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/geoportal-wfs/internal/aggregate/geojsonagg"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/model"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/ogc"
)

// GetAllFeaturesRaw walks q page by page, pageSize features at a time,
// starting at q's _start (0 if unset), and merges the pages into one
// FeatureCollection. It stops at the first short page or after maxPages
// pages; maxPages <= 0 means no cap. A page identical to the previous one,
// or a full page with no unseen feature id, also ends the walk since the
// server is not honoring startIndex. Features repeated by id are kept once.
func (c *Client) GetAllFeaturesRaw(ctx context.Context, q model.FeatureQuery, pageSize, maxPages int) ([]byte, error) {
	if pageSize <= 0 {
		return nil, errors.New("page size must be positive")
	}
	start := 0
	if n, err := strconv.Atoi(strings.TrimSpace(q.Params.Get(ogc.KeyStart))); err == nil && n > 0 {
		start = n
	}

	var parts [][]byte
	seen := map[string]struct{}{}
	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		pq := q
		pq.Params = q.Params.Clone()
		pq.Params.SetInt(ogc.KeyLimit, pageSize)
		pq.Params.SetInt(ogc.KeyStart, start)

		body, err := c.GetFeaturesRaw(ctx, pq)
		if err != nil {
			return nil, err
		}
		feats, err := geojsonagg.Features(body)
		if err != nil {
			return nil, fmt.Errorf("page at startIndex %d: %w", start, err)
		}
		if len(parts) > 0 && bytes.Equal(body, parts[len(parts)-1]) {
			c.logger.WarnContext(ctx, "feature page repeated, stopping", "start", start)
			break
		}
		fresh, err := newFeatures(feats, seen)
		if err != nil {
			return nil, fmt.Errorf("page at startIndex %d: %w", start, err)
		}
		parts = append(parts, body)
		c.logger.DebugContext(ctx, "feature page fetched", "start", start, "features", len(feats), "new", fresh)

		if len(feats) < pageSize {
			break
		}
		if fresh == 0 {
			c.logger.WarnContext(ctx, "feature page adds no new ids, stopping", "start", start)
			break
		}
		start += pageSize
	}
	return geojsonagg.New(true).Merge(parts)
}

// newFeatures records the ids of feats in seen and counts the features not
// seen before. Features without an id always count as new.
func newFeatures(feats []json.RawMessage, seen map[string]struct{}) (int, error) {
	n := 0
	for i, f := range feats {
		key, err := geojsonagg.IDKey(f)
		if err != nil {
			return 0, fmt.Errorf("feature %d: %w", i, err)
		}
		if key == "" {
			n++
			continue
		}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			n++
		}
	}
	return n, nil
}
