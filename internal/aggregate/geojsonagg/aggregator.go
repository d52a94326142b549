package geojsonagg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/geoportal-wfs/internal/aggregate"
)

// Aggregator concatenates the features of several FeatureCollections in
// part order. With DeduplicateByID the first feature seen for an id wins.
type Aggregator struct {
	DeduplicateByID bool
}

var _ aggregate.Interface = (*Aggregator)(nil)

func New(dedup bool) *Aggregator {
	return &Aggregator{DeduplicateByID: dedup}
}

type collection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type featureHead struct {
	Type string          `json:"type"`
	ID   json.RawMessage `json:"id"`
}

func (a *Aggregator) Merge(parts [][]byte) ([]byte, error) {
	out := collection{Type: "FeatureCollection", Features: []json.RawMessage{}}
	seen := map[string]struct{}{}

	for i, p := range parts {
		feats, err := Features(p)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		for j, fr := range feats {
			var head featureHead
			if err := json.Unmarshal(fr, &head); err != nil {
				return nil, fmt.Errorf("part %d feature %d: not a JSON object: %w", i, j, err)
			}
			if head.Type != "Feature" {
				return nil, fmt.Errorf(`part %d feature %d: type is %q (want "Feature")`, i, j, head.Type)
			}
			if a.DeduplicateByID {
				key, err := canonicalIDKey(head.ID)
				if err != nil {
					return nil, fmt.Errorf("part %d feature %d: %w", i, j, err)
				}
				if key != "" {
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
				}
			}
			out.Features = append(out.Features, fr)
		}
	}

	buf, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal merged FeatureCollection: %w", err)
	}
	return buf, nil
}

// Features returns the raw features of a FeatureCollection body.
func Features(body []byte) ([]json.RawMessage, error) {
	var fc collection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf(`type is %q (want "FeatureCollection")`, fc.Type)
	}
	return fc.Features, nil
}

// IDKey returns the dedup key of a raw feature, or "" when it has no id.
func IDKey(feature json.RawMessage) (string, error) {
	var head featureHead
	if err := json.Unmarshal(feature, &head); err != nil {
		return "", fmt.Errorf("not a JSON object: %w", err)
	}
	return canonicalIDKey(head.ID)
}

// string and number ids are kept apart so "1" and 1 do not collide
func canonicalIDKey(idRaw json.RawMessage) (string, error) {
	if t := strings.TrimSpace(string(idRaw)); t == "" || t == "null" {
		return "", nil
	}
	dec := json.NewDecoder(bytes.NewReader(idRaw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("parse id: %w", err)
	}
	switch t := v.(type) {
	case string:
		return "s:" + t, nil
	case json.Number:
		return "n:" + t.String(), nil
	default:
		return "", fmt.Errorf("id must be string or number (got %T)", v)
	}
}
