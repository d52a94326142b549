package model

import "encoding/json"

// FeatureQuery describes one GetFeature call.
type FeatureQuery struct {
	TypeName string
	// Params carries bbox, geom, pagination and attribute equality filters.
	Params Params
	// Intersects is an optional GeoJSON geometry, ANDed after the bbox and
	// attribute predicates.
	Intersects string
}

type FeatureCollection struct {
	Type           string    `json:"type"`
	Features       []Feature `json:"features"`
	TotalFeatures  any       `json:"totalFeatures,omitempty"`
	NumberMatched  *int      `json:"numberMatched,omitempty"`
	NumberReturned *int      `json:"numberReturned,omitempty"`
	TimeStamp      string    `json:"timeStamp,omitempty"`
	CRS            any       `json:"crs,omitempty"`
}

type Feature struct {
	Type         string          `json:"type"`
	ID           string          `json:"id,omitempty"`
	Geometry     json.RawMessage `json:"geometry"`
	GeometryName string          `json:"geometry_name,omitempty"`
	Properties   map[string]any  `json:"properties"`
	BBox         []float64       `json:"bbox,omitempty"`
}
