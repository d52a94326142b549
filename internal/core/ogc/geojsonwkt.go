package ogc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// GeoJSONToWKT converts a GeoJSON geometry object into WKT for CQL spatial
// predicates. Point, LineString, Polygon and MultiPolygon are supported.
func GeoJSONToWKT(geojson string) (string, error) {
	var g struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(geojson), &g); err != nil {
		return "", fmt.Errorf("parse geojson: %w", err)
	}
	if len(g.Coordinates) == 0 {
		return "", errors.New("geojson has no coordinates")
	}

	switch t := strings.TrimSpace(g.Type); t {
	case "Point":
		var pt []float64
		if err := json.Unmarshal(g.Coordinates, &pt); err != nil {
			return "", fmt.Errorf("parse point coords: %w", err)
		}
		s, err := position(pt)
		if err != nil {
			return "", err
		}
		return "POINT(" + s + ")", nil
	case "LineString":
		var line [][]float64
		if err := json.Unmarshal(g.Coordinates, &line); err != nil {
			return "", fmt.Errorf("parse linestring coords: %w", err)
		}
		if len(line) < 2 {
			return "", errors.New("linestring has <2 points")
		}
		s, err := positions(line)
		if err != nil {
			return "", err
		}
		return "LINESTRING" + s, nil
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return "", fmt.Errorf("parse polygon coords: %w", err)
		}
		body, err := polygonBody(rings)
		if err != nil {
			return "", err
		}
		return "POLYGON" + body, nil
	case "MultiPolygon":
		var polys [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &polys); err != nil {
			return "", fmt.Errorf("parse multipolygon coords: %w", err)
		}
		if len(polys) == 0 {
			return "", errors.New("empty multipolygon")
		}
		parts := make([]string, 0, len(polys))
		for _, poly := range polys {
			body, err := polygonBody(poly)
			if err != nil {
				return "", err
			}
			parts = append(parts, body)
		}
		return "MULTIPOLYGON(" + strings.Join(parts, ", ") + ")", nil
	default:
		return "", fmt.Errorf("unsupported geometry type %q", t)
	}
}

// polygonBody renders rings as "((x y, ...), (...))"
func polygonBody(rings [][][]float64) (string, error) {
	if len(rings) == 0 {
		return "", errors.New("empty polygon")
	}
	out := make([]string, 0, len(rings))
	for _, ring := range rings {
		if len(ring) < 4 {
			return "", errors.New("polygon ring has <4 points")
		}
		s, err := positions(ring)
		if err != nil {
			return "", err
		}
		out = append(out, s)
	}
	return "(" + strings.Join(out, ", ") + ")", nil
}

func positions(pts [][]float64) (string, error) {
	out := make([]string, 0, len(pts))
	for _, xy := range pts {
		s, err := position(xy)
		if err != nil {
			return "", err
		}
		out = append(out, s)
	}
	return "(" + strings.Join(out, ", ") + ")", nil
}

func position(xy []float64) (string, error) {
	if len(xy) != 2 {
		return "", errors.New("coordinate must be [x,y]")
	}
	return formatCoord(xy[0]) + " " + formatCoord(xy[1]), nil
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
