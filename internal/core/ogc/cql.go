package ogc

import (
	"fmt"
	"strings"

	"github.com/mohammed-shakir/geoportal-wfs/internal/core/model"
)

// Reserved filter keys. Everything else in a parameter bag is an attribute.
const (
	KeyBBox  = "bbox"
	KeyGeom  = "geom"
	KeyLimit = "_limit"
	KeyStart = "_start"
)

var reservedKeys = map[string]struct{}{
	KeyBBox:  {},
	KeyGeom:  {},
	KeyLimit: {},
	KeyStart: {},
}

// IsReserved reports whether key is consumed by the filter builder or the
// pagination layer rather than treated as a feature attribute.
func IsReserved(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

// DefaultGeometryAttr is used when a bbox is given without a geom key.
const DefaultGeometryAttr = "the_geom"

// GeometryAttr returns the geometry attribute spatial predicates test against.
func GeometryAttr(p model.Params) string {
	if p.Has(KeyGeom) {
		return p.Get(KeyGeom)
	}
	return DefaultGeometryAttr
}

// BuildCQLFilter combines the bbox and attribute equality clauses of p into a
// single CQL expression. ok is false when no predicate applies.
// The bbox tokens are passed through untouched; the server validates them.
func BuildCQLFilter(p model.Params) (filter string, ok bool) {
	var preds []string
	if p.Has(KeyBBox) {
		preds = append(preds, bboxPredicate(GeometryAttr(p), p.Get(KeyBBox)))
	}
	for _, k := range p.Keys() {
		if IsReserved(k) {
			continue
		}
		preds = append(preds, fmt.Sprintf("%s = %s", k, QuoteLiteral(p.Get(k))))
	}
	if len(preds) == 0 {
		return "", false
	}
	return strings.Join(preds, " AND "), true
}

// coordinates keep the caller's formatting and count
func bboxPredicate(geomAttr, bbox string) string {
	return fmt.Sprintf("BBOX(%s, %s)", geomAttr, bbox)
}

// QuoteLiteral renders s as a CQL string literal, doubling embedded quotes.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// IntersectsPredicate builds INTERSECTS(<geomAttr>, <wkt>) from a GeoJSON
// geometry.
func IntersectsPredicate(geomAttr, geojson string) (string, error) {
	wkt, err := GeoJSONToWKT(geojson)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(geomAttr) == "" {
		geomAttr = DefaultGeometryAttr
	}
	return fmt.Sprintf("INTERSECTS(%s, %s)", geomAttr, wkt), nil
}

// JoinPredicates ANDs the non-empty predicates together.
func JoinPredicates(preds ...string) string {
	out := make([]string, 0, len(preds))
	for _, p := range preds {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " AND ")
}
