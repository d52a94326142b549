package ogc

import "testing"

func TestGeoJSONToWKT(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"point", `{"type":"Point","coordinates":[2.3522,48.8566]}`, "POINT(2.3522 48.8566)"},
		{"linestring", `{"type":"LineString","coordinates":[[0,0],[1,1.5]]}`, "LINESTRING(0 0, 1 1.5)"},
		{
			"polygon",
			`{"type":"Polygon","coordinates":[[[11,55],[12,55],[12,56],[11,56],[11,55]]]}`,
			"POLYGON((11 55, 12 55, 12 56, 11 56, 11 55))",
		},
		{
			"multipolygon",
			`{"type":"MultiPolygon","coordinates":[[[[0,0],[1,0],[1,1],[0,0]]],[[[5,5],[6,5],[6,6],[5,5]]]]}`,
			"MULTIPOLYGON(((0 0, 1 0, 1 1, 0 0)), ((5 5, 6 5, 6 6, 5 5)))",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := GeoJSONToWKT(tc.in)
			if err != nil {
				t.Fatalf("GeoJSONToWKT: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestGeoJSONToWKT_Errors(t *testing.T) {
	bad := map[string]string{
		"not json":      `nope`,
		"no coords":     `{"type":"Polygon"}`,
		"short ring":    `{"type":"Polygon","coordinates":[[[0,0],[1,1],[0,0]]]}`,
		"3d coordinate": `{"type":"Point","coordinates":[1,2,3]}`,
		"empty multi":   `{"type":"MultiPolygon","coordinates":[]}`,
		"unsupported":   `{"type":"GeometryCollection","coordinates":[]}`,
		"short line":    `{"type":"LineString","coordinates":[[0,0]]}`,
	}
	for name, in := range bad {
		t.Run(name, func(t *testing.T) {
			if got, err := GeoJSONToWKT(in); err == nil {
				t.Fatalf("expected error, got %q", got)
			}
		})
	}
}
