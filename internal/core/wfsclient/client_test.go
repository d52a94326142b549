package wfsclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/mohammed-shakir/geoportal-wfs/internal/cache/redisstore"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/model"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/ogc"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/transport"
)

const caps = `<wfs:WFS_Capabilities xmlns:wfs="http://www.opengis.net/wfs/2.0"><wfs:FeatureTypeList>
<wfs:FeatureType><wfs:Name>A</wfs:Name></wfs:FeatureType>
<wfs:FeatureType><wfs:Name>B</wfs:Name></wfs:FeatureType>
<wfs:FeatureType><wfs:Name>B</wfs:Name></wfs:FeatureType>
</wfs:FeatureTypeList></wfs:WFS_Capabilities>`

const featuresJSON = `{"type":"FeatureCollection","numberReturned":1,"features":[
{"type":"Feature","id":"commune.1","geometry":{"type":"Point","coordinates":[2.35,48.85]},"properties":{"nom":"Paris"}}]}`

type call struct {
	url     string
	params  url.Values
	headers http.Header
}

// recorder is a fake transport returning canned bodies per request type
type recorder struct {
	mu     sync.Mutex
	calls  []call
	bodies map[string]string
	err    error
}

func (r *recorder) Get(_ context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{url: rawURL, params: params, headers: headers})
	if r.err != nil {
		return nil, r.err
	}
	return []byte(r.bodies[params.Get("request")]), nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newRecorder() *recorder {
	return &recorder{bodies: map[string]string{
		"GetCapabilities": caps,
		"GetFeature":      featuresJSON,
	}}
}

func TestNew_FailsFastWithoutAPIKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		_, err := New(key, nil, newRecorder())
		if !errors.Is(err, ErrMissingAPIKey) {
			t.Fatalf("New(%q) err=%v want ErrMissingAPIKey", key, err)
		}
	}
	if _, err := New("key", nil, nil); err == nil {
		t.Fatalf("expected error for nil transport")
	}
}

func TestURL(t *testing.T) {
	c, err := New("essentiels", nil, newRecorder())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.URL(); got != "http://wxs.ign.fr/essentiels/geoportail/wfs" {
		t.Fatalf("URL=%q", got)
	}
	c, _ = New("k", nil, newRecorder(), WithBaseURL("https://data.example.org/"))
	if got := c.URL(); got != "https://data.example.org/k/geoportail/wfs" {
		t.Fatalf("URL=%q", got)
	}
}

func TestGetTypeNames(t *testing.T) {
	rec := newRecorder()
	headers := http.Header{"Referer": {"https://example.org"}}
	c, _ := New("k", headers, rec)

	got, err := c.GetTypeNames(context.Background())
	if err != nil {
		t.Fatalf("GetTypeNames: %v", err)
	}
	if want := []string{"A", "B", "B"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	last := rec.calls[0]
	if last.params.Get("request") != "GetCapabilities" || last.params.Get("service") != "WFS" || last.params.Get("version") != "2.0.0" {
		t.Fatalf("unexpected params: %v", last.params)
	}
	if last.headers.Get("Referer") != "https://example.org" {
		t.Fatalf("headers not forwarded: %v", last.headers)
	}
	headers.Set("Referer", "changed")
	if c.headers.Get("Referer") != "https://example.org" {
		t.Fatalf("client must keep its own copy of headers")
	}
}

func TestGetTypeNames_Malformed(t *testing.T) {
	rec := newRecorder()
	rec.bodies["GetCapabilities"] = "not xml"
	c, _ := New("k", nil, rec, WithTypeNamesCache(4, time.Minute))

	for range 2 {
		names, err := c.GetTypeNames(context.Background())
		var mce *ogc.MalformedCapabilitiesError
		if !errors.As(err, &mce) {
			t.Fatalf("err=%v want MalformedCapabilitiesError", err)
		}
		if names != nil {
			t.Fatalf("names=%v want nil", names)
		}
	}
	if rec.count() != 2 {
		t.Fatalf("parse failures must not be cached; calls=%d", rec.count())
	}
}

func TestGetTypeNames_TransportErrorUnchanged(t *testing.T) {
	terr := &transport.Error{URL: "http://wxs.ign.fr", StatusCode: http.StatusForbidden}
	rec := newRecorder()
	rec.err = terr
	c, _ := New("k", nil, rec)

	_, err := c.GetTypeNames(context.Background())
	if err != terr {
		t.Fatalf("transport error must be returned unchanged; got %#v", err)
	}
	_, err = c.GetFeatures(context.Background(), model.FeatureQuery{TypeName: "A"})
	if err != terr {
		t.Fatalf("transport error must be returned unchanged; got %#v", err)
	}
}

func TestGetTypeNames_Cached(t *testing.T) {
	rec := newRecorder()
	c, _ := New("k", nil, rec, WithTypeNamesCache(4, time.Minute))

	a, err := c.GetTypeNames(context.Background())
	if err != nil {
		t.Fatalf("GetTypeNames: %v", err)
	}
	a[0] = "mutated"
	b, err := c.GetTypeNames(context.Background())
	if err != nil {
		t.Fatalf("GetTypeNames: %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("calls=%d want 1", rec.count())
	}
	if b[0] != "A" {
		t.Fatalf("cached slice was aliased: %v", b)
	}
}

func TestGetFeatures_QueryAndDecode(t *testing.T) {
	rec := newRecorder()
	c, _ := New("k", nil, rec)

	p := model.NewParams()
	p.Set("bbox", "0,0,1,1")
	p.Set("nom", "O'Brien")
	p.SetInt("_limit", 10)
	p.SetInt("_start", 5)

	fc, err := c.GetFeatures(context.Background(), model.FeatureQuery{TypeName: "ADMINEXPRESS:commune", Params: p})
	if err != nil {
		t.Fatalf("GetFeatures: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 || fc.Features[0].Properties["nom"] != "Paris" {
		t.Fatalf("unexpected collection: %+v", fc)
	}
	if fc.NumberReturned == nil || *fc.NumberReturned != 1 {
		t.Fatalf("numberReturned not decoded: %+v", fc.NumberReturned)
	}

	got := rec.calls[0].params
	want := url.Values{
		"service":      {"WFS"},
		"version":      {"2.0.0"},
		"request":      {"GetFeature"},
		"typename":     {"ADMINEXPRESS:commune"},
		"outputFormat": {"application/json"},
		"srsName":      {"CRS:84"},
		"count":        {"10"},
		"startIndex":   {"5"},
		"cql_filter":   {"BBOX(the_geom, 0,0,1,1) AND nom = 'O''Brien'"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("params:\n got %v\nwant %v", got, want)
	}
	if rec.calls[0].url != "http://wxs.ign.fr/k/geoportail/wfs" {
		t.Fatalf("url=%q", rec.calls[0].url)
	}
}

func TestGetFeatures_NoFilterParam(t *testing.T) {
	rec := newRecorder()
	c, _ := New("k", nil, rec)
	if _, err := c.GetFeatures(context.Background(), model.FeatureQuery{TypeName: "A"}); err != nil {
		t.Fatalf("GetFeatures: %v", err)
	}
	if _, ok := rec.calls[0].params["cql_filter"]; ok {
		t.Fatalf("cql_filter must be absent when no filter applies")
	}
}

func TestGetFeatures_Errors(t *testing.T) {
	rec := newRecorder()
	c, _ := New("k", nil, rec)

	if _, err := c.GetFeatures(context.Background(), model.FeatureQuery{}); !errors.Is(err, ErrMissingTypeName) {
		t.Fatalf("err=%v want ErrMissingTypeName", err)
	}
	if _, err := c.GetFeatures(context.Background(), model.FeatureQuery{TypeName: "A", Intersects: "{"}); err == nil {
		t.Fatalf("expected error for bad intersects geometry")
	}
	if rec.count() != 0 {
		t.Fatalf("invalid queries must not reach the transport; calls=%d", rec.count())
	}

	rec.bodies["GetFeature"] = "<ows:ExceptionReport/>"
	if _, err := c.GetFeatures(context.Background(), model.FeatureQuery{TypeName: "A"}); err == nil {
		t.Fatalf("expected JSON decode error")
	}
}

type memCache struct {
	mu   sync.Mutex
	m    map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	b, ok := m.m[key]
	return b, ok, nil
}

func (m *memCache) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.m[key] = val
	m.ttls[key] = ttl
	return nil
}

func TestGetFeatures_Cache(t *testing.T) {
	rec := newRecorder()
	mc := &memCache{m: map[string][]byte{}, ttls: map[string]time.Duration{}}
	c, _ := New("k", nil, rec, WithFeatureCache(mc, 30*time.Second))

	q := model.FeatureQuery{TypeName: "A"}
	for range 3 {
		if _, err := c.GetFeatures(context.Background(), q); err != nil {
			t.Fatalf("GetFeatures: %v", err)
		}
	}
	if rec.count() != 1 {
		t.Fatalf("calls=%d want 1", rec.count())
	}
	for _, ttl := range mc.ttls {
		if ttl != 30*time.Second {
			t.Fatalf("ttl=%v", ttl)
		}
	}

	p := model.NewParams()
	p.Set("nom", "Lyon")
	if _, err := c.GetFeatures(context.Background(), model.FeatureQuery{TypeName: "A", Params: p}); err != nil {
		t.Fatalf("GetFeatures: %v", err)
	}
	if rec.count() != 2 {
		t.Fatalf("different filter must miss the cache; calls=%d", rec.count())
	}
}

func TestGetFeatures_CacheErrorsIgnored(t *testing.T) {
	rec := newRecorder()
	mc := &memCache{err: errors.New("redis down")}
	c, _ := New("k", nil, rec, WithFeatureCache(mc, time.Minute))

	if _, err := c.GetFeatures(context.Background(), model.FeatureQuery{TypeName: "A"}); err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
}

func TestGetFeatures_NonJSONNotCached(t *testing.T) {
	rec := newRecorder()
	rec.bodies["GetFeature"] = "oops"
	mc := &memCache{m: map[string][]byte{}, ttls: map[string]time.Duration{}}
	c, _ := New("k", nil, rec, WithFeatureCache(mc, time.Minute))

	_, _ = c.GetFeatures(context.Background(), model.FeatureQuery{TypeName: "A"})
	if len(mc.m) != 0 {
		t.Fatalf("non-JSON body must not be cached")
	}
}

func TestGetFeatures_RedisCacheAndHTTPTransport(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/k/geoportail/wfs" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if got := r.URL.Query().Get("cql_filter"); got != "nom = 'Paris'" {
			t.Errorf("cql_filter=%q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(featuresJSON))
	}))
	defer srv.Close()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()
	rc, err := redisstore.New(context.Background(), mr.Addr())
	if err != nil {
		t.Fatalf("redisstore: %v", err)
	}
	defer func() { _ = rc.Close() }()

	tr := transport.NewHTTP(nil, transport.Config{Timeout: 2 * time.Second})
	c, err := New("k", nil, tr, WithBaseURL(srv.URL), WithFeatureCache(rc, time.Minute))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p := model.NewParams()
	p.Set("nom", "Paris")
	q := model.FeatureQuery{TypeName: "A", Params: p}
	for range 2 {
		fc, err := c.GetFeatures(context.Background(), q)
		if err != nil {
			t.Fatalf("GetFeatures: %v", err)
		}
		if len(fc.Features) != 1 {
			t.Fatalf("features=%d", len(fc.Features))
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("upstream hits=%d want 1", hits.Load())
	}
	if len(mr.Keys()) != 1 {
		t.Fatalf("redis keys=%v", mr.Keys())
	}
}
