// Package model defines the query and feature types shared across the client.
package model

import (
	"net/url"
	"strconv"
	"strings"
)

// Params is an insertion-ordered, string-keyed parameter bag.
// The zero value is ready to use.
type Params struct {
	keys []string
	vals map[string]string
}

func NewParams() Params {
	return Params{vals: map[string]string{}}
}

// Set stores value under key. Re-setting a key keeps its original position.
func (p *Params) Set(key, value string) {
	if p.vals == nil {
		p.vals = map[string]string{}
	}
	if _, ok := p.vals[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.vals[key] = value
}

func (p *Params) SetInt(key string, n int) {
	p.Set(key, strconv.Itoa(n))
}

func (p Params) Get(key string) string {
	return p.vals[key]
}

func (p Params) Has(key string) bool {
	_, ok := p.vals[key]
	return ok
}

// Keys returns a copy of the keys in insertion order.
func (p Params) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

func (p Params) Len() int { return len(p.keys) }

func (p Params) Clone() Params {
	c := Params{keys: p.Keys(), vals: make(map[string]string, len(p.vals))}
	for k, v := range p.vals {
		c.vals[k] = v
	}
	return c
}

// ParamsFromQuery parses a raw URL query string keeping parameter order,
// which url.ParseQuery does not. Pairs that fail to unescape are skipped.
func ParamsFromQuery(rawQuery string) Params {
	p := NewParams()
	for pair := range strings.SplitSeq(rawQuery, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key == "" {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			continue
		}
		p.Set(key, val)
	}
	return p
}
