// Package router exposes the WFS client over HTTP.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/geoportal-wfs/internal/core/model"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/ogc"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/transport"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/wfsclient"
)

// IntersectsHeader carries an optional GeoJSON geometry for an INTERSECTS
// filter; the query string stays free for attribute names.
const IntersectsHeader = "X-Intersects-GeoJSON"

// Service is what the gateway needs from the WFS client.
type Service interface {
	GetTypeNames(ctx context.Context) ([]string, error)
	GetFeaturesRaw(ctx context.Context, q model.FeatureQuery) ([]byte, error)
}

// Mount registers the WFS routes on r.
func Mount(r chi.Router, logger *slog.Logger, svc Service) {
	r.Get("/typenames", HandleTypeNames(logger, svc))
	r.Get("/features/{typeName}", HandleFeatures(logger, svc))
}

func HandleTypeNames(logger *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := svc.GetTypeNames(r.Context())
		if err != nil {
			writeError(r.Context(), logger, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(names)
	}
}

func HandleFeatures(logger *slog.Logger, svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := ParseFeatureQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, err := svc.GetFeaturesRaw(r.Context(), q)
		if err != nil {
			writeError(r.Context(), logger, w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

// ParseFeatureQuery keeps the query string order so attribute predicates
// follow the order the caller wrote them in.
func ParseFeatureQuery(r *http.Request) (model.FeatureQuery, error) {
	typeName := strings.TrimSpace(chi.URLParam(r, "typeName"))
	if typeName == "" {
		return model.FeatureQuery{}, errors.New("missing required parameter: typeName")
	}
	q := model.FeatureQuery{
		TypeName:   typeName,
		Params:     model.ParamsFromQuery(r.URL.RawQuery),
		Intersects: strings.TrimSpace(r.Header.Get(IntersectsHeader)),
	}
	if _, err := ogc.BuildFeatureFilter(q); err != nil {
		return model.FeatureQuery{}, fmt.Errorf("invalid %s: %w", IntersectsHeader, err)
	}
	return q, nil
}

func writeError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	var (
		mce *ogc.MalformedCapabilitiesError
		te  *transport.Error
	)
	switch {
	case errors.Is(err, wfsclient.ErrMissingTypeName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		logger.WarnContext(ctx, "wfs request timed out", "err", err)
		http.Error(w, "upstream timeout", http.StatusGatewayTimeout)
	case errors.As(err, &mce):
		logger.WarnContext(ctx, "malformed capabilities", "err", err)
		http.Error(w, "upstream returned a malformed capabilities document", http.StatusBadGateway)
	case errors.As(err, &te):
		logger.WarnContext(ctx, "wfs upstream error", "status", te.StatusCode, "err", err)
		msg := "upstream request failed"
		if te.StatusCode != 0 {
			msg = fmt.Sprintf("upstream status %d", te.StatusCode)
		}
		http.Error(w, msg, http.StatusBadGateway)
	default:
		logger.ErrorContext(ctx, "request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
