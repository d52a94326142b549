package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mohammed-shakir/geoportal-wfs/internal/core/httpclient"
	"github.com/mohammed-shakir/geoportal-wfs/internal/core/observability"
)

type Config struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// MaxBodyBytes caps the response size; zero means 64 MiB.
	MaxBodyBytes int64
}

const defaultMaxBody = 64 << 20

// HTTP is a Transport backed by a retrying http client. Connection errors and
// 5xx responses are retried; 4xx responses are returned at once.
type HTTP struct {
	logger  *slog.Logger
	client  *retryablehttp.Client
	maxBody int64
}

func NewHTTP(logger *slog.Logger, cfg Config) *HTTP {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rc := retryablehttp.NewClient()
	rc.HTTPClient = httpclient.NewOutbound(cfg.Timeout)
	// the built-in logger prints full URLs, which carry the api key
	rc.Logger = nil
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.DebugContext(req.Context(), "retrying wfs request", "host", req.URL.Host, "attempt", attempt)
		}
	}
	rc.RetryMax = max(cfg.RetryMax, 0)
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	// hand back the last response so the status code reaches the caller
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &HTTP{logger: logger, client: rc, maxBody: maxBody}
}

func (t *HTTP) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{URL: "(invalid url)", Err: stripURL(err)}
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			q[k] = append([]string(nil), vs...)
		}
		u.RawQuery = q.Encode()
	}
	// the api key lives in the path, keep it out of logs and errors
	redacted := u.Scheme + "://" + u.Host

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{URL: redacted, Err: fmt.Errorf("build request: %w", stripURL(err))}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	op := params.Get("request")
	start := time.Now()
	resp, err := t.client.Do(req)
	dur := time.Since(start)
	if err != nil {
		observability.ObserveUpstream(op, 0, dur.Seconds())
		err = stripURL(err)
		t.logger.DebugContext(ctx, "wfs request failed", "request", op, "host", u.Host, "err", err)
		return nil, &Error{URL: redacted, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	observability.ObserveUpstream(op, resp.StatusCode, dur.Seconds())
	t.logger.DebugContext(ctx, "wfs request done",
		"request", op,
		"status", resp.StatusCode,
		"duration", dur.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, &Error{URL: redacted, StatusCode: resp.StatusCode, Body: string(b)}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return nil, &Error{URL: redacted, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(b)) > t.maxBody {
		return nil, &Error{URL: redacted, StatusCode: resp.StatusCode, Err: fmt.Errorf("response exceeds %d bytes", t.maxBody)}
	}
	return b, nil
}

// stripURL drops the *url.Error wrapper, whose message repeats the full
// request URL including the api key path segment.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
