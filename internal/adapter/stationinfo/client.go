// Package stationinfo resolves station metadata from external HTTP services.
//
// A Client walks an ordered list of Sources, sharing one rate limiter across
// all of them. Codes that every consulted source definitively does not know
// are remembered for the lifetime of the Client so they are never requested
// again; once that negative set grows past a limit the Client switches itself
// off and answers ErrDisabled. Transport failures are never remembered.
package stationinfo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/emwin-ingest/internal/config"
	"github.com/couchcryptid/emwin-ingest/internal/domain"
	"github.com/couchcryptid/emwin-ingest/internal/observability"
)

// ErrDisabled is returned after the negative-result limit has been exceeded.
var ErrDisabled = domain.ErrLookupDisabled

// Options tune a Client.
type Options struct {
	// Timeout bounds each source call.
	Timeout time.Duration
	// Interval is the minimum delay between any two source calls.
	Interval time.Duration
	// NegativeLimit disables the client once more codes than this are known misses.
	NegativeLimit int
}

// Client implements domain.StationLookup over a list of Sources.
type Client struct {
	sources       []Source
	limiter       *rate.Limiter
	timeout       time.Duration
	negativeLimit int
	logger        *slog.Logger
	metrics       *observability.Metrics

	mu       sync.Mutex
	negative map[string]struct{}
	disabled bool
}

// NewClient creates a Client querying sources in order.
func NewClient(sources []Source, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	metrics.EnrichmentEnabled.Set(1)
	return &Client{
		sources:       sources,
		limiter:       rate.NewLimiter(limit, 1),
		timeout:       opts.Timeout,
		negativeLimit: opts.NegativeLimit,
		logger:        logger,
		metrics:       metrics,
		negative:      make(map[string]struct{}),
	}
}

// NewFromConfig builds the NWS and AWC sources from cfg, in that order.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Client {
	hc := &http.Client{Timeout: cfg.EnrichTimeout}
	sources := []Source{
		NewNWS(cfg.EnrichNWSURL, cfg.EnrichNWSPrefixes, cfg.EnrichUserAgent, hc),
		NewAWC(cfg.EnrichAWCURL, cfg.EnrichUserAgent, hc),
	}
	return NewClient(sources, Options{
		Timeout:       cfg.EnrichTimeout,
		Interval:      cfg.EnrichRateLimit,
		NegativeLimit: cfg.EnrichNegativeLimit,
	}, logger, metrics)
}

// LookupStation returns the first non-empty result among the sources that
// accept code. It returns domain.ErrStationNotFound for a definitive miss,
// ErrDisabled once the client has tripped, and a wrapped transport error when
// no source answered and at least one failed.
func (c *Client) LookupStation(ctx context.Context, code string) (domain.StationInfo, error) {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return domain.StationInfo{}, ErrDisabled
	}
	if _, ok := c.negative[code]; ok {
		c.mu.Unlock()
		c.metrics.EnrichmentRequests.WithLabelValues("negative_cache", "not_found").Inc()
		return domain.StationInfo{}, domain.ErrStationNotFound
	}
	c.mu.Unlock()

	var (
		merged    domain.StationInfo
		consulted int
		lastErr   error
	)
	for _, s := range c.sources {
		if !s.Accepts(code) {
			continue
		}
		consulted++

		if err := c.limiter.Wait(ctx); err != nil {
			return merged, fmt.Errorf("rate limit wait: %w", err)
		}

		info, err := c.fetch(ctx, s, code)
		switch {
		case err == nil && !info.IsEmpty():
			merged.FillMissing(info)
			c.metrics.EnrichmentRequests.WithLabelValues(s.Name(), "found").Inc()
			c.logger.Debug("station enriched", "code", code, "source", s.Name())
			return merged, nil
		case err == nil, errors.Is(err, domain.ErrStationNotFound):
			c.metrics.EnrichmentRequests.WithLabelValues(s.Name(), "not_found").Inc()
		default:
			lastErr = err
			c.metrics.EnrichmentRequests.WithLabelValues(s.Name(), "error").Inc()
			c.logger.Warn("station lookup failed, trying next source",
				"code", code,
				"source", s.Name(),
				"error", err,
			)
		}
	}

	if lastErr != nil {
		return merged, fmt.Errorf("lookup station %s: %w", code, lastErr)
	}
	if consulted > 0 {
		c.remember(code)
	}
	return merged, domain.ErrStationNotFound
}

func (c *Client) fetch(ctx context.Context, s Source, code string) (domain.StationInfo, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	info, err := s.Fetch(ctx, code)
	c.metrics.EnrichmentDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
	return info, err
}

// remember adds code to the negative set and trips the client past the limit.
func (c *Client) remember(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.negative[code] = struct{}{}
	c.metrics.EnrichmentNegatives.Set(float64(len(c.negative)))

	if c.negativeLimit > 0 && len(c.negative) > c.negativeLimit && !c.disabled {
		c.disabled = true
		c.metrics.EnrichmentEnabled.Set(0)
		c.logger.Warn("station enrichment disabled: too many unknown stations",
			"unknown", len(c.negative),
			"limit", c.negativeLimit,
		)
	}
}

// Disabled reports whether the client has tripped.
func (c *Client) Disabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disabled
}

// NegativeCount is the number of codes known to have no data.
func (c *Client) NegativeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.negative)
}
