package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/emwin-ingest/internal/domain"
	"github.com/couchcryptid/emwin-ingest/internal/observability"
)

// Catalog is the run's read-through cache of stations and products. It is
// loaded from storage once; afterwards writes go to storage and the maps
// together and storage is never re-read.
type Catalog struct {
	store       DimensionStore
	lookup      domain.StationLookup
	defaults    domain.Defaults
	maxAttempts int
	// writeTimeout bounds a dimension write that outlives the run context.
	writeTimeout time.Duration
	logger       *slog.Logger
	metrics     *observability.Metrics

	stations map[string]*domain.Station
	products map[string]*domain.Product

	// enriched holds station codes whose lookup reached a conclusion this
	// run; attempts counts transport failures for the rest.
	enriched       map[string]bool
	attempts       map[string]int
	enrichDisabled bool

	stationsCreated int
	productsCreated int
}

// NewCatalog creates an empty catalog. lookup may be nil to disable enrichment.
func NewCatalog(store DimensionStore, lookup domain.StationLookup, defaults domain.Defaults, maxAttempts int, logger *slog.Logger, metrics *observability.Metrics) *Catalog {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Catalog{
		store:       store,
		lookup:      lookup,
		defaults:    defaults,
		maxAttempts:  maxAttempts,
		writeTimeout: defaultFlushTimeout,
		logger:       logger,
		metrics:     metrics,
		stations:    make(map[string]*domain.Station),
		products:    make(map[string]*domain.Product),
		enriched:    make(map[string]bool),
		attempts:    make(map[string]int),
	}
}

// Load fills the cache from storage.
func (c *Catalog) Load(ctx context.Context) error {
	stations, err := c.store.LoadStations(ctx)
	if err != nil {
		return fmt.Errorf("load stations: %w", err)
	}
	products, err := c.store.LoadProducts(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	for i := range stations {
		c.stations[stations[i].Code] = &stations[i]
	}
	for i := range products {
		c.products[products[i].Code] = &products[i]
	}
	c.logger.Info("catalog loaded", "stations", len(stations), "products", len(products))
	return nil
}

// ResolveStation returns the station for code, creating it on first sight and
// enriching it once per run while any attribute is unknown.
func (c *Catalog) ResolveStation(ctx context.Context, code string, seenAt time.Time) (domain.Station, error) {
	cached, ok := c.stations[code]

	var candidate domain.Station
	if ok {
		candidate = *cached
	} else {
		info, _ := c.defaults.Station(code)
		candidate = domain.NewStation(code, domain.StationInfo{}, seenAt)
		candidate.FillMissing(info)
	}

	changed := c.enrich(ctx, &candidate)

	if !ok || changed {
		wctx, cancel := detachIfDone(ctx, c.writeTimeout)
		err := c.store.SaveStation(wctx, candidate)
		cancel()
		if err != nil {
			return domain.Station{}, fmt.Errorf("save station %s: %w", code, err)
		}
		c.metrics.DimensionWrites.WithLabelValues("station").Inc()
	}
	if !ok {
		c.stationsCreated++
		c.logger.Debug("station created", "code", code, "known", !candidate.IsEmpty())
	}

	candidate.Touch(seenAt)
	c.stations[code] = &candidate
	return candidate, nil
}

// ResolveProduct returns the product for code, creating it on first sight.
func (c *Catalog) ResolveProduct(ctx context.Context, code string, seenAt time.Time) (domain.Product, error) {
	if cached, ok := c.products[code]; ok {
		cached.Touch(seenAt)
		return *cached, nil
	}

	info, _ := c.defaults.Product(code)
	p := domain.NewProduct(code, domain.ProductInfo{}, seenAt)
	p.FillMissing(info)
	wctx, cancel := detachIfDone(ctx, c.writeTimeout)
	err := c.store.SaveProduct(wctx, p)
	cancel()
	if err != nil {
		return domain.Product{}, fmt.Errorf("save product %s: %w", code, err)
	}
	c.metrics.DimensionWrites.WithLabelValues("product").Inc()
	c.productsCreated++
	c.logger.Debug("product created", "code", code, "known", !p.IsEmpty())

	c.products[code] = &p
	return p, nil
}

// enrich merges an external lookup into s and reports whether s changed.
func (c *Catalog) enrich(ctx context.Context, s *domain.Station) bool {
	if c.lookup == nil || c.enrichDisabled || c.enriched[s.Code] || s.IsComplete() {
		return false
	}

	info, err := c.lookup.LookupStation(ctx, s.Code)
	switch {
	case err == nil:
		c.enriched[s.Code] = true
		return s.FillMissing(info)
	case errors.Is(err, domain.ErrStationNotFound):
		c.enriched[s.Code] = true
		return false
	case errors.Is(err, domain.ErrLookupDisabled):
		c.enrichDisabled = true
		c.logger.Warn("station enrichment disabled for the rest of the run", "code", s.Code)
		return false
	case ctx.Err() != nil:
		return false
	default:
		c.attempts[s.Code]++
		if c.attempts[s.Code] >= c.maxAttempts {
			c.enriched[s.Code] = true
		}
		c.logger.Warn("station lookup failed",
			"code", s.Code,
			"attempt", c.attempts[s.Code],
			"error", err,
		)
		return false
	}
}

// EnrichmentDisabled reports whether the lookup switched itself off during the run.
func (c *Catalog) EnrichmentDisabled() bool { return c.enrichDisabled }

// StationsCreated counts stations first seen during the run.
func (c *Catalog) StationsCreated() int { return c.stationsCreated }

// ProductsCreated counts products first seen during the run.
func (c *Catalog) ProductsCreated() int { return c.productsCreated }
