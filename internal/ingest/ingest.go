// Package ingest runs an observation through categorization, storage and
// price-drop alerting.
package ingest

import (
	"context"
	"fmt"

	"github.com/elonfeng/shoptrail/internal/logger"
	"github.com/elonfeng/shoptrail/internal/store"
	"github.com/elonfeng/shoptrail/pkg/alert"
)

// Categorizer resolves the site category for a page.
type Categorizer interface {
	Categorize(ctx context.Context, rawURL, title string) (store.SiteMeta, error)
}

// Result is the outcome of one Ingest call.
type Result struct {
	store.StoreResult
	Site    store.SiteMeta `json:"site"`
	Alerted bool           `json:"alerted"`
}

// Pipeline wires the store to its collaborators.
type Pipeline struct {
	store          *store.Store
	categorizer    Categorizer
	alerts         *alert.Manager
	minDropPercent float64
	log            *logger.Logger
}

// Options configures a Pipeline. Categorizer and Alerts may be nil.
type Options struct {
	Categorizer    Categorizer
	Alerts         *alert.Manager
	MinDropPercent float64
	Logger         *logger.Logger
}

// New creates a Pipeline.
func New(s *store.Store, opts Options) *Pipeline {
	return &Pipeline{
		store:          s,
		categorizer:    opts.Categorizer,
		alerts:         opts.Alerts,
		minDropPercent: opts.MinDropPercent,
		log:            logger.OrNop(opts.Logger),
	}
}

// Ingest stores obs. A missing site category is filled in first;
// categorization and alert delivery never fail the call.
func (p *Pipeline) Ingest(ctx context.Context, obs store.Observation) (*Result, error) {
	res := &Result{}

	if obs.SiteCategory == "" && p.categorizer != nil {
		meta, err := p.categorizer.Categorize(ctx, obs.URL, obs.Title)
		if err != nil {
			p.log.Warn("categorize failed", "url", obs.URL, "error", err)
		} else {
			res.Site = meta
			obs.SiteCategory = meta.Category
		}
	}

	stored, err := p.store.StorePageObservation(ctx, &obs)
	if err != nil {
		return nil, fmt.Errorf("store observation %s: %w", obs.URL, err)
	}
	res.StoreResult = stored

	if stored.PriceDropped() && p.alerts.HasNotifiers() {
		res.Alerted = p.alertDrop(ctx, stored)
	}

	p.log.Debug("observation ingested",
		"url", obs.URL,
		"product_id", stored.ProductID,
		"created", stored.Created,
		"category", obs.SiteCategory,
	)
	return res, nil
}

func (p *Pipeline) alertDrop(ctx context.Context, stored store.StoreResult) bool {
	drop := alert.DropPercent(*stored.PreviousLowest, *stored.LowestPrice)
	if drop < p.minDropPercent {
		return false
	}

	product, found, err := p.store.GetProduct(ctx, stored.ProductID)
	if err != nil || !found {
		p.log.Warn("load product for alert", "product_id", stored.ProductID, "error", err)
		return false
	}

	url := product.LowestPriceURL
	if url == "" {
		url = product.URL
	}
	n := alert.PriceDrop(product.ID, product.CanonicalName, url, *stored.PreviousLowest, *stored.LowestPrice)
	if reviews, err := p.store.GetLinkedReviews(ctx, product.ID); err == nil {
		for _, r := range reviews {
			n.Reviews = append(n.Reviews, r.VideoTitle+" "+r.URL)
		}
	}

	if err := p.alerts.Broadcast(ctx, n); err != nil {
		p.log.Error("price drop alert failed", "product_id", product.ID, "error", err)
		return false
	}
	p.log.Info("price drop alerted", "product_id", product.ID, "drop_percent", drop)
	return true
}
