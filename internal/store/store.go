// Package store owns shoptrail's entities on top of a kv.Store: canonical
// products with their identity index and history, the site visit ledger,
// the rescan gate, per-domain site metadata and linked video reviews.
//
// There are no cross-key transactions underneath. Every write loads the
// keys it needs, mutates them in memory and hands the result to apply,
// which issues a single kv SetMany. Concurrent callers race with
// last-writer-wins on whole keys.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/elonfeng/shoptrail/internal/kv"
	"github.com/google/uuid"
)

// Defaults for Options.
const (
	DefaultHistoryCap     = 1000
	DefaultVisitCap       = 500
	DefaultReviewCap      = 200
	DefaultRescanCooldown = 72 * time.Hour
	DefaultSiteMetaMaxAge = 7 * 24 * time.Hour
)

// Options tunes a Store. Zero values take the defaults above.
type Options struct {
	HistoryCap     int
	VisitCap       int
	ReviewCap      int
	RescanCooldown time.Duration
	SiteMetaMaxAge time.Duration

	Now   func() time.Time
	NewID func() string
}

// Store is the shoptrail persistence core.
type Store struct {
	kv   kv.Store
	opts Options
}

// New wraps a kv.Store.
func New(backend kv.Store, opts Options) *Store {
	if opts.HistoryCap <= 0 {
		opts.HistoryCap = DefaultHistoryCap
	}
	if opts.VisitCap <= 0 {
		opts.VisitCap = DefaultVisitCap
	}
	if opts.ReviewCap <= 0 {
		opts.ReviewCap = DefaultReviewCap
	}
	if opts.RescanCooldown <= 0 {
		opts.RescanCooldown = DefaultRescanCooldown
	}
	if opts.SiteMetaMaxAge <= 0 {
		opts.SiteMetaMaxAge = DefaultSiteMetaMaxAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	return &Store{kv: backend, opts: opts}
}

func (s *Store) now() time.Time {
	return s.opts.Now().UTC()
}

// load decodes key into dest; a missing key leaves dest at its zero value.
func (s *Store) load(ctx context.Context, key string, dest any) error {
	if _, err := s.kv.Get(ctx, key, dest); err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return nil
}

func (s *Store) loadProducts(ctx context.Context) (map[string]*Product, error) {
	products := make(map[string]*Product)
	if err := s.load(ctx, KeyProducts, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = make(map[string]*Product)
	}
	return products, nil
}

// mutation collects the keys one logical operation rewrites.
type mutation map[string]any

// apply persists a mutation in one kv call.
func (s *Store) apply(ctx context.Context, m mutation) error {
	if err := s.kv.SetMany(ctx, m); err != nil {
		return fmt.Errorf("apply mutation: %w", err)
	}
	return nil
}

// ClearAll removes every key the store owns.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.kv.Remove(ctx, AllKeys...); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}
