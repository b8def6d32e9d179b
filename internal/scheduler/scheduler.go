// Package scheduler runs periodic review collection and ledger maintenance.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/shoptrail/internal/logger"
	"github.com/elonfeng/shoptrail/internal/store"
)

// ReviewCollector produces candidate reviews.
type ReviewCollector interface {
	Collect(ctx context.Context) ([]store.YoutubeReview, error)
}

// Linker connects a stored review to matching products.
type Linker interface {
	LinkReview(ctx context.Context, videoID string) ([]string, error)
}

// Scheduler runs periodic review collection and visit pruning.
type Scheduler struct {
	store          *store.Store
	collector      ReviewCollector
	linker         Linker
	log            *logger.Logger
	reviewInt      time.Duration
	maintenanceInt time.Duration
	retention      time.Duration
	now            func() time.Time
}

// Options configures a Scheduler. A zero Retention disables age pruning.
type Options struct {
	ReviewInterval      time.Duration
	MaintenanceInterval time.Duration
	Retention           time.Duration
	Logger              *logger.Logger
	Now                 func() time.Time
}

// New creates a new scheduler. collector may be nil to skip review runs.
func New(s *store.Store, collector ReviewCollector, linker Linker, opts Options) *Scheduler {
	if opts.ReviewInterval == 0 {
		opts.ReviewInterval = 6 * time.Hour
	}
	if opts.MaintenanceInterval == 0 {
		opts.MaintenanceInterval = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		store:          s,
		collector:      collector,
		linker:         linker,
		log:            logger.OrNop(opts.Logger),
		reviewInt:      opts.ReviewInterval,
		maintenanceInt: opts.MaintenanceInterval,
		retention:      opts.Retention,
		now:            opts.Now,
	}
}

// Run starts both loops, running each once immediately. Blocks until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler running", "reviews_every", s.reviewInt.String(), "maintenance_every", s.maintenanceInt.String())

	g, ctx := errgroup.WithContext(ctx)
	if s.collector != nil {
		g.Go(func() error {
			return s.loop(ctx, s.reviewInt, func(ctx context.Context) {
				if _, _, err := s.CollectReviews(ctx); err != nil {
					s.log.Error("review collection failed", "error", err)
				}
			})
		})
	}
	g.Go(func() error {
		return s.loop(ctx, s.maintenanceInt, func(ctx context.Context) {
			if _, err := s.Maintain(ctx); err != nil {
				s.log.Error("maintenance failed", "error", err)
			}
		})
	})

	err := g.Wait()
	s.log.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, job func(context.Context)) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	job(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			job(ctx)
		}
	}
}

// CollectReviews fetches reviews, saves each one and links it to
// products. It returns how many reviews were saved and how many products
// they touched.
func (s *Scheduler) CollectReviews(ctx context.Context) (saved, linked int, err error) {
	if s.collector == nil {
		return 0, 0, nil
	}

	reviews, err := s.collector.Collect(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("collect reviews: %w", err)
	}

	for _, r := range reviews {
		if _, err := s.store.SaveReview(ctx, r); err != nil {
			return saved, linked, fmt.Errorf("save review %s: %w", r.VideoID, err)
		}
		saved++

		if s.linker == nil {
			continue
		}
		ids, err := s.linker.LinkReview(ctx, r.VideoID)
		if err != nil {
			return saved, linked, fmt.Errorf("link review %s: %w", r.VideoID, err)
		}
		linked += len(ids)
	}

	s.log.Info("reviews collected", "saved", saved, "linked_products", linked)
	return saved, linked, nil
}

// Maintain prunes visits older than the retention window.
func (s *Scheduler) Maintain(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	pruned, err := s.store.PruneVisitsOlderThan(ctx, s.now().Add(-s.retention))
	if err != nil {
		return 0, fmt.Errorf("prune visits: %w", err)
	}
	if pruned > 0 {
		s.log.Info("visits pruned", "count", pruned)
	}
	return pruned, nil
}
