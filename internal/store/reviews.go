package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ErrReviewNotFound is returned when a video id has no stored review.
var ErrReviewNotFound = errors.New("review not found")

func (s *Store) loadReviews(ctx context.Context) ([]YoutubeReview, error) {
	var reviews []YoutubeReview
	if err := s.load(ctx, KeyYoutubeReviews, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// SaveReview upserts a review by video id. The saved review moves to the
// front of the newest-first list, which is capped at ReviewCap. Links
// already recorded for the video survive a re-ingest.
func (s *Store) SaveReview(ctx context.Context, r YoutubeReview) (YoutubeReview, error) {
	if r.VideoID == "" {
		return YoutubeReview{}, fmt.Errorf("save review: empty video id")
	}

	reviews, err := s.loadReviews(ctx)
	if err != nil {
		return YoutubeReview{}, err
	}

	if i := indexReview(reviews, r.VideoID); i >= 0 {
		if len(r.LinkedProductIDs) == 0 {
			r.LinkedProductIDs = reviews[i].LinkedProductIDs
		}
		reviews = slices.Delete(reviews, i, i+1)
	}
	r.SavedAt = s.now()

	reviews = append([]YoutubeReview{r}, reviews...)
	if len(reviews) > s.opts.ReviewCap {
		reviews = reviews[:s.opts.ReviewCap]
	}

	if err := s.apply(ctx, mutation{KeyYoutubeReviews: reviews}); err != nil {
		return YoutubeReview{}, err
	}
	return r, nil
}

// GetReviews returns every stored review, newest first.
func (s *Store) GetReviews(ctx context.Context) ([]YoutubeReview, error) {
	reviews, err := s.loadReviews(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(reviews, func(i, j int) bool { return reviews[i].SavedAt.After(reviews[j].SavedAt) })
	return reviews, nil
}

// GetReview returns the review for a video id or ErrReviewNotFound.
func (s *Store) GetReview(ctx context.Context, videoID string) (*YoutubeReview, error) {
	reviews, err := s.loadReviews(ctx)
	if err != nil {
		return nil, err
	}
	i := indexReview(reviews, videoID)
	if i < 0 {
		return nil, fmt.Errorf("get review %s: %w", videoID, ErrReviewNotFound)
	}
	return &reviews[i], nil
}

// GetLinkedReviews resolves a product's linked review ids. Ids whose
// review has since been pruned are skipped.
func (s *Store) GetLinkedReviews(ctx context.Context, productID string) ([]YoutubeReview, error) {
	p, ok, err := s.GetProduct(ctx, productID)
	if err != nil || !ok {
		return nil, err
	}
	reviews, err := s.loadReviews(ctx)
	if err != nil {
		return nil, err
	}

	var out []YoutubeReview
	for _, id := range p.LinkedReviewIDs {
		if i := indexReview(reviews, id); i >= 0 {
			out = append(out, reviews[i])
		}
	}
	return out, nil
}

// AddReviewLinks links a review to each product id on both sides. Unknown
// product ids are ignored. It returns how many product links were new.
func (s *Store) AddReviewLinks(ctx context.Context, videoID string, productIDs []string) (int, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	products, err := s.loadProducts(ctx)
	if err != nil {
		return 0, err
	}
	reviews, err := s.loadReviews(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, pid := range productIDs {
		p, ok := products[pid]
		if !ok {
			continue
		}
		if !slices.Contains(p.LinkedReviewIDs, videoID) {
			p.LinkedReviewIDs = append(p.LinkedReviewIDs, videoID)
			created++
		}
	}

	m := mutation{KeyProducts: products}
	if i := indexReview(reviews, videoID); i >= 0 {
		r := &reviews[i]
		for _, pid := range productIDs {
			if _, ok := products[pid]; ok && !slices.Contains(r.LinkedProductIDs, pid) {
				r.LinkedProductIDs = append(r.LinkedProductIDs, pid)
			}
		}
		m[KeyYoutubeReviews] = reviews
	}

	if err := s.apply(ctx, m); err != nil {
		return 0, err
	}
	return created, nil
}

func indexReview(reviews []YoutubeReview, videoID string) int {
	return slices.IndexFunc(reviews, func(r YoutubeReview) bool { return r.VideoID == videoID })
}
