// Package linker attaches stored video reviews to the canonical products
// they talk about.
package linker

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonfeng/shoptrail/internal/store"
	"github.com/elonfeng/shoptrail/pkg/match"
)

// ReviewLinker matches reviews to products by name.
type ReviewLinker struct {
	store   *store.Store
	matcher match.Matcher
}

// New creates a ReviewLinker. A nil matcher uses match.Words.
func New(s *store.Store, m match.Matcher) *ReviewLinker {
	if m == nil {
		m = match.Words
	}
	return &ReviewLinker{store: s, matcher: m}
}

// LinkReview links the review to every product whose canonical name
// matches one of the review's candidate names. Each product is linked at
// most once per call. It returns the ids of all matched products, whether
// or not they were already linked. Unknown video ids are an error; a
// review with no usable names links nothing.
func (l *ReviewLinker) LinkReview(ctx context.Context, videoID string) ([]string, error) {
	ids, _, err := l.linkReview(ctx, videoID)
	return ids, err
}

func (l *ReviewLinker) linkReview(ctx context.Context, videoID string) ([]string, int, error) {
	review, err := l.store.GetReview(ctx, videoID)
	if err != nil {
		return nil, 0, err
	}

	names := review.CandidateNames()
	if len(names) == 0 {
		return nil, 0, nil
	}

	products, err := l.store.GetAllProducts(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("link review %s: %w", videoID, err)
	}

	var matched []string
	for _, p := range products {
		for _, name := range names {
			if l.matcher.Match(p.CanonicalName, name) {
				matched = append(matched, p.ID)
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil, 0, nil
	}

	created, err := l.store.AddReviewLinks(ctx, videoID, matched)
	if err != nil {
		return nil, 0, fmt.Errorf("link review %s: %w", videoID, err)
	}
	return matched, created, nil
}

// LinkAllExisting runs LinkReview over every stored review and returns the
// number of links that were new on this pass. Reviews that vanish midway
// are skipped.
func (l *ReviewLinker) LinkAllExisting(ctx context.Context) (int, error) {
	reviews, err := l.store.GetReviews(ctx)
	if err != nil {
		return 0, fmt.Errorf("list reviews: %w", err)
	}

	total := 0
	for _, r := range reviews {
		_, created, err := l.linkReview(ctx, r.VideoID)
		if errors.Is(err, store.ErrReviewNotFound) {
			continue
		}
		if err != nil {
			return total, err
		}
		total += created
	}
	return total, nil
}
