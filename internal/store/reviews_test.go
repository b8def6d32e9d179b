package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSaveReviewUpsertAndOrder(t *testing.T) {
	s, _, clk := newTestStore(t, Options{ReviewCap: 3})
	ctx := context.Background()

	for i, id := range []string{"v1", "v2", "v3"} {
		clk.Set(t0.Add(time.Duration(i) * time.Minute))
		if _, err := s.SaveReview(ctx, YoutubeReview{VideoID: id, VideoTitle: id}); err != nil {
			t.Fatal(err)
		}
	}

	clk.Set(t0.Add(10 * time.Minute))
	if _, err := s.SaveReview(ctx, YoutubeReview{VideoID: "v1", VideoTitle: "v1 updated"}); err != nil {
		t.Fatal(err)
	}

	reviews, err := s.GetReviews(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(reviews) != 3 {
		t.Fatalf("reviews = %d, want 3 (no duplicate)", len(reviews))
	}
	if reviews[0].VideoID != "v1" || reviews[0].VideoTitle != "v1 updated" {
		t.Errorf("front review = %+v", reviews[0])
	}

	clk.Set(t0.Add(20 * time.Minute))
	_, _ = s.SaveReview(ctx, YoutubeReview{VideoID: "v4"})
	reviews, _ = s.GetReviews(ctx)
	if len(reviews) != 3 || reviews[0].VideoID != "v4" {
		t.Errorf("after cap: %v", reviewIDs(reviews))
	}
	if _, err := s.GetReview(ctx, "v2"); !errors.Is(err, ErrReviewNotFound) {
		t.Errorf("oldest review should be pruned, got %v", err)
	}

	if _, err := s.SaveReview(ctx, YoutubeReview{}); err == nil {
		t.Error("empty video id should be rejected")
	}
}

func TestAddReviewLinks(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	a, _ := s.StorePageObservation(ctx, productObs("https://a.test/1", "Phone X", "", t0))
	b, _ := s.StorePageObservation(ctx, productObs("https://a.test/2", "Phone Y", "", t0))
	if _, err := s.SaveReview(ctx, YoutubeReview{VideoID: "vid", ReviewType: ReviewVersus}); err != nil {
		t.Fatal(err)
	}

	created, err := s.AddReviewLinks(ctx, "vid", []string{a.ProductID, b.ProductID, "ghost"})
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Errorf("created = %d, want 2", created)
	}

	created, _ = s.AddReviewLinks(ctx, "vid", []string{a.ProductID})
	if created != 0 {
		t.Errorf("relink created = %d, want 0", created)
	}

	p, _, _ := s.GetProduct(ctx, a.ProductID)
	if len(p.LinkedReviewIDs) != 1 || p.LinkedReviewIDs[0] != "vid" {
		t.Errorf("LinkedReviewIDs = %v", p.LinkedReviewIDs)
	}
	r, _ := s.GetReview(ctx, "vid")
	if len(r.LinkedProductIDs) != 2 {
		t.Errorf("LinkedProductIDs = %v", r.LinkedProductIDs)
	}

	linked, err := s.GetLinkedReviews(ctx, b.ProductID)
	if err != nil || len(linked) != 1 || linked[0].VideoID != "vid" {
		t.Errorf("GetLinkedReviews = %+v, %v", linked, err)
	}
	if linked, _ := s.GetLinkedReviews(ctx, "ghost"); linked != nil {
		t.Errorf("unknown product linked reviews = %v", linked)
	}

	// Re-ingesting the video keeps its links.
	_, _ = s.SaveReview(ctx, YoutubeReview{VideoID: "vid", VideoTitle: "again"})
	r, _ = s.GetReview(ctx, "vid")
	if len(r.LinkedProductIDs) != 2 {
		t.Errorf("links lost on re-ingest: %v", r.LinkedProductIDs)
	}
}

func TestCandidateNames(t *testing.T) {
	tests := []struct {
		name string
		r    YoutubeReview
		want []string
	}{
		{"single", YoutubeReview{ReviewType: ReviewSingle, CanonicalProductName: "Pixel 9"}, []string{"Pixel 9"}},
		{"versus", YoutubeReview{ReviewType: ReviewVersus, Products: []ReviewProduct{{CanonicalProductName: "A"}, {}, {CanonicalProductName: "B"}}}, []string{"A", "B"}},
		{"roundup falls back", YoutubeReview{ReviewType: ReviewRoundup, CanonicalProductName: "Best earbuds"}, []string{"Best earbuds"}},
		{"legacy", YoutubeReview{VideoTitle: "something"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.r.CandidateNames()
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("CandidateNames() = %v, want %v", got, tt.want)
			}
		})
	}
}

func reviewIDs(reviews []YoutubeReview) []string {
	ids := make([]string, len(reviews))
	for i, r := range reviews {
		ids[i] = r.VideoID
	}
	return ids
}
