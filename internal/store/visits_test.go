package store

import (
	"context"
	"testing"
	"time"
)

func TestShouldScanCooldownBoundary(t *testing.T) {
	s, _, clk := newTestStore(t, Options{})
	ctx := context.Background()
	const url = "https://shop.test/item/1"

	ok, err := s.ShouldScan(ctx, url)
	if err != nil || !ok {
		t.Fatalf("unvisited url: ShouldScan = %v, %v", ok, err)
	}

	if _, err := s.StorePageObservation(ctx, &Observation{URL: url, Timestamp: t0}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"immediately after", t0, false},
		{"one hour later", t0.Add(time.Hour), false},
		{"72h minus 1ms", t0.Add(72*time.Hour - time.Millisecond), false},
		{"exactly 72h", t0.Add(72 * time.Hour), true},
		{"a week later", t0.Add(7 * 24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk.Set(tt.now)
			got, err := s.ShouldScan(ctx, url)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ShouldScan at %v = %v, want %v", tt.now.Sub(t0), got, tt.want)
			}
		})
	}

	// Other URLs are unaffected; exact match only.
	clk.Set(t0)
	if ok, _ := s.ShouldScan(ctx, url+"?ref=x"); !ok {
		t.Error("different URL should be scannable")
	}
}

func TestShouldScanUsesMostRecentVisit(t *testing.T) {
	s, _, clk := newTestStore(t, Options{RescanCooldown: time.Hour})
	ctx := context.Background()
	const url = "https://a.test/"

	_, _ = s.StorePageObservation(ctx, &Observation{URL: url, Timestamp: t0.Add(-3 * time.Hour)})
	_, _ = s.StorePageObservation(ctx, &Observation{URL: url, Timestamp: t0.Add(-30 * time.Minute)})

	clk.Set(t0)
	if ok, _ := s.ShouldScan(ctx, url); ok {
		t.Error("recent visit should gate the URL")
	}
}

func TestVisitQueries(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	obs := []Observation{
		{URL: "https://shop.test/1", SiteCategory: "shopping", Timestamp: t0},
		{URL: "https://news.test/1", SiteCategory: "news", Timestamp: t0.Add(time.Minute)},
		{URL: "https://shop.test/2", SiteCategory: "Shopping", Timestamp: t0.Add(2 * time.Minute)},
	}
	for i := range obs {
		if _, err := s.StorePageObservation(ctx, &obs[i]); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.GetRecentVisits(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].URL != "https://shop.test/2" || recent[1].URL != "https://news.test/1" {
		t.Errorf("recent = %+v", recent)
	}

	shopping, err := s.GetVisitsByCategory(ctx, "shopping")
	if err != nil {
		t.Fatal(err)
	}
	if len(shopping) != 2 || shopping[0].URL != "https://shop.test/2" {
		t.Errorf("shopping = %+v", shopping)
	}
}

func TestPruneVisitsOlderThan(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		obs := &Observation{URL: "https://a.test/", Timestamp: t0.Add(time.Duration(i) * 24 * time.Hour)}
		if _, err := s.StorePageObservation(ctx, obs); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.PruneVisitsOlderThan(ctx, t0.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	visits, _ := s.GetRecentVisits(ctx, 0)
	if len(visits) != 2 {
		t.Errorf("visits left = %d, want 2", len(visits))
	}

	removed, _ = s.PruneVisitsOlderThan(ctx, t0)
	if removed != 0 {
		t.Errorf("second prune removed %d", removed)
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.Amazon.com/dp/B0":   "amazon.com",
		"http://shop.example.co.uk:8080": "shop.example.co.uk",
		"bestbuy.com/site/x":             "bestbuy.com",
		"":                               "",
	}
	for in, want := range tests {
		if got := NormalizeDomain(in); got != want {
			t.Errorf("NormalizeDomain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSiteMetaCache(t *testing.T) {
	s, _, clk := newTestStore(t, Options{SiteMetaMaxAge: 24 * time.Hour})
	ctx := context.Background()

	if _, found, _, err := s.GetSiteMeta(ctx, "amazon.com"); err != nil || found {
		t.Fatalf("empty cache: found=%v err=%v", found, err)
	}

	saved, err := s.SaveSiteMeta(ctx, SiteMeta{Domain: "www.Amazon.com", Category: "shopping", Confidence: 100, Source: SiteSourceKnown})
	if err != nil {
		t.Fatal(err)
	}
	if saved.Domain != "amazon.com" || !saved.UpdatedAt.Equal(t0) {
		t.Errorf("saved = %+v", saved)
	}

	meta, found, fresh, _ := s.GetSiteMeta(ctx, "https://amazon.com/x")
	if !found || !fresh || meta.Category != "shopping" {
		t.Errorf("lookup = %+v found=%v fresh=%v", meta, found, fresh)
	}

	clk.Set(t0.Add(24 * time.Hour))
	if _, found, fresh, _ := s.GetSiteMeta(ctx, "amazon.com"); !found || fresh {
		t.Errorf("expired entry: found=%v fresh=%v", found, fresh)
	}

	ok, err := s.InvalidateSiteMeta(ctx, "amazon.com")
	if err != nil || !ok {
		t.Fatalf("InvalidateSiteMeta = %v, %v", ok, err)
	}
	if ok, _ := s.InvalidateSiteMeta(ctx, "amazon.com"); ok {
		t.Error("second invalidate should report false")
	}
	metas, _ := s.GetSiteMetas(ctx)
	if len(metas) != 0 {
		t.Errorf("metas = %+v", metas)
	}
}
