package store

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func productObs(url, title, price string, ts time.Time) *Observation {
	return &Observation{
		URL:          url,
		Title:        title,
		Timestamp:    ts,
		IsProduct:    true,
		ProductPrice: price,
	}
}

func TestStoreNonProductObservation(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	res, err := s.StorePageObservation(ctx, &Observation{
		URL:          "https://www.News.test/article",
		Title:        "Some article",
		Timestamp:    t0,
		SiteCategory: "news",
		Tags:         []string{"tech"},
	})
	if err != nil {
		t.Fatalf("StorePageObservation: %v", err)
	}
	if res.ProductID != "" || res.Created {
		t.Errorf("non-product observation produced product: %+v", res)
	}
	if res.VisitID == "" {
		t.Error("expected a visit id")
	}

	products, _ := s.GetAllProducts(ctx)
	if len(products) != 0 {
		t.Errorf("products = %d, want 0", len(products))
	}
	st, _ := s.Stats(ctx)
	if st.URLIndex != 0 || st.CanonicalIndex != 0 || st.HistoryEntries != 0 {
		t.Errorf("index or history touched: %+v", st)
	}

	visits, _ := s.GetRecentVisits(ctx, 0)
	if len(visits) != 1 {
		t.Fatalf("visits = %d, want 1", len(visits))
	}
	v := visits[0]
	if v.IsProduct || v.ProductID != "" || v.Domain != "news.test" || v.SiteCategory != "news" {
		t.Errorf("visit = %+v", v)
	}
}

func TestStoreMergeCountsAndFirstSeen(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	const n = 5
	var productID string
	for i := 0; i < n; i++ {
		res, err := s.StorePageObservation(ctx, productObs("https://shop.test/u1", "Widget", "", t0.Add(time.Duration(i)*time.Hour)))
		if err != nil {
			t.Fatalf("observation %d: %v", i, err)
		}
		if i == 0 {
			if !res.Created {
				t.Error("first observation should create")
			}
			productID = res.ProductID
		} else if res.Created || res.ProductID != productID {
			t.Errorf("observation %d resolved to %+v", i, res)
		}
	}

	p, ok, err := s.GetProduct(ctx, productID)
	if err != nil || !ok {
		t.Fatalf("GetProduct: ok=%v err=%v", ok, err)
	}
	if p.VisitCount != n {
		t.Errorf("VisitCount = %d, want %d", p.VisitCount, n)
	}
	if !p.FirstSeen.Equal(t0) {
		t.Errorf("FirstSeen = %v, want %v", p.FirstSeen, t0)
	}
	if want := t0.Add((n - 1) * time.Hour); !p.LastSeen.Equal(want) {
		t.Errorf("LastSeen = %v, want %v", p.LastSeen, want)
	}

	history, _ := s.GetProductHistory(ctx, productID)
	if len(history) != n {
		t.Errorf("history = %d, want %d", len(history), n)
	}
	if !history[0].Timestamp.After(history[len(history)-1].Timestamp) {
		t.Error("history should be newest first")
	}
}

func TestStoreOutOfOrderTimestampKeepsLastSeen(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	res, _ := s.StorePageObservation(ctx, productObs("https://shop.test/u1", "Widget", "", t0))
	_, _ = s.StorePageObservation(ctx, productObs("https://shop.test/u1", "Widget", "", t0.Add(-time.Hour)))

	p, _, _ := s.GetProduct(ctx, res.ProductID)
	if !p.LastSeen.Equal(t0) || p.FirstSeen.After(p.LastSeen) {
		t.Errorf("first=%v last=%v", p.FirstSeen, p.LastSeen)
	}
}

func TestStoreLowestPrice(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	seq := []struct {
		url, price string
	}{
		{"https://a.test/x", "$120.00"},
		{"https://a.test/x", "n/a"},
		{"https://a.test/x", "USD 99.50"},
		{"https://a.test/x", ""},
		{"https://a.test/x", "$110"},
		{"https://a.test/x", "99.50"},
	}

	var res StoreResult
	var err error
	for i, step := range seq {
		res, err = s.StorePageObservation(ctx, productObs(step.url, "Gadget", step.price, t0.Add(time.Duration(i)*time.Minute)))
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if i == 2 && !res.PriceDropped() {
			t.Errorf("step 2 should report a price drop: %+v", res)
		}
		if i == 5 && res.PriceDropped() {
			t.Errorf("equal price should not report a drop: %+v", res)
		}
	}

	p, _, _ := s.GetProduct(ctx, res.ProductID)
	if p.LowestPrice == nil || *p.LowestPrice != 99.5 {
		t.Fatalf("LowestPrice = %v, want 99.5", p.LowestPrice)
	}
	if p.Price != "99.50" {
		t.Errorf("Price = %q, want last supplied value", p.Price)
	}
}

func TestStoreLowestPriceURLTieKeepsEarliest(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	res, _ := s.StorePageObservation(ctx, productObs("https://a.test/first", "Gadget", "$50", t0))
	// Different URL, same title: resolved via canonical index.
	_, _ = s.StorePageObservation(ctx, productObs("https://b.test/second", "gadget", "$50", t0.Add(time.Minute)))
	_, _ = s.StorePageObservation(ctx, productObs("https://c.test/third", "Gadget", "$70", t0.Add(2*time.Minute)))

	p, _, _ := s.GetProduct(ctx, res.ProductID)
	if p.VisitCount != 3 {
		t.Errorf("VisitCount = %d, want 3", p.VisitCount)
	}
	if p.LowestPriceURL != "https://a.test/first" {
		t.Errorf("LowestPriceURL = %q, want first URL", p.LowestPriceURL)
	}
	if p.URL != "https://c.test/third" {
		t.Errorf("URL = %q, want most recent", p.URL)
	}
}

func TestStoreSparseMerge(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	first := &Observation{
		URL:              "https://a.test/x",
		Title:            "Camera",
		Timestamp:        t0,
		IsProduct:        true,
		ProductPrice:     "$500",
		ProductDiscount:  "10%",
		ProductCondition: "new",
		ProductCategory:  "electronics",
		ProductSummary:   "A camera",
		ProductPros:      []string{"sharp"},
		ProductCons:      []string{"heavy"},
		Images:           []string{"", "https://img.test/1.jpg"},
	}
	res, err := s.StorePageObservation(ctx, first)
	if err != nil {
		t.Fatal(err)
	}

	second := &Observation{
		URL:            "https://a.test/x",
		Title:          "Camera Mk II",
		Timestamp:      t0.Add(time.Hour),
		IsProduct:      true,
		ProductSummary: "An updated camera",
	}
	if _, err := s.StorePageObservation(ctx, second); err != nil {
		t.Fatal(err)
	}

	p, _, _ := s.GetProduct(ctx, res.ProductID)
	if p.Summary != "An updated camera" || p.Title != "Camera Mk II" || p.CanonicalName != "Camera Mk II" {
		t.Errorf("overwrite fields not applied: %+v", p)
	}
	if p.Price != "$500" || p.Discount != "10%" || p.Condition != "new" || p.Category != "electronics" {
		t.Errorf("absent fields were cleared: %+v", p)
	}
	if len(p.Pros) != 1 || len(p.Cons) != 1 || p.Image != "https://img.test/1.jpg" {
		t.Errorf("list/image fields = pros %v cons %v image %q", p.Pros, p.Cons, p.Image)
	}

	// Both names now resolve to the product; the old one is a stale key.
	for _, name := range []string{"Camera", "camera mk ii"} {
		got, ok, _ := s.ResolveProduct(ctx, "", name)
		if !ok || got.ID != res.ProductID {
			t.Errorf("ResolveProduct(%q) = %v, %v", name, got, ok)
		}
	}
}

func TestStoreDanglingIndexCreatesProduct(t *testing.T) {
	s, backend, _ := newTestStore(t, Options{})
	ctx := context.Background()

	if err := backend.Set(ctx, KeyURLToProduct, map[string]string{"https://a.test/x": "ghost"}); err != nil {
		t.Fatal(err)
	}
	res, err := s.StorePageObservation(ctx, productObs("https://a.test/x", "Thing", "", t0))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Created || res.ProductID == "ghost" {
		t.Errorf("dangling index entry should not resolve: %+v", res)
	}
}

func TestStoreHistoryCap(t *testing.T) {
	s, backend, _ := newTestStore(t, Options{})
	ctx := context.Background()

	seed := make([]ProductHistory, DefaultHistoryCap)
	for i := range seed {
		seed[i] = ProductHistory{
			ID:        fmt.Sprintf("h-%04d", i),
			ProductID: "old",
			Timestamp: t0.Add(-time.Duration(DefaultHistoryCap-i) * time.Minute),
		}
	}
	if err := backend.Set(ctx, KeyProductHistory, seed); err != nil {
		t.Fatal(err)
	}

	res, err := s.StorePageObservation(ctx, productObs("https://a.test/new", "New", "", t0))
	if err != nil {
		t.Fatal(err)
	}

	var history []ProductHistory
	if _, err := backend.Get(ctx, KeyProductHistory, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != DefaultHistoryCap {
		t.Fatalf("history len = %d, want %d", len(history), DefaultHistoryCap)
	}
	if history[0].ProductID != res.ProductID {
		t.Errorf("newest entry = %+v, want the appended one", history[0])
	}
	if history[1].ID != fmt.Sprintf("h-%04d", DefaultHistoryCap-1) {
		t.Errorf("second entry = %s", history[1].ID)
	}
	if history[len(history)-1].ID != "h-0001" {
		t.Errorf("oldest kept = %s, want h-0001", history[len(history)-1].ID)
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.After(history[i-1].Timestamp) {
			t.Fatalf("history not newest-first at %d", i)
		}
	}
}

func TestStoreVisitCap(t *testing.T) {
	s, _, _ := newTestStore(t, Options{VisitCap: 3})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		obs := &Observation{URL: fmt.Sprintf("https://a.test/%d", i), Timestamp: t0.Add(time.Duration(i) * time.Second)}
		if _, err := s.StorePageObservation(ctx, obs); err != nil {
			t.Fatal(err)
		}
	}

	visits, _ := s.GetRecentVisits(ctx, 0)
	if len(visits) != 3 {
		t.Fatalf("visits = %d, want 3", len(visits))
	}
	if visits[0].URL != "https://a.test/4" || visits[2].URL != "https://a.test/2" {
		t.Errorf("kept %s..%s", visits[0].URL, visits[2].URL)
	}
}

func TestUpdateFields(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	ok, err := s.UpdateFields(ctx, "missing", ProductUpdate{})
	if err != nil || ok {
		t.Fatalf("UpdateFields(missing) = %v, %v; want false, nil", ok, err)
	}
	if products, _ := s.GetAllProducts(ctx); len(products) != 0 {
		t.Error("UpdateFields must not create products")
	}

	res, _ := s.StorePageObservation(ctx, productObs("https://a.test/x", "Lamp", "$40", t0))

	name, summary, price := "Desk Lamp", "Bright", "$30"
	ok, err = s.UpdateFields(ctx, res.ProductID, ProductUpdate{
		CanonicalName: &name,
		Summary:       &summary,
		Price:         &price,
	})
	if err != nil || !ok {
		t.Fatalf("UpdateFields = %v, %v", ok, err)
	}

	p, _, _ := s.GetProduct(ctx, res.ProductID)
	if p.CanonicalName != "Desk Lamp" || p.Summary != "Bright" || p.Title != "Lamp" {
		t.Errorf("product = %+v", p)
	}
	if p.LowestPrice == nil || *p.LowestPrice != 30 {
		t.Errorf("LowestPrice = %v, want 30", p.LowestPrice)
	}
	if got, ok, _ := s.ResolveProduct(ctx, "", "desk lamp"); !ok || got.ID != res.ProductID {
		t.Error("canonical index not updated by UpdateFields")
	}
}

func TestGetAllProductsOrder(t *testing.T) {
	s, _, _ := newTestStore(t, Options{})
	ctx := context.Background()

	_, _ = s.StorePageObservation(ctx, productObs("https://a.test/old", "Old", "", t0))
	_, _ = s.StorePageObservation(ctx, productObs("https://a.test/new", "New", "", t0.Add(time.Hour)))

	products, err := s.GetAllProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 || products[0].Title != "New" {
		t.Errorf("products = %+v", products)
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,299.99", 1299.99, true},
		{"€ 45", 45, true},
		{"99.", 99, true},
		{"", 0, false},
		{"free", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParsePrice(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParsePrice(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
