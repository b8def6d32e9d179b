package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/elonfeng/shoptrail/internal/kv"
	"github.com/elonfeng/shoptrail/internal/store"
	"github.com/elonfeng/shoptrail/pkg/alert"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	backend, err := kv.NewSQLite(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	return store.New(backend, store.Options{Now: func() time.Time { return t0 }})
}

type fakeCategorizer struct {
	meta  store.SiteMeta
	err   error
	calls int
}

func (f *fakeCategorizer) Categorize(context.Context, string, string) (store.SiteMeta, error) {
	f.calls++
	return f.meta, f.err
}

type recorder struct {
	mu  sync.Mutex
	got []alert.Notification
	srv *httptest.Server
}

func newRecorder(t *testing.T) *recorder {
	r := &recorder{}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var n alert.Notification
		json.NewDecoder(req.Body).Decode(&n)
		r.mu.Lock()
		r.got = append(r.got, n)
		r.mu.Unlock()
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func productObs(url, price string, at time.Time) store.Observation {
	return store.Observation{
		URL:          url,
		Title:        "Acme Kettle",
		Timestamp:    at,
		IsProduct:    true,
		ProductPrice: price,
	}
}

func TestIngestFillsCategory(t *testing.T) {
	s := newTestStore(t)
	cat := &fakeCategorizer{meta: store.SiteMeta{Domain: "shop.example", Category: "shopping", Confidence: 80, Source: store.SiteSourceAI}}
	p := New(s, Options{Categorizer: cat})

	res, err := p.Ingest(context.Background(), productObs("https://shop.example/kettle", "$40", t0))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Created || res.Site.Category != "shopping" {
		t.Errorf("result = %+v", res)
	}

	visits, _ := s.GetVisitsByCategory(context.Background(), "shopping")
	if len(visits) != 1 {
		t.Errorf("got %d shopping visits, want 1", len(visits))
	}

	obs := productObs("https://shop.example/kettle", "$40", t0.Add(time.Hour))
	obs.SiteCategory = "travel"
	if _, err := p.Ingest(context.Background(), obs); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if cat.calls != 1 {
		t.Errorf("categorizer called %d times, want 1", cat.calls)
	}
}

func TestIngestCategorizeErrorIsNotFatal(t *testing.T) {
	s := newTestStore(t)
	p := New(s, Options{Categorizer: &fakeCategorizer{err: errors.New("cache down")}})

	res, err := p.Ingest(context.Background(), productObs("https://shop.example/kettle", "", t0))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.ProductID == "" {
		t.Error("product not stored")
	}
}

func TestIngestPriceDropAlerts(t *testing.T) {
	s := newTestStore(t)
	rec := newRecorder(t)
	p := New(s, Options{
		Alerts:         alert.NewManager([]alert.Notifier{alert.NewWebhook(rec.srv.URL, "")}),
		MinDropPercent: 10,
	})
	ctx := context.Background()

	steps := []struct {
		url     string
		price   string
		alerted bool
	}{
		{"https://shop.example/kettle", "$100.00", false},
		{"https://outlet.example/kettle", "$80.00", true},
		{"https://shop.example/kettle", "$79.00", false},
		{"https://shop.example/kettle", "$90.00", false},
	}
	for i, st := range steps {
		res, err := p.Ingest(ctx, productObs(st.url, st.price, t0.Add(time.Duration(i)*time.Hour)))
		if err != nil {
			t.Fatalf("step %d: Ingest: %v", i, err)
		}
		if res.Alerted != st.alerted {
			t.Errorf("step %d: alerted = %v, want %v", i, res.Alerted, st.alerted)
		}
	}

	if rec.count() != 1 {
		t.Fatalf("got %d notifications, want 1", rec.count())
	}
	n := rec.got[0]
	if n.OldPrice != 100 || n.NewPrice != 80 || n.URL != "https://outlet.example/kettle" {
		t.Errorf("notification = %+v", n)
	}
}
