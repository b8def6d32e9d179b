package store

import (
	"context"
	"sort"
	"time"
)

// StorePageObservation records one page observation. Non-product pages only
// append a visit. Product pages resolve identity by URL then title, merge
// into or create the product, refresh the identity index and append a
// history entry. All touched keys are written in one apply.
func (s *Store) StorePageObservation(ctx context.Context, obs *Observation) (StoreResult, error) {
	ts := obs.Timestamp.UTC()
	if obs.Timestamp.IsZero() {
		ts = s.now()
	}

	var visits []SiteVisit
	if err := s.load(ctx, KeySiteVisits, &visits); err != nil {
		return StoreResult{}, err
	}

	var res StoreResult
	m := mutation{}

	if obs.IsProduct {
		products, err := s.loadProducts(ctx)
		if err != nil {
			return StoreResult{}, err
		}
		idx, err := s.loadIdentity(ctx)
		if err != nil {
			return StoreResult{}, err
		}
		var history []ProductHistory
		if err := s.load(ctx, KeyProductHistory, &history); err != nil {
			return StoreResult{}, err
		}

		p := idx.Resolve(products, obs.URL, obs.Title)
		if p != nil {
			res.PreviousLowest = mergeObservation(p, obs, ts)
		} else {
			p = newProduct(s.opts.NewID(), obs, ts)
			products[p.ID] = p
			res.Created = true
		}
		res.ProductID = p.ID
		res.LowestPrice = p.LowestPrice
		idx.Update(p)

		history = append(history, historyFrom(s.opts.NewID(), p, ts))
		history = pruneNewestFirst(history, s.opts.HistoryCap, func(h ProductHistory) time.Time { return h.Timestamp })

		m[KeyProducts] = products
		m[KeyProductHistory] = history
		for k, v := range idx.mutation() {
			m[k] = v
		}
	}

	visit := SiteVisit{
		ID:           s.opts.NewID(),
		URL:          obs.URL,
		Title:        obs.Title,
		Domain:       NormalizeDomain(obs.URL),
		IsProduct:    obs.IsProduct,
		ProductID:    res.ProductID,
		SiteCategory: obs.SiteCategory,
		Tags:         cloneStrings(obs.Tags),
		Summary:      obs.Summary,
		Timestamp:    ts,
	}
	visits = append(visits, visit)
	m[KeySiteVisits] = pruneNewestFirst(visits, s.opts.VisitCap, func(v SiteVisit) time.Time { return v.Timestamp })
	res.VisitID = visit.ID

	if err := s.apply(ctx, m); err != nil {
		return StoreResult{}, err
	}
	return res, nil
}

// GetProduct returns the product with the given id.
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, bool, error) {
	products, err := s.loadProducts(ctx)
	if err != nil {
		return nil, false, err
	}
	p, ok := products[id]
	return p, ok, nil
}

// GetAllProducts returns every product, most recently seen first.
func (s *Store) GetAllProducts(ctx context.Context) ([]Product, error) {
	products, err := s.loadProducts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out, nil
}

// UpdateFields applies a partial update to an existing product. It reports
// false, and writes nothing, when id is unknown.
func (s *Store) UpdateFields(ctx context.Context, id string, upd ProductUpdate) (bool, error) {
	products, err := s.loadProducts(ctx)
	if err != nil {
		return false, err
	}
	p, ok := products[id]
	if !ok {
		return false, nil
	}

	setIf(&p.CanonicalName, upd.CanonicalName)
	setIf(&p.Title, upd.Title)
	setIf(&p.Discount, upd.Discount)
	setIf(&p.Condition, upd.Condition)
	setIf(&p.Category, upd.Category)
	setIf(&p.Summary, upd.Summary)
	setIf(&p.Image, upd.Image)
	if upd.Pros != nil {
		p.Pros = cloneStrings(*upd.Pros)
	}
	if upd.Cons != nil {
		p.Cons = cloneStrings(*upd.Cons)
	}
	if upd.Price != nil {
		p.Price = *upd.Price
		if v, ok := ParsePrice(p.Price); ok && (p.LowestPrice == nil || v < *p.LowestPrice) {
			p.LowestPrice = &v
			p.LowestPriceURL = p.URL
		}
	}

	m := mutation{KeyProducts: products}
	if upd.CanonicalName != nil {
		idx, err := s.loadIdentity(ctx)
		if err != nil {
			return false, err
		}
		idx.Update(p)
		for k, v := range idx.mutation() {
			m[k] = v
		}
	}

	if err := s.apply(ctx, m); err != nil {
		return false, err
	}
	return true, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// GetProductHistory returns the history of one product, newest first.
func (s *Store) GetProductHistory(ctx context.Context, productID string) ([]ProductHistory, error) {
	var history []ProductHistory
	if err := s.load(ctx, KeyProductHistory, &history); err != nil {
		return nil, err
	}

	var out []ProductHistory
	for _, h := range history {
		if h.ProductID == productID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// pruneNewestFirst sorts items newest first and truncates to limit, but
// only once the list has grown past it.
func pruneNewestFirst[T any](items []T, limit int, ts func(T) time.Time) []T {
	if len(items) <= limit {
		return items
	}
	sort.SliceStable(items, func(i, j int) bool { return ts(items[i]).After(ts(items[j])) })
	return items[:limit]
}
