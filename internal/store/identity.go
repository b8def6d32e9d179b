package store

import (
	"context"
	"strings"
)

// identityIndex resolves observations to products by URL, then by
// lowercased canonical name.
type identityIndex struct {
	URLs  map[string]string
	Names map[string]string
}

func (s *Store) loadIdentity(ctx context.Context) (*identityIndex, error) {
	idx := &identityIndex{}
	if err := s.load(ctx, KeyURLToProduct, &idx.URLs); err != nil {
		return nil, err
	}
	if err := s.load(ctx, KeyCanonicalIndex, &idx.Names); err != nil {
		return nil, err
	}
	if idx.URLs == nil {
		idx.URLs = make(map[string]string)
	}
	if idx.Names == nil {
		idx.Names = make(map[string]string)
	}
	return idx, nil
}

func canonicalKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Resolve returns the product an observation refers to, or nil. Index
// entries pointing at a missing product are ignored.
func (idx *identityIndex) Resolve(products map[string]*Product, url, canonicalName string) *Product {
	if id, ok := idx.URLs[url]; ok && url != "" {
		if p := products[id]; p != nil {
			return p
		}
	}
	if key := canonicalKey(canonicalName); key != "" {
		if id, ok := idx.Names[key]; ok {
			return products[id]
		}
	}
	return nil
}

// Update points both indexes at p. Earlier keys for p are left in place.
func (idx *identityIndex) Update(p *Product) {
	if p.URL != "" {
		idx.URLs[p.URL] = p.ID
	}
	if key := canonicalKey(p.CanonicalName); key != "" {
		idx.Names[key] = p.ID
	}
}

func (idx *identityIndex) mutation() mutation {
	return mutation{
		KeyURLToProduct:   idx.URLs,
		KeyCanonicalIndex: idx.Names,
	}
}

// ResolveProduct looks up the product a URL/title pair resolves to.
func (s *Store) ResolveProduct(ctx context.Context, url, canonicalName string) (*Product, bool, error) {
	products, err := s.loadProducts(ctx)
	if err != nil {
		return nil, false, err
	}
	idx, err := s.loadIdentity(ctx)
	if err != nil {
		return nil, false, err
	}
	p := idx.Resolve(products, url, canonicalName)
	return p, p != nil, nil
}
