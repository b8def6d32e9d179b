package store

import (
	"context"
	"fmt"
)

// Stats counts stored entities and reports per-key byte usage.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	products, err := s.loadProducts(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := s.loadIdentity(ctx)
	if err != nil {
		return nil, err
	}
	var history []ProductHistory
	if err := s.load(ctx, KeyProductHistory, &history); err != nil {
		return nil, err
	}
	var visits []SiteVisit
	if err := s.load(ctx, KeySiteVisits, &visits); err != nil {
		return nil, err
	}
	metas, err := s.loadSiteMetas(ctx)
	if err != nil {
		return nil, err
	}
	reviews, err := s.loadReviews(ctx)
	if err != nil {
		return nil, err
	}

	usage, err := s.kv.Usage(ctx, AllKeys...)
	if err != nil {
		return nil, fmt.Errorf("storage usage: %w", err)
	}

	st := &Stats{
		Products:       len(products),
		HistoryEntries: len(history),
		SiteVisits:     len(visits),
		SiteMetas:      len(metas),
		Reviews:        len(reviews),
		URLIndex:       len(idx.URLs),
		CanonicalIndex: len(idx.Names),
		Bytes:          usage,
	}
	for _, v := range visits {
		if v.IsProduct {
			st.ProductVisits++
		}
	}
	for _, n := range usage {
		st.TotalBytes += n
	}
	return st, nil
}
