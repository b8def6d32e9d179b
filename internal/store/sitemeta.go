package store

import (
	"context"
	"sort"
)

func (s *Store) loadSiteMetas(ctx context.Context) (map[string]SiteMeta, error) {
	metas := make(map[string]SiteMeta)
	if err := s.load(ctx, KeySiteMetas, &metas); err != nil {
		return nil, err
	}
	if metas == nil {
		metas = make(map[string]SiteMeta)
	}
	return metas, nil
}

// GetSiteMeta returns the cached meta for a domain. fresh is false when
// the entry is older than the configured max age.
func (s *Store) GetSiteMeta(ctx context.Context, domain string) (meta SiteMeta, found, fresh bool, err error) {
	metas, err := s.loadSiteMetas(ctx)
	if err != nil {
		return SiteMeta{}, false, false, err
	}
	meta, found = metas[NormalizeDomain(domain)]
	if !found {
		return SiteMeta{}, false, false, nil
	}
	fresh = s.now().Sub(meta.UpdatedAt) < s.opts.SiteMetaMaxAge
	return meta, true, fresh, nil
}

// SaveSiteMeta caches meta under its normalized domain, stamping UpdatedAt.
func (s *Store) SaveSiteMeta(ctx context.Context, meta SiteMeta) (SiteMeta, error) {
	metas, err := s.loadSiteMetas(ctx)
	if err != nil {
		return SiteMeta{}, err
	}
	meta.Domain = NormalizeDomain(meta.Domain)
	meta.UpdatedAt = s.now()
	metas[meta.Domain] = meta

	if err := s.apply(ctx, mutation{KeySiteMetas: metas}); err != nil {
		return SiteMeta{}, err
	}
	return meta, nil
}

// InvalidateSiteMeta drops the cached meta for a domain. It reports
// whether an entry existed.
func (s *Store) InvalidateSiteMeta(ctx context.Context, domain string) (bool, error) {
	metas, err := s.loadSiteMetas(ctx)
	if err != nil {
		return false, err
	}
	key := NormalizeDomain(domain)
	if _, ok := metas[key]; !ok {
		return false, nil
	}
	delete(metas, key)

	if err := s.apply(ctx, mutation{KeySiteMetas: metas}); err != nil {
		return false, err
	}
	return true, nil
}

// GetSiteMetas lists every cached site meta ordered by domain.
func (s *Store) GetSiteMetas(ctx context.Context) ([]SiteMeta, error) {
	metas, err := s.loadSiteMetas(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SiteMeta, 0, len(metas))
	for _, m := range metas {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out, nil
}
