package store

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"
)

// NormalizeDomain returns the lowercased host of rawURL without port or a
// leading "www.". Inputs without a scheme are treated as host[/path].
func NormalizeDomain(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func (s *Store) loadVisits(ctx context.Context) ([]SiteVisit, error) {
	var visits []SiteVisit
	if err := s.load(ctx, KeySiteVisits, &visits); err != nil {
		return nil, err
	}
	sort.SliceStable(visits, func(i, j int) bool { return visits[i].Timestamp.After(visits[j].Timestamp) })
	return visits, nil
}

// GetRecentVisits returns up to limit visits, newest first. limit <= 0
// returns all of them.
func (s *Store) GetRecentVisits(ctx context.Context, limit int) ([]SiteVisit, error) {
	visits, err := s.loadVisits(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(visits) > limit {
		visits = visits[:limit]
	}
	return visits, nil
}

// GetVisitsByCategory returns visits whose site category equals category
// (case-insensitive), newest first.
func (s *Store) GetVisitsByCategory(ctx context.Context, category string) ([]SiteVisit, error) {
	visits, err := s.loadVisits(ctx)
	if err != nil {
		return nil, err
	}

	var out []SiteVisit
	for _, v := range visits {
		if strings.EqualFold(v.SiteCategory, category) {
			out = append(out, v)
		}
	}
	return out, nil
}

// PruneVisitsOlderThan drops visits stamped before cutoff and returns how
// many were removed.
func (s *Store) PruneVisitsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var visits []SiteVisit
	if err := s.load(ctx, KeySiteVisits, &visits); err != nil {
		return 0, err
	}

	kept := visits[:0]
	for _, v := range visits {
		if !v.Timestamp.Before(cutoff) {
			kept = append(kept, v)
		}
	}
	removed := len(visits) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := s.apply(ctx, mutation{KeySiteVisits: kept}); err != nil {
		return 0, err
	}
	return removed, nil
}
