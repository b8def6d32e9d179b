package store

import "context"

// ShouldScan reports whether url is due for another scrape: false while
// the most recent visit to exactly this URL is inside the rescan cooldown.
// Nothing in the store enforces the answer.
func (s *Store) ShouldScan(ctx context.Context, url string) (bool, error) {
	var visits []SiteVisit
	if err := s.load(ctx, KeySiteVisits, &visits); err != nil {
		return false, err
	}

	var latest *SiteVisit
	for i := range visits {
		if visits[i].URL != url {
			continue
		}
		if latest == nil || visits[i].Timestamp.After(latest.Timestamp) {
			latest = &visits[i]
		}
	}
	if latest == nil {
		return true, nil
	}

	cutoff := s.now().Add(-s.opts.RescanCooldown)
	return !latest.Timestamp.After(cutoff), nil
}
