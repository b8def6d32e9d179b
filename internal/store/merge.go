package store

import (
	"strconv"
	"strings"
	"time"
)

// ParsePrice keeps only digits and dots from s and parses the rest as a
// float. ok is false when nothing parseable remains.
func ParsePrice(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func firstImage(images []string) string {
	for _, img := range images {
		if img != "" {
			return img
		}
	}
	return ""
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}

// newProduct builds the record for a first observation.
func newProduct(id string, obs *Observation, ts time.Time) *Product {
	p := &Product{
		ID:            id,
		CanonicalName: obs.Title,
		URL:           obs.URL,
		Title:         obs.Title,
		Price:         obs.ProductPrice,
		Discount:      obs.ProductDiscount,
		Condition:     obs.ProductCondition,
		Category:      obs.ProductCategory,
		Summary:       obs.ProductSummary,
		Pros:          cloneStrings(obs.ProductPros),
		Cons:          cloneStrings(obs.ProductCons),
		Image:         firstImage(obs.Images),
		FirstSeen:     ts,
		LastSeen:      ts,
		VisitCount:    1,
	}
	if v, ok := ParsePrice(obs.ProductPrice); ok {
		p.LowestPrice = &v
		p.LowestPriceURL = obs.URL
	}
	return p
}

// mergeObservation applies obs to p field by field:
//
//	url                       overwrite
//	title, canonical_name     overwrite if present
//	price .. image, pros/cons overwrite if present
//	last_seen                 max(last_seen, ts)
//	first_seen, id            never
//	visit_count               +1
//	lowest_price(+url)        min, strictly lower only
//	linked_review_ids         never
//
// It returns the previous lowest price when this merge lowered it.
func mergeObservation(p *Product, obs *Observation, ts time.Time) (previousLowest *float64) {
	if obs.URL != "" {
		p.URL = obs.URL
	}
	if obs.Title != "" {
		p.Title = obs.Title
		p.CanonicalName = obs.Title
	}

	overwrite(&p.Price, obs.ProductPrice)
	overwrite(&p.Discount, obs.ProductDiscount)
	overwrite(&p.Condition, obs.ProductCondition)
	overwrite(&p.Category, obs.ProductCategory)
	overwrite(&p.Summary, obs.ProductSummary)
	overwrite(&p.Image, firstImage(obs.Images))
	if len(obs.ProductPros) > 0 {
		p.Pros = cloneStrings(obs.ProductPros)
	}
	if len(obs.ProductCons) > 0 {
		p.Cons = cloneStrings(obs.ProductCons)
	}

	if ts.After(p.LastSeen) {
		p.LastSeen = ts
	}
	p.VisitCount++

	if v, ok := ParsePrice(obs.ProductPrice); ok {
		switch {
		case p.LowestPrice == nil:
			p.LowestPrice = &v
			p.LowestPriceURL = obs.URL
		case v < *p.LowestPrice:
			prev := *p.LowestPrice
			previousLowest = &prev
			p.LowestPrice = &v
			p.LowestPriceURL = obs.URL
		}
	}
	return previousLowest
}

func overwrite(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// historyFrom snapshots p after an observation.
func historyFrom(id string, p *Product, ts time.Time) ProductHistory {
	return ProductHistory{
		ID:        id,
		ProductID: p.ID,
		URL:       p.URL,
		Title:     p.Title,
		Price:     p.Price,
		Discount:  p.Discount,
		Condition: p.Condition,
		Category:  p.Category,
		Summary:   p.Summary,
		Pros:      cloneStrings(p.Pros),
		Cons:      cloneStrings(p.Cons),
		Image:     p.Image,
		Timestamp: ts,
	}
}
