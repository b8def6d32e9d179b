// Package categorize assigns a site category to a domain, consulting a
// known-domain table first, then the site meta cache, then a model.
package categorize

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/elonfeng/shoptrail/internal/logger"
	"github.com/elonfeng/shoptrail/internal/store"
	"github.com/elonfeng/shoptrail/pkg/llm"
)

// Categories the model may choose from.
var Categories = []string{
	"shopping", "news", "social", "video", "search", "reference",
	"technology", "entertainment", "finance", "travel", "education", "other",
}

// Confidence for model decisions.
const (
	ConfidenceAI      = 80
	ConfidenceAIOther = 70
)

var knownDomains = map[string]string{
	"amazon.com":     "shopping",
	"amazon.co.uk":   "shopping",
	"ebay.com":       "shopping",
	"walmart.com":    "shopping",
	"target.com":     "shopping",
	"bestbuy.com":    "shopping",
	"etsy.com":       "shopping",
	"aliexpress.com": "shopping",
	"newegg.com":     "shopping",
	"costco.com":     "shopping",
	"youtube.com":    "video",
	"vimeo.com":      "video",
	"twitch.tv":      "video",
	"reddit.com":     "social",
	"x.com":          "social",
	"twitter.com":    "social",
	"facebook.com":   "social",
	"instagram.com":  "social",
	"google.com":     "search",
	"bing.com":       "search",
	"duckduckgo.com": "search",
	"wikipedia.org":  "reference",
	"github.com":     "technology",
	"nytimes.com":    "news",
	"bbc.com":        "news",
	"cnn.com":        "news",
	"theverge.com":   "news",
}

// KnownCategory looks up a domain in the built-in table.
func KnownCategory(domain string) (string, bool) {
	cat, ok := knownDomains[store.NormalizeDomain(domain)]
	return cat, ok
}

// Cache is the site meta storage the categorizer reads and fills.
type Cache interface {
	GetSiteMeta(ctx context.Context, domain string) (store.SiteMeta, bool, bool, error)
	SaveSiteMeta(ctx context.Context, meta store.SiteMeta) (store.SiteMeta, error)
}

// Categorizer resolves a domain to a SiteMeta.
type Categorizer struct {
	cache Cache
	model llm.Completer
	log   *logger.Logger
}

// New creates a Categorizer. model may be nil, in which case unknown
// domains stay unknown.
func New(cache Cache, model llm.Completer, log *logger.Logger) *Categorizer {
	return &Categorizer{cache: cache, model: model, log: logger.OrNop(log)}
}

// Categorize returns the category for the domain of rawURL. Model
// failures degrade to an unknown meta with zero confidence that is not
// cached. Only cache failures are returned as errors.
func (c *Categorizer) Categorize(ctx context.Context, rawURL, title string) (store.SiteMeta, error) {
	domain := store.NormalizeDomain(rawURL)
	if domain == "" {
		return unknown(domain), nil
	}

	if cat, ok := knownDomains[domain]; ok {
		return store.SiteMeta{
			Domain:     domain,
			Category:   cat,
			Confidence: store.ConfidenceKnown,
			Source:     store.SiteSourceKnown,
		}, nil
	}

	meta, found, fresh, err := c.cache.GetSiteMeta(ctx, domain)
	if err != nil {
		return store.SiteMeta{}, fmt.Errorf("read site meta %s: %w", domain, err)
	}
	if found && fresh {
		return meta, nil
	}

	if c.model == nil {
		return unknown(domain), nil
	}

	category, err := c.classify(ctx, domain, title)
	if err != nil {
		c.log.Warn("categorize failed", "domain", domain, "error", err)
		return unknown(domain), nil
	}

	confidence := ConfidenceAI
	if category == "other" {
		confidence = ConfidenceAIOther
	}
	saved, err := c.cache.SaveSiteMeta(ctx, store.SiteMeta{
		Domain:     domain,
		Category:   category,
		Confidence: confidence,
		Source:     store.SiteSourceAI,
	})
	if err != nil {
		return store.SiteMeta{}, fmt.Errorf("save site meta %s: %w", domain, err)
	}
	c.log.Debug("categorized", "domain", domain, "category", category)
	return saved, nil
}

func (c *Categorizer) classify(ctx context.Context, domain, title string) (string, error) {
	prompt := fmt.Sprintf(`Classify the website into exactly one category.

Domain: %s
Page title: %s

Allowed categories: %s

Respond with JSON only: {"category": "<one of the allowed categories>"}`,
		domain, title, strings.Join(Categories, ", "))

	var resp struct {
		Category string `json:"category"`
	}
	if err := llm.CompleteJSON(ctx, c.model, prompt, &resp); err != nil {
		return "", err
	}

	category := strings.ToLower(strings.TrimSpace(resp.Category))
	if !slices.Contains(Categories, category) {
		return "", fmt.Errorf("unlisted category %q", resp.Category)
	}
	return category, nil
}

func unknown(domain string) store.SiteMeta {
	return store.SiteMeta{
		Domain:     domain,
		Category:   store.CategoryUnknown,
		Confidence: store.ConfidenceUnknown,
		Source:     store.SiteSourceUnknown,
	}
}
