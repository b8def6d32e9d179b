package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/elonfeng/shoptrail/internal/logger"
	"github.com/elonfeng/shoptrail/internal/store"
	"github.com/elonfeng/shoptrail/pkg/llm"
)

var (
	versusSplit   = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus)\s+`)
	roundupPrefix = regexp.MustCompile(`(?i)^\s*(?:the\s+)?(?:best|top)\s+\d+\b`)
	segmentSplit  = regexp.MustCompile(`\s+[|\-–—]\s+|[:!?()\[\]]`)
	reviewWords   = regexp.MustCompile(`(?i)\b(?:full|honest|in-depth|long-term|long term|quick|my|the)?\s*(?:review(?:ed)?|hands-on|hands on|unboxing|worth it|impressions|tested)\b`)
	yearSuffix    = regexp.MustCompile(`(?i)\b(?:in\s+)?20\d\d\b`)
)

// Shape is the review shape derived from a video.
type Shape struct {
	ReviewType           string
	CanonicalProductName string
	Products             []store.ReviewProduct
	Summary              string
}

// ShapeFromTitle classifies a video title without a model. "A vs B" is a
// versus review of A and B, "best N ..." a roundup with no named products,
// anything else a single review of the title with review wording removed.
func ShapeFromTitle(title string) Shape {
	if roundupPrefix.MatchString(title) {
		return Shape{ReviewType: store.ReviewRoundup}
	}

	head := firstSegment(title, versusSplit)
	if parts := versusSplit.Split(head, -1); len(parts) > 1 {
		var products []store.ReviewProduct
		for _, p := range parts {
			if name := cleanName(p); name != "" {
				products = append(products, store.ReviewProduct{CanonicalProductName: name})
			}
		}
		if len(products) > 1 {
			return Shape{ReviewType: store.ReviewVersus, Products: products}
		}
	}

	return Shape{ReviewType: store.ReviewSingle, CanonicalProductName: singleName(title)}
}

// firstSegment returns the first title segment matching want, or the title.
func firstSegment(title string, want *regexp.Regexp) string {
	for _, seg := range segmentSplit.Split(title, -1) {
		if want.MatchString(seg) {
			return seg
		}
	}
	return title
}

// singleName prefers the segment that carried review wording, then the
// first non-empty one.
func singleName(title string) string {
	var first string
	for _, seg := range segmentSplit.Split(title, -1) {
		name := cleanName(seg)
		if name == "" {
			continue
		}
		if reviewWords.MatchString(seg) {
			return name
		}
		if first == "" {
			first = name
		}
	}
	return first
}

func cleanName(s string) string {
	s = reviewWords.ReplaceAllString(s, " ")
	s = yearSuffix.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Extractor derives review shapes, asking a model when one is configured.
type Extractor struct {
	model llm.Completer
	log   *logger.Logger
}

// NewExtractor creates an Extractor. model may be nil.
func NewExtractor(model llm.Completer, log *logger.Logger) *Extractor {
	return &Extractor{model: model, log: logger.OrNop(log)}
}

// Review builds the stored review for v. Model failures fall back to the
// title heuristic.
func (e *Extractor) Review(ctx context.Context, v Video) store.YoutubeReview {
	shape, err := e.shape(ctx, v)
	if err != nil {
		e.log.Debug("review extraction fell back to title", "video_id", v.VideoID, "error", err)
		shape = ShapeFromTitle(v.Title)
	}
	return store.YoutubeReview{
		VideoID:              v.VideoID,
		VideoTitle:           v.Title,
		ChannelName:          v.Channel,
		URL:                  v.URL,
		ReviewType:           shape.ReviewType,
		CanonicalProductName: shape.CanonicalProductName,
		Products:             shape.Products,
		Summary:              shape.Summary,
		PublishedAt:          v.PublishedAt,
	}
}

func (e *Extractor) shape(ctx context.Context, v Video) (Shape, error) {
	if e.model == nil {
		return Shape{}, fmt.Errorf("no model configured")
	}

	prompt := fmt.Sprintf(`Identify the products reviewed in this video.

Title: %s
Description: %s

Respond with JSON only:
{"review_type": "single_review" | "versus" | "roundup",
 "canonical_product_name": "<brand and model, single_review only>",
 "products": [{"canonical_product_name": "<brand and model>", "verdict": "<short verdict>"}],
 "summary": "<one sentence>"}`, v.Title, v.Description)

	var resp struct {
		ReviewType           string `json:"review_type"`
		CanonicalProductName string `json:"canonical_product_name"`
		Products             []struct {
			CanonicalProductName string `json:"canonical_product_name"`
			Verdict              string `json:"verdict"`
		} `json:"products"`
		Summary string `json:"summary"`
	}
	if err := llm.CompleteJSON(ctx, e.model, prompt, &resp); err != nil {
		return Shape{}, err
	}

	shape := Shape{
		ReviewType:           resp.ReviewType,
		CanonicalProductName: strings.TrimSpace(resp.CanonicalProductName),
		Summary:              resp.Summary,
	}
	for _, p := range resp.Products {
		if name := strings.TrimSpace(p.CanonicalProductName); name != "" {
			shape.Products = append(shape.Products, store.ReviewProduct{CanonicalProductName: name, Verdict: p.Verdict})
		}
	}

	switch shape.ReviewType {
	case store.ReviewSingle:
		if shape.CanonicalProductName == "" {
			return Shape{}, fmt.Errorf("single review without product name")
		}
	case store.ReviewVersus, store.ReviewRoundup:
	default:
		return Shape{}, fmt.Errorf("unknown review type %q", resp.ReviewType)
	}
	return shape, nil
}

// Collector gathers videos from every source, keeps review-like ones,
// dedupes by video id and extracts their shapes.
type Collector struct {
	sources   []Source
	filter    *Filter
	extractor *Extractor
	log       *logger.Logger
}

// NewCollector creates a Collector. filter may be nil to keep everything.
func NewCollector(sources []Source, filter *Filter, extractor *Extractor, log *logger.Logger) *Collector {
	if extractor == nil {
		extractor = NewExtractor(nil, log)
	}
	return &Collector{
		sources:   sources,
		filter:    filter,
		extractor: extractor,
		log:       logger.OrNop(log),
	}
}

// Collect runs every source in order. A failing source is logged and
// skipped; only context cancellation aborts the run.
func (c *Collector) Collect(ctx context.Context) ([]store.YoutubeReview, error) {
	seen := make(map[string]bool)
	var reviews []store.YoutubeReview

	for _, src := range c.sources {
		videos, err := src.Collect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return reviews, ctx.Err()
			}
			c.log.Warn("source failed", "source", src.Name(), "error", err)
			continue
		}

		kept := 0
		for _, v := range videos {
			if seen[v.VideoID] {
				continue
			}
			if c.filter != nil && !c.filter.MatchesReview(v.Title+" "+v.Description) {
				continue
			}
			seen[v.VideoID] = true
			reviews = append(reviews, c.extractor.Review(ctx, v))
			kept++
		}
		c.log.Info("source collected", "source", src.Name(), "videos", len(videos), "reviews", kept)
	}
	return reviews, nil
}
