package store

import "time"

// Keys owned by the store.
const (
	KeyProducts       = "products"
	KeyProductHistory = "product_history"
	KeySiteVisits     = "site_visits"
	KeySiteMetas      = "site_metas"
	KeyURLToProduct   = "url_to_product"
	KeyCanonicalIndex = "canonical_index"
	KeyYoutubeReviews = "youtube_reviews"
)

// AllKeys lists every key the store reads or writes.
var AllKeys = []string{
	KeyProducts, KeyProductHistory, KeySiteVisits, KeySiteMetas,
	KeyURLToProduct, KeyCanonicalIndex, KeyYoutubeReviews,
}

// Product is the canonical record for one physical product.
type Product struct {
	ID              string    `json:"id"`
	CanonicalName   string    `json:"canonical_name"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Price           string    `json:"price,omitempty"`
	Discount        string    `json:"discount,omitempty"`
	Condition       string    `json:"condition,omitempty"`
	Category        string    `json:"category,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	Pros            []string  `json:"pros,omitempty"`
	Cons            []string  `json:"cons,omitempty"`
	Image           string    `json:"image,omitempty"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	VisitCount      int       `json:"visit_count"`
	LowestPrice     *float64  `json:"lowest_price,omitempty"`
	LowestPriceURL  string    `json:"lowest_price_url,omitempty"`
	LinkedReviewIDs []string  `json:"linked_review_ids,omitempty"`
}

// ProductHistory is an immutable snapshot of a product as of one observation.
type ProductHistory struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Price     string    `json:"price,omitempty"`
	Discount  string    `json:"discount,omitempty"`
	Condition string    `json:"condition,omitempty"`
	Category  string    `json:"category,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Pros      []string  `json:"pros,omitempty"`
	Cons      []string  `json:"cons,omitempty"`
	Image     string    `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SiteVisit records one page load, product or not.
type SiteVisit struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	Domain       string    `json:"domain"`
	IsProduct    bool      `json:"is_product"`
	ProductID    string    `json:"product_id,omitempty"`
	SiteCategory string    `json:"site_category,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Site meta provenance and confidence.
const (
	SiteSourceKnown   = "known"
	SiteSourceAI      = "ai"
	SiteSourceUnknown = "unknown"

	CategoryUnknown = "unknown"

	ConfidenceKnown   = 100
	ConfidenceUnknown = 0
)

// SiteMeta caches a categorization decision for one domain.
type SiteMeta struct {
	Domain     string    `json:"domain"`
	Category   string    `json:"category"`
	Confidence int       `json:"confidence"`
	Source     string    `json:"source"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Review shapes.
const (
	ReviewSingle  = "single_review"
	ReviewVersus  = "versus"
	ReviewRoundup = "roundup"
)

// ReviewProduct is one product discussed in a comparison review.
type ReviewProduct struct {
	CanonicalProductName string `json:"canonical_product_name"`
	Verdict              string `json:"verdict,omitempty"`
}

// YoutubeReview is an externally sourced video review, keyed by VideoID.
type YoutubeReview struct {
	VideoID              string          `json:"video_id"`
	VideoTitle           string          `json:"video_title"`
	ChannelName          string          `json:"channel_name,omitempty"`
	URL                  string          `json:"url,omitempty"`
	ReviewType           string          `json:"review_type,omitempty"`
	CanonicalProductName string          `json:"canonical_product_name,omitempty"`
	Products             []ReviewProduct `json:"products,omitempty"`
	Summary              string          `json:"summary,omitempty"`
	PublishedAt          time.Time       `json:"published_at,omitzero"`
	SavedAt              time.Time       `json:"saved_at"`
	LinkedProductIDs     []string        `json:"linked_product_ids,omitempty"`
}

// CandidateNames returns the product names a review can be linked by.
// Comparison reviews yield one name per compared product, falling back to
// the single canonical name when the product list is empty.
func (r *YoutubeReview) CandidateNames() []string {
	var names []string
	if r.ReviewType == ReviewVersus || r.ReviewType == ReviewRoundup {
		for _, p := range r.Products {
			if p.CanonicalProductName != "" {
				names = append(names, p.CanonicalProductName)
			}
		}
		if len(names) > 0 {
			return names
		}
	}
	if r.CanonicalProductName != "" {
		names = append(names, r.CanonicalProductName)
	}
	return names
}

// Observation is one scraped snapshot of a page.
type Observation struct {
	URL              string    `json:"url"`
	Title            string    `json:"title"`
	Timestamp        time.Time `json:"timestamp"`
	IsProduct        bool      `json:"is_product"`
	ProductPrice     string    `json:"product_price,omitempty"`
	ProductDiscount  string    `json:"product_discount,omitempty"`
	ProductCondition string    `json:"product_condition,omitempty"`
	ProductCategory  string    `json:"product_category,omitempty"`
	ProductSummary   string    `json:"product_summary,omitempty"`
	ProductPros      []string  `json:"product_pros,omitempty"`
	ProductCons      []string  `json:"product_cons,omitempty"`
	Images           []string  `json:"images,omitempty"`
	SiteCategory     string    `json:"site_category,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	Summary          string    `json:"summary,omitempty"`
}

// StoreResult is what StorePageObservation reports back.
type StoreResult struct {
	ProductID string `json:"product_id,omitempty"`
	VisitID   string `json:"visit_id"`
	Created   bool   `json:"created"`

	// PreviousLowest is set when a merge lowered lowest_price.
	PreviousLowest *float64 `json:"previous_lowest,omitempty"`
	LowestPrice    *float64 `json:"lowest_price,omitempty"`
}

// PriceDropped reports whether the observation lowered an existing
// product's lowest price.
func (r StoreResult) PriceDropped() bool {
	return r.PreviousLowest != nil && r.LowestPrice != nil && *r.LowestPrice < *r.PreviousLowest
}

// ProductUpdate carries a partial set of product fields. Nil fields are
// left unchanged.
type ProductUpdate struct {
	CanonicalName *string   `json:"canonical_name,omitempty"`
	Title         *string   `json:"title,omitempty"`
	Price         *string   `json:"price,omitempty"`
	Discount      *string   `json:"discount,omitempty"`
	Condition     *string   `json:"condition,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Summary       *string   `json:"summary,omitempty"`
	Pros          *[]string `json:"pros,omitempty"`
	Cons          *[]string `json:"cons,omitempty"`
	Image         *string   `json:"image,omitempty"`
}

// Stats summarizes storage contents.
type Stats struct {
	Products       int              `json:"products"`
	HistoryEntries int              `json:"history_entries"`
	SiteVisits     int              `json:"site_visits"`
	ProductVisits  int              `json:"product_visits"`
	SiteMetas      int              `json:"site_metas"`
	Reviews        int              `json:"reviews"`
	URLIndex       int              `json:"url_index"`
	CanonicalIndex int              `json:"canonical_index"`
	Bytes          map[string]int64 `json:"bytes"`
	TotalBytes     int64            `json:"total_bytes"`
}
