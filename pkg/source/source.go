// Package source collects candidate review videos and turns them into
// store.YoutubeReview records.
package source

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// SourceType identifies where a video was found.
type SourceType string

const (
	SourceYouTubeSearch SourceType = "youtube_search"
	SourceChannelFeed   SourceType = "youtube_feed"
)

// Video is a raw candidate before shape extraction.
type Video struct {
	VideoID     string
	Title       string
	Description string
	Channel     string
	URL         string
	Source      SourceType
	PublishedAt time.Time
}

// Source is the interface every collector must implement.
type Source interface {
	Name() SourceType
	Collect(ctx context.Context) ([]Video, error)
}

// NewLimiter paces outbound requests. A non-positive rate disables pacing.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
