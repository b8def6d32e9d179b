package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/elonfeng/shoptrail/internal/logger"
)

const youtubeAPI = "https://www.googleapis.com/youtube/v3"

// YouTube searches the YouTube Data API for review videos.
type YouTube struct {
	client  *http.Client
	baseURL string
	apiKey  string
	queries []string
	window  time.Duration
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewYouTube creates a YouTube search collector. limiter may be nil.
func NewYouTube(apiKey string, queries []string, limiter *rate.Limiter, log *logger.Logger) *YouTube {
	if len(queries) == 0 {
		queries = []string{"headphones review", "laptop review", "phone review"}
	}
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &YouTube{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: youtubeAPI,
		apiKey:  apiKey,
		queries: queries,
		window:  7 * 24 * time.Hour,
		limiter: limiter,
		log:     logger.OrNop(log),
	}
}

func (y *YouTube) Name() SourceType { return SourceYouTubeSearch }

func (y *YouTube) Collect(ctx context.Context) ([]Video, error) {
	if y.apiKey == "" {
		return nil, fmt.Errorf("youtube: API key required (set YOUTUBE_API_KEY)")
	}

	var all []Video
	for _, query := range y.queries {
		videos, err := y.search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			y.log.Warn("youtube query failed", "query", query, "error", err)
			continue
		}
		all = append(all, videos...)
	}
	return all, nil
}

func (y *YouTube) search(ctx context.Context, query string) ([]Video, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("publishedAfter", time.Now().Add(-y.window).UTC().Format(time.RFC3339))
	params.Set("maxResults", "25")
	params.Set("key", y.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create youtube search request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search status %d", resp.StatusCode)
	}

	var result ytSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode youtube search: %w", err)
	}

	var videos []Video
	for _, item := range result.Items {
		videoID := strings.TrimSpace(item.ID.VideoID)
		if videoID == "" {
			continue
		}
		videos = append(videos, Video{
			VideoID:     videoID,
			Title:       item.Snippet.Title,
			Description: truncate(item.Snippet.Description, 500),
			Channel:     item.Snippet.ChannelTitle,
			URL:         watchURL(videoID),
			Source:      SourceYouTubeSearch,
			PublishedAt: item.Snippet.PublishedAt.UTC(),
		})
	}
	return videos, nil
}

type ytSearchResult struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet ytSnippet `json:"snippet"`
	} `json:"items"`
}

type ytSnippet struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channelTitle"`
	PublishedAt  time.Time `json:"publishedAt"`
}
