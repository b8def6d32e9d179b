package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/elonfeng/shoptrail/internal/logger"
)

const channelFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id="

// ChannelFeed is a named YouTube channel Atom feed.
type ChannelFeed struct {
	Name string
	URL  string
}

// FeedForChannel returns the public Atom feed for a channel id.
func FeedForChannel(channelID string) ChannelFeed {
	return ChannelFeed{Name: channelID, URL: channelFeedURL + url.QueryEscape(channelID)}
}

// Feeds collects recent uploads from channel feeds.
type Feeds struct {
	client  *http.Client
	parser  *gofeed.Parser
	feeds   []ChannelFeed
	window  time.Duration
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewFeeds creates a channel feed collector. limiter may be nil.
func NewFeeds(feeds []ChannelFeed, limiter *rate.Limiter, log *logger.Logger) *Feeds {
	if limiter == nil {
		limiter = NewLimiter(0)
	}
	return &Feeds{
		client:  &http.Client{Timeout: 30 * time.Second},
		parser:  gofeed.NewParser(),
		feeds:   feeds,
		window:  14 * 24 * time.Hour,
		limiter: limiter,
		log:     logger.OrNop(log),
	}
}

func (f *Feeds) Name() SourceType { return SourceChannelFeed }

func (f *Feeds) Collect(ctx context.Context) ([]Video, error) {
	var all []Video
	for _, feed := range f.feeds {
		videos, err := f.collectFeed(ctx, feed)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			f.log.Warn("channel feed failed", "feed", feed.Name, "error", err)
			continue
		}
		all = append(all, videos...)
	}
	return all, nil
}

func (f *Feeds) collectFeed(ctx context.Context, feed ChannelFeed) ([]Video, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "shoptrail/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feed.Name, err)
	}

	channel := parsed.Title
	if parsed.Author != nil && parsed.Author.Name != "" {
		channel = parsed.Author.Name
	}

	var videos []Video
	cutoff := time.Now().Add(-f.window)

	for _, entry := range parsed.Items {
		var published time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}
		if !published.IsZero() && published.Before(cutoff) {
			continue
		}

		videoID := entryVideoID(entry)
		if videoID == "" {
			continue
		}

		videos = append(videos, Video{
			VideoID:     videoID,
			Title:       entry.Title,
			Description: truncate(entry.Description, 500),
			Channel:     channel,
			URL:         watchURL(videoID),
			Source:      SourceChannelFeed,
			PublishedAt: published,
		})
	}
	return videos, nil
}

// entryVideoID reads yt:videoId, falling back to the watch link.
func entryVideoID(entry *gofeed.Item) string {
	if exts, ok := entry.Extensions["yt"]; ok {
		if ids := exts["videoId"]; len(ids) > 0 && ids[0].Value != "" {
			return ids[0].Value
		}
	}
	link := entry.Link
	if link == "" && len(entry.Links) > 0 {
		link = entry.Links[0]
	}
	if u, err := url.Parse(link); err == nil {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
	}
	return strings.TrimPrefix(entry.GUID, "yt:video:")
}
