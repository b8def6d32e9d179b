package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/shoptrail/internal/config"
	"github.com/elonfeng/shoptrail/internal/ingest"
	"github.com/elonfeng/shoptrail/internal/kv"
	"github.com/elonfeng/shoptrail/internal/logger"
	"github.com/elonfeng/shoptrail/internal/scheduler"
	"github.com/elonfeng/shoptrail/internal/store"
	"github.com/elonfeng/shoptrail/pkg/alert"
	"github.com/elonfeng/shoptrail/pkg/categorize"
	"github.com/elonfeng/shoptrail/pkg/linker"
	"github.com/elonfeng/shoptrail/pkg/llm"
	"github.com/elonfeng/shoptrail/pkg/server"
	"github.com/elonfeng/shoptrail/pkg/source"
)

// app holds everything a command needs, built from config.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	backend kv.Store
	store   *store.Store
	model   llm.Completer
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	backend, err := openBackend(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		backend: backend,
		store: store.New(backend, store.Options{
			HistoryCap:     cfg.Limits.HistoryCap,
			VisitCap:       cfg.Limits.VisitCap,
			ReviewCap:      cfg.Limits.ReviewCap,
			RescanCooldown: cfg.Limits.ParseRescanCooldown(),
			SiteMetaMaxAge: cfg.Limits.ParseSiteMetaMaxAge(),
		}),
	}

	if cfg.LLM.Enabled && cfg.LLM.APIKey != "" {
		client := llm.NewClient(cfg.LLM.Provider, cfg.LLM.Model, cfg.LLM.APIKey, cfg.LLM.BaseURL)
		a.model = client
		log.Debug("llm enabled", "provider", client.Provider(), "model", client.Model())
	}
	return a, nil
}

func openBackend(ctx context.Context, db config.DatabaseConfig) (kv.Store, error) {
	switch db.Driver {
	case config.DriverRedis:
		return kv.NewRedis(ctx, kv.RedisOptions{
			Addr:     db.Redis.Addr,
			Password: db.Redis.Password,
			DB:       db.Redis.DB,
			Prefix:   db.Redis.Prefix,
		})
	default:
		return kv.NewSQLite(db.Path)
	}
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.log.Warn("close store", "error", err)
	}
	a.log.Sync()
}

func (a *app) pipeline() *ingest.Pipeline {
	return ingest.New(a.store, ingest.Options{
		Categorizer:    categorize.New(a.store, a.model, a.log),
		Alerts:         a.alertManager(),
		MinDropPercent: a.cfg.Alerts.MinDropPercent,
		Logger:         a.log,
	})
}

func (a *app) alertManager() *alert.Manager {
	var notifiers []alert.Notifier
	alerts := a.cfg.Alerts

	if alerts.Slack.Enabled && alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(alerts.Slack.WebhookURL))
	}
	if alerts.Discord.Enabled && alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(alerts.Discord.WebhookURL))
	}
	if alerts.Webhook.Enabled && alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(alerts.Webhook.URL, alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func (a *app) collector() *source.Collector {
	reviews := a.cfg.Reviews
	limiter := source.NewLimiter(reviews.RequestsPerSecond)

	var sources []source.Source
	if reviews.YouTube.Enabled && reviews.YouTube.APIKey != "" {
		sources = append(sources, source.NewYouTube(reviews.YouTube.APIKey, reviews.YouTube.Queries, limiter, a.log))
	}

	var feeds []source.ChannelFeed
	for _, ch := range reviews.Channels {
		feeds = append(feeds, source.FeedForChannel(ch))
	}
	for _, f := range reviews.Feeds {
		feeds = append(feeds, source.ChannelFeed{Name: f.Name, URL: f.URL})
	}
	if len(feeds) > 0 {
		sources = append(sources, source.NewFeeds(feeds, limiter, a.log))
	}

	filter := source.NewFilter(reviews.ExtraKeywords, reviews.ExcludeKeywords)
	return source.NewCollector(sources, filter, source.NewExtractor(a.model, a.log), a.log)
}

func (a *app) scheduler() *scheduler.Scheduler {
	return scheduler.New(a.store, a.collector(), linker.New(a.store, nil), scheduler.Options{
		ReviewInterval:      a.cfg.Schedule.ParseReviewInterval(),
		MaintenanceInterval: a.cfg.Schedule.ParseMaintenanceInterval(),
		Retention:           a.cfg.Limits.ParseVisitRetention(),
		Logger:              a.log,
	})
}

// readJSONList decodes a single object or an array of objects.
func readJSONList[T any](path string) ([]T, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []T
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return list, nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return []T{one}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runIngest(ctx context.Context, path string) error {
	observations, err := readJSONList[store.Observation](path)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p := a.pipeline()
	created := 0
	for _, obs := range observations {
		res, err := p.Ingest(ctx, obs)
		if err != nil {
			return err
		}
		if res.Created {
			created++
		}
	}

	fmt.Fprintf(os.Stderr, "stored %d observations (%d new products)\n", len(observations), created)
	return nil
}

func runProducts(ctx context.Context, jsonOutput bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.store.GetAllProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	if jsonOutput {
		return printJSON(products)
	}

	if len(products) == 0 {
		fmt.Println("no products yet (try: shoptrail ingest observations.json)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVISITS\tLOWEST\tNAME\tLAST SEEN")
	for _, p := range products {
		lowest := "-"
		if p.LowestPrice != nil {
			lowest = fmt.Sprintf("%.2f", *p.LowestPrice)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			p.ID, p.VisitCount, lowest, p.CanonicalName,
			p.LastSeen.Format(time.RFC3339))
	}
	return w.Flush()
}

func runProduct(ctx context.Context, id string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, found, err := a.store.GetProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("get product %s: %w", id, err)
	}
	if !found {
		return fmt.Errorf("product %s not found", id)
	}
	history, err := a.store.GetProductHistory(ctx, id)
	if err != nil {
		return fmt.Errorf("get history %s: %w", id, err)
	}
	reviews, err := a.store.GetLinkedReviews(ctx, id)
	if err != nil {
		return fmt.Errorf("get reviews %s: %w", id, err)
	}

	return printJSON(map[string]any{
		"product": p,
		"history": history,
		"reviews": reviews,
	})
}

func runVisits(ctx context.Context, limit int, category string, jsonOutput bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var visits []store.SiteVisit
	if category != "" {
		visits, err = a.store.GetVisitsByCategory(ctx, category)
	} else {
		visits, err = a.store.GetRecentVisits(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("list visits: %w", err)
	}

	if jsonOutput {
		return printJSON(visits)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCATEGORY\tPRODUCT\tDOMAIN\tTITLE")
	for _, v := range visits {
		product := "-"
		if v.ProductID != "" {
			product = v.ProductID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			v.Timestamp.Format(time.RFC3339), v.SiteCategory, product, v.Domain, v.Title)
	}
	return w.Flush()
}

func runShouldScan(ctx context.Context, url string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	scan, err := a.store.ShouldScan(ctx, url)
	if err != nil {
		return fmt.Errorf("check %s: %w", url, err)
	}
	fmt.Println(scan)
	return nil
}

func runReviews(ctx context.Context, jsonOutput bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	reviews, err := a.store.GetReviews(ctx)
	if err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}

	if jsonOutput {
		return printJSON(reviews)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VIDEO\tTYPE\tLINKS\tTITLE")
	for _, r := range reviews {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", r.VideoID, r.ReviewType, len(r.LinkedProductIDs), r.VideoTitle)
	}
	return w.Flush()
}

func runReviewsAdd(ctx context.Context, path string) error {
	reviews, err := readJSONList[store.YoutubeReview](path)
	if err != nil {
		return err
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	l := linker.New(a.store, nil)
	for _, r := range reviews {
		saved, err := a.store.SaveReview(ctx, r)
		if err != nil {
			return fmt.Errorf("save review %s: %w", r.VideoID, err)
		}
		ids, err := l.LinkReview(ctx, saved.VideoID)
		if err != nil {
			return fmt.Errorf("link review %s: %w", saved.VideoID, err)
		}
		fmt.Fprintf(os.Stderr, "%s: linked to %d products\n", saved.VideoID, len(ids))
	}
	return nil
}

func runReviewsCollect(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	saved, linked, err := a.scheduler().CollectReviews(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved %d reviews, linked %d products\n", saved, linked)
	return nil
}

func runReviewsLink(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := linker.New(a.store, nil).LinkAllExisting(ctx)
	if err != nil {
		return fmt.Errorf("link reviews: %w", err)
	}
	fmt.Fprintf(os.Stderr, "created %d links\n", created)
	return nil
}

func runSites(ctx context.Context, invalidate string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if invalidate != "" {
		removed, err := a.store.InvalidateSiteMeta(ctx, invalidate)
		if err != nil {
			return fmt.Errorf("invalidate %s: %w", invalidate, err)
		}
		fmt.Fprintf(os.Stderr, "invalidated %s: %v\n", invalidate, removed)
		return nil
	}

	metas, err := a.store.GetSiteMetas(ctx)
	if err != nil {
		return fmt.Errorf("list sites: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tCATEGORY\tCONFIDENCE\tSOURCE\tUPDATED")
	for _, m := range metas {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			m.Domain, m.Category, m.Confidence, m.Source, m.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runStats(ctx context.Context, jsonOutput bool) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.store.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	if jsonOutput {
		return printJSON(stats)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "products\t%d\n", stats.Products)
	fmt.Fprintf(w, "history entries\t%d\n", stats.HistoryEntries)
	fmt.Fprintf(w, "site visits\t%d (%d product)\n", stats.SiteVisits, stats.ProductVisits)
	fmt.Fprintf(w, "site metas\t%d\n", stats.SiteMetas)
	fmt.Fprintf(w, "reviews\t%d\n", stats.Reviews)
	fmt.Fprintf(w, "index entries\t%d url, %d name\n", stats.URLIndex, stats.CanonicalIndex)
	fmt.Fprintf(w, "storage\t%d bytes\n", stats.TotalBytes)
	return w.Flush()
}

func runReset(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	fmt.Fprintln(os.Stderr, "all data cleared")
	return nil
}

func runServe(port int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}
	srv := server.New(a.store, a.pipeline(), linker.New(a.store, nil), a.scheduler(), a.log, port)
	return srv.ListenAndServe(ctx)
}

func runDaemon(port int) error {
	sigCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := openApp(sigCtx)
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}
	sched := a.scheduler()
	srv := server.New(a.store, a.pipeline(), linker.New(a.store, nil), sched, a.log, port)

	g, ctx := errgroup.WithContext(sigCtx)
	g.Go(func() error { return sched.Run(ctx) })
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	err = g.Wait()
	if sigCtx.Err() != nil {
		a.log.Info("shutting down")
		return nil
	}
	return err
}
