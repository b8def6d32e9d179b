// Package server exposes the store over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elonfeng/shoptrail/internal/ingest"
	"github.com/elonfeng/shoptrail/internal/logger"
	"github.com/elonfeng/shoptrail/internal/store"
	"github.com/elonfeng/shoptrail/pkg/linker"
)

// ReviewCollector runs one review collection pass.
type ReviewCollector interface {
	CollectReviews(ctx context.Context) (saved, linked int, err error)
}

// Server provides the HTTP API.
type Server struct {
	store     *store.Store
	pipeline  *ingest.Pipeline
	linker    *linker.ReviewLinker
	collector ReviewCollector
	log       *logger.Logger
	port      int
}

// New creates a new HTTP server. collector may be nil.
func New(s *store.Store, p *ingest.Pipeline, l *linker.ReviewLinker, collector ReviewCollector, log *logger.Logger, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		store:     s,
		pipeline:  p,
		linker:    l,
		collector: collector,
		log:       logger.OrNop(log),
		port:      port,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/observations", s.handleIngest)
	mux.HandleFunc("GET /api/v1/products", s.handleProducts)
	mux.HandleFunc("GET /api/v1/products/{id}", s.handleProduct)
	mux.HandleFunc("PATCH /api/v1/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("GET /api/v1/products/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/v1/products/{id}/reviews", s.handleLinkedReviews)
	mux.HandleFunc("GET /api/v1/visits", s.handleVisits)
	mux.HandleFunc("GET /api/v1/should-scan", s.handleShouldScan)
	mux.HandleFunc("GET /api/v1/reviews", s.handleReviews)
	mux.HandleFunc("POST /api/v1/reviews", s.handleSaveReview)
	mux.HandleFunc("POST /api/v1/reviews/link", s.handleLinkAll)
	mux.HandleFunc("POST /api/v1/reviews/collect", s.handleCollect)
	mux.HandleFunc("GET /api/v1/sites", s.handleSites)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("server listening", "addr", srv.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var obs store.Observation
	if err := json.NewDecoder(r.Body).Decode(&obs); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode observation: %w", err))
		return
	}
	if obs.URL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	res, err := s.pipeline.Ingest(r.Context(), obs)
	if err != nil {
		s.fail(w, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.GetAllProducts(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeList(w, products, len(products))
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	p, found, err := s.store.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, errors.New("product not found"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var upd store.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode update: %w", err))
		return
	}

	id := r.PathValue("id")
	ok, err := s.store.UpdateFields(r.Context(), id, upd)
	if err != nil {
		s.fail(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("product not found"))
		return
	}
	s.handleProduct(w, r)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.store.GetProductHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeList(w, history, len(history))
}

func (s *Server) handleLinkedReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.store.GetLinkedReviews(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeList(w, reviews, len(reviews))
}

func (s *Server) handleVisits(w http.ResponseWriter, r *http.Request) {
	var (
		visits []store.SiteVisit
		err    error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		visits, err = s.store.GetVisitsByCategory(r.Context(), category)
	} else {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil || n < 0 {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
				return
			}
			limit = n
		}
		visits, err = s.store.GetRecentVisits(r.Context(), limit)
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	writeList(w, visits, len(visits))
}

func (s *Server) handleShouldScan(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}
	scan, err := s.store.ShouldScan(r.Context(), url)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url, "should_scan": scan})
}

func (s *Server) handleReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.store.GetReviews(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeList(w, reviews, len(reviews))
}

func (s *Server) handleSaveReview(w http.ResponseWriter, r *http.Request) {
	var review store.YoutubeReview
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode review: %w", err))
		return
	}
	if review.VideoID == "" {
		writeError(w, http.StatusBadRequest, errors.New("video_id is required"))
		return
	}

	saved, err := s.store.SaveReview(r.Context(), review)
	if err != nil {
		s.fail(w, err)
		return
	}
	linked, err := s.linker.LinkReview(r.Context(), saved.VideoID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": saved, "linked_product_ids": linked})
}

func (s *Server) handleLinkAll(w http.ResponseWriter, r *http.Request) {
	created, err := s.linker.LinkAllExisting(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"links_created": created})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("review collection is not configured"))
		return
	}
	saved, linked, err := s.collector.CollectReviews(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"saved": saved, "linked_products": linked})
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	metas, err := s.store.GetSiteMetas(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeList(w, metas, len(metas))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.log.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func writeList(w http.ResponseWriter, data any, count int) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  data,
		"count": count,
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
