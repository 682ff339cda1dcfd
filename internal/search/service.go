package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to the
// content store's match filter.
type Service struct {
	meili    *Meili
	fallback *GroqFallback
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, fallback *GroqFallback) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search tries Meilisearch if healthy, otherwise the content-store fallback.
func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to content store: %v", err)
	}

	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		log.Printf("search: fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexStartup indexes a startup (fire-and-forget to Meilisearch).
func (s *Service) IndexStartup(record StartupRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexStartup(record); err != nil {
			log.Printf("search: index startup %s: %v", record.ID, err)
		}
	}()
}

// ReindexAll reads all startups from the content store and pushes them to
// Meilisearch. Called during bootstrap.
func (s *Service) ReindexAll(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	items, err := s.fallback.store.SearchStartups(ctx, "")
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	records := make([]StartupRecord, 0, len(items))
	for _, item := range items {
		records = append(records, Record(item))
	}
	if err := s.meili.IndexStartups(records); err != nil {
		log.Printf("search: reindex startups: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
