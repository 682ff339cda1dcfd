package search

import (
	"context"
	"fmt"

	"pitchbay/api/internal/store"
)

// StartupLister is the slice of the data store the fallback needs.
type StartupLister interface {
	SearchStartups(ctx context.Context, term string) ([]store.Startup, error)
}

// GroqFallback answers searches by running the content store's own match
// filter when Meilisearch is down or unconfigured.
type GroqFallback struct {
	store StartupLister
}

func NewGroqFallback(store StartupLister) *GroqFallback {
	return &GroqFallback{store: store}
}

func (f *GroqFallback) Search(ctx context.Context, q Query) ([]Result, int, error) {
	items, err := f.store.SearchStartups(ctx, q.Text)
	if err != nil {
		return nil, 0, fmt.Errorf("content-store search: %w", err)
	}

	results := make([]Result, 0, len(items))
	for _, item := range items {
		if q.FilterCategory != "" && item.Category != q.FilterCategory {
			continue
		}
		results = append(results, startupToResult(item))
	}
	total := len(results)
	results = window(results, q.Offset, q.Limit)
	return results, total, nil
}

func startupToResult(item store.Startup) Result {
	result := Result{
		ID:       item.ID,
		Title:    item.Title,
		Snippet:  item.Description,
		Category: item.Category,
		Slug:     item.Slug.Current,
		Image:    item.Image,
	}
	if item.Author != nil {
		result.AuthorName = item.Author.Name
	}
	return result
}

func window(results []Result, offset, limit int) []Result {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []Result{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

// Record converts a startup document into its index record.
func Record(item store.Startup) StartupRecord {
	record := StartupRecord{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Slug:        item.Slug.Current,
		Image:       item.Image,
	}
	if item.Author != nil {
		record.AuthorName = item.Author.Name
	}
	return record
}
