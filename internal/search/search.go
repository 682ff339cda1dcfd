package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Snippet    string `json:"snippet"`
	Category   string `json:"category"`
	AuthorName string `json:"authorName"`
	Slug       string `json:"slug"`
	Image      string `json:"image,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterCategory string // empty = all categories
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push startups into a search index.
type Indexer interface {
	IndexStartup(record StartupRecord) error
	IndexStartups(records []StartupRecord) error
	DeleteStartup(id string) error
}

// StartupRecord is the data we index for a startup.
type StartupRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	AuthorName  string `json:"authorName"`
	Slug        string `json:"slug"`
	Image       string `json:"image,omitempty"`
}
