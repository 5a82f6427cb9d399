// Package dbservice exposes the page store behind a typed facade that is
// reachable both in-process and over the internal message bus. The HTTP
// layer only ever talks to a Service; the bus endpoint lets the store run on
// its own worker pool without the HTTP layer blocking on database I/O.
package dbservice

import "context"

// Action tags understood by the database service bus endpoint.
const (
	ActionAllPages     = "all-pages"
	ActionGetPage      = "get-page"
	ActionCreatePage   = "create-page"
	ActionSavePage     = "save-page"
	ActionDeletePage   = "delete-page"
	ActionAllPagesData = "all-pages-data"
)

// PageResult is the fetch-page reply. Found=false means the page was never
// created; callers render a fresh page instead of treating it as an error.
type PageResult struct {
	Found      bool   `json:"found"`
	ID         uint   `json:"id,omitempty"`
	RawContent string `json:"rawContent,omitempty"`
}

// PageData is a single exported page in a bulk dump.
type PageData struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Service is the database facade. Every call completes exactly once with
// either a result or an error carrying a *bus.Failure; implementations are
// safe for concurrent use.
type Service interface {
	FetchAllPages(ctx context.Context) ([]string, error)
	FetchPage(ctx context.Context, name string) (PageResult, error)
	CreatePage(ctx context.Context, name, markdown string) error
	SavePage(ctx context.Context, id uint, markdown string) error
	DeletePage(ctx context.Context, id uint) error
	FetchAllPagesData(ctx context.Context) ([]PageData, error)
}
