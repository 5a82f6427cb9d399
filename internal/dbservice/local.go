package dbservice

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"markwiki/app/internal/bus"
	"markwiki/app/internal/page"
)

// Local implements Service directly against the page store. Store failures
// are collapsed to the db-error code here; only the root message crosses the
// boundary, never wrapped internals.
type Local struct {
	store  page.Store
	logger *logrus.Logger
}

// NewLocal constructs the store-backed service implementation.
func NewLocal(store page.Store, logger *logrus.Logger) (*Local, error) {
	if store == nil {
		return nil, eris.New("page store is required")
	}

	return &Local{store: store, logger: logger}, nil
}

var _ Service = (*Local)(nil)

// FetchAllPages returns all page names sorted ascending.
func (l *Local) FetchAllPages(ctx context.Context) ([]string, error) {
	names, err := l.store.ListNames(ctx)
	if err != nil {
		return nil, dbFailure(err)
	}

	return names, nil
}

// FetchPage looks a page up by name; a missing page is Found=false, not an error.
func (l *Local) FetchPage(ctx context.Context, name string) (PageResult, error) {
	p, err := l.store.Get(ctx, name)
	if err != nil {
		return PageResult{}, dbFailure(err)
	}

	if p == nil {
		return PageResult{Found: false}, nil
	}

	return PageResult{Found: true, ID: p.ID, RawContent: p.Content}, nil
}

// CreatePage inserts a new page; a name collision fails with db-error.
func (l *Local) CreatePage(ctx context.Context, name, markdown string) error {
	if _, err := l.store.Create(ctx, name, markdown); err != nil {
		return dbFailure(err)
	}

	return nil
}

// SavePage replaces the content of an existing page by ID.
func (l *Local) SavePage(ctx context.Context, id uint, markdown string) error {
	if err := l.store.Save(ctx, id, markdown); err != nil {
		return dbFailure(err)
	}

	return nil
}

// DeletePage removes a page by ID.
func (l *Local) DeletePage(ctx context.Context, id uint) error {
	if err := l.store.Delete(ctx, id); err != nil {
		return dbFailure(err)
	}

	return nil
}

// FetchAllPagesData returns every page with its content for backup.
func (l *Local) FetchAllPagesData(ctx context.Context) ([]PageData, error) {
	pages, err := l.store.ListAll(ctx)
	if err != nil {
		return nil, dbFailure(err)
	}

	data := make([]PageData, 0, len(pages))
	for _, p := range pages {
		data = append(data, PageData{Name: p.Name, Content: p.Content})
	}

	return data, nil
}

// dbFailure converts a store error to the single db-error failure code. The
// store already logged the error at the point of detection.
func dbFailure(err error) *bus.Failure {
	if failure, ok := bus.AsFailure(err); ok {
		return failure
	}

	return bus.NewFailure(bus.CodeDBError, eris.Cause(err).Error())
}
