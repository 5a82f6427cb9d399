package page

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store defines persistence operations for wiki pages. The store is the sole
// authority over the pages table; nothing else caches or mutates page state.
type Store interface {
	ListNames(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*Page, error)
	Create(ctx context.Context, name, content string) (*Page, error)
	Save(ctx context.Context, id uint, content string) error
	Delete(ctx context.Context, id uint) error
	ListAll(ctx context.Context) ([]Page, error)
	Count(ctx context.Context) (int64, error)
}

// GormStore persists pages using a Gorm database connection.
type GormStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewStore constructs a Gorm-backed store implementation.
func NewStore(db *gorm.DB, logger *logrus.Logger) (*GormStore, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormStore{db: db, logger: logger}, nil
}

var _ Store = (*GormStore)(nil)

// ListNames returns every page name in ascending lexicographic order. An
// empty table yields an empty slice, not an error.
func (s *GormStore) ListNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0)

	err := s.db.WithContext(ctx).
		Model(&Page{}).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		s.logError(nil, err, "listing page names")
		return nil, eris.Wrap(err, "listing page names")
	}

	return names, nil
}

// Get returns the page with the provided name or nil when no row matches.
// Callers must treat nil as "new page", not as a failure.
func (s *GormStore) Get(ctx context.Context, name string) (*Page, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, eris.New("page name is required")
	}

	var page Page
	err := s.db.WithContext(ctx).First(&page, "name = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		s.logError(logrus.Fields{"name": trimmed}, err, "fetching page by name")
		return nil, eris.Wrapf(err, "fetching page by name: %s", trimmed)
	}

	return &page, nil
}

// Create inserts a new page and returns it with its assigned ID. The unique
// index on name rejects duplicates; when two creates race, exactly one wins.
func (s *GormStore) Create(ctx context.Context, name, content string) (*Page, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, eris.New("page name is required")
	}

	page := &Page{Name: trimmed, Content: content}
	if err := s.db.WithContext(ctx).Create(page).Error; err != nil {
		s.logError(logrus.Fields{"name": trimmed}, err, "creating page")
		return nil, eris.Wrapf(err, "creating page: %s", trimmed)
	}

	return page, nil
}

// Save replaces the content of the page with the provided ID. The name is
// never altered here. An update matching zero rows still reports success.
func (s *GormStore) Save(ctx context.Context, id uint, content string) error {
	err := s.db.WithContext(ctx).
		Model(&Page{}).
		Where("id = ?", id).
		Update("content", content).Error
	if err != nil {
		s.logError(logrus.Fields{"id": id}, err, "saving page content")
		return eris.Wrapf(err, "saving page %d", id)
	}

	return nil
}

// Delete removes the page with the provided ID. Deleting an ID with no row
// reports success, mirroring Save.
func (s *GormStore) Delete(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&Page{}, id).Error; err != nil {
		s.logError(logrus.Fields{"id": id}, err, "deleting page")
		return eris.Wrapf(err, "deleting page %d", id)
	}

	return nil
}

// ListAll returns every page with its content, for bulk export.
func (s *GormStore) ListAll(ctx context.Context) ([]Page, error) {
	pages := make([]Page, 0)

	if err := s.db.WithContext(ctx).Order("name ASC").Find(&pages).Error; err != nil {
		s.logError(nil, err, "listing pages for export")
		return nil, eris.Wrap(err, "listing pages for export")
	}

	return pages, nil
}

// Count returns the number of stored pages.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var count int64

	if err := s.db.WithContext(ctx).Model(&Page{}).Count(&count).Error; err != nil {
		s.logError(nil, err, "counting pages")
		return 0, eris.Wrap(err, "counting pages")
	}

	return count, nil
}

func (s *GormStore) logError(fields logrus.Fields, err error, message string) {
	if s.logger == nil {
		return
	}

	entry := s.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
