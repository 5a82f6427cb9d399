package page

// Page is a wiki page row. ID is assigned by the store on creation and never
// changes; Name is the unique lookup key carried in URLs; Content holds the
// raw Markdown source.
type Page struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	Name    string `gorm:"size:255;uniqueIndex:idx_pages_name;not null"`
	Content string `gorm:"type:text;not null"`
}

// TableName defines the table name for the Page model.
func (Page) TableName() string {
	return "pages"
}
