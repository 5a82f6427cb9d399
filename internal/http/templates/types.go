package templates

// IndexPageData contains the dynamic values rendered on the wiki index.
type IndexPageData struct {
	Title     string
	Pages     []string
	BackupURL string
}

// WikiPageData contains the dynamic values for a single page view. HTML is
// the sanitised rendering of RawContent, which stays available for editing.
type WikiPageData struct {
	Title      string
	ID         uint
	NewPage    bool
	RawContent string
	HTML       string
	Timestamp  string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	StatusLabel string
	Message     string
}
