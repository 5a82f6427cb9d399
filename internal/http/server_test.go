package http

import (
	"context"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"markwiki/app/internal/backup"
	"markwiki/app/internal/bus"
	"markwiki/app/internal/dbservice"
)

func TestIndexListsPagesAndCreateForm(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{names: []string{"Alpha", "Zeta"}})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected content type %q, got %q", htmlContentType, ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "/wiki/Alpha") || !strings.Contains(body, "/wiki/Zeta") {
		t.Fatalf("expected page links in body, got %q", body)
	}
	if !strings.Contains(body, `action="/create"`) {
		t.Fatalf("expected create form in body, got %q", body)
	}
}

func TestIndexReturns500OnServiceFailure(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{namesErr: bus.NewFailure(bus.CodeDBError, "boom")})

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != 500 {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestWikiRouteRendersMarkdown(t *testing.T) {
	t.Parallel()

	service := &stubService{page: dbservice.PageResult{Found: true, ID: 7, RawContent: "# Hi"}}
	srv := newTestServer(t, service)

	req := httptest.NewRequest("GET", "/wiki/Home", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Hi</h1>") {
		t.Fatalf("expected rendered markdown heading, got %q", body)
	}
	if !strings.Contains(body, `name="newPage" value="no"`) {
		t.Fatalf("expected newPage=no for an existing page, got %q", body)
	}
	if !strings.Contains(body, `name="id" value="7"`) {
		t.Fatalf("expected hidden id field, got %q", body)
	}
	if !strings.Contains(body, "# Hi") {
		t.Fatalf("expected raw markdown in the editor, got %q", body)
	}
}

func TestWikiRouteShowsDefaultContentForMissingPage(t *testing.T) {
	t.Parallel()

	service := &stubService{page: dbservice.PageResult{Found: false}}
	srv := newTestServer(t, service)

	req := httptest.NewRequest("GET", "/wiki/Unknown", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "A new page") {
		t.Fatalf("expected default page content, got %q", body)
	}
	if !strings.Contains(body, `name="newPage" value="yes"`) {
		t.Fatalf("expected newPage=yes for a missing page, got %q", body)
	}
}

func TestWikiRouteSanitisesScriptTags(t *testing.T) {
	t.Parallel()

	service := &stubService{page: dbservice.PageResult{
		Found:      true,
		ID:         1,
		RawContent: "hello <script>alert(1)</script>",
	}}
	srv := newTestServer(t, service)

	req := httptest.NewRequest("GET", "/wiki/XSS", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if strings.Contains(rec.Body.String(), "<script>alert(1)</script>") {
		t.Fatalf("expected script tags to be stripped, got %q", rec.Body.String())
	}
}

func TestCreateRedirectsToNewPage(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{})

	rec := postForm(t, srv, "/create", url.Values{"name": {"Home"}})

	if rec.Code != 303 {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/wiki/Home" {
		t.Fatalf("expected redirect to /wiki/Home, got %q", location)
	}
}

func TestCreateWithBlankNameRedirectsHome(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{})

	rec := postForm(t, srv, "/create", url.Values{"name": {"   "}})

	if rec.Code != 303 {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/" {
		t.Fatalf("expected redirect to /, got %q", location)
	}
}

func TestFormPanicIsRecovered(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &panickingService{})

	rec := postForm(t, srv, "/save", url.Values{
		"title":    {"Home"},
		"markdown": {"body"},
		"newPage":  {"no"},
		"id":       {"7"},
	})

	if rec.Code != 500 {
		t.Fatalf("expected status 500 after recovered panic, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "internal server error") {
		t.Fatalf("expected recovery response body, got %q", body)
	}
}

func TestFormResponsesCarryRequestID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{})

	rec := postForm(t, srv, "/create", url.Values{"name": {"Home"}})

	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header on form response")
	}
}

func TestFormRequestsAreRateLimited(t *testing.T) {
	t.Parallel()

	gormDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open returned error: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv, err := NewServer(Options{
		Service:  &stubService{},
		Database: gormDB,
		Logger:   logger,
		RateLimiter: RateLimiterSettings{
			RequestsPerSecond: 0.001,
			Burst:             1,
		},
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}

	first := postForm(t, srv, "/create", url.Values{"name": {"Home"}})
	if first.Code != 303 {
		t.Fatalf("expected first request to pass with 303, got %d", first.Code)
	}

	second := postForm(t, srv, "/create", url.Values{"name": {"Home"}})
	if second.Code != 429 {
		t.Fatalf("expected second request to be rate limited with 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on rate limited response")
	}
}

func TestSaveCreatesNewPage(t *testing.T) {
	t.Parallel()

	service := &stubService{}
	srv := newTestServer(t, service)

	rec := postForm(t, srv, "/save", url.Values{
		"title":    {"Home"},
		"markdown": {"# Hi"},
		"newPage":  {"yes"},
		"id":       {"0"},
	})

	if rec.Code != 303 {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/wiki/Home" {
		t.Fatalf("expected redirect to /wiki/Home, got %q", location)
	}
	if service.createdName != "Home" || service.createdContent != "# Hi" {
		t.Fatalf("expected CreatePage call, got %q/%q", service.createdName, service.createdContent)
	}
	if service.savedID != 0 {
		t.Fatalf("expected no SavePage call, got id %d", service.savedID)
	}
}

func TestSaveUpdatesExistingPage(t *testing.T) {
	t.Parallel()

	service := &stubService{}
	srv := newTestServer(t, service)

	rec := postForm(t, srv, "/save", url.Values{
		"title":    {"Home"},
		"markdown": {"updated"},
		"newPage":  {"no"},
		"id":       {"7"},
	})

	if rec.Code != 303 {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if service.savedID != 7 || service.savedContent != "updated" {
		t.Fatalf("expected SavePage(7, updated), got %d/%q", service.savedID, service.savedContent)
	}
	if service.createdName != "" {
		t.Fatalf("expected no CreatePage call, got %q", service.createdName)
	}
}

func TestSaveReturns500OnServiceFailure(t *testing.T) {
	t.Parallel()

	service := &stubService{createErr: bus.NewFailure(bus.CodeDBError, "constraint violation")}
	srv := newTestServer(t, service)

	rec := postForm(t, srv, "/save", url.Values{
		"title":    {"X"},
		"markdown": {"dup"},
		"newPage":  {"yes"},
	})

	if rec.Code != 500 {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != htmlContentType {
		t.Fatalf("expected content type %q, got %q", htmlContentType, ct)
	}
}

func TestSaveRejectsMalformedID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{})

	rec := postForm(t, srv, "/save", url.Values{
		"title":    {"Home"},
		"markdown": {"x"},
		"newPage":  {"no"},
		"id":       {"not-a-number"},
	})

	if rec.Code != 400 {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestDeleteRedirectsHome(t *testing.T) {
	t.Parallel()

	service := &stubService{}
	srv := newTestServer(t, service)

	rec := postForm(t, srv, "/delete", url.Values{"id": {"7"}})

	if rec.Code != 303 {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if location := rec.Header().Get("Location"); location != "/" {
		t.Fatalf("expected redirect to /, got %q", location)
	}
	if service.deletedID != 7 {
		t.Fatalf("expected DeletePage(7), got %d", service.deletedID)
	}
}

func TestBackupRendersIndexWithSnippetURL(t *testing.T) {
	t.Parallel()

	service := &stubService{
		names: []string{"Home"},
		data:  []dbservice.PageData{{Name: "Home", Content: "# Hi"}},
	}
	srv := newTestServerWithBackup(t, service, `{"id":"snap1"}`)

	req := httptest.NewRequest("GET", "/backup", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "snap1") {
		t.Fatalf("expected snippet URL in body, got %q", rec.Body.String())
	}
}

func TestHealthRouteReportsOK(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &stubService{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

// helper utilities

func newTestServer(t *testing.T, svc dbservice.Service) *Server {
	t.Helper()
	return newServerWithOptions(t, svc, nil)
}

func newTestServerWithBackup(t *testing.T, svc dbservice.Service, response string) *Server {
	t.Helper()

	snippetServer := httptest.NewServer(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(snippetServer.Close)

	client, err := backup.NewClient(backup.Options{
		Endpoint:      snippetServer.URL,
		PublicBaseURL: "https://snippets.example/view",
	})
	if err != nil {
		t.Fatalf("backup.NewClient returned error: %v", err)
	}

	return newServerWithOptions(t, svc, client)
}

func newServerWithOptions(t *testing.T, svc dbservice.Service, backupClient *backup.Client) *Server {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open returned error: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	srv, err := NewServer(Options{
		Service:  svc,
		Database: gormDB,
		Backup:   backupClient,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}

	return srv
}

func postForm(t *testing.T, srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)
	return rec
}

// stubs

type stubService struct {
	names    []string
	namesErr error

	page    dbservice.PageResult
	pageErr error

	createErr      error
	createdName    string
	createdContent string

	saveErr      error
	savedID      uint
	savedContent string

	deleteErr error
	deletedID uint

	data    []dbservice.PageData
	dataErr error
}

func (s *stubService) FetchAllPages(_ context.Context) ([]string, error) {
	if s.namesErr != nil {
		return nil, s.namesErr
	}
	return s.names, nil
}

func (s *stubService) FetchPage(_ context.Context, _ string) (dbservice.PageResult, error) {
	if s.pageErr != nil {
		return dbservice.PageResult{}, s.pageErr
	}
	return s.page, nil
}

func (s *stubService) CreatePage(_ context.Context, name, markdown string) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.createdName = name
	s.createdContent = markdown
	return nil
}

func (s *stubService) SavePage(_ context.Context, id uint, markdown string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.savedID = id
	s.savedContent = markdown
	return nil
}

func (s *stubService) DeletePage(_ context.Context, id uint) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

func (s *stubService) FetchAllPagesData(_ context.Context) ([]dbservice.PageData, error) {
	if s.dataErr != nil {
		return nil, s.dataErr
	}
	return s.data, nil
}

var _ dbservice.Service = (*stubService)(nil)

// panickingService blows up on save to exercise the recovery middleware.
type panickingService struct {
	stubService
}

func (s *panickingService) SavePage(_ context.Context, _ uint, _ string) error {
	panic("store blew up")
}

var _ dbservice.Service = (*panickingService)(nil)
