package http

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"markwiki/app/internal/db"
	"markwiki/app/internal/http/templates"
)

const (
	htmlContentType      = "text/html; charset=utf-8"
	errorFallbackMessage = "We couldn't process your request right now."
	indexTitle           = "Wiki home"
)

// defaultPageMarkdown seeds the editor when a page does not exist yet.
const defaultPageMarkdown = "# A new page\n\nFeel-free to write in Markdown!\n"

type htmlResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type wikiInput struct {
	Name string `path:"name"`
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

func (s *Server) registerIndexRoute() {
	huma.Get(s.api, "/", s.indexHandler, htmlOperation("Wiki index", stdhttp.StatusInternalServerError))
}

func (s *Server) registerWikiRoute() {
	huma.Get(s.api, "/wiki/{name}", s.wikiHandler, htmlOperation(
		"Render wiki page",
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerBackupRoute() {
	huma.Get(s.api, "/backup", s.backupHandler, htmlOperation(
		"Backup all pages",
		stdhttp.StatusBadGateway,
		stdhttp.StatusInternalServerError,
	))
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

func (s *Server) indexHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	return s.renderIndex(ctx, "")
}

func (s *Server) renderIndex(ctx context.Context, backupURL string) (*htmlResponse, error) {
	names, err := s.service.FetchAllPages(ctx)
	if err != nil {
		s.recordError(ctx, err, "listing pages", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't load the page list.")
	}

	body, err := renderComponent(ctx, templates.IndexPage(templates.IndexPageData{
		Title:     indexTitle,
		Pages:     names,
		BackupURL: backupURL,
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering index page", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render the index.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) wikiHandler(ctx context.Context, input *wikiInput) (*htmlResponse, error) {
	name := input.Name

	result, err := s.service.FetchPage(ctx, name)
	if err != nil {
		s.recordError(ctx, err, "fetching wiki page", logrus.Fields{"name": name})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	raw := defaultPageMarkdown
	if result.Found {
		raw = result.RawContent
	}

	rendered, err := s.markdown.Render(raw)
	if err != nil {
		s.recordError(ctx, err, "rendering markdown", logrus.Fields{"name": name})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this page.")
	}

	body, err := renderComponent(ctx, templates.WikiPage(templates.WikiPageData{
		Title:      name,
		ID:         result.ID,
		NewPage:    !result.Found,
		RawContent: raw,
		HTML:       rendered,
		Timestamp:  time.Now().Format(time.RFC1123),
	}))
	if err != nil {
		s.recordError(ctx, err, "rendering wiki page", logrus.Fields{"name": name})
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "We couldn't render this page.")
	}

	return newHTMLResponse(stdhttp.StatusOK, body), nil
}

func (s *Server) backupHandler(ctx context.Context, _ *struct{}) (*htmlResponse, error) {
	if s.backup == nil {
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, "Backups are not configured.")
	}

	pages, err := s.service.FetchAllPagesData(ctx)
	if err != nil {
		s.recordError(ctx, err, "exporting pages for backup", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage)
	}

	backupURL, err := s.backup.Push(ctx, pages)
	if err != nil {
		s.recordError(ctx, err, "pushing backup", nil)
		return s.renderErrorResponse(ctx, stdhttp.StatusBadGateway, "The backup service rejected the wiki snapshot.")
	}

	return s.renderIndex(ctx, backupURL)
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	sqlDB, err := db.SQLDB(s.db)
	if err != nil {
		s.recordError(ctx, err, "obtaining sql db", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	} else if pingErr := sqlDB.PingContext(ctx); pingErr != nil {
		s.recordError(ctx, pingErr, "pinging database", nil)
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
		resp.Status = stdhttp.StatusServiceUnavailable
	}

	if resp.Status == 0 {
		resp.Status = stdhttp.StatusOK
	}

	return resp, nil
}

func newHTMLResponse(status int, body []byte) *htmlResponse {
	return &htmlResponse{
		Status:      status,
		ContentType: htmlContentType,
		Body:        body,
	}
}

func htmlOperation(summary string, statuses ...int) func(op *huma.Operation) {
	return func(op *huma.Operation) {
		if summary != "" {
			op.Summary = summary
		}
		if op.Responses == nil {
			op.Responses = map[string]*huma.Response{}
		}

		statusCodes := append([]int{stdhttp.StatusOK}, statuses...)
		for _, status := range statusCodes {
			code := strconv.Itoa(status)
			op.Responses[code] = &huma.Response{
				Description: stdhttp.StatusText(status),
				Content: map[string]*huma.MediaType{
					htmlContentType: {
						Schema: &huma.Schema{Type: "string"},
					},
				},
			}
		}
	}
}

func (s *Server) renderErrorResponse(ctx context.Context, status int, message string) (*htmlResponse, error) {
	label := fmt.Sprintf("%d %s", status, stdhttp.StatusText(status))
	component := templates.ErrorPage(templates.ErrorPageData{
		StatusLabel: label,
		Message:     message,
	})

	body, err := renderComponent(ctx, component)
	if err != nil {
		s.recordError(ctx, err, "rendering error page", logrus.Fields{"status": status})
		fallback := []byte(fmt.Sprintf("<html><body><h1>%s</h1><p>%s</p></body></html>", label, message))
		return newHTMLResponse(status, fallback), nil
	}

	return newHTMLResponse(status, body), nil
}

func (s *Server) recordError(ctx context.Context, err error, message string, fields logrus.Fields) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		if requestID := RequestIDFromContext(ctx); requestID != "" {
			entry = entry.WithField("request_id", requestID)
		}
		entry.Error(message)
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	if s.sentry != nil {
		s.sentry.CaptureException(err)
	}
}
