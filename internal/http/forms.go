package http

import (
	stdhttp "net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Form posts are registered straight on the mux; they decode
// x-www-form-urlencoded bodies and answer with 303 redirects, so the huma
// content negotiation never gets involved. wrapForm gives them the same
// middleware chain as the huma operations.
func (s *Server) registerFormRoutes() {
	s.mux.Handle("POST /create", s.wrapForm(s.createRedirectHandler))
	s.mux.Handle("POST /save", s.wrapForm(s.saveHandler))
	s.mux.Handle("POST /delete", s.wrapForm(s.deleteHandler))
}

// createRedirectHandler only computes where the browser should go next; the
// page row is created by the save handler once content is submitted.
func (s *Server) createRedirectHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	name := strings.TrimSpace(r.FormValue("name"))

	location := "/wiki/" + url.PathEscape(name)
	if name == "" {
		location = "/"
	}

	stdhttp.Redirect(w, r, location, stdhttp.StatusSeeOther)
}

func (s *Server) saveHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()
	title := strings.TrimSpace(r.FormValue("title"))
	markdown := r.FormValue("markdown")
	newPage := r.FormValue("newPage") == "yes"

	if title == "" {
		s.writeErrorPage(w, r, stdhttp.StatusBadRequest, "A page title is required.")
		return
	}

	var err error
	if newPage {
		err = s.service.CreatePage(ctx, title, markdown)
	} else {
		id, parseErr := parsePageID(r.FormValue("id"))
		if parseErr != nil {
			s.logFormError(r, parseErr, "parsing page id")
			s.writeErrorPage(w, r, stdhttp.StatusBadRequest, "The page id is malformed.")
			return
		}
		err = s.service.SavePage(ctx, id, markdown)
	}

	if err != nil {
		s.recordError(ctx, err, "saving page", logrus.Fields{"title": title, "new_page": newPage})
		s.writeErrorPage(w, r, stdhttp.StatusInternalServerError, "We couldn't save the page.")
		return
	}

	stdhttp.Redirect(w, r, "/wiki/"+url.PathEscape(title), stdhttp.StatusSeeOther)
}

func (s *Server) deleteHandler(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	id, err := parsePageID(r.FormValue("id"))
	if err != nil {
		s.logFormError(r, err, "parsing page id")
		s.writeErrorPage(w, r, stdhttp.StatusBadRequest, "The page id is malformed.")
		return
	}

	if err := s.service.DeletePage(ctx, id); err != nil {
		s.recordError(ctx, err, "deleting page", logrus.Fields{"id": id})
		s.writeErrorPage(w, r, stdhttp.StatusInternalServerError, "We couldn't delete the page.")
		return
	}

	stdhttp.Redirect(w, r, "/", stdhttp.StatusSeeOther)
}

func parsePageID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid page id: %s", raw)
	}

	return uint(value), nil
}

func (s *Server) writeErrorPage(w stdhttp.ResponseWriter, r *stdhttp.Request, status int, message string) {
	resp, err := s.renderErrorResponse(r.Context(), status, message)
	if err != nil || resp == nil {
		stdhttp.Error(w, message, status)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func (s *Server) logFormError(r *stdhttp.Request, err error, message string) {
	if s.logger == nil {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"error": err.Error(),
		"path":  r.URL.Path,
	}).Warn(message)
}
