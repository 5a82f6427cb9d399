package dbservice

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"markwiki/app/internal/bus"
)

// okReply is the body sent back for operations without a result payload.
var okReply = json.RawMessage(`"ok"`)

// Server exposes a Service on the message bus. It validates the action tag,
// decodes the JSON body, invokes the service and replies exactly once.
type Server struct {
	svc    Service
	logger *logrus.Logger
}

// NewServer wraps svc for consumption over the bus.
func NewServer(svc Service, logger *logrus.Logger) (*Server, error) {
	if svc == nil {
		return nil, eris.New("database service is required")
	}

	return &Server{svc: svc, logger: logger}, nil
}

// Attach registers the server at address on b with a worker pool of the
// given size. The returned stop function detaches it again.
func (s *Server) Attach(b *bus.Bus, address string, workers int) (func(), error) {
	if b == nil {
		return nil, eris.New("bus is required")
	}

	return b.Consume(address, s.handle, workers)
}

func (s *Server) handle(ctx context.Context, req bus.Request) (json.RawMessage, *bus.Failure) {
	if req.Action == "" {
		s.logProtocolError(req, "message without action tag")
		return nil, bus.NewFailure(bus.CodeNoActionSpecified, "no action specified")
	}

	switch req.Action {
	case ActionAllPages:
		return s.allPages(ctx)
	case ActionGetPage:
		return s.getPage(ctx, req)
	case ActionCreatePage:
		return s.createPage(ctx, req)
	case ActionSavePage:
		return s.savePage(ctx, req)
	case ActionDeletePage:
		return s.deletePage(ctx, req)
	case ActionAllPagesData:
		return s.allPagesData(ctx)
	default:
		s.logProtocolError(req, "message with unknown action tag")
		return nil, bus.NewFailure(bus.CodeBadAction, "bad action: "+req.Action)
	}
}

func (s *Server) allPages(ctx context.Context) (json.RawMessage, *bus.Failure) {
	names, err := s.svc.FetchAllPages(ctx)
	if err != nil {
		return nil, dbFailure(err)
	}

	return encodeReply(allPagesReply{Pages: names})
}

func (s *Server) getPage(ctx context.Context, req bus.Request) (json.RawMessage, *bus.Failure) {
	var body getPageBody
	if failure := decodeBody(req, &body); failure != nil {
		return nil, failure
	}

	result, err := s.svc.FetchPage(ctx, body.Page)
	if err != nil {
		return nil, dbFailure(err)
	}

	return encodeReply(result)
}

func (s *Server) createPage(ctx context.Context, req bus.Request) (json.RawMessage, *bus.Failure) {
	var body createPageBody
	if failure := decodeBody(req, &body); failure != nil {
		return nil, failure
	}

	if err := s.svc.CreatePage(ctx, body.Title, body.Markdown); err != nil {
		return nil, dbFailure(err)
	}

	return okReply, nil
}

func (s *Server) savePage(ctx context.Context, req bus.Request) (json.RawMessage, *bus.Failure) {
	var body savePageBody
	if failure := decodeBody(req, &body); failure != nil {
		return nil, failure
	}

	if err := s.svc.SavePage(ctx, body.ID, body.Markdown); err != nil {
		return nil, dbFailure(err)
	}

	return okReply, nil
}

func (s *Server) deletePage(ctx context.Context, req bus.Request) (json.RawMessage, *bus.Failure) {
	var body deletePageBody
	if failure := decodeBody(req, &body); failure != nil {
		return nil, failure
	}

	if err := s.svc.DeletePage(ctx, body.ID); err != nil {
		return nil, dbFailure(err)
	}

	return okReply, nil
}

func (s *Server) allPagesData(ctx context.Context) (json.RawMessage, *bus.Failure) {
	data, err := s.svc.FetchAllPagesData(ctx)
	if err != nil {
		return nil, dbFailure(err)
	}

	return encodeReply(data)
}

func (s *Server) logProtocolError(req bus.Request, message string) {
	if s.logger == nil {
		return
	}

	s.logger.WithFields(logrus.Fields{
		"correlation_id": req.ID,
		"action":         req.Action,
	}).Error(message)
}

// wire bodies

type allPagesReply struct {
	Pages []string `json:"pages"`
}

type getPageBody struct {
	Page string `json:"page"`
}

type createPageBody struct {
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
}

type savePageBody struct {
	ID       uint   `json:"id"`
	Markdown string `json:"markdown"`
}

type deletePageBody struct {
	ID uint `json:"id"`
}

func decodeBody(req bus.Request, target any) *bus.Failure {
	if len(req.Body) == 0 {
		return bus.NewFailure(bus.CodeBadAction, "missing body for action: "+req.Action)
	}

	if err := json.Unmarshal(req.Body, target); err != nil {
		return bus.NewFailure(bus.CodeBadAction, "malformed body for action "+req.Action+": "+err.Error())
	}

	return nil
}

func encodeReply(payload any) (json.RawMessage, *bus.Failure) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, bus.NewFailure(bus.CodeDBError, "encoding reply: "+err.Error())
	}

	return encoded, nil
}
