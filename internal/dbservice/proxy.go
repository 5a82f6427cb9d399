package dbservice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"markwiki/app/internal/bus"
)

// defaultCallTimeout bounds facade calls whose context carries no deadline,
// so a stalled consumer surfaces as db-error instead of hanging the caller.
const defaultCallTimeout = 10 * time.Second

// Proxy is the hand-written typed client for a Service exposed on the bus.
// It encodes each call as an action-tagged message and decodes the single
// reply, standing in for what a generated proxy would do.
type Proxy struct {
	bus     *bus.Bus
	address string
	timeout time.Duration
}

// NewProxy builds a proxy that sends requests to the given bus address.
func NewProxy(b *bus.Bus, address string) (*Proxy, error) {
	if b == nil {
		return nil, eris.New("bus is required")
	}
	if address == "" {
		return nil, eris.New("bus address is required")
	}

	return &Proxy{bus: b, address: address, timeout: defaultCallTimeout}, nil
}

var _ Service = (*Proxy)(nil)

// FetchAllPages returns all page names sorted ascending.
func (p *Proxy) FetchAllPages(ctx context.Context) ([]string, error) {
	raw, err := p.call(ctx, ActionAllPages, nil)
	if err != nil {
		return nil, err
	}

	var reply allPagesReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, eris.Wrap(err, "decoding all-pages reply")
	}

	return reply.Pages, nil
}

// FetchPage looks a page up by name.
func (p *Proxy) FetchPage(ctx context.Context, name string) (PageResult, error) {
	raw, err := p.call(ctx, ActionGetPage, getPageBody{Page: name})
	if err != nil {
		return PageResult{}, err
	}

	var result PageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return PageResult{}, eris.Wrap(err, "decoding get-page reply")
	}

	return result, nil
}

// CreatePage inserts a new page with the provided title and markdown.
func (p *Proxy) CreatePage(ctx context.Context, name, markdown string) error {
	_, err := p.call(ctx, ActionCreatePage, createPageBody{Title: name, Markdown: markdown})
	return err
}

// SavePage replaces the content of the page with the provided ID.
func (p *Proxy) SavePage(ctx context.Context, id uint, markdown string) error {
	_, err := p.call(ctx, ActionSavePage, savePageBody{ID: id, Markdown: markdown})
	return err
}

// DeletePage removes the page with the provided ID.
func (p *Proxy) DeletePage(ctx context.Context, id uint) error {
	_, err := p.call(ctx, ActionDeletePage, deletePageBody{ID: id})
	return err
}

// FetchAllPagesData returns every page with its content.
func (p *Proxy) FetchAllPagesData(ctx context.Context) ([]PageData, error) {
	raw, err := p.call(ctx, ActionAllPagesData, nil)
	if err != nil {
		return nil, err
	}

	var data []PageData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, eris.Wrap(err, "decoding all-pages-data reply")
	}

	return data, nil
}

func (p *Proxy) call(ctx context.Context, action string, body any) (json.RawMessage, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var raw json.RawMessage
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrapf(err, "encoding %s request body", action)
		}
		raw = encoded
	}

	return p.bus.Request(ctx, p.address, action, raw)
}
