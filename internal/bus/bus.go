package bus

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Request is a single message delivered to a consumer. ID correlates the
// reply with the originating call; Action selects the operation and Body
// carries its arguments as JSON.
type Request struct {
	ID     string
	Action string
	Body   json.RawMessage
}

// Reply carries either a result payload or a failure, never both.
type Reply struct {
	Body    json.RawMessage
	Failure *Failure
}

// Handler processes one request and returns the reply payload or a failure.
type Handler func(ctx context.Context, req Request) (json.RawMessage, *Failure)

type call struct {
	req   Request
	reply chan Reply
}

// Bus routes request/reply messages between in-process components by
// address. Callers and consumers never share state beyond the bus itself;
// each call owns a one-shot reply channel, so every request completes
// exactly once.
type Bus struct {
	mu      sync.RWMutex
	inboxes map[string]chan call
	logger  *logrus.Logger
}

// New constructs an empty bus. The logger is optional.
func New(logger *logrus.Logger) *Bus {
	return &Bus{
		inboxes: make(map[string]chan call),
		logger:  logger,
	}
}

// Consume registers handler as the consumer for address. Inbound requests
// are taken off the inbox by a single dispatcher goroutine and handed to a
// worker pool bounded at workers concurrent invocations. The returned stop
// function unregisters the address and waits for in-flight handlers.
func (b *Bus) Consume(address string, handler Handler, workers int) (func(), error) {
	if address == "" {
		return nil, eris.New("bus address is required")
	}
	if handler == nil {
		return nil, eris.New("bus handler is required")
	}
	if workers <= 0 {
		workers = 1
	}

	inbox := make(chan call)

	b.mu.Lock()
	if _, exists := b.inboxes[address]; exists {
		b.mu.Unlock()
		return nil, eris.Errorf("bus address already consumed: %s", address)
	}
	b.inboxes[address] = inbox
	b.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case c := <-inbox:
				sem <- struct{}{}
				wg.Add(1)
				go func(c call) {
					defer wg.Done()
					defer func() { <-sem }()
					b.serve(ctx, address, handler, c)
				}(c)
			}
		}
	}()

	stop := func() {
		b.mu.Lock()
		delete(b.inboxes, address)
		b.mu.Unlock()
		cancel()
		wg.Wait()
	}

	return stop, nil
}

func (b *Bus) serve(ctx context.Context, address string, handler Handler, c call) {
	body, failure := handler(ctx, c.req)

	if b.logger != nil && failure != nil {
		b.logger.WithFields(logrus.Fields{
			"address":        address,
			"action":         c.req.Action,
			"correlation_id": c.req.ID,
			"code":           int(failure.Code),
		}).Debug("bus request failed")
	}

	// The reply channel is buffered, so the send cannot block even when the
	// caller has already abandoned the request.
	c.reply <- Reply{Body: body, Failure: failure}
}

// Request sends action and body to the consumer registered at address and
// waits for its single reply. A missing consumer, a cancelled context, or an
// expired deadline all surface as a *Failure with CodeDBError so callers see
// one failure taxonomy.
func (b *Bus) Request(ctx context.Context, address, action string, body json.RawMessage) (json.RawMessage, error) {
	b.mu.RLock()
	inbox, ok := b.inboxes[address]
	b.mu.RUnlock()

	if !ok {
		return nil, NewFailure(CodeDBError, "no consumer registered at address "+address)
	}

	c := call{
		req:   Request{ID: uuid.NewString(), Action: action, Body: body},
		reply: make(chan Reply, 1),
	}

	select {
	case inbox <- c:
	case <-ctx.Done():
		return nil, NewFailure(CodeDBError, "bus request abandoned: "+ctx.Err().Error())
	}

	select {
	case reply := <-c.reply:
		if reply.Failure != nil {
			return nil, reply.Failure
		}
		return reply.Body, nil
	case <-ctx.Done():
		return nil, NewFailure(CodeDBError, "bus reply timed out: "+ctx.Err().Error())
	}
}
