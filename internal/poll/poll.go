package poll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/grr-tools/grrctl/internal/apiclient"
)

// DefaultInterval is the delay between two poll cycles.
const DefaultInterval = time.Second

// FinishedState is the value of a long-running operation's "state" field once
// the server is done with it.
const FinishedState = "FINISHED"

// ErrGaveUp rejects a handle whose BackOff stopped before the check passed.
var ErrGaveUp = errors.New("poll: gave up before the operation finished")

// Getter issues GET requests. *apiclient.Client implements it.
type Getter interface {
	Get(ctx context.Context, path string, params apiclient.Params) (*apiclient.Response, error)
}

// CheckFunc decides whether a polled response is final.
type CheckFunc func(*apiclient.Response) bool

// StateFinished is the default CheckFunc: it accepts responses whose "state"
// field equals FinishedState.
func StateFinished(resp *apiclient.Response) bool {
	return resp.Field("state").String() == FinishedState
}

// FieldEquals returns a CheckFunc that accepts responses whose gjson path
// resolves to want.
func FieldEquals(path, want string) CheckFunc {
	return func(resp *apiclient.Response) bool {
		field := resp.Field(path)
		return field.Exists() && field.String() == want
	}
}

// State is the lifecycle position of a Handle.
type State int32

const (
	Pending State = iota
	Polling
	Resolved
	Rejected
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Polling:
		return "polling"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Poller repeats GET requests until a response satisfies a CheckFunc.
type Poller struct {
	client Getter
	delays func() backoff.BackOff
	log    *zap.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithInterval waits a fixed d between cycles instead of DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.delays = constantDelays(d)
		}
	}
}

// WithBackOff draws the delay between cycles from a fresh BackOff per poll.
// A BackOff returning backoff.Stop rejects the handle with ErrGaveUp.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(p *Poller) {
		if newBackOff != nil {
			p.delays = newBackOff
		}
	}
}

func constantDelays(d time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.NewConstantBackOff(d)
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

// New returns a Poller issuing its requests through client.
func New(client Getter, opts ...Option) *Poller {
	p := &Poller{
		client: client,
		delays: constantDelays(DefaultInterval),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll starts polling path and returns immediately. The first GET is issued
// right away; each later one waits for the previous one to settle plus the
// poll interval. A nil check means StateFinished.
//
// The handle resolves with the first accepted response and rejects with the
// first failed GET; failures are not retried. Cancelling ctx rejects the
// handle with ctx.Err(). Handle.Cancel stops polling without ever settling
// the handle.
func (p *Poller) Poll(ctx context.Context, path string, params apiclient.Params, check CheckFunc) *Handle {
	if check == nil {
		check = StateFinished
	}
	h := newHandle()
	go p.run(ctx, h, path, params, check)
	return h
}

func (p *Poller) run(ctx context.Context, h *Handle, path string, params apiclient.Params, check CheckFunc) {
	delays := p.delays()
	delays.Reset()
	log := p.log.With(zap.String("path", path))

	for {
		if h.cancelled.Load() {
			h.state.Store(int32(Cancelled))
			log.Debug("poll cancelled", zap.Int32("cycles", h.cycles.Load()))
			return
		}
		h.state.Store(int32(Polling))
		cycle := h.cycles.Add(1)
		log.Debug("poll cycle", zap.Int32("cycle", cycle))

		resp, err := p.client.Get(ctx, path, params)
		if h.cancelled.Load() {
			continue
		}
		if err != nil {
			log.Debug("poll failed", zap.Int32("cycle", cycle), zap.Error(err))
			h.settle(Rejected, nil, err)
			return
		}
		if check(resp) {
			log.Debug("poll finished", zap.Int32("cycle", cycle))
			h.settle(Resolved, resp, nil)
			return
		}

		delay := delays.NextBackOff()
		if delay == backoff.Stop {
			log.Debug("poll gave up", zap.Int32("cycle", cycle))
			h.settle(Rejected, nil, ErrGaveUp)
			return
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-h.cancel:
			timer.Stop()
		case <-ctx.Done():
			timer.Stop()
			h.settle(Rejected, nil, ctx.Err())
			return
		}
	}
}

// Handle is one poll lifecycle.
type Handle struct {
	state     atomic.Int32
	cancelled atomic.Bool
	cycles    atomic.Int32

	cancel     chan struct{}
	cancelOnce sync.Once

	done chan struct{}
	resp *apiclient.Response
	err  error
}

func newHandle() *Handle {
	return &Handle{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Cancel stops polling. No GET is issued after the one in flight, if any, and
// the handle never settles: Done stays open and Result keeps returning nil.
func (h *Handle) Cancel() {
	h.cancelOnce.Do(func() {
		h.cancelled.Store(true)
		close(h.cancel)
	})
}

// Done is closed once the handle resolves or rejects.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the accepted response or the failure. Both are nil until
// Done is closed.
func (h *Handle) Result() (*apiclient.Response, error) {
	select {
	case <-h.done:
		return h.resp, h.err
	default:
		return nil, nil
	}
}

// Wait blocks until the handle settles or ctx is done. A cancelled handle
// never settles, so Wait on it only returns through ctx.
func (h *Handle) Wait(ctx context.Context) (*apiclient.Response, error) {
	select {
	case <-h.done:
		return h.resp, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// State reports where the lifecycle currently is.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Cycles reports how many GETs have been issued.
func (h *Handle) Cycles() int {
	return int(h.cycles.Load())
}

func (h *Handle) settle(state State, resp *apiclient.Response, err error) {
	h.resp = resp
	h.err = err
	h.state.Store(int32(state))
	close(h.done)
}
