package poll

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grr-tools/grrctl/internal/apiclient"
	"github.com/grr-tools/grrctl/internal/loading"
)

const testInterval = 30 * time.Millisecond

type flowServer struct {
	mu       sync.Mutex
	requests []time.Time
	respond  func(n int, w http.ResponseWriter)
}

func (s *flowServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, time.Now())
	n := len(s.requests)
	s.mu.Unlock()
	s.respond(n, w)
}

func (s *flowServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *flowServer) times() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.requests...)
}

func newPoller(t *testing.T, respond func(n int, w http.ResponseWriter), opts ...Option) (*Poller, *flowServer, *loading.Registry) {
	t.Helper()
	fs := &flowServer{respond: respond}
	server := httptest.NewServer(fs)
	t.Cleanup(server.Close)

	registry := &loading.Registry{}
	client, err := apiclient.NewClient(server.URL, apiclient.WithLoading(registry))
	require.NoError(t, err)
	return New(client, append([]Option{WithInterval(testInterval)}, opts...)...), fs, registry
}

// scriptedBackOff hands out delays in order, then stops.
type scriptedBackOff struct {
	delays []time.Duration
	next   int
	resets int
}

func (b *scriptedBackOff) NextBackOff() time.Duration {
	if b.next >= len(b.delays) {
		return backoff.Stop
	}
	d := b.delays[b.next]
	b.next++
	return d
}

func (b *scriptedBackOff) Reset() {
	b.next = 0
	b.resets++
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPoll_ResolvesOnThirdResponse(t *testing.T) {
	p, fs, registry := newPoller(t, func(n int, w http.ResponseWriter) {
		state := "RUNNING"
		if n == 3 {
			state = FinishedState
		}
		_, _ = fmt.Fprintf(w, `{"state": %q, "n": %d}`, state, n)
	})

	ctx := waitCtx(t)
	h := p.Poll(ctx, "clients/C.1/flows/F:1", nil, nil)
	resp, err := h.Wait(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), resp.Field("n").Int())
	assert.Equal(t, Resolved, h.State())
	assert.Equal(t, 3, h.Cycles())

	times := fs.times()
	require.Len(t, times, 3)
	for i := 1; i < len(times); i++ {
		assert.GreaterOrEqual(t, times[i].Sub(times[i-1]), testInterval,
			"request %d came too early after request %d", i+1, i)
	}

	time.Sleep(3 * testInterval)
	assert.Equal(t, 3, fs.count(), "no GET after resolution")

	snap := registry.Snapshot()
	assert.Equal(t, uint64(3), snap.Started)
	assert.Equal(t, snap.Started, snap.Stopped)
}

func TestPoll_CustomCheck(t *testing.T) {
	p, _, _ := newPoller(t, func(n int, w http.ResponseWriter) {
		_, _ = fmt.Fprintf(w, `{"progress": {"done": %t}}`, n >= 2)
	})

	ctx := waitCtx(t)
	h := p.Poll(ctx, "hunts/H:1", apiclient.Params{"verbose": "1"}, FieldEquals("progress.done", "true"))
	_, err := h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Cycles())
}

func TestPoll_CancelBeforeFirstCycleNeverSettles(t *testing.T) {
	p, fs, registry := newPoller(t, func(n int, w http.ResponseWriter) {
		_, _ = fmt.Fprint(w, `{"state": "FINISHED"}`)
	})

	h := p.Poll(context.Background(), "flows/F:1", nil, nil)
	h.Cancel()

	select {
	case <-h.Done():
		t.Fatalf("cancelled handle settled")
	case <-time.After(10 * testInterval):
	}

	resp, err := h.Result()
	assert.Nil(t, resp)
	assert.NoError(t, err)
	assert.Equal(t, Cancelled, h.State())
	assert.LessOrEqual(t, fs.count(), 1)

	snap := registry.Snapshot()
	assert.Equal(t, snap.Started, snap.Stopped)
}

func TestPoll_CancelMidwayStopsRequests(t *testing.T) {
	p, fs, registry := newPoller(t, func(n int, w http.ResponseWriter) {
		_, _ = fmt.Fprint(w, `{"state": "RUNNING"}`)
	})

	h := p.Poll(context.Background(), "flows/F:1", nil, nil)
	require.Eventually(t, func() bool { return fs.count() >= 2 }, 2*time.Second, testInterval/3)
	h.Cancel()

	require.Eventually(t, func() bool { return h.State() == Cancelled }, 2*time.Second, testInterval/3)
	seen := fs.count()
	time.Sleep(5 * testInterval)
	assert.Equal(t, seen, fs.count(), "GET issued after cancellation")

	select {
	case <-h.Done():
		t.Fatalf("cancelled handle settled")
	default:
	}

	waitShort, cancel := context.WithTimeout(context.Background(), testInterval)
	defer cancel()
	_, err := h.Wait(waitShort)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	snap := registry.Snapshot()
	assert.Equal(t, snap.Started, snap.Stopped)
	assert.Equal(t, 0, snap.Active)
}

func TestPoll_FailureRejectsWithoutRetry(t *testing.T) {
	p, fs, registry := newPoller(t, func(n int, w http.ResponseWriter) {
		if n == 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = fmt.Fprint(w, `{"message": "boom"}`)
			return
		}
		_, _ = fmt.Fprint(w, `{"state": "RUNNING"}`)
	})

	ctx := waitCtx(t)
	h := p.Poll(ctx, "flows/F:1", nil, nil)
	_, err := h.Wait(ctx)
	require.Error(t, err)

	var respErr *apiclient.ResponseError
	require.True(t, errors.As(err, &respErr))
	require.NotNil(t, respErr.Response)
	assert.Equal(t, http.StatusInternalServerError, respErr.Response.Status)
	assert.Equal(t, "boom", respErr.Response.Field("message").String())
	assert.Equal(t, Rejected, h.State())

	time.Sleep(5 * testInterval)
	assert.Equal(t, 2, fs.count(), "GET issued after failure")

	snap := registry.Snapshot()
	assert.Equal(t, uint64(2), snap.Started)
	assert.Equal(t, snap.Started, snap.Stopped)
}

func TestPoll_BackOffDrivesDelays(t *testing.T) {
	delays := &scriptedBackOff{delays: []time.Duration{10 * time.Millisecond, 120 * time.Millisecond}}
	p, fs, _ := newPoller(t, func(n int, w http.ResponseWriter) {
		state := "RUNNING"
		if n == 3 {
			state = FinishedState
		}
		_, _ = fmt.Fprintf(w, `{"state": %q}`, state)
	}, WithBackOff(func() backoff.BackOff { return delays }))

	ctx := waitCtx(t)
	_, err := p.Poll(ctx, "flows/F:1", nil, nil).Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delays.resets)

	times := fs.times()
	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 120*time.Millisecond)
	assert.Less(t, times[1].Sub(times[0]), 120*time.Millisecond)
}

func TestPoll_StoppedBackOffGivesUp(t *testing.T) {
	p, fs, _ := newPoller(t, func(n int, w http.ResponseWriter) {
		_, _ = fmt.Fprint(w, `{"state": "RUNNING"}`)
	}, WithBackOff(func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}))

	ctx := waitCtx(t)
	h := p.Poll(ctx, "flows/F:1", nil, nil)
	_, err := h.Wait(ctx)
	require.ErrorIs(t, err, ErrGaveUp)
	assert.Equal(t, Rejected, h.State())
	assert.Equal(t, 3, fs.count())
}

func TestPoll_ContextCancelRejects(t *testing.T) {
	p, _, _ := newPoller(t, func(n int, w http.ResponseWriter) {
		_, _ = fmt.Fprint(w, `{"state": "RUNNING"}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	h := p.Poll(ctx, "flows/F:1", nil, nil)
	require.Eventually(t, func() bool { return h.Cycles() >= 1 }, time.Second, testInterval/3)
	cancel()

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("handle did not settle after context cancellation")
	}
	_, err := h.Result()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Rejected, h.State())
}

type stubGetter struct {
	calls atomic.Int32
	block chan struct{}
}

func (s *stubGetter) Get(ctx context.Context, path string, params apiclient.Params) (*apiclient.Response, error) {
	s.calls.Add(1)
	<-s.block
	return &apiclient.Response{Status: http.StatusOK, Body: []byte(`{"state": "FINISHED"}`)}, nil
}

func TestPoll_CancelDuringInFlightGetDoesNotSettle(t *testing.T) {
	g := &stubGetter{block: make(chan struct{})}
	h := New(g, WithInterval(testInterval)).Poll(context.Background(), "flows/F:1", nil, nil)

	require.Eventually(t, func() bool { return g.calls.Load() == 1 }, time.Second, time.Millisecond)
	h.Cancel()
	close(g.block)

	require.Eventually(t, func() bool { return h.State() == Cancelled }, time.Second, time.Millisecond)
	select {
	case <-h.Done():
		t.Fatalf("handle settled although it was cancelled while the GET was in flight")
	default:
	}
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "cancelled", Cancelled.String())
	assert.Equal(t, "State(42)", State(42).String())
}
