// Package inject fans payloads out against a URL template with bounded
// concurrency and reports one outcome per payload in submission order.
package inject

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"

	"github.com/MOYARU/hprobe/internal/classify"
	"github.com/MOYARU/hprobe/internal/probe"
)

const DefaultConcurrency = 10

var ErrInvalidConcurrency = errors.New("concurrency must be greater than zero")

// Outcome is the evaluation of a single payload.
type Outcome struct {
	Index    int
	Payload  probe.Payload
	Result   probe.ProbeResult
	Note     string
	Findings []probe.Finding
}

// ProgressFunc is called once per finished payload. Calls are serialized.
type ProgressFunc func(done, total int, o Outcome)

type Engine struct {
	client         probe.Doer
	headers        map[string]string
	delayThreshold time.Duration
	progress       ProgressFunc
	progressMu     sync.Mutex
}

type Option func(*Engine)

// WithHeaders adds headers to every injected request.
func WithHeaders(h map[string]string) Option {
	return func(e *Engine) { e.headers = h }
}

// WithDelayThreshold overrides the elapsed time treated as a delay signal.
func WithDelayThreshold(d time.Duration) Option {
	return func(e *Engine) { e.delayThreshold = d }
}

func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

func New(client probe.Doer, opts ...Option) *Engine {
	e := &Engine{
		client:         client,
		delayThreshold: classify.DefaultDelayThreshold,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// BuildURL appends the percent-encoded payload to the template. The
// template already ends at the injection point, e.g. "https://t/?q=".
func BuildURL(template, value string) string {
	return template + url.QueryEscape(value)
}

// Run evaluates every payload and blocks until all of them are done. The
// returned slice is index-aligned with payloads whatever order the workers
// finish in. Payloads still queued when ctx is cancelled are reported as
// transport failures carrying the context error.
func (e *Engine) Run(ctx context.Context, template string, payloads []probe.Payload, concurrency int) ([]Outcome, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, concurrency)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	outcomes := make([]Outcome, len(payloads))
	total := len(payloads)
	done := 0

	finish := func(o Outcome) {
		outcomes[o.Index] = o
		if e.progress == nil {
			return
		}
		e.progressMu.Lock()
		done++
		e.progress(done, total, o)
		e.progressMu.Unlock()
	}

	swg := sizedwaitgroup.New(concurrency)
	for i, p := range payloads {
		req := probe.NewRequest(http.MethodGet, BuildURL(template, p.Value), e.headers, nil)
		if err := swg.AddWithContext(ctx); err != nil {
			finish(Outcome{Index: i, Payload: p, Result: probe.TransportFailure(req, err, 0)})
			continue
		}
		go func() {
			defer swg.Done()
			finish(e.evaluate(ctx, i, p, req))
		}()
	}
	swg.Wait()

	return outcomes, nil
}

func (e *Engine) evaluate(ctx context.Context, idx int, p probe.Payload, req probe.ProbeRequest) Outcome {
	res := e.client.Do(ctx, req)
	o := Outcome{Index: idx, Payload: p, Result: res}
	if res.Failed() {
		return o
	}
	o.Note = classify.Annotate(res, e.delayThreshold)
	o.Findings = classify.Classify(res)
	return o
}
