package inject

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MOYARU/hprobe/internal/classify"
	"github.com/MOYARU/hprobe/internal/engine"
	"github.com/MOYARU/hprobe/internal/probe"
)

// fakeDoer answers from a function and tracks the peak number of
// concurrent calls.
type fakeDoer struct {
	fn       func(req probe.ProbeRequest) probe.ProbeResult
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (f *fakeDoer) Do(_ context.Context, req probe.ProbeRequest) probe.ProbeResult {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer f.inFlight.Add(-1)
	return f.fn(req)
}

func payloadsN(n int) []probe.Payload {
	out := make([]probe.Payload, n)
	for i := range out {
		out[i] = probe.Payload{Category: probe.CategorySQL, Value: fmt.Sprintf("p%d", i)}
	}
	return out
}

func TestRunPreservesSubmissionOrder(t *testing.T) {
	for _, c := range []int{1, 3, 10, 64} {
		t.Run(fmt.Sprintf("concurrency=%d", c), func(t *testing.T) {
			doer := &fakeDoer{fn: func(req probe.ProbeRequest) probe.ProbeResult {
				time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
				return probe.Completed(req, 200, http.Header{}, []byte(req.URL), time.Millisecond)
			}}
			payloads := payloadsN(40)

			out, err := New(doer).Run(context.Background(), "http://t.test/?q=", payloads, c)
			require.NoError(t, err)
			require.Len(t, out, len(payloads))
			for i, o := range out {
				assert.Equal(t, i, o.Index)
				assert.Equal(t, payloads[i], o.Payload)
				assert.Equal(t, "http://t.test/?q="+payloads[i].Value, o.Result.Request.URL)
			}
			assert.LessOrEqual(t, int(doer.peak.Load()), c)
			assert.Equal(t, int32(len(payloads)), doer.calls.Load())
		})
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	release := make(chan struct{})
	doer := &fakeDoer{fn: func(req probe.ProbeRequest) probe.ProbeResult {
		<-release
		return probe.Completed(req, 200, nil, nil, 0)
	}}

	done := make(chan []Outcome)
	go func() {
		out, _ := New(doer).Run(context.Background(), "http://t.test/?q=", payloadsN(12), 4)
		done <- out
	}()

	require.Eventually(t, func() bool { return doer.inFlight.Load() == 4 }, time.Second, time.Millisecond)
	close(release)
	out := <-done
	assert.Len(t, out, 12)
	assert.Equal(t, int32(4), doer.peak.Load())
}

func TestRunRejectsInvalidConcurrency(t *testing.T) {
	doer := &fakeDoer{fn: func(req probe.ProbeRequest) probe.ProbeResult {
		return probe.Completed(req, 200, nil, nil, 0)
	}}
	_, err := New(doer).Run(context.Background(), "http://t.test/?q=", payloadsN(3), 0)
	assert.ErrorIs(t, err, ErrInvalidConcurrency)
	assert.Zero(t, doer.calls.Load())
}

func TestRunTransportErrorDoesNotAbort(t *testing.T) {
	doer := &fakeDoer{fn: func(req probe.ProbeRequest) probe.ProbeResult {
		if strings.HasSuffix(req.URL, "p1") {
			return probe.TransportFailure(req, errors.New("connection refused"), 0)
		}
		return probe.Completed(req, 200, nil, []byte("an error occurred"), 0)
	}}

	out, err := New(doer).Run(context.Background(), "http://t.test/?q=", payloadsN(3), 2)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.True(t, out[1].Result.Failed())
	assert.Equal(t, "connection refused", out[1].Result.Error)
	assert.Empty(t, out[1].Note)
	assert.Empty(t, out[1].Findings)

	for _, i := range []int{0, 2} {
		assert.False(t, out[i].Result.Failed())
		assert.Equal(t, classify.NoteErrorMessage, out[i].Note)
		assert.NotEmpty(t, out[i].Findings)
	}
	assert.Equal(t, int32(3), doer.calls.Load(), "no retries")
}

func TestRunCancelledContextFillsEverySlot(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doer := &fakeDoer{fn: func(req probe.ProbeRequest) probe.ProbeResult {
		return probe.Completed(req, 200, nil, nil, 0)
	}}

	out, err := New(doer).Run(ctx, "http://t.test/?q=", payloadsN(50), 1)
	require.NoError(t, err)
	require.Len(t, out, 50)
	for i, o := range out {
		assert.Equal(t, i, o.Index)
		if o.Result.Failed() {
			assert.Contains(t, o.Result.Error, context.Canceled.Error())
		}
	}
}

func TestRunProgressIsSerialized(t *testing.T) {
	doer := &fakeDoer{fn: func(req probe.ProbeRequest) probe.ProbeResult {
		return probe.Completed(req, 200, nil, nil, 0)
	}}
	var mu sync.Mutex
	var seen []int
	progress := func(done, total int, o Outcome) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 25, total)
		seen = append(seen, done)
	}

	_, err := New(doer, WithProgress(progress)).Run(context.Background(), "http://t.test/?q=", payloadsN(25), 8)
	require.NoError(t, err)
	require.Len(t, seen, 25)
	for i, d := range seen {
		assert.Equal(t, i+1, d)
	}
}

func TestRunAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("id")
		switch {
		case strings.Contains(q, "'"):
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "You have an error in your SQL syntax")
		case strings.Contains(q, "sleep"):
			time.Sleep(60 * time.Millisecond)
			_, _ = io.WriteString(w, "ok")
		case strings.Contains(q, "<script>"):
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, "upstream")
		case strings.Contains(q, "passwd"):
			_, _ = io.WriteString(w, "invalid SYNTAX near path")
		default:
			_, _ = io.WriteString(w, "ok")
		}
	}))
	defer srv.Close()

	client, err := engine.NewClient(engine.Options{Timeout: 2 * time.Second})
	require.NoError(t, err)

	payloads := []probe.Payload{
		{Category: probe.CategorySQL, Value: "' OR 1=1--"},
		{Category: probe.CategoryCommandInjection, Value: "$(sleep 5)"},
		{Category: probe.CategoryXSS, Value: "<script>alert(1)</script>"},
		{Category: probe.CategoryPathTraversal, Value: "../../etc/passwd"},
		{Category: probe.CategoryXSS, Value: "plain value & more"},
	}
	e := New(client, WithDelayThreshold(50*time.Millisecond))
	out, err := e.Run(context.Background(), srv.URL+"/item?id=", payloads, 3)
	require.NoError(t, err)
	require.Len(t, out, len(payloads))

	assert.Equal(t, classify.NoteErrorMessage, out[0].Note)
	assert.Equal(t, classify.NoteTimeDelay, out[1].Note)
	assert.Equal(t, classify.NoteServerError, out[2].Note)
	assert.Equal(t, classify.NoteSQLSyntax, out[3].Note)
	assert.Empty(t, out[4].Note)
	assert.Equal(t, srv.URL+"/item?id=plain+value+%26+more", out[4].Result.Request.URL)

	s := Summarize(out)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 5, s.Completed)
	assert.Equal(t, 4, s.Noted)
	assert.Equal(t, 1, s.Statuses[http.StatusInternalServerError])
	assert.Equal(t, 5, s.Findings[probe.MissingCSP])
}

func TestRunRateLimitIsNotReportedAsDelay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client, err := engine.NewClient(engine.Options{Timeout: 5 * time.Second, RateLimit: 1})
	require.NoError(t, err)

	out, err := New(client).Run(context.Background(), srv.URL+"/?q=", payloadsN(3), 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, o := range out {
		assert.False(t, o.Result.Failed(), o.Result.Error)
		assert.Empty(t, o.Note, "payload %d", o.Index)
		assert.Less(t, o.Result.Elapsed, classify.DefaultDelayThreshold)
	}
}

func TestBuildURL(t *testing.T) {
	assert.Equal(t, "http://t/?q=%27+OR+%271%27%3D%271", BuildURL("http://t/?q=", "' OR '1'='1"))
	assert.Equal(t, "http://t/?q=..%2F..%2Fetc%2Fpasswd", BuildURL("http://t/?q=", "../../etc/passwd"))
}
