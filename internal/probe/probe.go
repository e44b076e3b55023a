package probe

import (
	"context"
	"maps"
	"net/http"
	"strings"
	"time"
)

// Doer executes a single probe request. Transport failures are reported on
// the returned result, never as a separate error value.
type Doer interface {
	Do(ctx context.Context, req ProbeRequest) ProbeResult
}

const (
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeJSON = "application/json"
)

// ProbeRequest describes one outbound HTTP call. Build it with NewRequest or
// NewFormRequest; the maps are copied so the request is not shared with the
// caller afterwards.
type ProbeRequest struct {
	Method      string
	URL         string
	Headers     map[string]string
	Form        map[string]string
	Body        []byte
	ContentType string
}

func NewRequest(method, target string, headers map[string]string, body []byte) ProbeRequest {
	return ProbeRequest{
		Method:  strings.ToUpper(method),
		URL:     target,
		Headers: maps.Clone(headers),
		Body:    append([]byte(nil), body...),
	}
}

func NewFormRequest(method, target string, headers map[string]string, form map[string]string) ProbeRequest {
	return ProbeRequest{
		Method:      strings.ToUpper(method),
		URL:         target,
		Headers:     maps.Clone(headers),
		Form:        maps.Clone(form),
		ContentType: ContentTypeForm,
	}
}

// ProbeResult is either a completed exchange (StatusCode > 0) or a transport
// failure (Error != ""), never both.
type ProbeResult struct {
	Request    ProbeRequest
	StatusCode int
	Header     http.Header
	Body       []byte
	BodyLength int
	Elapsed    time.Duration
	Error      string
}

func Completed(req ProbeRequest, status int, header http.Header, body []byte, elapsed time.Duration) ProbeResult {
	if header == nil {
		header = http.Header{}
	}
	return ProbeResult{
		Request:    req,
		StatusCode: status,
		Header:     header,
		Body:       body,
		BodyLength: len(body),
		Elapsed:    elapsed,
	}
}

func TransportFailure(req ProbeRequest, err error, elapsed time.Duration) ProbeResult {
	msg := "transport error"
	if err != nil {
		msg = err.Error()
	}
	return ProbeResult{
		Request: req,
		Elapsed: elapsed,
		Error:   msg,
	}
}

func (r ProbeResult) Failed() bool {
	return r.Error != ""
}

// ElapsedMS returns the elapsed time in fractional milliseconds.
func (r ProbeResult) ElapsedMS() float64 {
	return float64(r.Elapsed) / float64(time.Millisecond)
}

// Excerpt returns at most n bytes of the body as a string.
func (r ProbeResult) Excerpt(n int) string {
	if n <= 0 || len(r.Body) <= n {
		return string(r.Body)
	}
	return string(r.Body[:n]) + "..."
}
