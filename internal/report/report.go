package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/MOYARU/hprobe/internal/brute"
	"github.com/MOYARU/hprobe/internal/inject"
)

type Kind string

const (
	KindInjection  Kind = "injection"
	KindBruteForce Kind = "brute_force"
)

// Item is one payload row of an injection run.
type Item struct {
	Index     int      `json:"index"`
	Category  string   `json:"category"`
	Payload   string   `json:"payload"`
	URL       string   `json:"url"`
	Status    int      `json:"status,omitempty"`
	ElapsedMS float64  `json:"elapsed_ms"`
	Length    int      `json:"length"`
	Note      string   `json:"note,omitempty"`
	Severity  Severity `json:"severity,omitempty"`
	Findings  []string `json:"findings,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type Summary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Info   int `json:"info"`
	Total  int `json:"total"`
}

// Credential is the outcome of a brute-force run.
type Credential struct {
	LoginURL  string `json:"login_url"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	State     string `json:"state"`
	Attempts  int    `json:"attempts"`
	CSRFFound bool   `json:"csrf_found"`
	Status    int    `json:"final_status,omitempty"`
	Errors    int    `json:"errors"`
}

// Run is the document written by SaveJSON.
type Run struct {
	ID         string      `json:"id"`
	Kind       Kind        `json:"kind"`
	Target     string      `json:"target"`
	StartTime  time.Time   `json:"start_time"`
	EndTime    time.Time   `json:"end_time"`
	Summary    Summary     `json:"summary"`
	Items      []Item      `json:"items,omitempty"`
	Credential *Credential `json:"credential,omitempty"`
}

// FromInjection builds a run document. Severity counts cover notes only;
// header findings are listed per item.
func FromInjection(template string, outcomes []inject.Outcome, start, end time.Time) Run {
	run := Run{
		ID:        uuid.NewString(),
		Kind:      KindInjection,
		Target:    SanitizeURL(template),
		StartTime: start,
		EndTime:   end,
		Items:     make([]Item, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		it := Item{
			Index:     o.Index,
			Category:  string(o.Payload.Category),
			Payload:   o.Payload.Value,
			URL:       o.Result.Request.URL,
			Status:    o.Result.StatusCode,
			ElapsedMS: o.Result.ElapsedMS(),
			Length:    o.Result.BodyLength,
			Note:      o.Note,
			Error:     o.Result.Error,
		}
		if o.Note != "" {
			it.Severity = NoteSeverity(o.Note)
			run.Summary.add(it.Severity)
		}
		for _, f := range o.Findings {
			it.Findings = append(it.Findings, f.String())
		}
		run.Items = append(run.Items, it)
	}
	return run
}

func FromBrute(loginURL string, rep brute.Report, start, end time.Time) Run {
	c := &Credential{
		LoginURL:  SanitizeURL(loginURL),
		Username:  rep.Username,
		Password:  rep.Password,
		State:     rep.State.String(),
		Attempts:  rep.Attempts,
		CSRFFound: rep.CSRFFound,
		Errors:    len(rep.Errors),
	}
	if rep.Final != nil {
		c.Status = rep.Final.StatusCode
	}
	run := Run{
		ID:         uuid.NewString(),
		Kind:       KindBruteForce,
		Target:     c.LoginURL,
		StartTime:  start,
		EndTime:    end,
		Credential: c,
	}
	if rep.Found() {
		run.Summary.add(SeverityHigh)
	}
	return run
}

func (s *Summary) add(sev Severity) {
	switch sev {
	case SeverityHigh:
		s.High++
	case SeverityMedium:
		s.Medium++
	case SeverityLow:
		s.Low++
	case SeverityInfo:
		s.Info++
	}
	s.Total++
}
