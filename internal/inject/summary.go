package inject

import (
	"time"

	"github.com/MOYARU/hprobe/internal/probe"
)

type Summary struct {
	Total          int                     `json:"total"`
	Completed      int                     `json:"completed"`
	Failed         int                     `json:"failed"`
	Noted          int                     `json:"noted"`
	Notes          map[string]int          `json:"notes"`
	Statuses       map[int]int             `json:"statuses"`
	Findings       map[probe.FindingID]int `json:"findings"`
	AverageElapsed time.Duration           `json:"average_elapsed"`
	MaxElapsed     time.Duration           `json:"max_elapsed"`
}

// Summarize folds a run report into counts.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{
		Total:    len(outcomes),
		Notes:    map[string]int{},
		Statuses: map[int]int{},
		Findings: map[probe.FindingID]int{},
	}
	var elapsed time.Duration
	for _, o := range outcomes {
		if o.Result.Failed() {
			s.Failed++
			continue
		}
		s.Completed++
		s.Statuses[o.Result.StatusCode]++
		elapsed += o.Result.Elapsed
		if o.Result.Elapsed > s.MaxElapsed {
			s.MaxElapsed = o.Result.Elapsed
		}
		if o.Note != "" {
			s.Noted++
			s.Notes[o.Note]++
		}
		for _, f := range o.Findings {
			s.Findings[f.ID]++
		}
	}
	if s.Completed > 0 {
		s.AverageElapsed = elapsed / time.Duration(s.Completed)
	}
	return s
}
