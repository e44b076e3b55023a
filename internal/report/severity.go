package report

import (
	"github.com/MOYARU/hprobe/internal/classify"
	"github.com/MOYARU/hprobe/internal/probe"
)

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
	SeverityInfo   Severity = "INFO"
)

var findingSeverity = map[probe.FindingID]Severity{
	probe.DirectoryListingEnabled: SeverityMedium,
	probe.MissingCSP:              SeverityLow,
	probe.MissingHSTS:             SeverityLow,
	probe.MissingFrameOptions:     SeverityLow,
	probe.MissingXSSProtection:    SeverityInfo,
	probe.ServerDisclosure:        SeverityInfo,
	probe.FrameworkDisclosure:     SeverityInfo,
}

func FindingSeverity(id probe.FindingID) Severity {
	if s, ok := findingSeverity[id]; ok {
		return s
	}
	return SeverityInfo
}

// NoteSeverity ranks an injection annotation.
func NoteSeverity(note string) Severity {
	switch note {
	case classify.NoteSQLSyntax, classify.NoteTimeDelay:
		return SeverityHigh
	case classify.NoteErrorMessage:
		return SeverityMedium
	case classify.NoteServerError:
		return SeverityLow
	case "":
		return ""
	default:
		return SeverityInfo
	}
}

// Weight orders severities, highest first.
func Weight(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0
	default:
		return -1
	}
}
