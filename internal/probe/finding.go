package probe

// FindingID labels a single heuristic observation on a response.
type FindingID string

const (
	MissingXSSProtection    FindingID = "missing-xss-protection"
	MissingCSP              FindingID = "missing-csp"
	MissingFrameOptions     FindingID = "missing-frame-options"
	MissingHSTS             FindingID = "missing-hsts"
	ServerDisclosure        FindingID = "server-disclosure"
	FrameworkDisclosure     FindingID = "framework-disclosure"
	DirectoryListingEnabled FindingID = "directory-listing-enabled"
)

type Finding struct {
	ID    FindingID `json:"id"`
	Value string    `json:"value,omitempty"`
}

func (f Finding) String() string {
	if f.Value == "" {
		return string(f.ID)
	}
	return string(f.ID) + " (" + f.Value + ")"
}
