package result

// Run status values. The harness exit code never depends on these; they
// describe the submission, not the harness.
const (
	StatusGraded       = "graded"
	StatusNoEntry      = "no_entry"
	StatusLaunchFailed = "launch_failed"
	StatusUnreachable  = "unreachable"
)

// RunReport is everything one grading run produced: the score breakdown
// plus the discovery metadata a grader needs to review a dispute.
type RunReport struct {
	Project      string       `json:"project"`
	Status       string       `json:"status"`
	Command      string       `json:"command,omitempty"`
	BaseURL      string       `json:"base_url,omitempty"`
	Port         int          `json:"port,omitempty"`
	Groups       []GroupScore `json:"groups"`
	LabTotal     int          `json:"lab_total"`
	TimingTotal  int          `json:"timing_total"`
	GrandTotal   int          `json:"grand_total"`
	FloorApplied bool         `json:"floor_applied,omitempty"`
	DurationS    int          `json:"duration_s"`
	LogTail      string       `json:"log_tail,omitempty"`
}

type GroupScore struct {
	Name         string   `json:"name"`
	Completeness int      `json:"completeness"`
	Correctness  int      `json:"correctness"`
	Quality      int      `json:"quality"`
	Total        int      `json:"total"`
	Notes        []string `json:"notes,omitempty"`
}
