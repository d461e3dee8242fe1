package probe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/courseware/labgrader/internal/fetch"
)

// Points is the credit a probe carries in each band. What a probe earns
// depends on its outcome: completeness for responding at all,
// correctness for the expected status, quality for the expected shape.
type Points struct {
	Completeness int
	Correctness  int
	Quality      int
}

// Spec declares one HTTP check. Pure data, defined long before any
// process runs. FailureStatus marks probes that exercise an error path;
// the expected status is then FailureStatus rather than SuccessStatus.
// AnyStatus accepts any HTTP response at all, for probes that only test
// that something serves. A nil Shape means no body contract beyond
// "non-empty".
type Spec struct {
	Name          string
	Method        string
	Path          string
	SuccessStatus int
	FailureStatus int
	AnyStatus     bool
	Shape         ShapeFunc
	Points        Points
}

// Group is an ordered set of probes scored into a single band.
type Group struct {
	Name   string
	Probes []Spec
}

type Level int

const (
	LevelOK Level = iota
	LevelWarn
	LevelFail
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelWarn:
		return "warn"
	case LevelFail:
		return "fail"
	}
	return "unknown"
}

// Note is one human-readable observation made while a probe ran.
type Note struct {
	Level Level
	Text  string
}

// Outcome is what one probe execution observed. Immutable once returned.
type Outcome struct {
	Reachable bool
	Status    int
	StatusOK  bool
	JSON      any
	ShapeOK   bool
	Notes     []Note
}

func (o *Outcome) note(level Level, format string, args ...any) {
	o.Notes = append(o.Notes, Note{Level: level, Text: fmt.Sprintf(format, args...)})
}

// Execute runs one probe against the discovered base URL. Everything the
// probe observes, including total unreachability, comes back as data on
// the outcome; nothing is ever returned as an error.
func Execute(ctx context.Context, f *fetch.Fetcher, baseURL string, spec Spec) Outcome {
	var out Outcome
	resp := f.Fetch(ctx, spec.Method, baseURL+spec.Path)
	if resp == nil {
		out.note(LevelFail, "%s: no response for %s %s", spec.Name, spec.Method, spec.Path)
		return out
	}
	out.Reachable = true
	out.Status = resp.Status

	want := spec.SuccessStatus
	if spec.FailureStatus != 0 {
		want = spec.FailureStatus
	}
	switch {
	case spec.AnyStatus:
		out.StatusOK = true
		out.note(LevelOK, "%s: responded with status %d", spec.Name, resp.Status)
	case resp.Status == want:
		out.StatusOK = true
		out.note(LevelOK, "%s: status %d", spec.Name, resp.Status)
	default:
		out.note(LevelFail, "%s: status %d, want %d", spec.Name, resp.Status, want)
	}

	var parsed any
	parseOK := json.Unmarshal(resp.Body, &parsed) == nil
	if parseOK {
		out.JSON = parsed
	}

	// A wrong or unparseable shape is a warning, never an error: it
	// degrades quality and nothing else.
	switch {
	case spec.Shape == nil:
		out.ShapeOK = out.StatusOK && len(resp.Body) > 0
	case !parseOK:
		out.note(LevelWarn, "%s: body is not JSON", spec.Name)
	case spec.Shape(parsed):
		out.ShapeOK = true
	default:
		out.note(LevelWarn, "%s: unexpected response shape", spec.Name)
	}
	return out
}
