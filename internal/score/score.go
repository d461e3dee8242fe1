package score

import (
	"context"

	"github.com/courseware/labgrader/internal/fetch"
	"github.com/courseware/labgrader/internal/probe"
)

const (
	CompletenessMax = 8
	CorrectnessMax  = 4
	QualityMax      = 4
	GroupMax        = CompletenessMax + CorrectnessMax + QualityMax
	LabMax          = 80
	LabFloor        = 60
)

// Band accumulates one group's three sub-scores. Every addition clamps
// immediately, so a stored value never leaves its range and credit in
// one dimension can never spill into another.
type Band struct {
	Completeness int
	Correctness  int
	Quality      int
}

func (b *Band) Add(p probe.Points) {
	b.Completeness = clamp(b.Completeness+p.Completeness, CompletenessMax)
	b.Correctness = clamp(b.Correctness+p.Correctness, CorrectnessMax)
	b.Quality = clamp(b.Quality+p.Quality, QualityMax)
}

func (b Band) Total() int {
	return b.Completeness + b.Correctness + b.Quality
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// GroupResult is one probe group's frozen band plus everything its
// probes observed.
type GroupResult struct {
	Name  string
	Band  Band
	Notes []probe.Note
}

// Summary is the final score breakdown for one grading run.
type Summary struct {
	Groups       []GroupResult
	LabTotal     int
	TimingTotal  int
	GrandTotal   int
	FloorApplied bool
}

// Run executes the plan's groups in declared order, strictly
// sequentially. An empty base URL means discovery found nothing; every
// probe is then recorded as unreachable without touching the network.
func Run(ctx context.Context, f *fetch.Fetcher, baseURL string, plan []probe.Group) []GroupResult {
	results := make([]GroupResult, 0, len(plan))
	for _, group := range plan {
		gr := GroupResult{Name: group.Name}
		for _, spec := range group.Probes {
			var out probe.Outcome
			if baseURL == "" {
				out.Notes = append(out.Notes, probe.Note{
					Level: probe.LevelFail,
					Text:  spec.Name + ": no endpoint discovered",
				})
			} else {
				out = probe.Execute(ctx, f, baseURL, spec)
			}
			gr.Band.Add(earned(spec, out))
			gr.Notes = append(gr.Notes, out.Notes...)
		}
		results = append(results, gr)
	}
	return results
}

// earned converts an outcome into the credit this probe contributes:
// completeness for reachability, correctness for the expected status,
// quality for the expected shape.
func earned(spec probe.Spec, out probe.Outcome) probe.Points {
	var p probe.Points
	if out.Reachable {
		p.Completeness = spec.Points.Completeness
	}
	if out.StatusOK {
		p.Correctness = spec.Points.Correctness
	}
	if out.ShapeOK {
		p.Quality = spec.Points.Quality
	}
	return p
}

// Summarize folds group results into the final score. A strictly
// positive lab total below the floor is raised to exactly the floor; an
// all-zero run stays zero. Timing credit comes from outside and is
// added unmodified.
func Summarize(groups []GroupResult, timingPoints int) Summary {
	lab := 0
	for _, g := range groups {
		lab += g.Band.Total()
	}
	s := Summary{Groups: groups, TimingTotal: timingPoints}
	if lab > 0 && lab < LabFloor {
		lab = LabFloor
		s.FloorApplied = true
	}
	s.LabTotal = lab
	s.GrandTotal = lab + timingPoints
	return s
}
