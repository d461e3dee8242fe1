package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/courseware/labgrader/internal/result"
)

// Render writes one submission's full score breakdown.
func Render(rep *result.RunReport, format string, w io.Writer) error {
	switch format {
	case "markdown":
		return renderMarkdown(rep, w)
	case "json":
		return renderJSON(rep, w)
	default:
		return renderTable(rep, w)
	}
}

// Generate reads every stored report under a run directory and produces
// a summary across submissions.
func Generate(runDir, format string, w io.Writer) error {
	reps, err := collectReports(runDir)
	if err != nil {
		return err
	}
	if len(reps) == 0 {
		return fmt.Errorf("no report.json files found in %s", runDir)
	}
	sort.Slice(reps, func(i, j int) bool {
		return reps[i].Project < reps[j].Project
	})

	switch format {
	case "markdown":
		return summaryMarkdown(reps, w)
	case "json":
		return renderJSON(reps, w)
	default:
		return summaryTable(reps, w)
	}
}

func collectReports(runDir string) ([]*result.RunReport, error) {
	var reps []*result.RunReport
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() == "report.json" {
			rep, err := result.ReadRunReport(path)
			if err != nil {
				return nil
			}
			reps = append(reps, rep)
		}
		return nil
	})
	return reps, err
}

func renderTable(rep *result.RunReport, w io.Writer) error {
	fmt.Fprintf(w, "Project:  %s\n", rep.Project)
	fmt.Fprintf(w, "Status:   %s\n", rep.Status)
	if rep.Command != "" {
		fmt.Fprintf(w, "Command:  %s\n", rep.Command)
	}
	if rep.BaseURL != "" {
		fmt.Fprintf(w, "Endpoint: %s\n", rep.BaseURL)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCOMPLETENESS\tCORRECTNESS\tQUALITY\tTOTAL")
	fmt.Fprintln(tw, strings.Repeat("-", 56))
	for _, g := range rep.Groups {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", g.Name, g.Completeness, g.Correctness, g.Quality, g.Total)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nLab total:    %d", rep.LabTotal)
	if rep.FloorApplied {
		fmt.Fprint(w, " (raised to floor)")
	}
	fmt.Fprintf(w, "\nTiming total: %d\n", rep.TimingTotal)
	fmt.Fprintf(w, "Grand total:  %d\n", rep.GrandTotal)

	var flagged []string
	for _, g := range rep.Groups {
		for _, n := range g.Notes {
			if !strings.HasPrefix(n, "ok:") {
				flagged = append(flagged, n)
			}
		}
	}
	if len(flagged) > 0 {
		fmt.Fprintln(w, "\nNotes:")
		for _, n := range flagged {
			fmt.Fprintf(w, "  %s\n", n)
		}
	}
	return nil
}

func renderMarkdown(rep *result.RunReport, w io.Writer) error {
	fmt.Fprintf(w, "## %s\n\n", rep.Project)
	fmt.Fprintf(w, "Status: `%s`", rep.Status)
	if rep.Command != "" {
		fmt.Fprintf(w, ", command: `%s`", rep.Command)
	}
	fmt.Fprint(w, "\n\n")
	fmt.Fprintln(w, "| Group | Completeness | Correctness | Quality | Total |")
	fmt.Fprintln(w, "|---|---|---|---|---|")
	for _, g := range rep.Groups {
		fmt.Fprintf(w, "| %s | %d | %d | %d | %d |\n", g.Name, g.Completeness, g.Correctness, g.Quality, g.Total)
	}
	fmt.Fprintf(w, "\nLab: %d", rep.LabTotal)
	if rep.FloorApplied {
		fmt.Fprint(w, " (floored)")
	}
	fmt.Fprintf(w, ", Timing: %d, Grand: %d\n", rep.TimingTotal, rep.GrandTotal)
	return nil
}

func renderJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func summaryTable(reps []*result.RunReport, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tSTATUS\tLAB\tTIMING\tGRAND\tFLOOR")
	fmt.Fprintln(tw, strings.Repeat("-", 72))
	for _, r := range reps {
		floor := ""
		if r.FloorApplied {
			floor = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.Project, r.Status, r.LabTotal, r.TimingTotal, r.GrandTotal, floor)
	}
	return tw.Flush()
}

func summaryMarkdown(reps []*result.RunReport, w io.Writer) error {
	fmt.Fprintln(w, "| Project | Status | Lab | Timing | Grand | Floor |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|")
	for _, r := range reps {
		floor := ""
		if r.FloorApplied {
			floor = "yes"
		}
		fmt.Fprintf(w, "| %s | %s | %d | %d | %d | %s |\n",
			r.Project, r.Status, r.LabTotal, r.TimingTotal, r.GrandTotal, floor)
	}
	return nil
}
