package cmd

import (
	"fmt"

	"github.com/courseware/labgrader/internal/probe"
	"github.com/spf13/cobra"
)

func newProbesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probes",
		Short: "List the endpoint checks a submission is graded against",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, g := range probe.BuiltinPlan() {
				fmt.Printf("%s (%d points):\n", g.Name, groupPoints(g))
				for _, p := range g.Probes {
					fmt.Printf("  - %s %s expecting %s [%d/%d/%d]\n",
						p.Method, p.Path, expectedStatus(p),
						p.Points.Completeness, p.Points.Correctness, p.Points.Quality)
				}
			}
			return nil
		},
	}
}

func groupPoints(g probe.Group) int {
	total := 0
	for _, p := range g.Probes {
		total += p.Points.Completeness + p.Points.Correctness + p.Points.Quality
	}
	return total
}

func expectedStatus(p probe.Spec) string {
	switch {
	case p.AnyStatus:
		return "any status"
	case p.FailureStatus != 0:
		return fmt.Sprintf("%d", p.FailureStatus)
	default:
		return fmt.Sprintf("%d", p.SuccessStatus)
	}
}
