package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/courseware/labgrader/internal/config"
	"github.com/courseware/labgrader/internal/harness"
	"github.com/courseware/labgrader/internal/report"
	"github.com/courseware/labgrader/internal/result"
	"github.com/courseware/labgrader/internal/sandbox"
	"github.com/courseware/labgrader/internal/watch"
	"github.com/spf13/cobra"
)

var (
	flagPort         int
	flagTimingPoints int
	flagImage        string
	flagWatch        bool
	flagKeepLogs     bool
)

func newGradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade [projectDir...]",
		Short: "Launch, probe, and score one or more submissions",
		RunE:  runGrade,
	}
	cmd.Flags().IntVar(&flagPort, "port", 0, "port to try first, before the scan range")
	cmd.Flags().IntVar(&flagTimingPoints, "timing-points", -1, "override timing credit for this run")
	cmd.Flags().StringVar(&flagImage, "image", "", "grade inside this container image instead of on the host")
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().BoolVar(&flagWatch, "watch", false, "re-grade whenever the project changes")
	cmd.Flags().BoolVar(&flagKeepLogs, "keep-logs", false, "store the child's full stdout and stderr with the report")
	return cmd
}

func runGrade(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if flagTimingPoints >= 0 {
		cfg.Submission.TimingPoints = flagTimingPoints
	}
	if flagImage != "" {
		cfg.Sandbox.Image = flagImage
	}

	projects := args
	if len(projects) == 0 {
		projects = []string{"."}
	}

	if flagWatch {
		if len(projects) != 1 {
			return fmt.Errorf("--watch grades a single project directory")
		}
		return watchAndGrade(cfg, projects[0])
	}

	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	ctx := context.Background()
	var last *result.RunReport
	for _, project := range projects {
		fmt.Printf("Grading %s...\n", project)
		rep := gradeProject(ctx, cfg, project, result.SubmissionDir(runDir, project))
		fmt.Printf("  %s (grand total: %d, %ds)\n", rep.Status, rep.GrandTotal, rep.DurationS)
		last = rep
	}

	fmt.Println("\n--- Results ---")
	if len(projects) == 1 {
		return report.Render(last, flagFormat, os.Stdout)
	}
	return report.Generate(runDir, flagFormat, os.Stdout)
}

// gradeProject never returns an error: a submission that cannot be
// launched or reached is a zero-score report, not a harness failure.
func gradeProject(ctx context.Context, cfg *config.Config, projectDir, outDir string) *result.RunReport {
	opts := harness.Options{
		ProjectDir:   projectDir,
		GuessPort:    cfg.Discovery.BasePort,
		TimingPoints: cfg.Submission.TimingPoints,
	}
	if flagPort > 0 {
		opts.GuessPort = flagPort
	}
	if flagKeepLogs {
		opts.LogDir = outDir
	}
	if cfg.Sandbox.Image != "" {
		opts.Launcher = &sandbox.Launcher{Image: cfg.Sandbox.Image, Runtime: cfg.Runtime}
	}

	rep := harness.New(cfg, opts).Run(ctx)
	if err := result.WriteRunReport(outDir, rep); err != nil {
		log.Printf("warning: writing report for %s: %v", projectDir, err)
	}
	return rep
}

func watchAndGrade(cfg *config.Config, projectDir string) error {
	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Printf("Run directory: %s\n", runDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	grade := func() {
		rep := gradeProject(ctx, cfg, projectDir, result.SubmissionDir(runDir, projectDir))
		if err := report.Render(rep, flagFormat, os.Stdout); err != nil {
			log.Printf("warning: rendering report: %v", err)
		}
		fmt.Printf("\nWatching %s for changes (Ctrl-C to stop)...\n", projectDir)
	}
	grade()
	return watch.Watch(ctx, projectDir, 0, grade)
}
