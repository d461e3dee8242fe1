package harness

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/courseware/labgrader/internal/config"
	"github.com/courseware/labgrader/internal/discover"
	"github.com/courseware/labgrader/internal/fetch"
	"github.com/courseware/labgrader/internal/launch"
	"github.com/courseware/labgrader/internal/probe"
	"github.com/courseware/labgrader/internal/result"
	"github.com/courseware/labgrader/internal/score"
)

// State tracks where a grading run is in its lifecycle. Transitions are
// strictly forward; Done is the only terminal state.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateDiscovering
	StateProbing
	StateReporting
	StateTerminating
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLaunching:
		return "launching"
	case StateDiscovering:
		return "discovering"
	case StateProbing:
		return "probing"
	case StateReporting:
		return "reporting"
	case StateTerminating:
		return "terminating"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Launcher starts a submission. The direct implementation spawns a child
// process; the sandbox implementation starts a container. Either way the
// returned plan describes what was attempted, even when starting failed.
type Launcher interface {
	Launch(ctx context.Context, projectDir string) (launch.Process, *launch.Plan, error)
}

// DirectLauncher resolves an entry point and spawns it on the host.
type DirectLauncher struct {
	Runtime config.Runtime
}

func (l DirectLauncher) Launch(ctx context.Context, projectDir string) (launch.Process, *launch.Plan, error) {
	plan, err := launch.ResolveEntry(projectDir, l.Runtime)
	if err != nil {
		return nil, nil, err
	}
	h, err := launch.Start(projectDir, plan)
	if err != nil {
		return nil, plan, err
	}
	return h, plan, nil
}

type Options struct {
	ProjectDir   string
	GuessPort    int
	TimingPoints int
	Launcher     Launcher // defaults to DirectLauncher with the config runtime
	Plan         []probe.Group
	LogDir       string // when set, the child's full output is written here
}

// Controller owns one grading run end to end: launch, discovery,
// probing, report assembly, teardown. The child handle never leaves the
// controller, and teardown runs whatever else happens.
type Controller struct {
	cfg      *config.Config
	opts     Options
	fetcher  *fetch.Fetcher
	launcher Launcher
	plan     []probe.Group

	mu    sync.Mutex
	state State
}

func New(cfg *config.Config, opts Options) *Controller {
	c := &Controller{
		cfg:      cfg,
		opts:     opts,
		fetcher:  fetch.New(cfg.FetchTimeout()),
		launcher: opts.Launcher,
		plan:     opts.Plan,
	}
	if c.launcher == nil {
		c.launcher = DirectLauncher{Runtime: cfg.Runtime}
	}
	if c.plan == nil {
		c.plan = probe.BuiltinPlan()
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run grades one submission and always produces a report: launch and
// discovery failures become zero-credit outcomes with notes rather than
// errors. A submission can fail; the harness must not.
func (c *Controller) Run(ctx context.Context) *result.RunReport {
	started := time.Now()
	rep := &result.RunReport{
		Project: c.opts.ProjectDir,
		Status:  result.StatusGraded,
	}

	var proc launch.Process
	defer func() {
		c.setState(StateTerminating)
		if proc != nil {
			proc.Terminate()
		}
		c.setState(StateDone)
	}()

	c.setState(StateLaunching)
	proc, plan, err := c.launcher.Launch(ctx, c.opts.ProjectDir)
	if plan != nil {
		rep.Command = plan.Describe()
	}

	var baseURL string
	switch {
	case errors.Is(err, launch.ErrNoEntry):
		rep.Status = result.StatusNoEntry
		log.Printf("warning: %s: no entry point found", c.opts.ProjectDir)
	case err != nil:
		rep.Status = result.StatusLaunchFailed
		log.Printf("warning: launching %s: %v", c.opts.ProjectDir, err)
	default:
		rep.Command = proc.Describe()
		c.setState(StateDiscovering)
		res := discover.Discover(ctx, c.fetcher, proc, c.opts.GuessPort, discover.Options{
			BasePort:      c.cfg.Discovery.BasePort,
			ScanPorts:     c.cfg.Discovery.ScanPorts,
			StartupBudget: c.cfg.StartupBudget(),
			PollInterval:  c.cfg.PollInterval(),
			ProbeTimeout:  c.cfg.ProbeTimeout(),
		})
		baseURL = res.BaseURL
		rep.BaseURL = res.BaseURL
		rep.Port = res.Port
		if baseURL == "" {
			rep.Status = result.StatusUnreachable
			log.Printf("warning: %s: no reachable endpoint within startup budget", c.opts.ProjectDir)
		}
	}

	c.setState(StateProbing)
	groups := score.Run(ctx, c.fetcher, baseURL, c.plan)

	c.setState(StateReporting)
	summary := score.Summarize(groups, c.opts.TimingPoints)
	fillReport(rep, summary)
	rep.DurationS = int(time.Since(started).Seconds())
	if proc != nil {
		rep.LogTail = tail(proc.Stdout()+proc.Stderr(), 4096)
		if c.opts.LogDir != "" {
			writeLogs(c.opts.LogDir, proc)
		}
	}
	return rep
}

func writeLogs(dir string, proc launch.Process) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("warning: creating log dir %s: %v", dir, err)
		return
	}
	for name, content := range map[string]string{
		"stdout.log": proc.Stdout(),
		"stderr.log": proc.Stderr(),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			log.Printf("warning: writing %s: %v", name, err)
		}
	}
}

func fillReport(rep *result.RunReport, s score.Summary) {
	for _, g := range s.Groups {
		gs := result.GroupScore{
			Name:         g.Name,
			Completeness: g.Band.Completeness,
			Correctness:  g.Band.Correctness,
			Quality:      g.Band.Quality,
			Total:        g.Band.Total(),
		}
		for _, n := range g.Notes {
			gs.Notes = append(gs.Notes, n.Level.String()+": "+n.Text)
		}
		rep.Groups = append(rep.Groups, gs)
	}
	rep.LabTotal = s.LabTotal
	rep.TimingTotal = s.TimingTotal
	rep.GrandTotal = s.GrandTotal
	rep.FloorApplied = s.FloorApplied
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
