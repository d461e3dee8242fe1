package harness_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/courseware/labgrader/internal/config"
	"github.com/courseware/labgrader/internal/harness"
	"github.com/courseware/labgrader/internal/launch"
	"github.com/courseware/labgrader/internal/result"
	"github.com/courseware/labgrader/internal/score"
)

type fakeProc struct {
	stdout     string
	stderr     string
	exited     bool
	terminated int
}

func (p *fakeProc) Pid() int              { return 4242 }
func (p *fakeProc) Describe() string      { return "node app.js" }
func (p *fakeProc) Stdout() string        { return p.stdout }
func (p *fakeProc) Stderr() string        { return p.stderr }
func (p *fakeProc) Exited() bool          { return p.exited }
func (p *fakeProc) ExitCode() (int, bool) { return 0, false }
func (p *fakeProc) Terminate()            { p.terminated++ }

type fakeLauncher struct {
	proc *fakeProc
	plan *launch.Plan
	err  error
}

func (l fakeLauncher) Launch(ctx context.Context, projectDir string) (launch.Process, *launch.Plan, error) {
	if l.err != nil {
		return nil, l.plan, l.err
	}
	return l.proc, l.plan, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Discovery.BasePort = 49300 // keep the scan range away from live servers
	cfg.Discovery.ScanPorts = 1
	cfg.Discovery.StartupBudgetS = 1
	cfg.Discovery.PollIntervalMS = 10
	return cfg
}

func referenceLab() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"ok":true,"msg":"welcome"}`)
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "" || r.URL.Query().Get("age") == "" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"error":"missing age"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"name":%q,"age":%s}`, r.URL.Query().Get("name"), r.URL.Query().Get("age"))
	})
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user":"ali"}`)
	})
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(r.URL.Path[len("/users/"):])
		if err != nil || id < 0 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"ok":false,"error":"invalid id"}`)
			return
		}
		fmt.Fprintf(w, `{"ok":true,"id":%d}`, id)
	})
	return mux
}

func TestRunGradesReferenceLab(t *testing.T) {
	srv := httptest.NewServer(referenceLab())
	defer srv.Close()

	// The fake child announces the server's URL; discovery sniffs the port.
	proc := &fakeProc{stdout: "app ready at " + srv.URL}
	ctl := harness.New(testConfig(), harness.Options{
		ProjectDir: "labs/reference",
		Launcher:   fakeLauncher{proc: proc, plan: &launch.Plan{Argv: []string{"node", "app.js"}, Strategy: "entry"}},
	})

	rep := ctl.Run(context.Background())
	if rep.Status != result.StatusGraded {
		t.Fatalf("status: got %q, want %q", rep.Status, result.StatusGraded)
	}
	if rep.LabTotal != score.LabMax {
		t.Errorf("lab total: got %d, want %d (groups: %+v)", rep.LabTotal, score.LabMax, rep.Groups)
	}
	if rep.Command != "node app.js" {
		t.Errorf("command: got %q", rep.Command)
	}
	if rep.BaseURL == "" || rep.Port == 0 {
		t.Errorf("discovery metadata missing: %q port %d", rep.BaseURL, rep.Port)
	}
	if proc.terminated != 1 {
		t.Errorf("terminate calls: got %d, want 1", proc.terminated)
	}
	if ctl.State() != harness.StateDone {
		t.Errorf("state: got %s, want done", ctl.State())
	}
	if rep.LogTail == "" {
		t.Error("expected captured startup log tail")
	}
}

func TestRunNoEntry(t *testing.T) {
	ctl := harness.New(testConfig(), harness.Options{
		ProjectDir: "labs/empty",
		Launcher:   fakeLauncher{err: launch.ErrNoEntry},
	})

	rep := ctl.Run(context.Background())
	if rep.Status != result.StatusNoEntry {
		t.Fatalf("status: got %q, want %q", rep.Status, result.StatusNoEntry)
	}
	if len(rep.Groups) != 5 {
		t.Fatalf("expected 5 zeroed groups, got %d", len(rep.Groups))
	}
	for _, g := range rep.Groups {
		if g.Total != 0 {
			t.Errorf("group %s: got %d, want 0", g.Name, g.Total)
		}
		if len(g.Notes) == 0 {
			t.Errorf("group %s: expected failure notes", g.Name)
		}
	}
	if rep.LabTotal != 0 || rep.FloorApplied {
		t.Errorf("no-entry run must score zero without floor, got %d (floor %v)", rep.LabTotal, rep.FloorApplied)
	}
	if ctl.State() != harness.StateDone {
		t.Errorf("state: got %s, want done", ctl.State())
	}
}

func TestRunLaunchFailure(t *testing.T) {
	plan := &launch.Plan{Argv: []string{"node", "app.js"}, Strategy: "entry"}
	ctl := harness.New(testConfig(), harness.Options{
		ProjectDir: "labs/broken",
		Launcher:   fakeLauncher{plan: plan, err: errors.New(`starting "node app.js": executable not found`)},
	})

	rep := ctl.Run(context.Background())
	if rep.Status != result.StatusLaunchFailed {
		t.Fatalf("status: got %q, want %q", rep.Status, result.StatusLaunchFailed)
	}
	if rep.Command != "node app.js" {
		t.Errorf("attempted command should be reported, got %q", rep.Command)
	}
	if rep.LabTotal != 0 {
		t.Errorf("lab total: got %d, want 0", rep.LabTotal)
	}
}

func TestRunUnreachableChild(t *testing.T) {
	proc := &fakeProc{stdout: "booting forever", exited: true}
	ctl := harness.New(testConfig(), harness.Options{
		ProjectDir: "labs/silent",
		Launcher:   fakeLauncher{proc: proc, plan: &launch.Plan{Argv: []string{"node", "server.js"}, Strategy: "entry"}},
	})

	rep := ctl.Run(context.Background())
	if rep.Status != result.StatusUnreachable {
		t.Fatalf("status: got %q, want %q", rep.Status, result.StatusUnreachable)
	}
	if rep.LabTotal != 0 || rep.FloorApplied {
		t.Errorf("unreachable run must score zero without floor, got %d (floor %v)", rep.LabTotal, rep.FloorApplied)
	}
	if proc.terminated != 1 {
		t.Errorf("terminate calls: got %d, want 1", proc.terminated)
	}
	if ctl.State() != harness.StateDone {
		t.Errorf("state: got %s, want done", ctl.State())
	}
}

func TestRunWritesLogsWhenRequested(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "submission")
	proc := &fakeProc{stdout: "server did not start\n", stderr: "deprecation warning\n", exited: true}
	ctl := harness.New(testConfig(), harness.Options{
		ProjectDir: "labs/verbose",
		Launcher:   fakeLauncher{proc: proc, plan: &launch.Plan{Argv: []string{"node", "app.js"}, Strategy: "entry"}},
		LogDir:     logDir,
	})
	ctl.Run(context.Background())

	out, err := os.ReadFile(filepath.Join(logDir, "stdout.log"))
	if err != nil {
		t.Fatalf("reading stdout.log: %v", err)
	}
	if string(out) != proc.stdout {
		t.Errorf("stdout.log: got %q, want %q", out, proc.stdout)
	}
	errOut, err := os.ReadFile(filepath.Join(logDir, "stderr.log"))
	if err != nil {
		t.Fatalf("reading stderr.log: %v", err)
	}
	if string(errOut) != proc.stderr {
		t.Errorf("stderr.log: got %q, want %q", errOut, proc.stderr)
	}
}

func TestRunTimingCreditAddedUnmodified(t *testing.T) {
	ctl := harness.New(testConfig(), harness.Options{
		ProjectDir:   "labs/late",
		TimingPoints: 13,
		Launcher:     fakeLauncher{err: launch.ErrNoEntry},
	})

	rep := ctl.Run(context.Background())
	if rep.TimingTotal != 13 {
		t.Errorf("timing total: got %d, want 13", rep.TimingTotal)
	}
	if rep.GrandTotal != rep.LabTotal+13 {
		t.Errorf("grand total %d != lab %d + timing 13", rep.GrandTotal, rep.LabTotal)
	}
}
