package launch

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// LogBuffer is an append-only capture of one output stream. Producers
// (the exec copier goroutines, the sandbox log follower) write for the
// child's whole life so the child can never stall on a full pipe;
// readers only ever take snapshots.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Handle is a spawned child process with captured output. Exit status is
// unknown until the reaper goroutine observes the process end.
type Handle struct {
	cmd    *exec.Cmd
	plan   *Plan
	stdout LogBuffer
	stderr LogBuffer

	mu       sync.Mutex
	exited   bool
	exitCode int

	killOnce sync.Once
}

// Start spawns the plan's command with the project directory as working
// directory and the harness environment inherited. The child runs in its
// own process group so Terminate can take down anything it forked.
func Start(projectDir string, plan *Plan) (*Handle, error) {
	cmd := exec.Command(plan.Argv[0], plan.Argv[1:]...)
	cmd.Dir = projectDir
	cmd.Env = os.Environ()
	setProcessGroup(cmd)

	h := &Handle{cmd: cmd, plan: plan}
	cmd.Stdout = &h.stdout
	cmd.Stderr = &h.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %q: %w", plan.Describe(), err)
	}
	go h.reap()
	return h, nil
}

// reap is the only Wait caller, so the child is always collected and
// never left as a zombie.
func (h *Handle) reap() {
	h.cmd.Wait()
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exited = true
	if h.cmd.ProcessState != nil {
		h.exitCode = h.cmd.ProcessState.ExitCode()
	} else {
		h.exitCode = -1
	}
}

func (h *Handle) Pid() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

func (h *Handle) Describe() string {
	return h.plan.Describe()
}

func (h *Handle) Stdout() string {
	return h.stdout.String()
}

func (h *Handle) Stderr() string {
	return h.stderr.String()
}

func (h *Handle) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}

// ExitCode reports the child's exit code; ok is false while the child is
// still running.
func (h *Handle) ExitCode() (code int, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.exited {
		return 0, false
	}
	return h.exitCode, true
}

// Terminate kills the child's whole process group, falling back to a
// direct kill if the group signal fails. It is safe to call repeatedly
// and after the child is already gone; failures are swallowed because
// grading is over by the time teardown runs.
func (h *Handle) Terminate() {
	h.killOnce.Do(func() {
		if err := killProcessGroup(h.cmd); err != nil {
			if h.cmd.Process != nil {
				h.cmd.Process.Kill()
			}
		}
	})
}
