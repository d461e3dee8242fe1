package sandbox

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"

	"github.com/courseware/labgrader/internal/config"
	"github.com/courseware/labgrader/internal/launch"
)

// Launcher starts a submission inside a container instead of directly on
// the host. Entry resolution is identical to the direct path; only the
// spawn differs. Host networking keeps port discovery unchanged: the
// child's listener shows up on 127.0.0.1 exactly as a direct child's
// would.
type Launcher struct {
	Image   string
	Runtime config.Runtime
}

func (l *Launcher) Launch(ctx context.Context, projectDir string) (launch.Process, *launch.Plan, error) {
	plan, err := launch.ResolveEntry(projectDir, l.Runtime)
	if err != nil {
		return nil, nil, err
	}

	absDir, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, plan, fmt.Errorf("resolving project dir: %w", err)
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, plan, fmt.Errorf("creating docker client: %w", err)
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: absDir,
			Target: "/workspace",
		}},
		Init:        &initTrue,
		NetworkMode: container.NetworkMode("host"),
	}
	containerCfg := &container.Config{
		Image:      l.Image,
		Cmd:        plan.Argv,
		WorkingDir: "/workspace",
		Labels:     map[string]string{"labgrader": "true"},
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		cli.Close()
		return nil, plan, fmt.Errorf("creating container: %w", err)
	}

	h := &Handle{cli: cli, id: createResp.ID, image: l.Image, plan: plan}

	if _, err := cli.ContainerStart(ctx, h.id, client.ContainerStartOptions{}); err != nil {
		h.Terminate()
		return nil, plan, fmt.Errorf("starting container: %w", err)
	}

	// The raw stream interleaves stdout and stderr with binary frame
	// headers between chunks; the announcement lines inside stay intact,
	// which is all port sniffing needs.
	logReader, err := cli.ContainerLogs(ctx, h.id, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		log.Printf("warning: streaming container logs: %v", err)
	} else {
		go func() {
			io.Copy(&h.logs, logReader)
			logReader.Close()
		}()
	}

	go h.watch()
	return h, plan, nil
}

// Handle is a running sandbox container, presenting the same contract as
// a direct child process.
type Handle struct {
	cli   *client.Client
	id    string
	image string
	plan  *launch.Plan
	logs  launch.LogBuffer

	mu       sync.Mutex
	exited   bool
	exitCode int

	killOnce sync.Once
}

// watch waits for the container to stop and records its exit code. It
// uses a background context so teardown of the run context cannot strand
// the wait before Terminate has stopped the container.
func (h *Handle) watch() {
	waitResult := h.cli.ContainerWait(context.Background(), h.id, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				h.recordExit(-1)
				return
			}
			// nil error means no error on this channel; wait for result
		case status := <-waitResult.Result:
			h.recordExit(int(status.StatusCode))
			return
		}
	}
}

func (h *Handle) recordExit(code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exited = true
	h.exitCode = code
}

// Pid reports 0: container processes are signaled through the engine,
// never by pid from the host.
func (h *Handle) Pid() int {
	return 0
}

func (h *Handle) Describe() string {
	return fmt.Sprintf("docker:%s %s", h.image, h.plan.Describe())
}

func (h *Handle) Stdout() string {
	return h.logs.String()
}

func (h *Handle) Stderr() string {
	return ""
}

func (h *Handle) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exited
}

func (h *Handle) ExitCode() (code int, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.exited {
		return 0, false
	}
	return h.exitCode, true
}

// Terminate kills and removes the container. Safe to call repeatedly;
// failures are swallowed, the container may already be gone.
func (h *Handle) Terminate() {
	h.killOnce.Do(func() {
		ctx := context.Background()
		h.cli.ContainerKill(ctx, h.id, client.ContainerKillOptions{Signal: "SIGKILL"})
		h.cli.ContainerRemove(ctx, h.id, client.ContainerRemoveOptions{Force: true})
		h.cli.Close()
	})
}
