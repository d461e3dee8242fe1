package discover

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/courseware/labgrader/internal/fetch"
)

// Process is the view of a launched child that discovery needs: the
// output captured so far and whether the child is still alive.
type Process interface {
	Stdout() string
	Stderr() string
	Exited() bool
}

type Options struct {
	BasePort      int
	ScanPorts     int
	StartupBudget time.Duration
	PollInterval  time.Duration
	ProbeTimeout  time.Duration
}

// Result locates the running service. An empty BaseURL means no
// reachable endpoint was found; probing is then skipped entirely.
type Result struct {
	BaseURL string
	Port    int
}

// Ordered startup announcement patterns. The first pattern with a valid
// match wins, and only its first capture group (the port) is kept.
var sniffPatterns = []*regexp.Regexp{
	// http://localhost:3000 style URLs
	regexp.MustCompile(`https?://[^\s/:]+:(\d{2,5})`),
	// "listening on port 3000", "Listening at :8080", "listening 3000"
	regexp.MustCompile(`(?i)listening\s*(?:on|at)?\s*(?:port)?\s*:?\s*(\d{2,5})`),
	// PORT=3000 or port: 3000 echoes
	regexp.MustCompile(`(?i)\bport\s*[=:]\s*(\d{2,5})`),
}

// SniffPort extracts a port announcement from a snapshot of captured
// output. It is a pure function; the poll loop re-invokes it on each tick
// with a fresh snapshot.
func SniffPort(logs string) (int, bool) {
	for _, re := range sniffPatterns {
		for _, m := range re.FindAllStringSubmatch(logs, -1) {
			port, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if port >= 1 && port <= 65535 {
				return port, true
			}
		}
	}
	return 0, false
}

// Discover watches the child's output for a port announcement, then
// probes candidate ports until one answers. The sniffing wait is bounded
// by the startup budget and polled cooperatively; a service that never
// comes up costs at most the budget plus one fast scan pass, never a
// hang. Discovery only establishes that a server answers; whether it is
// the right application is the scoring engine's business.
func Discover(ctx context.Context, f *fetch.Fetcher, proc Process, guessPort int, opts Options) Result {
	if opts.PollInterval == 0 {
		opts.PollInterval = 200 * time.Millisecond
	}
	if opts.ProbeTimeout == 0 {
		opts.ProbeTimeout = time.Second
	}
	sniffed := 0
	if proc != nil {
		sniffed = waitForAnnouncement(ctx, proc, opts)
	}
	for _, port := range candidatePorts(sniffed, guessPort, opts) {
		if serverPresent(ctx, f, port, opts.ProbeTimeout) {
			return Result{BaseURL: fmt.Sprintf("http://127.0.0.1:%d", port), Port: port}
		}
	}
	return Result{}
}

// waitForAnnouncement polls the output buffers until a port shows up, the
// child exits, the budget elapses, or the context is cancelled. Returns 0
// when nothing was announced.
func waitForAnnouncement(ctx context.Context, proc Process, opts Options) int {
	deadline := time.Now().Add(opts.StartupBudget)
	for time.Now().Before(deadline) {
		if port, ok := SniffPort(proc.Stdout() + "\n" + proc.Stderr()); ok {
			return port
		}
		if proc.Exited() {
			return 0
		}
		select {
		case <-ctx.Done():
			return 0
		case <-time.After(opts.PollInterval):
		}
	}
	return 0
}

func candidatePorts(sniffed, guess int, opts Options) []int {
	var ports []int
	seen := map[int]bool{}
	add := func(p int) {
		if p >= 1 && p <= 65535 && !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
	}
	add(sniffed)
	add(guess)
	for i := 0; i < opts.ScanPorts; i++ {
		add(opts.BasePort + i)
	}
	return ports
}

// serverPresent fetches the root path once with the short discovery
// timeout. A 404 counts as present: it distinguishes "nothing listening"
// from "wrong routing", at the known cost of occasionally latching onto
// an unrelated service in the scan range.
func serverPresent(ctx context.Context, f *fetch.Fetcher, port int, timeout time.Duration) bool {
	resp := f.FetchTimeout(ctx, http.MethodGet, fmt.Sprintf("http://127.0.0.1:%d/", port), timeout)
	if resp == nil {
		return false
	}
	return resp.Status == http.StatusOK || resp.Status == http.StatusNotFound
}
