package launch

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/courseware/labgrader/internal/config"
)

// ErrNoEntry means no launch strategy matched the project directory.
// There is nothing to retry: a submission with no recognizable entry
// point cannot be started, so it cannot be graded.
var ErrNoEntry = errors.New("no entry point found")

// Process is a running lab server, either a direct child process or a
// sandbox container. The lifecycle controller owns the handle for the
// whole run and calls Terminate when grading ends, whatever happened
// in between.
type Process interface {
	Pid() int
	Describe() string
	Stdout() string
	Stderr() string
	Exited() bool
	ExitCode() (int, bool)
	Terminate()
}

// Plan describes how a project will be started, resolved before
// anything is spawned.
type Plan struct {
	Argv     []string
	Strategy string
}

func (p *Plan) Describe() string {
	return strings.Join(p.Argv, " ")
}

// ResolveEntry picks the launch command for a project directory.
// Strategies are ranked: a conventional entry file run directly by the
// runtime, then the package manager's start script, then one last-resort
// filename. The first match wins; no match is ErrNoEntry.
func ResolveEntry(projectDir string, rt config.Runtime) (*Plan, error) {
	for _, name := range rt.Entries {
		if fileExists(filepath.Join(projectDir, name)) {
			return &Plan{Argv: []string{rt.Command, name}, Strategy: "entry"}, nil
		}
	}
	if hasStartScript(projectDir) {
		return &Plan{Argv: []string{rt.Manager, "start"}, Strategy: "start-script"}, nil
	}
	if fileExists(filepath.Join(projectDir, rt.FallbackEntry)) {
		return &Plan{Argv: []string{rt.Command, rt.FallbackEntry}, Strategy: "fallback"}, nil
	}
	return nil, ErrNoEntry
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func hasStartScript(projectDir string) bool {
	data, err := os.ReadFile(filepath.Join(projectDir, "package.json"))
	if err != nil {
		return false
	}
	var manifest struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return false
	}
	return manifest.Scripts["start"] != ""
}
