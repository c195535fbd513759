// Package runcmd wraps invocation of the external copy and layout tools
// (the rsync-like tool at PYLUTRSYNCPATH, the block-copy tool, and the
// layout utility at PYLUTLFSPATH). It is the sole place stripesync shells
// out to another process.
package runcmd

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/ncsa/stripesync/internal/synclog"
)

// ErrNotFound corresponds to the external tool's exit code 2 ("no such
// file"). ErrAlreadyExists corresponds to exit code 17 ("already exists" /
// "stripe already set").
var (
	ErrNotFound      = errors.New("no such file")
	ErrAlreadyExists = errors.New("already exists")
)

// Error wraps a non-zero exit from an external command, carrying the
// stderr text and a sentinel the caller can errors.Is against.
type Error struct {
	Cmd      []string
	Code     int
	Stderr   string
	Sentinel error
}

func (e *Error) Error() string {
	return "command " + strings.Join(e.Cmd, " ") + " failed: " + e.Stderr
}

func (e *Error) Unwrap() error { return e.Sentinel }

func sentinelFor(code int) error {
	switch code {
	case 2:
		return ErrNotFound
	case 17:
		return ErrAlreadyExists
	default:
		return nil
	}
}

// Runner executes external commands. Production code uses Exec; tests
// substitute a Fake.
type Runner interface {
	Run(ctx context.Context, opts map[string]string, args ...string) (stdout, stderr string, err error)
}

// Exec is the production Runner, built around a fixed command name (the
// path to the rsync-like tool, the dd-like tool, or the layout tool).
type Exec struct {
	Name string
}

// New returns an Exec runner for the given external command path.
func New(name string) *Exec {
	return &Exec{Name: name}
}

// Run invokes Name with the given options rendered by optFlag (in map
// iteration order) followed by args, and returns its stdout/stderr.
func (e *Exec) Run(ctx context.Context, opts map[string]string, args ...string) (string, string, error) {
	full := make([]string, 0, len(opts)*2+len(args))
	for k, v := range opts {
		full = append(full, optFlag(k, v))
	}
	full = append(full, args...)

	synclog.Debugf(nil, "running %s %s", e.Name, strings.Join(full, " "))

	cmd := exec.CommandContext(ctx, e.Name, full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		return stdout.String(), stderr.String(), &Error{
			Cmd:      append([]string{e.Name}, full...),
			Code:     code,
			Stderr:   stderr.String(),
			Sentinel: sentinelFor(code),
		}
	}
	return stdout.String(), stderr.String(), nil
}

// Multi-letter keys (dd-style bs=, if=, of=, status=, or a "--long" key)
// are rendered key=value; a single-letter key k is rendered as the one
// argument "-k v".
func optFlag(k, v string) string {
	if len(k) == 1 {
		return "-" + k + " " + v
	}
	return k + "=" + v
}

// Fake is a Runner used by tests: it records every invocation and returns
// a scripted response keyed by the joined args.
type Fake struct {
	Calls     []FakeCall
	Responses map[string]FakeResponse
	Default   FakeResponse
}

// FakeCall records one invocation seen by Fake.
type FakeCall struct {
	Opts map[string]string
	Args []string
}

// FakeResponse is the scripted return value for a Fake invocation.
type FakeResponse struct {
	Stdout string
	Stderr string
	Err    error
}

// NewFake returns an empty Fake runner that succeeds with no output by
// default.
func NewFake() *Fake {
	return &Fake{Responses: map[string]FakeResponse{}}
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, opts map[string]string, args ...string) (string, string, error) {
	f.Calls = append(f.Calls, FakeCall{Opts: opts, Args: append([]string{}, args...)})
	key := strings.Join(args, " ")
	if resp, ok := f.Responses[key]; ok {
		return resp.Stdout, resp.Stderr, resp.Err
	}
	return f.Default.Stdout, f.Default.Stderr, f.Default.Err
}
