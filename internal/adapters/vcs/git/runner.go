package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// Result is the captured output of one git invocation
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes git; tests substitute fakes
type Runner interface {
	Run(ctx context.Context, dir string, env []string, args ...string) (Result, error)
}

// CommandError is a git invocation that exited non-zero or could not start
type CommandError struct {
	Args     []string
	Dir      string
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

var userinfo = regexp.MustCompile(`://[^/@\s]+@`)

// redactURL hides credentials embedded in remote URLs
func redactURL(s string) string { return userinfo.ReplaceAllString(s, "://***@") }

// Error interface
func (e *CommandError) Error() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = redactURL(a)
	}
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(e.Stdout)
	}
	return fmt.Sprintf("git %s in %s: exit %d: %s", strings.Join(args, " "), e.Dir, e.ExitCode, redactURL(msg))
}

// Unwrap returns the process error
func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs the git binary found on PATH
type ExecRunner struct {
	// Binary defaults to "git"
	Binary string
}

// Run implements Runner
func (r ExecRunner) Run(ctx context.Context, dir string, env []string, args ...string) (Result, error) {
	bin := r.Binary
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	// never block on a credential prompt
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Env = append(cmd.Env, env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		res.ExitCode = -1
	}
	return res, &CommandError{Args: args, Dir: dir, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr, Err: err}
}
