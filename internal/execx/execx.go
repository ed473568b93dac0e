package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// TailLines is how many trailing output lines are kept for step notes.
const TailLines = 20

// ExitNotFound is the exit code reported when the executable cannot be found.
const ExitNotFound = 2

// waitDelay bounds how long output copying may outlive a killed process.
const waitDelay = 5 * time.Second

// Cmd describes one external process invocation.
type Cmd struct {
	Dir  string
	Args []string
	// Env replaces the process environment when non-nil.
	Env []string
	// Stream receives output as it is produced, in addition to capture.
	Stream io.Writer
}

// Result is the captured outcome of a finished process.
type Result struct {
	ExitCode int
	Output   string
}

// ExitError is returned when the process could not start or exited non-zero.
type ExitError struct {
	Args []string
	Code int
	Tail string
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %v", strings.Join(e.Args, " "), e.Code, e.Err)
}

func (e *ExitError) ExitCode() int { return e.Code }

func (e *ExitError) Unwrap() error { return e.Err }

// Run executes c synchronously and blocks until the process exits or ctx is
// cancelled, in which case the process is killed.
func Run(ctx context.Context, c Cmd) (Result, error) {
	if len(c.Args) == 0 {
		return Result{}, errors.New("execx: empty command")
	}

	if !strings.ContainsRune(c.Args[0], filepath.Separator) {
		if _, err := exec.LookPath(c.Args[0]); err != nil {
			return Result{ExitCode: ExitNotFound}, &ExitError{Args: c.Args, Code: ExitNotFound, Err: err}
		}
	}

	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...) //nolint:gosec // G204: commands come from operator config
	cmd.Dir = c.Dir
	cmd.WaitDelay = waitDelay
	if c.Env != nil {
		cmd.Env = c.Env
	}

	var buf bytes.Buffer
	var w io.Writer = &buf
	if c.Stream != nil {
		w = io.MultiWriter(&buf, c.Stream)
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	res := Result{Output: buf.String()}
	if err != nil {
		res.ExitCode = ExitCode(err)
		return res, &ExitError{Args: c.Args, Code: res.ExitCode, Tail: Tail(res.Output, TailLines), Err: err}
	}
	return res, nil
}

// ExitCode maps an exec error to a process exit code, defaulting to 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}
	return 1
}

// Tail keeps the last n lines of output.
func Tail(output string, n int) string {
	output = strings.TrimRight(output, "\n")
	lines := strings.Split(output, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
		return "...(truncated)...\n" + strings.Join(lines, "\n")
	}
	return strings.TrimSpace(output)
}
