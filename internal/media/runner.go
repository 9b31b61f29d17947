package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// stopGrace is how long a tool gets to exit after an interrupt before it is
// killed.
const stopGrace = 2 * time.Second

// CommandError is a failed external tool invocation.
type CommandError struct {
	Tool   string
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	if tail := stderrTail(e.Stderr, 10); tail != "" {
		msg += ": " + tail
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Runner executes a media tool with an argument list. Nothing is ever
// passed through a shell.
type Runner struct {
	Binary  string
	Timeout time.Duration
}

// NewRunner creates a runner for binary. A zero timeout means no limit
// beyond the caller's context.
func NewRunner(binary string, timeout time.Duration) *Runner {
	return &Runner{Binary: binary, Timeout: timeout}
}

// Run executes the tool and discards its output.
func (r *Runner) Run(ctx context.Context, args ...string) error {
	_, err := r.run(ctx, nil, args)
	return err
}

// Output executes the tool and returns what it wrote to stdout.
func (r *Runner) Output(ctx context.Context, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	if _, err := r.run(ctx, &stdout, args); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (r *Runner) run(ctx context.Context, stdout *bytes.Buffer, args []string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	// On cancellation ask the tool to stop first so it can finalize its
	// output, then kill it.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = stopGrace
	cmd.Stdin = strings.NewReader("")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if stdout != nil {
		cmd.Stdout = stdout
	}

	start := time.Now()
	log.Debug("running media tool", "tool", r.Binary, "args", len(args))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (after %s)", ctxErr, time.Since(start).Round(time.Millisecond))
		}
		return stderr.String(), &CommandError{
			Tool:   r.Binary,
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	log.Debug("media tool finished", "tool", r.Binary, "took", time.Since(start).Round(time.Millisecond))
	return stderr.String(), nil
}

func stderrTail(stderr string, lines int) string {
	all := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	return strings.TrimSpace(strings.Join(all, "\n"))
}
