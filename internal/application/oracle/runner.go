package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrTimeout        = errors.New("oracle timed out")
	ErrOutputTooLarge = errors.New("oracle output exceeded limit")
)

const stderrKeep = 4 << 10

// Runner produces the raw oracle output for one external property id.
type Runner interface {
	Run(ctx context.Context, externalID string) ([]byte, error)
}

// ExecRunner runs the oracle as a child process. The id is appended to Args as a discrete
// argument; no shell is involved.
type ExecRunner struct {
	Command   string
	Args      []string
	Env       []string // added to the parent environment
	Timeout   time.Duration
	MaxOutput int64
}

func (r *ExecRunner) Run(ctx context.Context, externalID string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(r.Args)+1)
	args = append(args, r.Args...)
	args = append(args, externalID)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	// Children that inherit the pipes must not keep Wait blocked past cancellation.
	cmd.WaitDelay = time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	stdout := &limitedWriter{w: &stdoutBuf, max: r.MaxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = &limitedWriter{w: &stderrBuf, max: stderrKeep}

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w after %s", ErrTimeout, r.Timeout)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, fmt.Errorf("oracle %s failed: %w: %s", r.Command, err, strings.TrimSpace(stderrBuf.String()))
	}
	if stdout.truncated {
		return nil, fmt.Errorf("%w (%d bytes)", ErrOutputTooLarge, r.MaxOutput)
	}
	return stdoutBuf.Bytes(), nil
}

// limitedWriter keeps at most max bytes and discards the rest without failing the child.
// A non-positive max means unlimited.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.max <= 0 {
		return lw.w.Write(p)
	}
	if lw.written >= lw.max {
		lw.truncated = true
		return n, nil
	}
	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
