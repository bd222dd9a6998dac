// Package runner executes external commands and reports their outcome.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

const levelTrace = slog.Level(-8)

// ErrStart indicates the command could not be launched at all,
// for example because the executable was not found.
var ErrStart = errors.New("unable to start command")

// Options controls how a command is executed.
type Options struct {
	// Silent captures the command's stdout and stderr instead of also
	// streaming them to the parent process's streams.
	Silent bool

	// Envs will be set on the command in addition to the parent
	// process's environment.
	Envs []string

	// Dir is the working directory of the command. If empty the command
	// runs in the calling process's current directory.
	Dir string
}

// Result holds the outcome of a completed command.
// Stderr may be non-empty on success, git writes progress there.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Run runs the given command with given arguments and waits for it to
// finish. Exactly one subprocess runs per call, the caller awaits each
// result before starting the next command.
func Run(ctx context.Context, log *slog.Logger, opts Options, command string, args ...string) (Result, error) {
	cmdStr := command + " " + strings.Join(args, " ")
	log.Log(ctx, levelTrace, "running command", "cwd", opts.Dir, "cmd", cmdStr)

	cmd := exec.CommandContext(ctx, command, args...)
	// force kill the command and its children 5 seconds after sending
	// sigterm (when ctx is cancelled or timed out)
	cmd.WaitDelay = 5 * time.Second
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}

	outbuf := bytes.NewBuffer(nil)
	errbuf := bytes.NewBuffer(nil)
	if opts.Silent {
		cmd.Stdout = outbuf
		cmd.Stderr = errbuf
	} else {
		cmd.Stdout = io.MultiWriter(os.Stdout, outbuf)
		cmd.Stderr = io.MultiWriter(os.Stderr, errbuf)
	}

	if len(opts.Envs) > 0 {
		cmd.Env = append(os.Environ(), opts.Envs...)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: Run(%s): %v", ErrStart, cmdStr, err)
	}
	err := cmd.Wait()
	runTime := time.Since(start)

	res := Result{
		ExitCode: cmd.ProcessState.ExitCode(),
		Stdout:   strings.TrimSpace(outbuf.String()),
		Stderr:   strings.TrimSpace(errbuf.String()),
	}

	if ctx.Err() == context.DeadlineExceeded {
		err = ctx.Err()
	}
	if err != nil {
		return res, fmt.Errorf("Run(%s): err:%w { stdout: %q, stderr: %q }", cmdStr, err, res.Stdout, res.Stderr)
	}
	log.Log(ctx, levelTrace, "command result", "stdout", res.Stdout, "stderr", res.Stderr, "time", runTime)

	return res, nil
}
