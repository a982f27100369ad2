/*
 * Move Studio
 *
 * Copyright 2025 ZeroMove
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package blockchain

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultKillDelay is how long a terminated child gets to exit before it is killed.
const DefaultKillDelay = 5 * time.Second

var ErrTimeout = errors.New("process timed out")

// ExitKind classifies how a child process ended.
type ExitKind int

const (
	ExitSuccess ExitKind = iota
	ExitNonZero
	ExitTimedOut
	ExitSpawnFailed
)

func (k ExitKind) String() string {
	switch k {
	case ExitSuccess:
		return "success"
	case ExitNonZero:
		return "non_zero_exit"
	case ExitTimedOut:
		return "timed_out"
	case ExitSpawnFailed:
		return "spawn_failed"
	}
	return "unknown"
}

// Command describes one invocation of an external tool.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Stdin is written to the child and then closed. Nil leaves stdin empty.
	Stdin *string
	// Timeout bounds the run. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result is the captured outcome of a Command.
type Result struct {
	Stdout string
	Stderr string
	Exit   ExitKind
	// Code is the exit code for ExitNonZero, -1 when the child died from a signal.
	Code int
	Err  error
}

func (r Result) Success() bool {
	return r.Exit == ExitSuccess
}

// Log concatenates captured stdout and stderr the way clients display it.
func (r Result) Log() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

var _ Runner = &ExecRunner{}

// ExecRunner runs commands as child processes of the API.
//
// On timeout the child receives SIGTERM and, if still alive after KillDelay, SIGKILL.
type ExecRunner struct {
	KillDelay time.Duration
	Env       []string
}

func NewExecRunner(killDelay time.Duration) *ExecRunner {
	if killDelay <= 0 {
		killDelay = DefaultKillDelay
	}
	return &ExecRunner{KillDelay: killDelay}
}

func (e *ExecRunner) Run(ctx context.Context, command Command) Result {
	if command.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, command.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = command.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.KillDelay
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	if command.Stdin != nil {
		cmd.Stdin = strings.NewReader(*command.Stdin)
	}

	entry := logrus.WithFields(logrus.Fields{
		"command": command.String(),
		"dir":     command.Dir,
	})
	entry.Debug("starting process")

	if err := cmd.Start(); err != nil {
		entry.WithError(err).Warn("failed to spawn process")
		return Result{
			Exit: ExitSpawnFailed,
			Code: -1,
			Err:  errors.Wrapf(err, "failed to start %s", command.Name),
		}
	}

	err := cmd.Wait()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.Exit = ExitTimedOut
		result.Code = -1
		result.Err = errors.Wrapf(ErrTimeout, "%s did not finish within %s", command.String(), command.Timeout)
	case err == nil:
		result.Exit = ExitSuccess
	default:
		result.Exit = ExitNonZero
		result.Code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Code = exitErr.ExitCode()
		}
		result.Err = errors.Wrapf(err, "%s failed", command.String())
	}

	entry.WithFields(logrus.Fields{
		"exit": result.Exit.String(),
		"code": result.Code,
	}).Debug("process finished")

	return result
}
