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
	"context"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/zeromove/move-studio-api/telemetry"
)

var ErrCliMissing = errors.New("Movement CLI is not installed or not in PATH")

// configSettleTime is how long init waits for the CLI to flush its config file.
const configSettleTime = 500 * time.Millisecond

type Timeouts struct {
	Probe   time.Duration
	Init    time.Duration
	Compile time.Duration
	Deploy  time.Duration
}

// Movement drives the movement CLI against a workspace.
type Movement struct {
	runner   Runner
	binary   string
	timeouts Timeouts
	probes   singleflight.Group
}

func NewMovement(runner Runner, binary string, timeouts Timeouts) *Movement {
	if binary == "" {
		binary = "movement"
	}
	return &Movement{
		runner:   runner,
		binary:   binary,
		timeouts: timeouts,
	}
}

// Probe checks that the CLI can be executed and returns its version line.
//
// Concurrent probes share a single `--version` run.
func (m *Movement) Probe(ctx context.Context) (string, error) {
	v, err, _ := m.probes.Do("version", func() (interface{}, error) {
		result := m.run(ctx, "probe", Command{
			Name:    m.binary,
			Args:    []string{"--version"},
			Timeout: m.timeouts.Probe,
		})
		if !result.Success() {
			return "", errors.Wrap(ErrCliMissing, result.Log()+errString(result.Err))
		}
		return strings.TrimSpace(result.Stdout), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Version parses the semantic version out of the CLI's version line.
func (m *Movement) Version(ctx context.Context) (*semver.Version, error) {
	line, err := m.Probe(ctx)
	if err != nil {
		return nil, err
	}

	for _, field := range strings.Fields(line) {
		if v, err := semver.NewVersion(field); err == nil {
			return v, nil
		}
	}
	return nil, errors.Errorf("no version found in %q", line)
}

// InitPrompt is the stdin answer to the CLI's private key prompt: the key, or an
// empty line to let the CLI generate one.
func InitPrompt(privateKey string) string {
	key := strings.TrimSpace(privateKey)
	if key == "" {
		return "\n"
	}
	return key + "\n"
}

// InitOutcome is the result of `movement init` after applying its exit rule.
type InitOutcome struct {
	Result Result
	// Succeeded is true when the CLI exited cleanly or, despite a non-zero exit,
	// left its config file behind.
	Succeeded bool
	// ConfigWritten reports whether the config file exists after the run.
	ConfigWritten bool
}

// Init runs `movement init` in the workspace.
//
// The CLI's exit code is unreliable for init: it may fail after writing a usable
// config. The existence of the config file is therefore accepted as success. This
// rule applies to init only.
func (m *Movement) Init(ctx context.Context, ws *Workspace, network Network, privateKey string) InitOutcome {
	prompt := InitPrompt(privateKey)

	result := m.run(ctx, "init", Command{
		Name:    m.binary,
		Args:    network.InitArgs(),
		Dir:     ws.Dir(),
		Stdin:   &prompt,
		Timeout: m.timeouts.Init,
	})

	outcome := InitOutcome{Result: result}
	if result.Exit == ExitTimedOut || result.Exit == ExitSpawnFailed {
		return outcome
	}

	outcome.ConfigWritten = waitForFile(ctx, ws.ConfigPath(), configSettleTime)
	outcome.Succeeded = result.Success() || outcome.ConfigWritten

	if !result.Success() && outcome.ConfigWritten {
		logrus.WithFields(logrus.Fields{
			"dir":  ws.Dir(),
			"code": result.Code,
		}).Warn("movement init exited with an error but wrote its config, treating as success")
	}

	return outcome
}

// Compile runs `movement move compile` for the workspace package.
func (m *Movement) Compile(ctx context.Context, ws *Workspace) Result {
	return m.run(ctx, "compile", Command{
		Name:    m.binary,
		Args:    []string{"move", "compile", "--package-dir", ws.Dir()},
		Dir:     ws.Dir(),
		Timeout: m.timeouts.Compile,
	})
}

// Publish runs `movement move publish` from the package root, where the CLI finds its
// local config.
func (m *Movement) Publish(ctx context.Context, ws *Workspace) Result {
	return m.run(ctx, "publish", Command{
		Name:    m.binary,
		Args:    []string{"move", "publish", "--assume-yes", "--package-dir", "."},
		Dir:     ws.Dir(),
		Timeout: m.timeouts.Deploy,
	})
}

func (m *Movement) run(ctx context.Context, operation string, cmd Command) Result {
	ctx, span := telemetry.StartSpan(ctx, "movement "+operation)
	defer span.End()

	start := time.Now()
	result := m.runner.Run(ctx, cmd)

	telemetry.ObserveCommand(operation, result.Exit.String(), time.Since(start))
	span.SetAttributes(
		attribute.String("movement.command", cmd.String()),
		attribute.String("movement.exit", result.Exit.String()),
		attribute.Int("movement.code", result.Code),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
	}

	return result
}

func waitForFile(ctx context.Context, path string, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for {
		if fileExists(path) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return fileExists(path)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
