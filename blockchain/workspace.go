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
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/zeromove/move-studio-api/manifest"
)

const (
	SourcesDir = "sources"
	BuildDir   = "build"
	ConfigDir  = ".movement"
	ConfigFile = "config.yaml"
	moveCache  = ".move"
)

var (
	ErrDirMissing      = errors.New("package directory does not exist")
	ErrPackageInvalid  = errors.New("Move.toml or sources/ directory is missing")
	ErrPermissionError = errors.New("no write permission to sources directory")
	ErrPathOutside     = errors.New("path escapes the sources directory")
)

// Workspace is the package root the CLI operates on.
//
// All pipeline steps and file writes against one directory are serialized through a
// lock keyed by the directory path.
type Workspace struct {
	dir   string
	locks *mutex
}

var workspaceLocks = newMutex()

// NewWorkspace resolves dir against the working directory, so CLI invocations that
// run inside the package still point at it.
func NewWorkspace(dir string) *Workspace {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}

	return &Workspace{
		dir:   abs,
		locks: workspaceLocks,
	}
}

func (w *Workspace) Dir() string {
	return w.dir
}

func (w *Workspace) SourcesDir() string {
	return filepath.Join(w.dir, SourcesDir)
}

func (w *Workspace) BuildDir() string {
	return filepath.Join(w.dir, BuildDir)
}

func (w *Workspace) ConfigPath() string {
	return filepath.Join(w.dir, ConfigDir, ConfigFile)
}

// ModuleFile is the canonical module file compile and deploy write to.
func (w *Workspace) ModuleFile() string {
	return filepath.Join(w.SourcesDir(), "project.move")
}

func (w *Workspace) Manifest() *manifest.Manifest {
	return manifest.New(w.dir)
}

// Lock takes the exclusive lock of the directory and returns its release.
func (w *Workspace) Lock() (unlock func()) {
	w.locks.load(w.dir).Lock()
	return func() {
		w.locks.remove(w.dir).Unlock()
	}
}

// RLock takes the shared lock of the directory and returns its release.
func (w *Workspace) RLock() (unlock func()) {
	w.locks.load(w.dir).RLock()
	return func() {
		w.locks.remove(w.dir).RUnlock()
	}
}

func (w *Workspace) CheckDir() error {
	info, err := os.Stat(w.dir)
	if err != nil || !info.IsDir() {
		return ErrDirMissing
	}
	return nil
}

func (w *Workspace) CheckPackage() error {
	if _, err := os.Stat(w.Manifest().Path()); err != nil {
		return ErrPackageInvalid
	}
	if info, err := os.Stat(w.SourcesDir()); err != nil || !info.IsDir() {
		return ErrPackageInvalid
	}
	return nil
}

func (w *Workspace) CheckWritable() error {
	if err := unix.Access(w.SourcesDir(), unix.W_OK); err != nil {
		return errors.Wrap(ErrPermissionError, err.Error())
	}
	return nil
}

// WriteModule overwrites the canonical module file.
func (w *Workspace) WriteModule(code string) error {
	if err := os.WriteFile(w.ModuleFile(), []byte(code), 0644); err != nil {
		return errors.Wrap(err, "failed to write module file")
	}
	return nil
}

func (w *Workspace) ReadModule() (string, error) {
	b, err := os.ReadFile(w.ModuleFile())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SourcePath resolves a file of the sources tree. The logical path may carry a
// leading "sources" segment.
func (w *Workspace) SourcePath(logicalPath, name string) (string, error) {
	clean := strings.TrimPrefix(filepath.ToSlash(logicalPath), SourcesDir)
	clean = strings.TrimPrefix(clean, "/")

	full := filepath.Join(w.SourcesDir(), filepath.FromSlash(clean), name)

	rel, err := filepath.Rel(w.SourcesDir(), full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrPathOutside
	}
	return full, nil
}

// ConfigExists reports whether the CLI profile file is present.
func (w *Workspace) ConfigExists() bool {
	return fileExists(w.ConfigPath())
}

// ReadAccount returns the default profile account of the CLI config.
func (w *Workspace) ReadAccount() (string, error) {
	conf, err := ReadCLIConfig(w.ConfigPath())
	if err != nil {
		return "", err
	}

	account, ok := conf.DefaultAccount()
	if !ok {
		return "", errors.New("account address not found in config.yaml")
	}
	return account, nil
}

type RemoveFailure struct {
	Dir   string `json:"dir"`
	Error string `json:"error"`
}

// ResetResult lists what a Reset removed.
type ResetResult struct {
	Removed  []string
	Failures []RemoveFailure
	// Existing counts the directories that were present before the reset.
	Existing int
}

// Reset deletes the CLI config, the package cache and the build output.
func (w *Workspace) Reset(ctx context.Context) ResetResult {
	defer w.Lock()()

	targets := []string{
		filepath.Join(w.dir, ConfigDir),
		filepath.Join(filepath.Dir(w.dir), ConfigDir),
		filepath.Join(w.dir, moveCache),
		w.BuildDir(),
	}

	var (
		mu     sync.Mutex
		result ResetResult
	)

	g, _ := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		if _, err := os.Stat(target); err != nil {
			continue
		}
		result.Existing++

		g.Go(func() error {
			err := os.RemoveAll(target)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures = append(result.Failures, RemoveFailure{Dir: target, Error: err.Error()})
			} else {
				result.Removed = append(result.Removed, target)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(result.Removed)
	return result
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
