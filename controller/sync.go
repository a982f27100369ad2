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

package controller

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/manifest"
	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/storage"
)

var buildExtensions = map[string]bool{
	".move": true,
	".mv":   true,
	".yaml": true,
}

// Inspector rebuilds the file list of a project from the package on disk.
type Inspector struct {
	store     storage.Store
	workspace *blockchain.Workspace
}

func NewInspector(
	store storage.Store,
	workspace *blockchain.Workspace,
) *Inspector {
	return &Inspector{
		store:     store,
		workspace: workspace,
	}
}

// Sync replaces the files of the project with what the package holds on disk.
func (i *Inspector) Sync(projectID uuid.UUID) ([]*model.File, error) {
	var proj model.Project
	if err := i.store.GetProject(projectID, &proj); err != nil {
		return nil, errors.Wrap(err, "failed to get project")
	}

	files, err := i.Inspect()
	if err != nil {
		return nil, err
	}

	if err := i.store.ReplaceFiles(projectID, files); err != nil {
		return nil, errors.Wrap(err, "failed to replace project files")
	}

	return files, nil
}

// Inspect reads sources, the manifest and the build output of the workspace.
func (i *Inspector) Inspect() ([]*model.File, error) {
	defer i.workspace.RLock()()

	files := make([]*model.File, 0)

	sources, err := readSources(i.workspace.SourcesDir())
	if err != nil {
		return nil, err
	}
	files = append(files, sources...)

	content, err := os.ReadFile(i.workspace.Manifest().Path())
	if err == nil {
		files = append(files, &model.File{
			Name:     manifest.FileName,
			Content:  string(content),
			Path:     "",
			Type:     model.ConfigFile,
			ReadOnly: true,
		})
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read Move.toml")
	}

	build, err := readBuild(i.workspace.BuildDir())
	if err != nil {
		return nil, err
	}
	files = append(files, build...)

	return files, nil
}

func readSources(dir string) ([]*model.File, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list sources")
	}

	var files []*model.File
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".move" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", entry.Name())
		}

		files = append(files, &model.File{
			Name:     entry.Name(),
			Content:  string(content),
			Path:     blockchain.SourcesDir,
			Type:     model.SourceFile,
			ReadOnly: false,
		})
	}

	return files, nil
}

// readBuild walks the build output. Files that are not valid text are skipped.
func readBuild(dir string) ([]*model.File, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var files []*model.File
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !buildExtensions[filepath.Ext(d.Name())] {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil || !utf8.Valid(content) {
			return nil
		}

		rel, err := filepath.Rel(dir, filepath.Dir(p))
		if err != nil {
			return err
		}

		files = append(files, &model.File{
			Name:     d.Name(),
			Content:  string(content),
			Path:     path.Join(blockchain.BuildDir, filepath.ToSlash(rel)),
			Type:     model.BuildFile,
			ReadOnly: true,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to walk build directory")
	}

	return files, nil
}
