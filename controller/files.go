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
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/storage"
)

type Files struct {
	store     storage.Store
	workspace *blockchain.Workspace
}

func NewFiles(
	store storage.Store,
	workspace *blockchain.Workspace,
) *Files {
	return &Files{
		store:     store,
		workspace: workspace,
	}
}

func (f *Files) GetFilesForProject(projectID uuid.UUID) ([]*model.File, error) {
	files := make([]*model.File, 0)
	err := f.store.GetFilesForProject(projectID, &files)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get files")
	}

	return files, nil
}

// Upsert stores a source or config file and writes source files into the package.
//
// Build files and read-only files are left untouched. An existing file on disk is
// never overwritten with empty content.
func (f *Files) Upsert(projectID uuid.UUID, input model.UpsertFile) ([]*model.File, error) {
	files, err := f.GetFilesForProject(projectID)
	if err != nil {
		return nil, err
	}

	fileType := input.Type
	if fileType == "" {
		fileType = model.SourceFile
	}
	if !fileType.IsValid() {
		return nil, model.NewPipelineError(model.BadRequest, "invalid_file_type", "unknown file type "+string(fileType))
	}
	if !fileType.Writable() {
		return files, nil
	}

	for _, file := range files {
		if file.Matches(input.Name, input.Path) && file.ReadOnly {
			return files, nil
		}
	}

	if fileType == model.SourceFile {
		if err := f.writeSource(input); err != nil {
			return nil, err
		}
	}

	err = f.store.UpsertFile(&model.File{
		ProjectID: projectID,
		Name:      input.Name,
		Path:      input.Path,
		Content:   input.Content,
		Type:      fileType,
		ReadOnly:  false,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to store file")
	}

	return f.GetFilesForProject(projectID)
}

func (f *Files) writeSource(input model.UpsertFile) error {
	path, err := f.workspace.SourcePath(input.Path, input.Name)
	if err != nil {
		return model.NewPipelineError(model.BadRequest, "invalid_path", err.Error())
	}

	defer f.workspace.Lock()()

	if _, err := os.Stat(path); err == nil && input.Content == "" {
		logrus.WithField("file", path).Warn("prevented overwriting file with empty content")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create source directory")
	}

	if err := os.WriteFile(path, []byte(input.Content), 0644); err != nil {
		return errors.Wrap(err, "failed to write source file")
	}
	return nil
}

// Delete removes a writable file from the project, and source files from disk.
// Without a path the first file with the name is picked. Read-only and unknown
// files are left alone.
func (f *Files) Delete(projectID uuid.UUID, name string, path *string) ([]*model.File, error) {
	files, err := f.GetFilesForProject(projectID)
	if err != nil {
		return nil, err
	}

	var target *model.File
	for _, file := range files {
		if file.Name == name && (path == nil || file.Path == *path) {
			target = file
			break
		}
	}

	if target == nil || target.ReadOnly {
		return files, nil
	}

	if target.Type == model.SourceFile {
		if err := f.removeSource(target); err != nil {
			return nil, err
		}
	}

	if err := f.store.DeleteFile(projectID, target.Name, target.Path); err != nil {
		return nil, errors.Wrap(err, "failed to delete file")
	}

	return f.GetFilesForProject(projectID)
}

func (f *Files) removeSource(file *model.File) error {
	path, err := f.workspace.SourcePath(file.Path, file.Name)
	if err != nil {
		return model.NewPipelineError(model.BadRequest, "invalid_path", err.Error())
	}

	defer f.workspace.Lock()()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to remove source file")
	}
	return nil
}
