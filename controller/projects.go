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

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/storage"
)

type Projects struct {
	store     storage.Store
	workspace *blockchain.Workspace
}

func NewProjects(
	store storage.Store,
	workspace *blockchain.Workspace,
) *Projects {
	return &Projects{
		store:     store,
		workspace: workspace,
	}
}

// Create stores a new project holding an empty default module file.
func (p *Projects) Create(input model.NewProject) (*model.Project, error) {
	proj := &model.Project{
		ID:          uuid.New(),
		Name:        input.Name,
		NetworkType: model.Testnet,
		Status:      model.StatusCreated,
	}

	files := []*model.File{{
		ID:       uuid.New(),
		Name:     model.DefaultSourceFile,
		Path:     blockchain.SourcesDir,
		Type:     model.SourceFile,
		ReadOnly: false,
	}}

	err := p.store.CreateProject(proj, files)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create project")
	}

	return proj, nil
}

func (p *Projects) Get(id uuid.UUID) (*model.Project, error) {
	var proj model.Project
	err := p.store.GetProject(id, &proj)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get project")
	}

	return &proj, nil
}

func (p *Projects) All() ([]*model.Project, error) {
	projs := make([]*model.Project, 0)
	err := p.store.GetAllProjects(&projs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get projects")
	}

	return projs, nil
}

// Update changes name, network or status. A status is only accepted when the
// deployment history backs it.
func (p *Projects) Update(input model.UpdateProject) (*model.Project, error) {
	if input.NetworkType != nil && !input.NetworkType.IsValid() {
		return nil, model.NewPipelineError(model.BadRequest, "invalid_network_type",
			"unknown network type "+string(*input.NetworkType))
	}

	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, model.NewPipelineError(model.BadRequest, "invalid_status",
				"unknown status "+string(*input.Status))
		}

		var history []*model.HistoryEntry
		if err := p.store.GetHistoryForProject(input.ID, &history); err != nil {
			return nil, errors.Wrap(err, "failed to get project history")
		}

		if supported := model.SupportedStatus(history); !supported.AtLeast(*input.Status) {
			return nil, model.NewPipelineError(model.BadRequest, "invalid_status",
				"status "+string(*input.Status)+" is ahead of the deployment history ("+string(supported)+")")
		}
	}

	var proj model.Project
	err := p.store.UpdateProject(input, &proj)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update project")
	}

	return &proj, nil
}

// Delete removes the project record and, best effort, its source files on disk.
// The canonical module file and files still listed by another project stay.
func (p *Projects) Delete(id uuid.UUID) error {
	var proj model.Project
	if err := p.store.GetProject(id, &proj); err != nil {
		return errors.Wrap(err, "failed to get project")
	}

	if err := p.store.DeleteProject(id); err != nil {
		return errors.Wrap(err, "failed to delete project")
	}

	shared, err := p.sharedSources()
	if err != nil {
		logrus.WithError(err).
			WithField("project", id.String()).
			Warn("failed to list remaining projects, keeping source files")
		return nil
	}

	defer p.workspace.Lock()()

	for _, file := range proj.Files {
		if file.Type != model.SourceFile {
			continue
		}

		path, err := p.workspace.SourcePath(file.Path, file.Name)
		if err != nil || shared[path] {
			continue
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).
				WithFields(logrus.Fields{"project": id.String(), "file": path}).
				Warn("failed to remove project source file")
		}
	}

	return nil
}

// sharedSources lists the on-disk source paths that must survive a project delete.
func (p *Projects) sharedSources() (map[string]bool, error) {
	shared := map[string]bool{p.workspace.ModuleFile(): true}

	projs := make([]*model.Project, 0)
	if err := p.store.GetAllProjects(&projs); err != nil {
		return nil, err
	}

	for _, proj := range projs {
		for _, file := range proj.Files {
			if file.Type != model.SourceFile {
				continue
			}
			if path, err := p.workspace.SourcePath(file.Path, file.Name); err == nil {
				shared[path] = true
			}
		}
	}
	return shared, nil
}

func (p *Projects) History(id uuid.UUID) ([]*model.HistoryEntry, error) {
	history := make([]*model.HistoryEntry, 0)
	err := p.store.GetHistoryForProject(id, &history)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get project history")
	}

	return history, nil
}
