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

package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/zeromove/move-studio-api/model"
)

type Store interface {
	CreateProject(proj *model.Project, files []*model.File) error
	GetProject(id uuid.UUID, proj *model.Project) error
	GetAllProjects(projs *[]*model.Project) error
	UpdateProject(input model.UpdateProject, proj *model.Project) error
	DeleteProject(id uuid.UUID) error

	GetFilesForProject(projectID uuid.UUID, files *[]*model.File) error
	UpsertFile(file *model.File) error
	DeleteFile(projectID uuid.UUID, name string, path string) error
	ReplaceFiles(projectID uuid.UUID, files []*model.File) error

	RecordPipeline(projectID uuid.UUID, update model.PipelineUpdate) error
	GetHistoryForProject(projectID uuid.UUID, history *[]*model.HistoryEntry) error

	CountProjectsByStatus(counts map[string]int64) error
	CountProjectsModifiedBefore(before time.Time, count *int64) error

	Ping() error
}

var ErrNotFound = errors.New("entity not found")
