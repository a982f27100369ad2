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
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/zeromove/move-studio-api/model"
)

var _ Store = &SQL{}

const (
	PostgreSQL = "postgresql"
	Sqlite     = "sqlite"
)

// NewInMemory database, all callers share a single connection
func NewInMemory() *SQL {
	s := newSQL(sqlite.Open(":memory:"), logger.Warn)

	d, err := s.db.DB()
	if err != nil {
		panic(err)
	}
	d.SetMaxOpenConns(1)

	return s
}

func NewSqlite(path string) *SQL {
	return newSQL(sqlite.Open(path), logger.Warn)
}

func NewPostgreSQL(dsn string) *SQL {
	return newSQL(postgres.New(postgres.Config{DSN: dsn}), logger.Error)
}

func newSQL(dial gorm.Dialector, level logger.LogLevel) *SQL {
	gormConf := &gorm.Config{
		Logger: logger.Default.LogMode(level),
	}

	db, err := gorm.Open(dial, gormConf)
	if err != nil {
		err := errors.Wrap(err, "failed to connect database")
		sentry.CaptureException(err)
		panic(err)
	}

	migrate(db)

	d, err := db.DB()
	if err != nil {
		panic(err)
	}
	d.SetMaxIdleConns(5)

	return &SQL{
		db: db,
	}
}

func migrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&model.Project{},
		&model.File{},
		&model.HistoryEntry{},
	)
	if err != nil {
		err := errors.Wrap(err, "failed to migrate database")
		sentry.CaptureException(err)
		panic(err)
	}
}

type SQL struct {
	db *gorm.DB
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func orderByIndex(db *gorm.DB) *gorm.DB {
	return db.Order("\"index\" asc")
}

func touchProject(tx *gorm.DB, id uuid.UUID, now time.Time) error {
	res := tx.Model(&model.Project{ID: id}).Update("last_modified", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) CreateProject(proj *model.Project, files []*model.File) error {
	now := time.Now()
	proj.CreatedAt = now
	proj.LastModified = now

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(proj).Error; err != nil {
			return err
		}

		for i, file := range files {
			file.ProjectID = proj.ID
			file.Index = i
			if file.ID == uuid.Nil {
				file.ID = uuid.New()
			}
			if file.LastModified.IsZero() {
				file.LastModified = now
			}
		}

		if len(files) > 0 {
			if err := tx.Create(files).Error; err != nil {
				return err
			}
		}

		proj.Files = files
		return nil
	})
}

func (s *SQL) GetProject(id uuid.UUID, proj *model.Project) error {
	err := s.db.
		Preload("Files", orderByIndex).
		Preload("DeploymentHistory", orderByIndex).
		First(proj, "id = ?", id).Error
	return notFound(err)
}

func (s *SQL) GetAllProjects(projs *[]*model.Project) error {
	return s.db.
		Preload("Files", orderByIndex).
		Preload("DeploymentHistory", orderByIndex).
		Order("\"last_modified\" desc").
		Find(projs).Error
}

func (s *SQL) UpdateProject(input model.UpdateProject, proj *model.Project) error {
	update := map[string]any{
		"last_modified": time.Now(),
	}
	if input.Name != nil {
		update["name"] = *input.Name
	}
	if input.NetworkType != nil {
		update["network_type"] = *input.NetworkType
	}
	if input.Status != nil {
		update["status"] = *input.Status
	}

	res := s.db.
		Model(&model.Project{ID: input.ID}).
		Updates(update)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return s.GetProject(input.ID, proj)
}

func (s *SQL) DeleteProject(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&model.File{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.HistoryEntry{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&model.Project{ID: id})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *SQL) GetFilesForProject(projectID uuid.UUID, files *[]*model.File) error {
	var count int64
	if err := s.db.Model(&model.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}

	return s.db.
		Where("project_id = ?", projectID).
		Scopes(orderByIndex).
		Find(files).Error
}

// UpsertFile inserts the file or overwrites the one stored at the same name and path.
func (s *SQL) UpsertFile(file *model.File) error {
	now := time.Now()
	file.LastModified = now

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := touchProject(tx, file.ProjectID, now); err != nil {
			return err
		}

		var existing model.File
		err := tx.
			Where("project_id = ? AND name = ? AND path = ?", file.ProjectID, file.Name, file.Path).
			First(&existing).Error
		if err == nil {
			file.ID = existing.ID
			file.Index = existing.Index
			return tx.Model(&existing).Updates(map[string]any{
				"content":       file.Content,
				"type":          file.Type,
				"read_only":     file.ReadOnly,
				"last_modified": now,
			}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&model.File{}).Where("project_id = ?", file.ProjectID).Count(&count).Error; err != nil {
			return err
		}

		if file.ID == uuid.Nil {
			file.ID = uuid.New()
		}
		file.Index = int(count)
		return tx.Create(file).Error
	})
}

func (s *SQL) DeleteFile(projectID uuid.UUID, name string, path string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Where("project_id = ? AND name = ? AND path = ?", projectID, name, path).
			Delete(&model.File{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return touchProject(tx, projectID, time.Now())
	})
}

// ReplaceFiles drops every file of the project and stores the given set in order.
func (s *SQL) ReplaceFiles(projectID uuid.UUID, files []*model.File) error {
	now := time.Now()

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := touchProject(tx, projectID, now); err != nil {
			return err
		}

		if err := tx.Where("project_id = ?", projectID).Delete(&model.File{}).Error; err != nil {
			return err
		}

		for i, file := range files {
			file.ProjectID = projectID
			file.Index = i
			if file.ID == uuid.Nil {
				file.ID = uuid.New()
			}
			if file.LastModified.IsZero() {
				file.LastModified = now
			}
		}

		if len(files) == 0 {
			return nil
		}
		return tx.Create(files).Error
	})
}

// RecordPipeline appends the history entry of a pipeline step and applies its
// snapshots and status transition in one transaction.
func (s *SQL) RecordPipeline(projectID uuid.UUID, update model.PipelineUpdate) error {
	if update.Entry == nil {
		return errors.New("pipeline update without history entry")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var proj model.Project
		if err := tx.First(&proj, "id = ?", projectID).Error; err != nil {
			return notFound(err)
		}

		var count int64
		if err := tx.Model(&model.HistoryEntry{}).Where("project_id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}

		entry := update.Entry
		entry.ProjectID = projectID
		entry.Index = int(count)
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		if err := tx.Create(entry).Error; err != nil {
			return err
		}

		if !update.KeepStatus {
			proj.Status = model.NextStatus(proj.Status, entry.Type, entry.Status == model.HistorySuccess)
		}
		proj.LastModified = time.Now()
		if update.NetworkType != nil {
			proj.NetworkType = *update.NetworkType
		}
		if update.InitData != nil {
			proj.InitData = update.InitData
		}
		if update.CompileData != nil {
			proj.CompileData = update.CompileData
		}
		if update.DeployData != nil {
			proj.DeployData = update.DeployData
		}

		return tx.Omit(clause.Associations).Save(&proj).Error
	})
}

func (s *SQL) GetHistoryForProject(projectID uuid.UUID, history *[]*model.HistoryEntry) error {
	var count int64
	if err := s.db.Model(&model.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}

	return s.db.
		Where("project_id = ?", projectID).
		Scopes(orderByIndex).
		Find(history).Error
}

func (s *SQL) CountProjectsByStatus(counts map[string]int64) error {
	var rows []struct {
		Status string
		Count  int64
	}

	err := s.db.Model(&model.Project{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return nil
}

func (s *SQL) CountProjectsModifiedBefore(before time.Time, count *int64) error {
	return s.db.Model(&model.Project{}).
		Where("last_modified < ?", before).
		Count(count).Error
}

func (s *SQL) Ping() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Ping()
}
