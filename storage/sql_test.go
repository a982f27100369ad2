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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeromove/move-studio-api/model"
)

func seedProject(t *testing.T, store Store) *model.Project {
	proj := &model.Project{
		ID:          uuid.New(),
		Name:        "counter",
		NetworkType: model.Testnet,
		Status:      model.StatusCreated,
	}
	files := []*model.File{{
		Name:    model.DefaultSourceFile,
		Path:    "sources",
		Type:    model.SourceFile,
		Content: "module hello::counter {}",
	}}

	require.NoError(t, store.CreateProject(proj, files))
	return proj
}

func Test_Projects(t *testing.T) {

	t.Run("create and get", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		var dbProj model.Project
		require.NoError(t, store.GetProject(proj.ID, &dbProj))

		assert.Equal(t, "counter", dbProj.Name)
		assert.Equal(t, model.StatusCreated, dbProj.Status)
		require.Len(t, dbProj.Files, 1)
		assert.Equal(t, model.DefaultSourceFile, dbProj.Files[0].Name)
		assert.Empty(t, dbProj.DeploymentHistory)
		assert.Nil(t, dbProj.InitData)
	})

	t.Run("get unknown project", func(t *testing.T) {
		store := NewInMemory()

		var proj model.Project
		err := store.GetProject(uuid.New(), &proj)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list sorted by recency", func(t *testing.T) {
		store := NewInMemory()
		first := seedProject(t, store)
		time.Sleep(5 * time.Millisecond)
		second := seedProject(t, store)
		time.Sleep(5 * time.Millisecond)

		name := "renamed"
		var updated model.Project
		require.NoError(t, store.UpdateProject(model.UpdateProject{ID: first.ID, Name: &name}, &updated))

		var projs []*model.Project
		require.NoError(t, store.GetAllProjects(&projs))
		require.Len(t, projs, 2)
		assert.Equal(t, first.ID, projs[0].ID)
		assert.Equal(t, second.ID, projs[1].ID)
	})

	t.Run("partial update", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		network := model.Devnet
		var updated model.Project
		err := store.UpdateProject(model.UpdateProject{ID: proj.ID, NetworkType: &network}, &updated)
		require.NoError(t, err)

		assert.Equal(t, "counter", updated.Name)
		assert.Equal(t, model.Devnet, updated.NetworkType)
		assert.True(t, updated.LastModified.After(proj.LastModified) || updated.LastModified.Equal(proj.LastModified))
	})

	t.Run("update unknown project", func(t *testing.T) {
		store := NewInMemory()

		name := "x"
		var updated model.Project
		err := store.UpdateProject(model.UpdateProject{ID: uuid.New(), Name: &name}, &updated)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		require.NoError(t, store.DeleteProject(proj.ID))

		var dbProj model.Project
		assert.ErrorIs(t, store.GetProject(proj.ID, &dbProj), ErrNotFound)
		assert.ErrorIs(t, store.DeleteProject(proj.ID), ErrNotFound)
	})
}

func Test_Files(t *testing.T) {

	t.Run("upsert inserts then overwrites", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		file := &model.File{ProjectID: proj.ID, Name: "util.move", Path: "sources", Type: model.SourceFile, Content: "a"}
		require.NoError(t, store.UpsertFile(file))

		again := &model.File{ProjectID: proj.ID, Name: "util.move", Path: "sources", Type: model.SourceFile, Content: "b"}
		require.NoError(t, store.UpsertFile(again))
		assert.Equal(t, file.ID, again.ID)

		var files []*model.File
		require.NoError(t, store.GetFilesForProject(proj.ID, &files))
		require.Len(t, files, 2)
		assert.Equal(t, model.DefaultSourceFile, files[0].Name)
		assert.Equal(t, "b", files[1].Content)
	})

	t.Run("same name in different paths", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		require.NoError(t, store.UpsertFile(&model.File{ProjectID: proj.ID, Name: model.DefaultSourceFile, Path: "build/counter", Type: model.BuildFile}))

		var files []*model.File
		require.NoError(t, store.GetFilesForProject(proj.ID, &files))
		assert.Len(t, files, 2)
	})

	t.Run("upsert for unknown project", func(t *testing.T) {
		store := NewInMemory()

		err := store.UpsertFile(&model.File{ProjectID: uuid.New(), Name: "a.move"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete by name and path", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		assert.ErrorIs(t, store.DeleteFile(proj.ID, model.DefaultSourceFile, ""), ErrNotFound)
		require.NoError(t, store.DeleteFile(proj.ID, model.DefaultSourceFile, "sources"))

		var files []*model.File
		require.NoError(t, store.GetFilesForProject(proj.ID, &files))
		assert.Empty(t, files)
	})

	t.Run("replace drops stale files", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		replacement := []*model.File{
			{Name: "a.move", Path: "sources", Type: model.SourceFile},
			{Name: "Move.toml", Path: "", Type: model.ConfigFile, ReadOnly: true},
		}
		require.NoError(t, store.ReplaceFiles(proj.ID, replacement))

		var files []*model.File
		require.NoError(t, store.GetFilesForProject(proj.ID, &files))
		require.Len(t, files, 2)
		assert.Equal(t, "a.move", files[0].Name)
		assert.Equal(t, "Move.toml", files[1].Name)
		assert.True(t, files[1].ReadOnly)
	})
}

func Test_RecordPipeline(t *testing.T) {

	t.Run("appends history and moves status", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		network := model.Devnet
		faucet := "https://faucet"
		err := store.RecordPipeline(proj.ID, model.PipelineUpdate{
			Entry:       model.NewHistoryEntry(&model.InitResult{Address: "0x1", FaucetURL: &faucet}, true),
			NetworkType: &network,
			InitData:    &model.InitSnapshot{Success: true, Address: "0x1", Timestamp: time.Now()},
		})
		require.NoError(t, err)

		err = store.RecordPipeline(proj.ID, model.PipelineUpdate{
			Entry:       model.NewHistoryEntry(&model.CompileResult{Error: "boom"}, false),
			CompileData: &model.CompileSnapshot{Success: false, Error: "boom"},
		})
		require.NoError(t, err)

		var dbProj model.Project
		require.NoError(t, store.GetProject(proj.ID, &dbProj))

		assert.Equal(t, model.StatusInitialized, dbProj.Status)
		assert.Equal(t, model.Devnet, dbProj.NetworkType)
		require.NotNil(t, dbProj.InitData)
		assert.Equal(t, "0x1", dbProj.InitData.Address)
		require.NotNil(t, dbProj.CompileData)
		assert.False(t, dbProj.CompileData.Success)

		require.Len(t, dbProj.DeploymentHistory, 2)
		assert.Equal(t, model.HistoryInit, dbProj.DeploymentHistory[0].Type)
		initData, ok := dbProj.DeploymentHistory[0].Data.(*model.InitResult)
		require.True(t, ok)
		assert.Equal(t, "0x1", initData.Address)
		assert.Equal(t, &faucet, initData.FaucetURL)

		assert.Equal(t, model.HistoryCompile, dbProj.DeploymentHistory[1].Type)
		assert.Equal(t, model.HistoryError, dbProj.DeploymentHistory[1].Status)
	})

	t.Run("deployed only after successful deploy", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		err := store.RecordPipeline(proj.ID, model.PipelineUpdate{
			Entry: model.NewHistoryEntry(&model.DeployResult{Error: "failed"}, false),
		})
		require.NoError(t, err)

		var dbProj model.Project
		require.NoError(t, store.GetProject(proj.ID, &dbProj))
		assert.Equal(t, model.StatusCreated, dbProj.Status)

		hash := "0xabc"
		err = store.RecordPipeline(proj.ID, model.PipelineUpdate{
			Entry:      model.NewHistoryEntry(&model.DeployResult{TransactionHash: &hash}, true),
			DeployData: &model.DeploySnapshot{Success: true, TransactionHash: &hash},
		})
		require.NoError(t, err)

		var history []*model.HistoryEntry
		require.NoError(t, store.GetHistoryForProject(proj.ID, &history))
		require.Len(t, history, 2)
		assert.Equal(t, model.StatusDeployed, model.SupportedStatus(history))

		require.NoError(t, store.GetProject(proj.ID, &dbProj))
		assert.Equal(t, model.StatusDeployed, dbProj.Status)
		assert.Equal(t, &hash, dbProj.DeployData.TransactionHash)
	})

	t.Run("keep status", func(t *testing.T) {
		store := NewInMemory()
		proj := seedProject(t, store)

		err := store.RecordPipeline(proj.ID, model.PipelineUpdate{
			Entry: model.NewHistoryEntry(&model.InitResult{Address: "0x1"}, true),
		})
		require.NoError(t, err)

		err = store.RecordPipeline(proj.ID, model.PipelineUpdate{
			Entry:      model.NewHistoryEntry(&model.CompileResult{Error: "no module"}, false),
			KeepStatus: true,
		})
		require.NoError(t, err)

		var dbProj model.Project
		require.NoError(t, store.GetProject(proj.ID, &dbProj))
		assert.Equal(t, model.StatusInitialized, dbProj.Status)
		assert.Len(t, dbProj.DeploymentHistory, 2)
		assert.Nil(t, dbProj.CompileData)
	})

	t.Run("unknown project", func(t *testing.T) {
		store := NewInMemory()

		err := store.RecordPipeline(uuid.New(), model.PipelineUpdate{
			Entry: model.NewHistoryEntry(&model.CompileResult{}, true),
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func Test_ProjectCounts(t *testing.T) {
	store := NewInMemory()
	seedProject(t, store)
	proj := seedProject(t, store)

	err := store.RecordPipeline(proj.ID, model.PipelineUpdate{
		Entry: model.NewHistoryEntry(&model.InitResult{Address: "0x1"}, true),
	})
	require.NoError(t, err)

	counts := map[string]int64{}
	require.NoError(t, store.CountProjectsByStatus(counts))
	assert.Equal(t, int64(1), counts[string(model.StatusCreated)])
	assert.Equal(t, int64(1), counts[string(model.StatusInitialized)])

	var stale int64
	require.NoError(t, store.CountProjectsModifiedBefore(time.Now().Add(time.Hour), &stale))
	assert.Equal(t, int64(2), stale)

	require.NoError(t, store.CountProjectsModifiedBefore(time.Now().Add(-time.Hour), &stale))
	assert.Equal(t, int64(0), stale)
}
