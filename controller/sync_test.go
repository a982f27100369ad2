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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/storage"
)

func writeFile(t *testing.T, path string, content []byte) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, content, 0644))
}

func Test_Sync(t *testing.T) {
	store := storage.NewInMemory()
	dir := newPackage(t)
	ws := blockchain.NewWorkspace(dir)
	inspector := NewInspector(store, ws)

	proj, err := NewProjects(store, ws).Create(model.NewProject{Name: "counter"})
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "sources", "counter.move"), []byte(testModule))
	writeFile(t, filepath.Join(dir, "sources", "util.move"), []byte("module a::util {}"))
	writeFile(t, filepath.Join(dir, "sources", "notes.txt"), []byte("ignored"))
	writeFile(t, filepath.Join(dir, "build", "counter", "BuildInfo.yaml"), []byte("compiled_package_info: {}"))
	writeFile(t, filepath.Join(dir, "build", "counter", "sources", "counter.move"), []byte(testModule))
	writeFile(t, filepath.Join(dir, "build", "counter", "bytecode_modules", "counter.mv"), []byte("text bytecode"))
	writeFile(t, filepath.Join(dir, "build", "counter", "bytecode_modules", "binary.mv"), []byte{0xa1, 0x1c, 0xeb, 0x0b, 0xff})
	writeFile(t, filepath.Join(dir, "build", "counter", "source_maps", "counter.mvsm"), []byte("skipped"))

	files, err := inspector.Sync(proj.ID)
	require.NoError(t, err)
	require.Len(t, files, 6)

	byKey := map[string]*model.File{}
	for _, f := range files {
		byKey[f.Path+"/"+f.Name] = f
	}

	for _, key := range []string{"sources/counter.move", "sources/util.move"} {
		require.Contains(t, byKey, key)
		assert.Equal(t, model.SourceFile, byKey[key].Type)
		assert.False(t, byKey[key].ReadOnly)
	}

	require.Contains(t, byKey, "/Move.toml")
	assert.Equal(t, model.ConfigFile, byKey["/Move.toml"].Type)
	assert.True(t, byKey["/Move.toml"].ReadOnly)
	assert.Equal(t, testManifest, byKey["/Move.toml"].Content)

	for _, key := range []string{
		"build/counter/BuildInfo.yaml",
		"build/counter/sources/counter.move",
		"build/counter/bytecode_modules/counter.mv",
	} {
		require.Contains(t, byKey, key)
		assert.Equal(t, model.BuildFile, byKey[key].Type)
		assert.True(t, byKey[key].ReadOnly)
	}

	var stored []*model.File
	require.NoError(t, store.GetFilesForProject(proj.ID, &stored))
	assert.Len(t, stored, 6)
	for _, f := range stored {
		assert.NotEqual(t, model.DefaultSourceFile, f.Name, "stale default file left behind")
	}
}

func Test_Inspect_EmptyPackage(t *testing.T) {
	ws := blockchain.NewWorkspace(t.TempDir())

	files, err := NewInspector(storage.NewInMemory(), ws).Inspect()
	require.NoError(t, err)
	assert.Empty(t, files)
}
