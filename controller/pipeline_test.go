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
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/storage"
)

const testManifest = `[package]
name = "hello"
version = "1.0.0"

[addresses]
std = "0x1"
hello = "_"

[dependencies.AptosFramework]
git = "https://github.com/movementlabsxyz/aptos-core.git"
rev = "movement"
subdir = "aptos-move/framework/aptos-framework"
`

const testModule = `module counter_addr::counter {
    use std::signer;

    public entry fun increment(account: &signer, amount: u64) {}

    public entry fun reset(account: &signer) {}
}
`

const testConfig = `---
profiles:
  default:
    network: Custom
    public_key: "0xpub"
    account: ab12
    rest_url: "https://testnet.movementnetwork.xyz/v1"
`

// fakeRunner answers CLI invocations without spawning processes.
type fakeRunner struct {
	mu     sync.Mutex
	calls  []blockchain.Command
	handle func(cmd blockchain.Command) blockchain.Result
}

func (f *fakeRunner) Run(_ context.Context, cmd blockchain.Command) blockchain.Result {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	handle := f.handle
	f.mu.Unlock()

	if len(cmd.Args) > 0 && cmd.Args[0] == "--version" {
		return blockchain.Result{Stdout: "movement 7.2.0\n", Exit: blockchain.ExitSuccess}
	}
	if handle == nil {
		return blockchain.Result{Exit: blockchain.ExitSuccess}
	}
	return handle(cmd)
}

// subcommands lists the first argument of every call except version probes.
func (f *fakeRunner) subcommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var subs []string
	for _, c := range f.calls {
		if len(c.Args) > 0 && c.Args[0] != "--version" {
			subs = append(subs, c.Args[0]+" "+c.Args[len(c.Args)-1])
		}
	}
	return subs
}

func (f *fakeRunner) count(sub string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, c := range f.calls {
		if len(c.Args) > 0 && c.Args[0] == sub {
			n++
		}
	}
	return n
}

func newPackage(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, blockchain.SourcesDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Move.toml"), []byte(testManifest), 0644))
	return dir
}

func writeConfig(t *testing.T, dir string) {
	require.NoError(t, os.MkdirAll(filepath.Join(dir, blockchain.ConfigDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, blockchain.ConfigDir, blockchain.ConfigFile), []byte(testConfig), 0644))
}

type pipelineFixture struct {
	pipeline  *Pipeline
	projects  *Projects
	store     storage.Store
	runner    *fakeRunner
	workspace *blockchain.Workspace
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	store := storage.NewInMemory()
	runner := &fakeRunner{}
	ws := blockchain.NewWorkspace(newPackage(t))
	cli := blockchain.NewMovement(runner, "movement", blockchain.Timeouts{})

	return &pipelineFixture{
		pipeline:  NewPipeline(store, cli, ws),
		projects:  NewProjects(store, ws),
		store:     store,
		runner:    runner,
		workspace: ws,
	}
}

func (f *pipelineFixture) project(t *testing.T) *model.Project {
	proj, err := f.projects.Create(model.NewProject{Name: "counter"})
	require.NoError(t, err)
	return proj
}

func (f *pipelineFixture) reload(t *testing.T, id uuid.UUID) *model.Project {
	proj, err := f.projects.Get(id)
	require.NoError(t, err)
	return proj
}

func requirePipelineError(t *testing.T, err error) *model.PipelineError {
	require.Error(t, err)
	perr, ok := err.(*model.PipelineError)
	require.True(t, ok, "expected pipeline error, got %T: %v", err, err)
	return perr
}

func initWritesConfig(code int) func(cmd blockchain.Command) blockchain.Result {
	return func(cmd blockchain.Command) blockchain.Result {
		if cmd.Args[0] != "init" {
			return blockchain.Result{Exit: blockchain.ExitSuccess}
		}

		_ = os.MkdirAll(filepath.Join(cmd.Dir, blockchain.ConfigDir), 0755)
		_ = os.WriteFile(filepath.Join(cmd.Dir, blockchain.ConfigDir, blockchain.ConfigFile), []byte(testConfig), 0644)

		if code != 0 {
			return blockchain.Result{Stdout: "Account created", Stderr: "faucet error", Exit: blockchain.ExitNonZero, Code: code}
		}
		return blockchain.Result{Stdout: "Account created", Exit: blockchain.ExitSuccess}
	}
}

func Test_Init(t *testing.T) {

	t.Run("second init uses existing configuration", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = initWritesConfig(0)
		proj := f.project(t)

		first, err := f.pipeline.Init(context.Background(), model.InitRequest{
			ProjectID: &proj.ID,
			MoveCode:  testModule,
		})
		require.NoError(t, err)
		assert.True(t, first.Success)
		assert.Equal(t, messageInitialized, first.Message)
		require.NotNil(t, first.Address)
		assert.Equal(t, "ab12", *first.Address)
		require.NotNil(t, first.ModuleName)
		assert.Equal(t, "counter", *first.ModuleName)
		require.NotNil(t, first.FaucetURL)
		assert.Equal(t, "https://faucet.movementnetwork.xyz/?address=ab12", *first.FaucetURL)

		second, err := f.pipeline.Init(context.Background(), model.InitRequest{ProjectID: &proj.ID})
		require.NoError(t, err)
		assert.Equal(t, messageAlreadyInit, second.Message)
		assert.Equal(t, logExistingConfig, second.Log)
		assert.Nil(t, second.ModuleName)

		assert.Equal(t, 1, f.runner.count("init"))

		dbProj := f.reload(t, proj.ID)
		assert.Equal(t, model.StatusInitialized, dbProj.Status)
		require.Len(t, dbProj.DeploymentHistory, 2)
		for _, entry := range dbProj.DeploymentHistory {
			assert.Equal(t, model.HistoryInit, entry.Type)
			assert.Equal(t, model.HistorySuccess, entry.Status)
		}
		require.NotNil(t, dbProj.InitData)
		assert.Equal(t, logExistingConfig, dbProj.InitData.Log)
	})

	t.Run("patches manifest address", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = initWritesConfig(0)

		_, err := f.pipeline.Init(context.Background(), model.InitRequest{})
		require.NoError(t, err)

		pkg, err := f.workspace.Manifest().ReadPackage()
		require.NoError(t, err)
		assert.Equal(t, "0xab12", pkg.Addresses["hello"])
		assert.Equal(t, "0x1", pkg.Addresses["std"])
	})

	t.Run("passes private key and network", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = initWritesConfig(0)

		_, err := f.pipeline.Init(context.Background(), model.InitRequest{
			PrivateKey:  "  0xkey ",
			NetworkType: model.Mainnet,
		})
		require.NoError(t, err)

		var initCmd blockchain.Command
		for _, c := range f.runner.calls {
			if c.Args[0] == "init" {
				initCmd = c
			}
		}
		require.NotNil(t, initCmd.Stdin)
		assert.Equal(t, "0xkey\n", *initCmd.Stdin)
		assert.Contains(t, initCmd.Args, "--skip-faucet")
		assert.Contains(t, initCmd.Args, "https://mainnet.movementnetwork.xyz/v1")
		assert.Equal(t, f.workspace.Dir(), initCmd.Dir)
	})

	t.Run("non-zero exit with config is success", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = initWritesConfig(1)

		resp, err := f.pipeline.Init(context.Background(), model.InitRequest{})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "Account created\nfaucet error", resp.Log)
	})

	t.Run("non-zero exit without config fails", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = func(cmd blockchain.Command) blockchain.Result {
			return blockchain.Result{Stderr: "network unreachable", Exit: blockchain.ExitNonZero, Code: 2}
		}
		proj := f.project(t)

		_, err := f.pipeline.Init(context.Background(), model.InitRequest{ProjectID: &proj.ID})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.ExecError, perr.Kind)
		assert.Equal(t, model.StepInitFailed, perr.Step)
		assert.Equal(t, "network unreachable", perr.Details)

		dbProj := f.reload(t, proj.ID)
		assert.Equal(t, model.StatusCreated, dbProj.Status)
		require.Len(t, dbProj.DeploymentHistory, 1)
		assert.Equal(t, model.HistoryError, dbProj.DeploymentHistory[0].Status)
	})

	t.Run("timeout", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = func(cmd blockchain.Command) blockchain.Result {
			return blockchain.Result{Stdout: "partial", Exit: blockchain.ExitTimedOut, Code: -1, Err: blockchain.ErrTimeout}
		}

		_, err := f.pipeline.Init(context.Background(), model.InitRequest{})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.Timeout, perr.Kind)
		assert.Equal(t, model.StepTimeout, perr.Step)
		assert.Equal(t, "partial", perr.Log)
	})

	t.Run("clean exit without config", func(t *testing.T) {
		f := newPipelineFixture(t)

		_, err := f.pipeline.Init(context.Background(), model.InitRequest{})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.ConfigMissing, perr.Kind)
		assert.Equal(t, model.StepConfigMissing, perr.Step)
	})

	t.Run("cli missing", func(t *testing.T) {
		store := storage.NewInMemory()
		runner := &missingRunner{}
		ws := blockchain.NewWorkspace(newPackage(t))
		pipeline := NewPipeline(store, blockchain.NewMovement(runner, "movement", blockchain.Timeouts{}), ws)

		_, err := pipeline.Init(context.Background(), model.InitRequest{})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.CliMissing, perr.Kind)
		assert.Equal(t, model.StepCliMissing, perr.Step)
		assert.Equal(t, 1, runner.calls)
	})

	t.Run("directory missing", func(t *testing.T) {
		store := storage.NewInMemory()
		ws := blockchain.NewWorkspace(filepath.Join(t.TempDir(), "missing"))
		pipeline := NewPipeline(store, blockchain.NewMovement(&fakeRunner{}, "movement", blockchain.Timeouts{}), ws)

		_, err := pipeline.Init(context.Background(), model.InitRequest{})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.DirMissing, perr.Kind)
		assert.Equal(t, model.StepDirMissing, perr.Step)
	})
}

type missingRunner struct {
	calls int
}

func (m *missingRunner) Run(_ context.Context, cmd blockchain.Command) blockchain.Result {
	m.calls++
	return blockchain.Result{Exit: blockchain.ExitSpawnFailed, Code: -1, Err: os.ErrNotExist}
}

func Test_Compile(t *testing.T) {

	t.Run("source without module declaration", func(t *testing.T) {
		f := newPipelineFixture(t)
		proj := f.project(t)

		_, err := f.pipeline.Compile(context.Background(), model.CodeRequest{
			MoveCode:  "script { fun main() {} }",
			ProjectID: &proj.ID,
		})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.InvalidSource, perr.Kind)
		assert.Equal(t, model.StepManifestUpdateFailed, perr.Step)
		assert.Empty(t, f.runner.calls)

		content, err := os.ReadFile(f.workspace.Manifest().Path())
		require.NoError(t, err)
		assert.Equal(t, testManifest, string(content))

		dbProj := f.reload(t, proj.ID)
		require.Len(t, dbProj.DeploymentHistory, 1)
		assert.Equal(t, model.HistoryCompile, dbProj.DeploymentHistory[0].Type)
		assert.Equal(t, model.HistoryError, dbProj.DeploymentHistory[0].Status)
	})

	t.Run("empty source", func(t *testing.T) {
		f := newPipelineFixture(t)

		_, err := f.pipeline.Compile(context.Background(), model.CodeRequest{MoveCode: "  "})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.BadRequest, perr.Kind)
	})

	t.Run("success", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = func(cmd blockchain.Command) blockchain.Result {
			return blockchain.Result{Stdout: "BUILDING counter", Exit: blockchain.ExitSuccess}
		}
		proj := f.project(t)

		resp, err := f.pipeline.Compile(context.Background(), model.CodeRequest{
			MoveCode:  testModule,
			ProjectID: &proj.ID,
		})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, "BUILDING counter", resp.Output)
		assert.Equal(t, []string{"move " + f.workspace.Dir()}, f.runner.subcommands())

		code, err := f.workspace.ReadModule()
		require.NoError(t, err)
		assert.Equal(t, testModule, code)

		pkg, err := f.workspace.Manifest().ReadPackage()
		require.NoError(t, err)
		assert.Equal(t, "counter", pkg.Package.Name)
		assert.Equal(t, "_", pkg.Addresses["counter_addr"])

		dbProj := f.reload(t, proj.ID)
		assert.Equal(t, model.StatusCompiled, dbProj.Status)
		require.NotNil(t, dbProj.CompileData)
		assert.True(t, dbProj.CompileData.Success)
	})

	t.Run("failure drops status to initialized", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = initWritesConfig(0)
		proj := f.project(t)

		_, err := f.pipeline.Init(context.Background(), model.InitRequest{ProjectID: &proj.ID})
		require.NoError(t, err)

		_, err = f.pipeline.Compile(context.Background(), model.CodeRequest{MoveCode: testModule, ProjectID: &proj.ID})
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompiled, f.reload(t, proj.ID).Status)

		f.runner.handle = func(cmd blockchain.Command) blockchain.Result {
			return blockchain.Result{Stderr: "error[E01001]: unexpected token", Exit: blockchain.ExitNonZero, Code: 1, Err: os.ErrInvalid}
		}

		_, err = f.pipeline.Compile(context.Background(), model.CodeRequest{MoveCode: testModule, ProjectID: &proj.ID})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.ExecError, perr.Kind)
		assert.Equal(t, model.StepExecError, perr.Step)
		assert.Contains(t, perr.Log, "unexpected token")

		dbProj := f.reload(t, proj.ID)
		assert.Equal(t, model.StatusInitialized, dbProj.Status)
		require.NotNil(t, dbProj.CompileData)
		assert.False(t, dbProj.CompileData.Success)
		assert.Len(t, dbProj.DeploymentHistory, 3)
	})

	t.Run("missing manifest", func(t *testing.T) {
		f := newPipelineFixture(t)
		require.NoError(t, os.Remove(f.workspace.Manifest().Path()))

		_, err := f.pipeline.Compile(context.Background(), model.CodeRequest{MoveCode: testModule})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.ManifestMissing, perr.Kind)
		assert.Equal(t, model.StepManifestUpdateFailed, perr.Step)
		assert.Empty(t, f.runner.calls)
	})

	t.Run("read-only sources", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced for root")
		}

		f := newPipelineFixture(t)
		proj := f.project(t)

		_, err := f.pipeline.Compile(context.Background(), model.CodeRequest{MoveCode: testModule, ProjectID: &proj.ID})
		require.NoError(t, err)
		require.Equal(t, model.StatusCompiled, f.reload(t, proj.ID).Status)
		compiles := f.runner.count("move")

		require.NoError(t, os.Chmod(f.workspace.SourcesDir(), 0555))
		t.Cleanup(func() {
			_ = os.Chmod(f.workspace.SourcesDir(), 0755)
		})

		_, err = f.pipeline.Compile(context.Background(), model.CodeRequest{MoveCode: testModule, ProjectID: &proj.ID})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.PermissionError, perr.Kind)
		assert.Equal(t, model.StepPermissionError, perr.Step)
		assert.Equal(t, compiles, f.runner.count("move"))

		dbProj := f.reload(t, proj.ID)
		assert.Equal(t, model.StatusCompiled, dbProj.Status)
		require.Len(t, dbProj.DeploymentHistory, 2)
		last := dbProj.DeploymentHistory[1]
		assert.Equal(t, model.HistoryCompile, last.Type)
		assert.Equal(t, model.HistoryError, last.Status)
	})

	t.Run("package without sources", func(t *testing.T) {
		f := newPipelineFixture(t)
		require.NoError(t, os.RemoveAll(f.workspace.SourcesDir()))

		_, err := f.pipeline.Compile(context.Background(), model.CodeRequest{MoveCode: testModule})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.PackageInvalid, perr.Kind)
		assert.Equal(t, model.StepPackageInvalid, perr.Step)
		assert.Equal(t, 0, f.runner.count("move"))
	})
}

func Test_Deploy(t *testing.T) {

	t.Run("parses transaction result", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = func(cmd blockchain.Command) blockchain.Result {
			return blockchain.Result{
				Stdout: "Transaction submitted\n{\"Result\":{\"transaction_hash\":\"0xabc\",\"sender\":\"0x1\"}}\n",
				Exit:   blockchain.ExitSuccess,
			}
		}
		proj := f.project(t)

		resp, err := f.pipeline.Deploy(context.Background(), model.CodeRequest{
			MoveCode:  testModule,
			ProjectID: &proj.ID,
		})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.TransactionHash)
		assert.Equal(t, "0xabc", *resp.TransactionHash)
		require.NotNil(t, resp.SenderAddress)
		assert.Equal(t, "0x1", *resp.SenderAddress)
		require.NotNil(t, resp.ModuleName)
		assert.Equal(t, "counter", *resp.ModuleName)

		require.NotNil(t, resp.ExplorerURLs.Account)
		assert.Equal(t, "https://explorer.movementnetwork.xyz/account/0x1?network=bardock+testnet", *resp.ExplorerURLs.Account)
		require.NotNil(t, resp.ExplorerURLs.Transaction)
		assert.Equal(t, "https://explorer.movementnetwork.xyz/txn/0xabc?network=bardock+testnet", *resp.ExplorerURLs.Transaction)

		var publish blockchain.Command
		for _, c := range f.runner.calls {
			if c.Args[0] == "move" {
				publish = c
			}
		}
		assert.Equal(t, []string{"move", "publish", "--assume-yes", "--package-dir", "."}, publish.Args)
		assert.Equal(t, f.workspace.Dir(), publish.Dir)

		dbProj := f.reload(t, proj.ID)
		assert.Equal(t, model.StatusDeployed, dbProj.Status)
		require.NotNil(t, dbProj.DeployData)
		assert.Equal(t, resp.ExplorerURLs.Account, dbProj.DeployData.ExplorerURL)

		require.Len(t, dbProj.DeploymentHistory, 1)
		data, ok := dbProj.DeploymentHistory[0].Data.(*model.DeployResult)
		require.True(t, ok)
		assert.Equal(t, "counter", data.ModuleName)
		require.NotNil(t, data.ExplorerURLs)
		assert.Equal(t, resp.ExplorerURLs.Transaction, data.ExplorerURLs.Transaction)
	})

	t.Run("sender falls back to config", func(t *testing.T) {
		f := newPipelineFixture(t)
		writeConfig(t, f.workspace.Dir())
		f.runner.handle = func(cmd blockchain.Command) blockchain.Result {
			return blockchain.Result{Stdout: "published without result", Exit: blockchain.ExitSuccess}
		}

		resp, err := f.pipeline.Deploy(context.Background(), model.CodeRequest{MoveCode: testModule})
		require.NoError(t, err)
		assert.Nil(t, resp.TransactionHash)
		assert.Nil(t, resp.ExplorerURLs.Transaction)
		require.NotNil(t, resp.SenderAddress)
		assert.Equal(t, "ab12", *resp.SenderAddress)
		assert.NotNil(t, resp.ExplorerURLs.Account)
	})

	t.Run("uses project network for explorer", func(t *testing.T) {
		f := newPipelineFixture(t)
		f.runner.handle = func(cmd blockchain.Command) blockchain.Result {
			return blockchain.Result{Stdout: `{"Result":{"transaction_hash":"0xabc","sender":"0x1"}}`, Exit: blockchain.ExitSuccess}
		}
		proj := f.project(t)

		network := model.Devnet
		_, err := f.projects.Update(model.UpdateProject{ID: proj.ID, NetworkType: &network})
		require.NoError(t, err)

		resp, err := f.pipeline.Deploy(context.Background(), model.CodeRequest{MoveCode: testModule, ProjectID: &proj.ID})
		require.NoError(t, err)
		assert.Equal(t, "https://explorer.movementnetwork.xyz/txn/0xabc?network=devnet", *resp.ExplorerURLs.Transaction)
	})

	t.Run("failure keeps status", func(t *testing.T) {
		f := newPipelineFixture(t)
		proj := f.project(t)

		_, err := f.pipeline.Compile(context.Background(), model.CodeRequest{MoveCode: testModule, ProjectID: &proj.ID})
		require.NoError(t, err)

		f.runner.handle = func(cmd blockchain.Command) blockchain.Result {
			return blockchain.Result{Stderr: "INSUFFICIENT_BALANCE", Exit: blockchain.ExitNonZero, Code: 1, Err: os.ErrInvalid}
		}

		_, err = f.pipeline.Deploy(context.Background(), model.CodeRequest{MoveCode: testModule, ProjectID: &proj.ID})
		perr := requirePipelineError(t, err)
		assert.Equal(t, model.ExecError, perr.Kind)

		dbProj := f.reload(t, proj.ID)
		assert.Equal(t, model.StatusCompiled, dbProj.Status)
		require.NotNil(t, dbProj.DeployData)
		assert.False(t, dbProj.DeployData.Success)
		assert.Equal(t, model.StatusCompiled, model.SupportedStatus(dbProj.DeploymentHistory))
	})
}
