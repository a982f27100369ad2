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
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/manifest"
	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/storage"
	"github.com/zeromove/move-studio-api/telemetry"
)

const (
	messageInitialized    = "Movement CLI initialized successfully."
	messageAlreadyInit    = "Movement CLI already initialized."
	logExistingConfig     = "Using existing configuration."
	messageCliMissing     = "Movement CLI is not installed or not in PATH."
	messageNoCode         = "No Move code provided."
	messagePackageInvalid = "Move.toml or sources/ directory is missing in %s."
)

// Pipeline runs the init, compile and deploy steps against the workspace and
// records every outcome in the project history.
type Pipeline struct {
	store     storage.Store
	cli       *blockchain.Movement
	workspace *blockchain.Workspace
}

func NewPipeline(
	store storage.Store,
	cli *blockchain.Movement,
	workspace *blockchain.Workspace,
) *Pipeline {
	return &Pipeline{
		store:     store,
		cli:       cli,
		workspace: workspace,
	}
}

// Init initializes the CLI profile of the workspace.
//
// An existing config with an account short-circuits the CLI, so init can be called on
// every page load.
func (p *Pipeline) Init(ctx context.Context, input model.InitRequest) (*model.InitResponse, error) {
	ctx = context.WithoutCancel(ctx)
	ws := p.workspace

	networkType := input.NetworkType
	if !networkType.IsValid() {
		networkType = model.Testnet
	}
	network := blockchain.NetworkFor(networkType)

	if _, err := p.cli.Probe(ctx); err != nil {
		return nil, p.fail(input.ProjectID, model.HistoryInit, true,
			model.NewPipelineError(model.CliMissing, model.StepCliMissing, messageCliMissing).WithCause(err))
	}

	if err := ws.CheckDir(); err != nil {
		return nil, p.fail(input.ProjectID, model.HistoryInit, true,
			model.NewPipelineError(model.DirMissing, model.StepDirMissing,
				fmt.Sprintf("Directory does not exist at %s. Please ensure the directory exists.", ws.Dir())))
	}

	defer ws.Lock()()

	moduleName := optionalModuleName(input.MoveCode)

	if ws.ConfigExists() {
		address, err := ws.ReadAccount()
		if err == nil {
			faucet := network.FaucetPage(address)
			p.record(input.ProjectID, model.PipelineUpdate{
				Entry: model.NewHistoryEntry(&model.InitResult{
					Address:     address,
					ModuleName:  deref(moduleName),
					PackageName: deref(moduleName),
					FaucetURL:   faucet,
					Log:         logExistingConfig,
				}, true),
				NetworkType: &networkType,
				InitData: &model.InitSnapshot{
					Success:     true,
					Address:     address,
					ModuleName:  deref(moduleName),
					PackageName: deref(moduleName),
					FaucetURL:   faucet,
					Log:         logExistingConfig,
					Timestamp:   time.Now(),
				},
			})
			telemetry.ObservePipeline(string(model.HistoryInit), true, "")

			return &model.InitResponse{
				Success:     true,
				Message:     messageAlreadyInit,
				Address:     &address,
				ModuleName:  moduleName,
				PackageName: moduleName,
				FaucetURL:   faucet,
				Log:         logExistingConfig,
			}, nil
		}

		logrus.WithError(err).
			WithField("dir", ws.Dir()).
			Info("existing config invalid, re-initializing")
	}

	outcome := p.cli.Init(ctx, ws, network, input.PrivateKey)
	log := outcome.Result.Log()

	if !outcome.Succeeded {
		kind, step := model.ExecError, model.StepInitFailed
		if outcome.Result.Exit == blockchain.ExitTimedOut {
			kind, step = model.Timeout, model.StepTimeout
		}

		perr := model.NewPipelineError(kind, step,
			"Failed to initialize Movement CLI: "+errMessage(outcome.Result.Err)).
			WithLog(log)
		perr.Details = firstNonEmpty(outcome.Result.Stderr, outcome.Result.Stdout)
		perr.Cause = outcome.Result.Err

		return nil, p.fail(input.ProjectID, model.HistoryInit, false, perr)
	}

	address, err := ws.ReadAccount()
	if errors.Is(err, blockchain.ErrConfigMissing) {
		return nil, p.fail(input.ProjectID, model.HistoryInit, false,
			model.NewPipelineError(model.ConfigMissing, model.StepConfigMissing,
				"Movement config.yaml file does not exist.").WithLog(log))
	}
	if err != nil {
		logrus.WithError(err).WithField("dir", ws.Dir()).Warn("no account in config after init")
		address = ""
	}

	if address != "" {
		if err := ws.Manifest().SetAddress(address); err != nil {
			err = errors.Wrap(err, "failed to update Move.toml address")
			logrus.WithError(err).WithField("dir", ws.Dir()).Error("manifest address patch failed")
			sentry.CaptureException(err)
		}
	}

	faucet := network.FaucetPage(address)
	p.record(input.ProjectID, model.PipelineUpdate{
		Entry: model.NewHistoryEntry(&model.InitResult{
			Address:     address,
			ModuleName:  deref(moduleName),
			PackageName: deref(moduleName),
			FaucetURL:   faucet,
			Log:         log,
		}, true),
		NetworkType: &networkType,
		InitData: &model.InitSnapshot{
			Success:     true,
			Address:     address,
			ModuleName:  deref(moduleName),
			PackageName: deref(moduleName),
			FaucetURL:   faucet,
			Log:         log,
			Timestamp:   time.Now(),
		},
	})
	telemetry.ObservePipeline(string(model.HistoryInit), true, "")

	return &model.InitResponse{
		Success:     true,
		Message:     messageInitialized,
		Address:     optional(address),
		ModuleName:  moduleName,
		PackageName: moduleName,
		FaucetURL:   faucet,
		Log:         log,
	}, nil
}

// Compile writes the source to the package and compiles it.
func (p *Pipeline) Compile(ctx context.Context, input model.CodeRequest) (*model.CompileResponse, error) {
	ctx = context.WithoutCancel(ctx)

	if strings.TrimSpace(input.MoveCode) == "" {
		return nil, model.NewPipelineError(model.BadRequest, model.StepMissingMoveCode, messageNoCode)
	}

	defer p.workspace.Lock()()

	if err := p.prepare(ctx, input, model.HistoryCompile); err != nil {
		return nil, err
	}

	result := p.cli.Compile(ctx, p.workspace)
	log := result.Log()

	snapshot := &model.CompileSnapshot{
		Success:   result.Success(),
		Log:       log,
		Error:     errMessage(result.Err),
		Timestamp: time.Now(),
	}

	if !result.Success() {
		perr := execFailure(result)
		p.fail(input.ProjectID, model.HistoryCompile, false, perr, func(u *model.PipelineUpdate) {
			u.CompileData = snapshot
		})
		return nil, perr
	}

	p.record(input.ProjectID, model.PipelineUpdate{
		Entry:       model.NewHistoryEntry(&model.CompileResult{Log: log}, true),
		CompileData: snapshot,
	})
	telemetry.ObservePipeline(string(model.HistoryCompile), true, "")

	return &model.CompileResponse{
		Success: true,
		Output:  result.Stdout,
		Log:     log,
	}, nil
}

// Deploy writes the source to the package and publishes it with the workspace profile.
func (p *Pipeline) Deploy(ctx context.Context, input model.CodeRequest) (*model.DeployResponse, error) {
	ctx = context.WithoutCancel(ctx)

	if strings.TrimSpace(input.MoveCode) == "" {
		return nil, model.NewPipelineError(model.BadRequest, model.StepMissingMoveCode, messageNoCode)
	}

	defer p.workspace.Lock()()

	if err := p.prepare(ctx, input, model.HistoryDeploy); err != nil {
		return nil, err
	}

	result := p.cli.Publish(ctx, p.workspace)
	log := result.Log()

	if !result.Success() {
		perr := execFailure(result)
		p.fail(input.ProjectID, model.HistoryDeploy, false, perr, func(u *model.PipelineUpdate) {
			u.DeployData = &model.DeploySnapshot{
				Success:   false,
				Log:       log,
				Error:     perr.Message,
				Timestamp: time.Now(),
			}
		})
		return nil, perr
	}

	var hash, sender string
	if out, ok := blockchain.ParsePublishOutput(result.Stdout); ok {
		hash = out.TransactionHash
		sender = out.Sender
	} else {
		logrus.WithField("dir", p.workspace.Dir()).Warn("no transaction result found in publish output")
	}

	if sender == "" {
		if account, err := p.workspace.ReadAccount(); err == nil {
			sender = account
		}
	}

	var moduleName *string
	if pkg, err := p.workspace.Manifest().ReadPackage(); err == nil && pkg.Package.Name != "" {
		moduleName = &pkg.Package.Name
	}

	network := blockchain.NetworkFor(p.networkOf(input.ProjectID))
	urls := model.ExplorerURLs{
		Account:     network.AccountURL(sender),
		Transaction: network.TransactionURL(hash),
	}

	p.record(input.ProjectID, model.PipelineUpdate{
		Entry: model.NewHistoryEntry(&model.DeployResult{
			TransactionHash: optional(hash),
			Address:         optional(sender),
			ModuleName:      deref(moduleName),
			ExplorerURLs:    &urls,
			Log:             log,
		}, true),
		DeployData: &model.DeploySnapshot{
			Success:         true,
			TransactionHash: optional(hash),
			Address:         optional(sender),
			Log:             log,
			ExplorerURL:     urls.Account,
			Timestamp:       time.Now(),
		},
	})
	telemetry.ObservePipeline(string(model.HistoryDeploy), true, "")

	return &model.DeployResponse{
		Success:         true,
		Output:          result.Stdout,
		Log:             log,
		TransactionHash: optional(hash),
		SenderAddress:   optional(sender),
		ModuleName:      moduleName,
		ExplorerURLs:    urls,
	}, nil
}

// prepare reconciles the manifest with the source, runs the pre-flight checks and
// writes the module file. The caller holds the workspace lock.
func (p *Pipeline) prepare(ctx context.Context, input model.CodeRequest, step model.HistoryType) error {
	ws := p.workspace

	if _, err := ws.Manifest().SetProjectIdentity(input.MoveCode); err != nil {
		perr := model.NewPipelineError(manifestErrorKind(err), model.StepManifestUpdateFailed,
			"Failed to update Move.toml: "+err.Error()).WithCause(err).WithLog(err.Error())
		return p.fail(input.ProjectID, step, true, perr)
	}

	if _, err := p.cli.Probe(ctx); err != nil {
		return p.fail(input.ProjectID, step, true,
			model.NewPipelineError(model.CliMissing, model.StepCliMissing, messageCliMissing).WithCause(err))
	}

	if err := ws.CheckDir(); err != nil {
		return p.fail(input.ProjectID, step, true,
			model.NewPipelineError(model.DirMissing, model.StepDirMissing,
				fmt.Sprintf("Movement directory does not exist at %s.", ws.Dir())))
	}

	if err := ws.CheckPackage(); err != nil {
		return p.fail(input.ProjectID, step, true,
			model.NewPipelineError(model.PackageInvalid, model.StepPackageInvalid,
				fmt.Sprintf(messagePackageInvalid, ws.Dir())))
	}

	if err := ws.CheckWritable(); err != nil {
		return p.fail(input.ProjectID, step, true,
			model.NewPipelineError(model.PermissionError, model.StepPermissionError,
				fmt.Sprintf("No write permission to %s.", ws.SourcesDir())).WithCause(err))
	}

	if err := ws.WriteModule(input.MoveCode); err != nil {
		return p.fail(input.ProjectID, step, true,
			model.NewPipelineError(model.UnexpectedException, model.StepUnexpected,
				"Internal server error: "+err.Error()).WithCause(err))
	}

	return nil
}

// fail records the failure in the history of the project, when there is one, and
// returns it.
func (p *Pipeline) fail(
	projectID *uuid.UUID,
	step model.HistoryType,
	keepStatus bool,
	perr *model.PipelineError,
	snapshots ...func(*model.PipelineUpdate),
) *model.PipelineError {
	logrus.WithFields(logrus.Fields{
		"operation": step,
		"step":      perr.Step,
		"dir":       p.workspace.Dir(),
	}).WithError(perr).Warn("pipeline step failed")
	telemetry.ObservePipeline(string(step), false, perr.Step)

	if perr.Kind == model.UnexpectedException {
		sentry.CaptureException(perr)
	}

	update := model.PipelineUpdate{
		Entry:      model.NewHistoryEntry(failureData(step, perr), false),
		KeepStatus: keepStatus,
	}
	for _, apply := range snapshots {
		apply(&update)
	}
	p.record(projectID, update)

	return perr
}

// record persists a pipeline outcome. The CLI side effects already happened, so a
// failed write is only reported.
func (p *Pipeline) record(projectID *uuid.UUID, update model.PipelineUpdate) {
	if projectID == nil {
		return
	}

	if err := p.store.RecordPipeline(*projectID, update); err != nil {
		err = errors.Wrap(err, "failed to save pipeline result")
		logrus.WithFields(logrus.Fields{
			"project":   projectID.String(),
			"operation": update.Entry.Type,
		}).WithError(err).Error("failed to persist pipeline result")
		if !errors.Is(err, storage.ErrNotFound) {
			sentry.CaptureException(err)
		}
	}
}

func (p *Pipeline) networkOf(projectID *uuid.UUID) model.NetworkType {
	if projectID == nil {
		return model.Testnet
	}

	var proj model.Project
	if err := p.store.GetProject(*projectID, &proj); err != nil || !proj.NetworkType.IsValid() {
		return model.Testnet
	}
	return proj.NetworkType
}

// manifestErrorKind tells a missing manifest and a source without a module apart
// from other manifest update failures.
func manifestErrorKind(err error) model.ErrorKind {
	switch {
	case errors.Is(err, manifest.ErrManifestMissing):
		return model.ManifestMissing
	case errors.Is(err, manifest.ErrInvalidSource):
		return model.InvalidSource
	}
	return model.ManifestUpdateFailed
}

func execFailure(result blockchain.Result) *model.PipelineError {
	kind, step := model.ExecError, model.StepExecError
	if result.Exit == blockchain.ExitTimedOut {
		kind, step = model.Timeout, model.StepTimeout
	}

	perr := model.NewPipelineError(kind, step, errMessage(result.Err)).WithLog(result.Log())
	perr.Cause = result.Err
	return perr
}

func failureData(step model.HistoryType, perr *model.PipelineError) model.HistoryData {
	log := perr.Log
	if log == "" {
		log = perr.Details
	}

	switch step {
	case model.HistoryInit:
		return &model.InitResult{Error: perr.Message, Log: log}
	case model.HistoryDeploy:
		return &model.DeployResult{Error: perr.Message, Log: log}
	default:
		return &model.CompileResult{Error: perr.Message, Log: log}
	}
}

func optionalModuleName(source string) *string {
	if source == "" {
		return nil
	}
	id, err := manifest.ParseModule(source)
	if err != nil {
		return nil
	}
	return &id.ModuleName
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
