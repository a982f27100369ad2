package controller

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/model"
)

type Workspace struct {
	workspace *blockchain.Workspace
}

func NewWorkspace(workspace *blockchain.Workspace) *Workspace {
	return &Workspace{workspace: workspace}
}

// Reset removes the CLI config, the package cache and the build output. The result
// is returned alongside an error when some directories could not be removed.
func (w *Workspace) Reset(ctx context.Context) (*blockchain.ResetResult, error) {
	result := w.workspace.Reset(ctx)

	if result.Existing == 0 {
		return nil, model.NewPipelineError(model.NotFound, model.StepDirMissing,
			"None of the target directories exist.")
	}

	if len(result.Failures) > 0 {
		logrus.WithFields(logrus.Fields{
			"dir":      w.workspace.Dir(),
			"failures": len(result.Failures),
		}).Error("failed to reset workspace")

		return &result, model.NewPipelineError(model.UnexpectedException, model.StepRemoveFailed,
			"Failed to remove one or more directories.")
	}

	logrus.WithField("removed", strings.Join(result.Removed, ", ")).Info("workspace reset")
	return &result, nil
}
