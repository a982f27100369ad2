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

package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/zeromove/move-studio-api/controller"
	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/server/version"
)

// Handlers binds the controllers to HTTP.
type Handlers struct {
	Projects    *controller.Projects
	Files       *controller.Files
	Inspector   *controller.Inspector
	Pipeline    *controller.Pipeline
	Integration *controller.Integration
	Workspace   *controller.Workspace
	CLI         version.CLIVersioner
}

func projectID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, model.NewPipelineError(model.BadRequest, model.StepBadRequest, "invalid project id")
	}
	return id, nil
}

func (h *Handlers) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.All()
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "projects": projects})
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	project, err := h.Projects.Get(id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "project": project})
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var input model.NewProject
	if err := decode(r, &input); err != nil {
		renderError(w, r, err)
		return
	}

	project, err := h.Projects.Create(input)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "project": project})
}

func (h *Handlers) updateProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var input model.UpdateProject
	if err := decode(r, &input); err != nil {
		renderError(w, r, err)
		return
	}
	input.ID = id

	project, err := h.Projects.Update(input)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "project": project})
}

func (h *Handlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	if err := h.Projects.Delete(id); err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "message": "Project deleted"})
}

func (h *Handlers) history(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	history, err := h.Projects.History(id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "history": history})
}

func (h *Handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	files, err := h.Files.GetFilesForProject(id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "files": files})
}

func (h *Handlers) upsertFile(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var input model.UpsertFile
	if err := decode(r, &input); err != nil {
		renderError(w, r, err)
		return
	}

	files, err := h.Files.Upsert(id, input)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "files": files})
}

func (h *Handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	var path *string
	if values, ok := r.URL.Query()["path"]; ok && len(values) > 0 {
		path = &values[0]
	}

	files, err := h.Files.Delete(id, chi.URLParam(r, "name"), path)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "files": files})
}

func (h *Handlers) syncFiles(w http.ResponseWriter, r *http.Request) {
	id, err := projectID(r)
	if err != nil {
		renderError(w, r, err)
		return
	}

	files, err := h.Inspector.Sync(id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, render.M{"success": true, "files": files})
}

func (h *Handlers) init(w http.ResponseWriter, r *http.Request) {
	var input model.InitRequest
	if err := decode(r, &input); err != nil {
		renderError(w, r, err)
		return
	}

	resp, err := h.Pipeline.Init(r.Context(), input)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

func (h *Handlers) compile(w http.ResponseWriter, r *http.Request) {
	var input model.CodeRequest
	if err := decode(r, &input); err != nil {
		renderError(w, r, err)
		return
	}

	resp, err := h.Pipeline.Compile(r.Context(), input)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

func (h *Handlers) deploy(w http.ResponseWriter, r *http.Request) {
	var input model.CodeRequest
	if err := decode(r, &input); err != nil {
		renderError(w, r, err)
		return
	}

	resp, err := h.Pipeline.Deploy(r.Context(), input)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

func (h *Handlers) removeMovement(w http.ResponseWriter, r *http.Request) {
	result, err := h.Workspace.Reset(r.Context())

	var perr *model.PipelineError
	if err != nil && result != nil && asPipelineError(err, &perr) {
		render.Status(r, perr.Kind.HTTPStatus())
		render.JSON(w, r, render.M{
			"success": false,
			"step":    perr.Step,
			"error":   perr.Message,
			"details": result.Failures,
			"removed": result.Removed,
		})
		return
	}
	if err != nil {
		renderError(w, r, err)
		return
	}

	message := "Removed: " + strings.Join(result.Removed, ", ")
	render.JSON(w, r, render.M{
		"success": true,
		"message": message,
		"log":     message,
		"removed": result.Removed,
	})
}

func (h *Handlers) integrationFunctions(w http.ResponseWriter, r *http.Request) {
	network := model.NetworkType(r.URL.Query().Get("networkType"))
	if network == "" {
		network = model.Testnet
	}
	if !network.IsValid() {
		renderError(w, r, model.NewPipelineError(model.BadRequest, model.StepBadRequest, "unknown network type "+string(network)))
		return
	}

	resp, err := h.Integration.Functions(network)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}
