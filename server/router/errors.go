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
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/storage"
)

var validate = validator.New()

type errorResponse struct {
	Success bool        `json:"success"`
	Step    string      `json:"step,omitempty"`
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
	Log     string      `json:"log,omitempty"`
}

// decode reads the JSON body into dest and validates it. An empty body leaves dest
// at its zero value.
func decode(r *http.Request, dest interface{}) error {
	if err := render.DecodeJSON(r.Body, dest); err != nil && !errors.Is(err, io.EOF) {
		return model.NewPipelineError(model.BadRequest, model.StepBadRequest, "invalid JSON body").WithCause(err)
	}

	if err := validate.Struct(dest); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			fields := make([]string, 0, len(invalid))
			for _, fe := range invalid {
				fields = append(fields, fe.Field()+" failed "+fe.Tag())
			}
			return model.NewPipelineError(model.BadRequest, model.StepBadRequest, strings.Join(fields, ", "))
		}
		return model.NewPipelineError(model.BadRequest, model.StepBadRequest, err.Error())
	}

	return nil
}

func asPipelineError(err error, target **model.PipelineError) bool {
	return errors.As(err, target)
}

// renderError writes err the way clients expect: a step and a message, with the
// status taken from the error kind.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *model.PipelineError

	report(r, err)

	switch {
	case errors.As(err, &perr):
		resp := errorResponse{
			Success: false,
			Step:    perr.Step,
			Error:   perr.Message,
			Log:     perr.Log,
		}
		if perr.Details != "" {
			resp.Details = perr.Details
		}
		render.Status(r, perr.Kind.HTTPStatus())
		render.JSON(w, r, resp)

	case errors.Is(err, storage.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errorResponse{Error: "Project not found"})

	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Step:  model.StepUnexpected,
			Error: "Internal server error: " + err.Error(),
		})
	}
}
