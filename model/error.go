package model

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies why a pipeline step stopped.
type ErrorKind int

const (
	UnexpectedException ErrorKind = iota
	BadRequest
	ProjectNotFound
	NotFound
	CliMissing
	DirMissing
	PackageInvalid
	PermissionError
	ManifestMissing
	InvalidSource
	ManifestUpdateFailed
	ConfigMissing
	ExecError
	Timeout
)

var kindNames = map[ErrorKind]string{
	UnexpectedException:  "UnexpectedException",
	BadRequest:           "BadRequest",
	ProjectNotFound:      "ProjectNotFound",
	NotFound:             "NotFound",
	CliMissing:           "CliMissing",
	DirMissing:           "DirMissing",
	PackageInvalid:       "PackageInvalid",
	PermissionError:      "PermissionError",
	ManifestMissing:      "ManifestMissing",
	InvalidSource:        "InvalidSource",
	ManifestUpdateFailed: "ManifestUpdateFailed",
	ConfigMissing:        "ConfigMissing",
	ExecError:            "ExecError",
	Timeout:              "Timeout",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// HTTPStatus maps the kind to the response status. Execution failures are expected
// outcomes and travel as 200 with success false.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case ExecError, Timeout:
		return http.StatusOK
	case BadRequest:
		return http.StatusBadRequest
	case ProjectNotFound, NotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Step values reported to clients.
const (
	StepMissingMoveCode      = "missing_move_code"
	StepCliMissing           = "movement_cli_missing"
	StepDirMissing           = "movement_dir_missing"
	StepPackageInvalid       = "Move_package_invalid"
	StepPermissionError      = "permission_error"
	StepManifestUpdateFailed = "move_toml_update_failed"
	StepConfigMissing        = "config_missing"
	StepAddressNotFound      = "address_not_found"
	StepInitFailed           = "movement_init_failed"
	StepExecError            = "exec_error"
	StepTimeout              = "timeout"
	StepRemoveFailed         = "remove_movement_failed"
	StepMoveFileMissing      = "move_file_missing"
	StepModuleNotFound       = "module_not_found"
	StepNoFunctionsFound     = "no_functions_found"
	StepUnexpected           = "unexpected_exception"
	StepBadRequest           = "bad_request"
)

// PipelineError is a failure shaped for the client: which step stopped and why.
type PipelineError struct {
	Kind    ErrorKind
	Step    string
	Message string
	Details string
	Log     string
	Cause   error
}

func NewPipelineError(kind ErrorKind, step, message string) *PipelineError {
	return &PipelineError{
		Kind:    kind,
		Step:    step,
		Message: message,
	}
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Step, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func (e *PipelineError) WithCause(err error) *PipelineError {
	e.Cause = err
	if e.Details == "" && err != nil {
		e.Details = err.Error()
	}
	return e
}

func (e *PipelineError) WithLog(log string) *PipelineError {
	e.Log = log
	return e
}
