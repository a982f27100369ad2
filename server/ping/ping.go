package ping

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
)

// handlers holds ping handler functions for /ping endpoint to call
var handlers struct {
	initialized    bool
	storagePing    func() error
	workspaceCheck func() error
}

// SetPingHandlers sets all ping handlers functions
func SetPingHandlers(storagePing func() error, workspaceCheck func() error) error {
	if storagePing == nil {
		return errors.New("storage ping handler is nil")
	}
	if workspaceCheck == nil {
		return errors.New("workspace check handler is nil")
	}

	handlers.storagePing = storagePing
	handlers.workspaceCheck = workspaceCheck
	handlers.initialized = true
	return nil
}

// Ping handles /ping endpoint
//
// Calls each handler in ping handlers
func Ping(w http.ResponseWriter, _ *http.Request) {
	if !handlers.initialized {
		w.WriteHeader(http.StatusInternalServerError)
		sentry.CaptureException(errors.New("unset ping handlers"))
		return
	}

	if err := handlers.storagePing(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		sentry.CaptureException(errors.Wrap(err, "database ping failed"))
		return
	}

	if err := handlers.workspaceCheck(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		sentry.CaptureException(errors.Wrap(err, "workspace check failed"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
