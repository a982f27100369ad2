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
	"context"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zeromove/move-studio-api/model"
	"github.com/zeromove/move-studio-api/storage"
)

type errCtxKeyType string

var sentryLevelCtxKey = errCtxKeyType("sentry-level")

// SentryLogLevel returns the level a reported error was tagged with.
func SentryLogLevel(ctx context.Context) (sentry.Level, bool) {
	sentryLevel, ok := ctx.Value(sentryLevelCtxKey).(sentry.Level)
	return sentryLevel, ok
}

// levelFor decides how loudly a failed request is reported. Client mistakes are not
// reported, failed CLI runs are warnings, everything else is an error.
func levelFor(err error) (sentry.Level, bool) {
	if errors.Is(err, storage.ErrNotFound) {
		return "", false
	}

	var perr *model.PipelineError
	if !asPipelineError(err, &perr) {
		return sentry.LevelError, true
	}

	switch status := perr.Kind.HTTPStatus(); {
	case status == http.StatusOK:
		return sentry.LevelWarning, true
	case status < http.StatusInternalServerError:
		return "", false
	}
	return sentry.LevelError, true
}

// report logs err and sends it to sentry with a level the BeforeSend hook can read.
func report(r *http.Request, err error) {
	level, ok := levelFor(err)

	entry := logrus.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	if !ok {
		entry.Debug("request rejected")
		return
	}

	if level == sentry.LevelError {
		entry.Error("request failed")
	} else {
		entry.Warn("request failed")
	}

	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.RecoverWithContext(context.WithValue(r.Context(), sentryLevelCtxKey, level), err)
}
