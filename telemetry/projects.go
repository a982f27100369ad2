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

package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
	"github.com/robfig/cron"
)

// ProjectCounter reports the number of projects per status and how many were not
// modified since the given time.
type ProjectCounter interface {
	CountProjectsByStatus(counts map[string]int64) error
	CountProjectsModifiedBefore(before time.Time, count *int64) error
}

// UpdateProjectGauges refreshes the project gauges once.
func UpdateProjectGauges(counter ProjectCounter, staleAfter time.Duration) error {
	if counter == nil {
		return errors.New("project counter not set")
	}

	counts := map[string]int64{}
	if err := counter.CountProjectsByStatus(counts); err != nil {
		return errors.Wrap(err, "failed to count projects by status")
	}
	for status, count := range counts {
		projectStatusGauge.WithLabelValues(status).Set(float64(count))
	}

	var stale int64
	if err := counter.CountProjectsModifiedBefore(time.Now().Add(-staleAfter), &stale); err != nil {
		return errors.Wrap(err, "failed to count stale projects")
	}
	staleProjectGauge.Set(float64(stale))

	return nil
}

// RegisterProjectJobs schedules a refresh of the project gauges every interval. The
// schedule stops once ctx is done.
func RegisterProjectJobs(ctx context.Context, counter ProjectCounter, interval, staleAfter time.Duration) error {
	refresh := func() {
		if err := UpdateProjectGauges(counter, staleAfter); err != nil {
			sentry.CaptureException(err)
		}
	}

	job := cron.New()
	if err := job.AddFunc("@every "+interval.String(), refresh); err != nil {
		return errors.Wrap(err, "failed to schedule project gauges")
	}
	job.Start()

	go func() {
		refresh()
		<-ctx.Done()
		job.Stop()
	}()

	return nil
}
