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
	"time"

	prometheusclient "github.com/prometheus/client_golang/prometheus"
)

const (
	exitStatusFailure = "failure"
	exitStatusSuccess = "success"
)

var (
	pipelineRunCounter = prometheusclient.NewCounterVec(
		prometheusclient.CounterOpts{
			Name: "move_studio_pipeline_runs_total",
			Help: "Total number of init, compile and deploy runs by outcome.",
		},
		[]string{"operation", "exitStatus", "step"},
	)

	commandDuration = prometheusclient.NewHistogramVec(
		prometheusclient.HistogramOpts{
			Name:    "move_studio_cli_duration_ms",
			Help:    "The time taken by a movement CLI invocation.",
			Buckets: prometheusclient.ExponentialBuckets(10, 2, 14),
		},
		[]string{"operation", "exit"},
	)

	projectStatusGauge = prometheusclient.NewGaugeVec(
		prometheusclient.GaugeOpts{
			Name: "move_studio_projects",
			Help: "Number of projects by pipeline status.",
		},
		[]string{"status"},
	)

	staleProjectGauge = prometheusclient.NewGauge(
		prometheusclient.GaugeOpts{
			Name: "move_studio_stale_projects",
			Help: "Number of projects not modified within the stale window.",
		},
	)
)

func Register() {
	RegisterOn(prometheusclient.DefaultRegisterer)
}

func RegisterOn(registerer prometheusclient.Registerer) {
	registerer.MustRegister(
		pipelineRunCounter,
		commandDuration,
		projectStatusGauge,
		staleProjectGauge,
	)
}

func UnRegister() {
	UnRegisterFrom(prometheusclient.DefaultRegisterer)
}

func UnRegisterFrom(registerer prometheusclient.Registerer) {
	registerer.Unregister(pipelineRunCounter)
	registerer.Unregister(commandDuration)
	registerer.Unregister(projectStatusGauge)
	registerer.Unregister(staleProjectGauge)
}

// ObserveCommand records the duration of a CLI invocation.
func ObserveCommand(operation, exit string, took time.Duration) {
	commandDuration.
		WithLabelValues(operation, exit).
		Observe(float64(took.Nanoseconds() / int64(time.Millisecond)))
}

// ObservePipeline counts a finished pipeline run. An empty step means success.
func ObservePipeline(operation string, success bool, step string) {
	exitStatus := exitStatusSuccess
	if !success {
		exitStatus = exitStatusFailure
	}
	pipelineRunCounter.WithLabelValues(operation, exitStatus, step).Inc()
}
