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

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/controller"
	"github.com/zeromove/move-studio-api/server/config"
	"github.com/zeromove/move-studio-api/server/ping"
	"github.com/zeromove/move-studio-api/server/router"
	"github.com/zeromove/move-studio-api/storage"
	"github.com/zeromove/move-studio-api/telemetry"
)

const serviceName = "move-studio-api"

func main() {
	conf := config.Playground()
	telemetry.ConfigureLogger(config.Platform() == config.Local, conf.Debug, serviceName)

	initializeSentry()
	defer func() {
		sentry.Flush(2 * time.Second)
		sentry.Recover()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Telemetry().TracingEnabled {
		tp, err := telemetry.NewProvider(ctx, serviceName, trace.TraceIDRatioBased(config.Telemetry().SampleRatio))
		if err != nil {
			logrus.WithError(err).Fatal("failed to initialize tracing")
		}
		defer telemetry.Cleanup(context.Background(), tp)
	}

	store := newStore()
	ws := blockchain.NewWorkspace(config.Movement().Dir)
	cli := newMovement()

	if err := ping.SetPingHandlers(store.Ping, ws.CheckDir); err != nil {
		logrus.WithError(err).Fatal("failed to set ping handlers")
	}

	telemetry.Register()
	if err := telemetry.RegisterProjectJobs(
		ctx,
		store,
		conf.GaugeInterval,
		time.Duration(conf.StaleProjectDays)*24*time.Hour,
	); err != nil {
		logrus.WithError(err).Fatal("failed to register project jobs")
	}

	handlers := &router.Handlers{
		Projects:    controller.NewProjects(store, ws),
		Files:       controller.NewFiles(store, ws),
		Inspector:   controller.NewInspector(store, ws),
		Pipeline:    controller.NewPipeline(store, cli, ws),
		Integration: controller.NewIntegration(ws),
		Workspace:   controller.NewWorkspace(ws),
		CLI:         cli,
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", conf.Port),
		Handler: router.InitializeRouter(handlers, router.Options{
			Debug:          conf.Debug,
			AllowedOrigins: conf.AllowedOrigins,
		}),
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":      conf.Port,
			"workspace": ws.Dir(),
		}).Info("starting server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("forced shutdown")
	}
}

func initializeSentry() {
	conf := config.Sentry()

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              conf.Dsn,
		Debug:            conf.Debug,
		AttachStacktrace: conf.AttachStacktrace,
		Environment:      string(config.Platform()),
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if hint.Context != nil {
				if sentryLevel, ok := router.SentryLogLevel(hint.Context); ok {
					event.Level = sentryLevel
				}
			}
			return event
		},
	})
	if err != nil {
		logrus.WithError(err).Fatal("sentry.Init")
	}
}

func newStore() *storage.SQL {
	db := config.Database()
	logrus.WithField("driver", db.DriverName()).Info("opening project store")

	if db.IsPostgreSQL() {
		return storage.NewPostgreSQL(db.ConnectionString())
	}
	return storage.NewSqlite(db.SqlitePath)
}

func newMovement() *blockchain.Movement {
	mv := config.Movement()

	return blockchain.NewMovement(
		blockchain.NewExecRunner(mv.KillDelay),
		mv.Binary,
		blockchain.Timeouts{
			Probe:   mv.ProbeTimeout,
			Init:    mv.InitTimeout,
			Compile: mv.CompileTimeout,
			Deploy:  mv.DeployTimeout,
		},
	)
}
