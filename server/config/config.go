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

package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// config holds all parsed environment variables
var config struct {
	envParsed  bool
	playground PlaygroundConfig
	database   DatabaseConfig
	movement   MovementConfig
	sentry     SentryConfig
	telemetry  TelemetryConfig
}

func Platform() PlatformType {
	return Playground().Platform
}

func Playground() PlaygroundConfig {
	if !config.envParsed {
		parseConfig()
	}
	return config.playground
}

func Database() DatabaseConfig {
	if !config.envParsed {
		parseConfig()
	}
	return config.database
}

func Movement() MovementConfig {
	if !config.envParsed {
		parseConfig()
	}
	return config.movement
}

func Sentry() SentryConfig {
	if !config.envParsed {
		parseConfig()
	}
	return config.sentry
}

func Telemetry() TelemetryConfig {
	if !config.envParsed {
		parseConfig()
	}
	return config.telemetry
}

// parseConfig parses all environment variables into config
func parseConfig() {
	getEnv("STUDIO", &config.playground)
	getEnv("STUDIO_DB", &config.database)
	getEnv("MOVEMENT", &config.movement)
	getEnv("SENTRY", &config.sentry)
	getEnv("TELEMETRY", &config.telemetry)
	config.envParsed = true
}

// Reset drops the parsed configuration so the next getter reads the environment again.
func Reset() {
	config.envParsed = false
}

// getEnv parses environment variables into dest pointer
func getEnv(name string, dest interface{}) {
	if err := envconfig.Process(name, dest); err != nil {
		log.Fatal(err)
	}
}
