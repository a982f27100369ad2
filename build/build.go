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

// Package build holds the version information injected at build time:
//
//	go build -ldflags "-X github.com/zeromove/move-studio-api/build.version=v1.0.0 -X github.com/zeromove/move-studio-api/build.commit=abc123"
package build

import (
	"github.com/Masterminds/semver"
)

// The following variables are injected at build-time using ldflags.
var (
	version string
	commit  string
)

// Version returns the semantic version of this build, nil when none was injected or
// the injected value is not a semantic version.
func Version() *semver.Version {
	if version == "" {
		return nil
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return nil
	}
	return v
}

// Commit returns the injected commit hash, "unknown" when none was injected.
func Commit() string {
	if commit == "" {
		return "unknown"
	}
	return commit
}
