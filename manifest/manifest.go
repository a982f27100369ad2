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

// Package manifest keeps the Move.toml of a package in line with the account address
// and with the identifiers declared in the module source.
//
// Both patches are narrow line edits: everything outside the touched line is written
// back byte for byte, so hand-added sections such as dependencies survive.
package manifest

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FileName is the manifest file inside a package root.
const FileName = "Move.toml"

const (
	addressesTable = "[addresses]"
	packageTable   = "[package]"
	stdAddress     = "std"
)

var (
	ErrManifestMissing = errors.New("Move.toml does not exist")
	ErrInvalidSource   = errors.New("Move code does not contain a valid module declaration")
)

var (
	moduleDecl = regexp.MustCompile(`module\s+([a-zA-Z_][a-zA-Z0-9_]*)::([a-zA-Z_][a-zA-Z0-9_]*)`)
	keyValue   = regexp.MustCompile(`^(\s*)([a-zA-Z_][a-zA-Z0-9_]*)(\s*=\s*)"([^"]*)"(.*)$`)
)

// Identity is the address alias and module name of a `module <Address>::<Module>` declaration.
type Identity struct {
	AddressName string
	ModuleName  string
}

// ParseModule returns the identity of the first module declaration in source.
func ParseModule(source string) (Identity, error) {
	match := moduleDecl.FindStringSubmatch(source)
	if match == nil {
		return Identity{}, ErrInvalidSource
	}

	return Identity{
		AddressName: match[1],
		ModuleName:  match[2],
	}, nil
}

// NormalizeAddress prefixes a hex address with 0x when it lacks one.
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if strings.HasPrefix(address, "0x") {
		return address
	}
	return "0x" + address
}

// Manifest is the Move.toml of one package root.
type Manifest struct {
	path string
}

func New(packageDir string) *Manifest {
	return &Manifest{path: filepath.Join(packageDir, FileName)}
}

func (m *Manifest) Path() string {
	return m.path
}

// SetAddress sets the value of the first non-std entry under [addresses].
func (m *Manifest) SetAddress(address string) error {
	content, mode, err := m.read()
	if err != nil {
		return err
	}

	patched, ok := PatchAddress(content, NormalizeAddress(address))
	if !ok {
		m.warnUnpatched("address")
	}
	return m.write(patched, mode)
}

// SetProjectIdentity renames the package after the module and the first address
// entry after the module's address alias, keeping the address value.
func (m *Manifest) SetProjectIdentity(source string) (Identity, error) {
	content, mode, err := m.read()
	if err != nil {
		return Identity{}, err
	}

	id, err := ParseModule(source)
	if err != nil {
		return Identity{}, err
	}

	patched := PatchPackageName(content, id.ModuleName)
	patched, ok := PatchAddressName(patched, id.AddressName)
	if !ok {
		m.warnUnpatched("address name")
	}

	return id, m.write(patched, mode)
}

// warnUnpatched reports a manifest without a non-std [addresses] entry.
func (m *Manifest) warnUnpatched(what string) {
	logrus.WithFields(logrus.Fields{
		"manifest": m.path,
		"patch":    what,
	}).Warn("no non-std entry under [addresses], manifest left unchanged")
}

// Package is the decoded subset of the manifest the pipeline reads back.
type Package struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Addresses map[string]string `toml:"addresses"`
}

// ReadPackage decodes the manifest.
func (m *Manifest) ReadPackage() (*Package, error) {
	content, _, err := m.read()
	if err != nil {
		return nil, err
	}

	var pkg Package
	if err := toml.Unmarshal([]byte(content), &pkg); err != nil {
		return nil, errors.Wrap(err, "failed to parse Move.toml")
	}
	return &pkg, nil
}

func (m *Manifest) read() (string, os.FileMode, error) {
	info, err := os.Stat(m.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", 0, ErrManifestMissing
	}
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to stat Move.toml")
	}

	b, err := os.ReadFile(m.path)
	if err != nil {
		return "", 0, errors.Wrap(err, "failed to read Move.toml")
	}
	return string(b), info.Mode().Perm(), nil
}

func (m *Manifest) write(content string, mode os.FileMode) error {
	if err := os.WriteFile(m.path, []byte(content), mode); err != nil {
		return errors.Wrap(err, "failed to write Move.toml")
	}
	return nil
}

// PatchAddress replaces the value of the first non-std key in the [addresses] table.
func PatchAddress(content, address string) (string, bool) {
	return patchTable(content, addressesTable, func(key string) bool {
		return key != stdAddress
	}, func(m []string) string {
		return m[1] + m[2] + m[3] + `"` + address + `"` + m[5]
	})
}

// PatchAddressName renames the first non-std key in the [addresses] table.
func PatchAddressName(content, name string) (string, bool) {
	return patchTable(content, addressesTable, func(key string) bool {
		return key != stdAddress
	}, func(m []string) string {
		return m[1] + name + m[3] + `"` + m[4] + `"` + m[5]
	})
}

// PatchPackageName sets `name` in the [package] table.
func PatchPackageName(content, name string) string {
	patched, _ := patchTable(content, packageTable, func(key string) bool {
		return key == "name"
	}, func(m []string) string {
		return m[1] + m[2] + m[3] + `"` + name + `"` + m[5]
	})
	return patched
}

// patchTable rewrites the first `key = "value"` line of the table accepted by match.
func patchTable(
	content string,
	table string,
	match func(key string) bool,
	rewrite func(groups []string) string,
) (string, bool) {
	lines := strings.Split(content, "\n")
	inTable := false

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			inTable = tableHeader(trimmed) == table
			continue
		}
		if !inTable {
			continue
		}

		groups := keyValue.FindStringSubmatch(line)
		if groups == nil || !match(groups[2]) {
			continue
		}

		lines[i] = rewrite(groups)
		return strings.Join(lines, "\n"), true
	}

	return content, false
}

func tableHeader(line string) string {
	if end := strings.Index(line, "]"); end >= 0 {
		return line[:end+1]
	}
	return line
}
