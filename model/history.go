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

package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type HistoryType string

const (
	HistoryInit    HistoryType = "init"
	HistoryCompile HistoryType = "compile"
	HistoryDeploy  HistoryType = "deploy"
)

type HistoryStatus string

const (
	HistorySuccess HistoryStatus = "success"
	HistoryError   HistoryStatus = "error"
)

// HistoryData is the payload of a history entry. The concrete type is fixed by the
// entry type: InitResult, CompileResult or DeployResult.
type HistoryData interface {
	historyType() HistoryType
}

type InitResult struct {
	Address     string  `json:"address,omitempty"`
	ModuleName  string  `json:"moduleName,omitempty"`
	PackageName string  `json:"packageName,omitempty"`
	FaucetURL   *string `json:"faucetUrl,omitempty"`
	Log         string  `json:"log,omitempty"`
	Error       string  `json:"error,omitempty"`
}

type CompileResult struct {
	Log   string `json:"log,omitempty"`
	Error string `json:"error,omitempty"`
}

type ExplorerURLs struct {
	Account     *string `json:"account"`
	Transaction *string `json:"transaction"`
}

type DeployResult struct {
	TransactionHash *string       `json:"transactionHash,omitempty"`
	Address         *string       `json:"address,omitempty"`
	ModuleName      string        `json:"moduleName,omitempty"`
	ExplorerURLs    *ExplorerURLs `json:"explorerUrls,omitempty"`
	Log             string        `json:"log,omitempty"`
	Error           string        `json:"error,omitempty"`
}

func (InitResult) historyType() HistoryType    { return HistoryInit }
func (CompileResult) historyType() HistoryType { return HistoryCompile }
func (DeployResult) historyType() HistoryType  { return HistoryDeploy }

// HistoryEntry is one append-only record of a pipeline step.
type HistoryEntry struct {
	ID        uuid.UUID     `gorm:"primaryKey" json:"-"`
	ProjectID uuid.UUID     `gorm:"index" json:"-"`
	Index     int           `json:"-"`
	Type      HistoryType   `json:"type"`
	Status    HistoryStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Data      HistoryData   `gorm:"-" json:"data"`
	RawData   []byte        `gorm:"column:data" json:"-"`
}

// NewHistoryEntry creates an entry whose type is taken from the payload.
func NewHistoryEntry(data HistoryData, success bool) *HistoryEntry {
	status := HistoryError
	if success {
		status = HistorySuccess
	}

	return &HistoryEntry{
		ID:        uuid.New(),
		Type:      data.historyType(),
		Status:    status,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func (h *HistoryEntry) BeforeSave(*gorm.DB) error {
	if h.Data == nil {
		return errors.Errorf("history entry %s has no data", h.ID)
	}
	if h.Data.historyType() != h.Type {
		return errors.Errorf("history entry of type %s carries %s data", h.Type, h.Data.historyType())
	}

	raw, err := json.Marshal(h.Data)
	if err != nil {
		return errors.Wrap(err, "failed to encode history data")
	}
	h.RawData = raw
	return nil
}

func (h *HistoryEntry) AfterFind(*gorm.DB) error {
	data, err := decodeHistoryData(h.Type, h.RawData)
	if err != nil {
		return err
	}
	h.Data = data
	return nil
}

func (h *HistoryEntry) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type      HistoryType     `json:"type"`
		Status    HistoryStatus   `json:"status"`
		Timestamp time.Time       `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	data, err := decodeHistoryData(raw.Type, raw.Data)
	if err != nil {
		return err
	}

	h.Type = raw.Type
	h.Status = raw.Status
	h.Timestamp = raw.Timestamp
	h.Data = data
	return nil
}

func decodeHistoryData(t HistoryType, raw []byte) (HistoryData, error) {
	var data HistoryData
	switch t {
	case HistoryInit:
		data = &InitResult{}
	case HistoryCompile:
		data = &CompileResult{}
	case HistoryDeploy:
		data = &DeployResult{}
	default:
		return nil, fmt.Errorf("unknown history type %q", t)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, data); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s history data", t)
		}
	}
	return data, nil
}
