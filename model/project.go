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
	"time"

	"github.com/google/uuid"
)

type NetworkType string

const (
	Testnet NetworkType = "testnet"
	Devnet  NetworkType = "devnet"
	Mainnet NetworkType = "mainnet"
)

func (n NetworkType) IsValid() bool {
	switch n {
	case Testnet, Devnet, Mainnet:
		return true
	}
	return false
}

// DefaultSourceFile is the canonical module file every project starts with.
const DefaultSourceFile = "project.move"

type Project struct {
	ID                uuid.UUID        `gorm:"primaryKey" json:"id"`
	Name              string           `json:"name"`
	Files             []*File          `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"files"`
	NetworkType       NetworkType      `gorm:"default:testnet" json:"networkType"`
	Status            ProjectStatus    `gorm:"default:created" json:"status"`
	InitData          *InitSnapshot    `gorm:"serializer:json" json:"initData"`
	CompileData       *CompileSnapshot `gorm:"serializer:json" json:"compileData"`
	DeployData        *DeploySnapshot  `gorm:"serializer:json" json:"deployData"`
	DeploymentHistory []*HistoryEntry  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"deploymentHistory"`
	LastModified      time.Time        `gorm:"index" json:"lastModified"`
	CreatedAt         time.Time        `json:"createdAt"`
}

type NewProject struct {
	Name string `json:"name" validate:"required"`
}

type UpdateProject struct {
	ID          uuid.UUID      `json:"-"`
	Name        *string        `json:"name" validate:"omitempty,min=1"`
	NetworkType *NetworkType   `json:"networkType" validate:"omitempty,oneof=testnet devnet mainnet"`
	Status      *ProjectStatus `json:"status" validate:"omitempty,oneof=created initialized compiled deployed"`
}

// InitSnapshot is the most recent init result of a project.
type InitSnapshot struct {
	Success     bool      `json:"success"`
	Address     string    `json:"address,omitempty"`
	ModuleName  string    `json:"moduleName,omitempty"`
	PackageName string    `json:"packageName,omitempty"`
	FaucetURL   *string   `json:"faucetUrl"`
	Log         string    `json:"log"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// CompileSnapshot is the most recent compile result of a project.
type CompileSnapshot struct {
	Success   bool      `json:"success"`
	Log       string    `json:"log"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DeploySnapshot is the most recent deploy result of a project.
type DeploySnapshot struct {
	Success         bool      `json:"success"`
	TransactionHash *string   `json:"transactionHash"`
	Address         *string   `json:"address"`
	Log             string    `json:"log"`
	Error           string    `json:"error,omitempty"`
	ExplorerURL     *string   `json:"explorerUrl"`
	Timestamp       time.Time `json:"timestamp"`
}

// PipelineUpdate describes the persisted effect of one init, compile or deploy run.
//
// The history entry is always appended. Snapshots are only written when set, and the
// project status is derived from the current status with NextStatus unless KeepStatus
// is set, as for failures before the CLI ran.
type PipelineUpdate struct {
	Entry       *HistoryEntry
	KeepStatus  bool
	NetworkType *NetworkType
	InitData    *InitSnapshot
	CompileData *CompileSnapshot
	DeployData  *DeploySnapshot
}
