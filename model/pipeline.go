package model

import (
	"github.com/google/uuid"
)

type InitRequest struct {
	PrivateKey  string      `json:"privateKey"`
	NetworkType NetworkType `json:"networkType" validate:"omitempty,oneof=testnet devnet mainnet"`
	ProjectID   *uuid.UUID  `json:"projectId"`
	MoveCode    string      `json:"moveCode"`
}

// CodeRequest is the body of compile and deploy.
type CodeRequest struct {
	MoveCode  string     `json:"moveCode"`
	ProjectID *uuid.UUID `json:"projectId"`
}

type InitResponse struct {
	Success     bool    `json:"success"`
	Message     string  `json:"message"`
	Address     *string `json:"address"`
	ModuleName  *string `json:"moduleName"`
	PackageName *string `json:"packageName"`
	FaucetURL   *string `json:"faucetUrl"`
	Log         string  `json:"log"`
}

type CompileResponse struct {
	Success bool   `json:"success"`
	Output  string `json:"output"`
	Log     string `json:"log"`
}

type DeployResponse struct {
	Success         bool         `json:"success"`
	Output          string       `json:"output"`
	Log             string       `json:"log"`
	TransactionHash *string      `json:"transactionHash"`
	SenderAddress   *string      `json:"senderAddress"`
	ModuleName      *string      `json:"moduleName"`
	ExplorerURLs    ExplorerURLs `json:"explorerUrls"`
}

// IntegrationFunctions are client snippets calling the entry functions of the
// deployed module.
type IntegrationFunctions struct {
	Success              bool     `json:"success"`
	IntegrationFunctions []string `json:"integrationFunctions"`
	FunctionNames        []string `json:"functionNames"`
	FunctionParam        []string `json:"functionparam"`
	FunctionParamVal     []int    `json:"functionparamval"`
}
