package controller

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/zeromove/move-studio-api/blockchain"
	"github.com/zeromove/move-studio-api/manifest"
	"github.com/zeromove/move-studio-api/model"
)

var (
	entryFunction = regexp.MustCompile(`public\s+entry\s+fun\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*\(([^)]*)\)`)
	signerParam   = regexp.MustCompile(`:\s*&signer\b`)
)

// Integration derives client snippets from the deployed account and the module file.
type Integration struct {
	workspace *blockchain.Workspace
}

func NewIntegration(workspace *blockchain.Workspace) *Integration {
	return &Integration{workspace: workspace}
}

func (i *Integration) Functions(networkType model.NetworkType) (*model.IntegrationFunctions, error) {
	defer i.workspace.RLock()()

	network := blockchain.NetworkFor(networkType)

	address, err := i.workspace.ReadAccount()
	if errors.Is(err, blockchain.ErrConfigMissing) {
		return nil, model.NewPipelineError(model.ConfigMissing, model.StepConfigMissing,
			"Movement config.yaml file does not exist.")
	}
	if err != nil {
		return nil, model.NewPipelineError(model.ConfigMissing, model.StepAddressNotFound,
			"Account address not found in config.yaml.").WithCause(err)
	}
	address = manifest.NormalizeAddress(address)

	code, err := i.workspace.ReadModule()
	if err != nil {
		return nil, model.NewPipelineError(model.PackageInvalid, model.StepMoveFileMissing,
			"Move file does not exist.").WithCause(err)
	}

	id, err := manifest.ParseModule(code)
	if err != nil {
		return nil, model.NewPipelineError(model.InvalidSource, model.StepModuleNotFound,
			"Move code does not contain a valid module declaration.")
	}

	result := &model.IntegrationFunctions{
		Success: true,
		IntegrationFunctions: []string{
			sdkHeader(network),
			fmt.Sprintf(`const MODULE_ADDRESS = "%s"; // replace with your address`, address),
		},
		FunctionNames:    []string{},
		FunctionParam:    []string{},
		FunctionParamVal: []int{},
	}

	for _, match := range entryFunction.FindAllStringSubmatch(code, -1) {
		name := match[1]

		param := ""
		for _, p := range strings.Split(match[2], ",") {
			p = strings.TrimSpace(p)
			if p == "" || signerParam.MatchString(p) {
				continue
			}
			param = strings.TrimSpace(strings.SplitN(p, ":", 2)[0])
			break
		}

		result.FunctionNames = append(result.FunctionNames, name)
		result.FunctionParam = append(result.FunctionParam, param)
		if param != "" {
			result.FunctionParamVal = append(result.FunctionParamVal, 1)
		} else {
			result.FunctionParamVal = append(result.FunctionParamVal, 0)
		}

		result.IntegrationFunctions = append(result.IntegrationFunctions, transactionSnippet(address, id.ModuleName, name, param))
	}

	if len(result.FunctionNames) == 0 {
		return nil, model.NewPipelineError(model.InvalidSource, model.StepNoFunctionsFound,
			"No functions found in the Move code.")
	}

	return result, nil
}

func sdkHeader(network blockchain.Network) string {
	lines := []string{
		` import {Aptos, AptosConfig, Network} from "@aptos-labs/ts-sdk"`,
		` import {useWallet, InputSubmitTransactionData, InputTransactionData} from "@aptos-labs/wallet-adapter-react"`,
		``,
		` const {account, signAndSubmitTransaction} = useWallet();`,
		` // Movement Network configuration (using Aptos SDK compatible with Movement)`,
		` const config = new AptosConfig({ `,
		`   network: Network.CUSTOM,`,
		fmt.Sprintf(`   fullnode: "%s",`, network.RestURL),
	}
	if network.FaucetURL != "" {
		lines = append(lines, fmt.Sprintf(`   faucet: "%s",`, network.FaucetURL))
	}
	lines = append(lines,
		fmt.Sprintf(`   indexer: "%s"`, network.IndexerURL),
		` });`,
		` const aptos = new Aptos(config);`,
	)
	return strings.Join(lines, "\n")
}

func transactionSnippet(address, module, function, param string) string {
	return strings.Join([]string{
		"# Integration function: " + function,
		"const transaction: InputTransactionData = {",
		"  data: {",
		fmt.Sprintf("    function: `%s::%s::%s`,", address, module, function),
		fmt.Sprintf("    functionArguments: [%s]", param),
		"  }",
		"};",
		"const response = await signAndSubmitTransaction(transaction);",
		"await aptos.waitForTransaction({transactionHash: response.hash});",
	}, "\n")
}
