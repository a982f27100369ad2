package blockchain

import (
	"fmt"
	"net/url"

	"github.com/zeromove/move-studio-api/model"
)

const (
	explorerBaseURL = "https://explorer.movementnetwork.xyz"
	faucetPageURL   = "https://faucet.movementnetwork.xyz/"
)

// Network holds the endpoints of one Movement network.
type Network struct {
	Type            model.NetworkType
	RestURL         string
	FaucetURL       string
	IndexerURL      string
	ExplorerNetwork string
}

var networks = map[model.NetworkType]Network{
	model.Testnet: {
		Type:            model.Testnet,
		RestURL:         "https://testnet.movementnetwork.xyz/v1",
		FaucetURL:       "https://faucet.testnet.movementnetwork.xyz/",
		IndexerURL:      "https://hasura.testnet.movementnetwork.xyz/v1/graphql",
		ExplorerNetwork: "bardock testnet",
	},
	model.Devnet: {
		Type:            model.Devnet,
		RestURL:         "https://devnet.movementnetwork.xyz/v1",
		FaucetURL:       "https://faucet.devnet.movementnetwork.xyz/",
		IndexerURL:      "https://hasura.devnet.movementnetwork.xyz/v1/graphql",
		ExplorerNetwork: "devnet",
	},
	model.Mainnet: {
		Type:            model.Mainnet,
		RestURL:         "https://mainnet.movementnetwork.xyz/v1",
		IndexerURL:      "https://indexer.mainnet.movementnetwork.xyz/v1/graphql",
		ExplorerNetwork: "mainnet",
	},
}

// NetworkFor returns the endpoints of the network type, falling back to testnet.
func NetworkFor(t model.NetworkType) Network {
	if n, ok := networks[t]; ok {
		return n
	}
	return networks[model.Testnet]
}

// InitArgs are the `movement init` arguments pointing the CLI at this network.
func (n Network) InitArgs() []string {
	args := []string{
		"init",
		"--network", "custom",
		"--rest-url", n.RestURL,
	}
	if n.FaucetURL != "" {
		args = append(args, "--faucet-url", n.FaucetURL)
	} else {
		args = append(args, "--skip-faucet")
	}
	return append(args, "--assume-yes")
}

// FaucetPage links the faucet web page for the address, nil when the network has no faucet.
func (n Network) FaucetPage(address string) *string {
	if n.FaucetURL == "" || address == "" {
		return nil
	}
	link := fmt.Sprintf("%s?address=%s", faucetPageURL, address)
	return &link
}

// AccountURL links the explorer page of an account, nil without an address.
func (n Network) AccountURL(address string) *string {
	if address == "" {
		return nil
	}
	return n.explorerURL("account", address)
}

// TransactionURL links the explorer page of a transaction, nil without a hash.
func (n Network) TransactionURL(hash string) *string {
	if hash == "" {
		return nil
	}
	return n.explorerURL("txn", hash)
}

func (n Network) explorerURL(kind, id string) *string {
	link := fmt.Sprintf(
		"%s/%s/%s?network=%s",
		explorerBaseURL,
		kind,
		url.PathEscape(id),
		url.QueryEscape(n.ExplorerNetwork),
	)
	return &link
}
