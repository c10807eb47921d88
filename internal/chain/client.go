// Package chain wraps the go-ethereum JSON-RPC client with the connector
// bundle, contract address registry, and bound-contract call helpers that
// the vault service uses. All protocol math lives in the deployed
// contracts; this package only assembles calls and reads results back.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Connector is the opaque capability bundle handed to contract wrappers:
// the signing account, the chain identity, and the RPC client. Consumers
// never inspect its internals beyond these accessors.
type Connector struct {
	account common.Address
	chainID *big.Int
	client  *ethclient.Client
	opts    *bind.TransactOpts
}

// Dial connects to the JSON-RPC endpoint and builds a Connector for the
// given signing key and chain ID. The chain ID is verified against the
// node to catch misconfigured endpoints early.
func Dial(ctx context.Context, rpcURL string, key *ecdsa.PrivateKey, chainID int64) (*Connector, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", rpcURL, err)
	}

	nodeChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: query chain id: %w", err)
	}
	want := big.NewInt(chainID)
	if nodeChainID.Cmp(want) != 0 {
		client.Close()
		return nil, fmt.Errorf("chain: node reports chain id %s, config says %s", nodeChainID, want)
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key, want)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("chain: build transactor: %w", err)
	}

	return &Connector{
		account: ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: want,
		client:  client,
		opts:    opts,
	}, nil
}

// Account returns the signing account address.
func (c *Connector) Account() common.Address {
	return c.account
}

// ChainID returns the connected chain's identifier.
func (c *Connector) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Backend returns the RPC client for bound-contract calls.
func (c *Connector) Backend() *ethclient.Client {
	return c.client
}

// transactOpts returns per-call transaction options bound to ctx.
func (c *Connector) transactOpts(ctx context.Context) *bind.TransactOpts {
	opts := *c.opts
	opts.Context = ctx
	return &opts
}

// callOpts returns read-only call options bound to ctx.
func (c *Connector) callOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx}
}

// Close releases the underlying RPC connection.
func (c *Connector) Close() {
	c.client.Close()
}
