// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package remote

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/vechain/forkstate/acc"
)

//go:generate mockgen -source transport.go -destination transport_mocks.go -package remote

// Transport performs single remote lookups, without retry or caching.
type Transport interface {
	// Account returns the account at tag, or nil if it does not exist.
	// The returned account has CodeSize unset.
	Account(ctx context.Context, addr common.Address, tag BlockTag) (*acc.Account, error)
	// StorageAt returns the storage value at tag. Missing slots are zero.
	StorageAt(ctx context.Context, addr common.Address, slot common.Hash, tag BlockTag) (common.Hash, error)
	// CodeAt returns the code deployed at addr at tag.
	CodeAt(ctx context.Context, addr common.Address, tag BlockTag) ([]byte, error)
	// BlockNumber returns the number of the chain head.
	BlockNumber(ctx context.Context) (uint64, error)
	// ResolveBlock returns the number of the block tag refers to.
	ResolveBlock(ctx context.Context, tag BlockTag) (uint64, error)
	// ChainID returns the chain id of the remote chain.
	ChainID(ctx context.Context) (*big.Int, error)
}

// RPCTransport implements Transport over an Ethereum JSON-RPC endpoint.
type RPCTransport struct {
	rpc *rpc.Client
	eth *ethclient.Client
}

var _ Transport = (*RPCTransport)(nil)

// Dial connects to the JSON-RPC endpoint at url.
func Dial(ctx context.Context, url string) (*RPCTransport, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	return NewRPCTransport(c), nil
}

// NewRPCTransport creates a transport over an established client.
func NewRPCTransport(c *rpc.Client) *RPCTransport {
	return &RPCTransport{rpc: c, eth: ethclient.NewClient(c)}
}

// Close closes the underlying connection.
func (t *RPCTransport) Close() {
	t.rpc.Close()
}

type proofResult struct {
	Balance     *hexutil.Big   `json:"balance"`
	Nonce       hexutil.Uint64 `json:"nonce"`
	CodeHash    common.Hash    `json:"codeHash"`
	StorageHash common.Hash    `json:"storageHash"`
}

func (t *RPCTransport) Account(ctx context.Context, addr common.Address, tag BlockTag) (*acc.Account, error) {
	var res *proofResult
	if err := t.rpc.CallContext(ctx, &res, "eth_getProof", addr, []common.Hash{}, tag.String()); err != nil {
		return nil, callError("eth_getProof", err)
	}
	if res == nil || res.Balance == nil {
		return nil, errors.Wrap(ErrMalformedResponse, "eth_getProof: missing result")
	}
	balance, overflow := uint256.FromBig(res.Balance.ToInt())
	if overflow {
		return nil, errors.Wrapf(ErrMalformedResponse, "eth_getProof: balance %v", res.Balance)
	}

	a := &acc.Account{
		Nonce:       uint64(res.Nonce),
		Balance:     balance,
		CodeHash:    res.CodeHash,
		StorageRoot: res.StorageHash,
	}
	a.Normalize()
	// nodes report non-existing accounts as empty ones
	if a.IsEmpty() {
		return nil, nil
	}
	return a, nil
}

func (t *RPCTransport) StorageAt(ctx context.Context, addr common.Address, slot common.Hash, tag BlockTag) (common.Hash, error) {
	var res hexutil.Bytes
	if err := t.rpc.CallContext(ctx, &res, "eth_getStorageAt", addr, slot, tag.String()); err != nil {
		return common.Hash{}, callError("eth_getStorageAt", err)
	}
	if len(res) > common.HashLength {
		return common.Hash{}, errors.Wrapf(ErrMalformedResponse, "eth_getStorageAt: %d bytes value", len(res))
	}
	return common.BytesToHash(res), nil
}

func (t *RPCTransport) CodeAt(ctx context.Context, addr common.Address, tag BlockTag) ([]byte, error) {
	var res hexutil.Bytes
	if err := t.rpc.CallContext(ctx, &res, "eth_getCode", addr, tag.String()); err != nil {
		return nil, callError("eth_getCode", err)
	}
	return res, nil
}

func (t *RPCTransport) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := t.eth.BlockNumber(ctx)
	if err != nil {
		return 0, callError("eth_blockNumber", err)
	}
	return n, nil
}

type blockHeader struct {
	Number *hexutil.Uint64 `json:"number"`
	Hash   common.Hash     `json:"hash"`
}

func (t *RPCTransport) ResolveBlock(ctx context.Context, tag BlockTag) (uint64, error) {
	if n, ok := tag.Number(); ok {
		return n, nil
	}

	var (
		head *blockHeader
		err  error
	)
	if h, ok := tag.Hash(); ok {
		err = t.rpc.CallContext(ctx, &head, "eth_getBlockByHash", h, false)
	} else {
		err = t.rpc.CallContext(ctx, &head, "eth_getBlockByNumber", tag.Name(), false)
	}
	if err != nil {
		return 0, callError("eth_getBlock", err)
	}
	if head == nil {
		return 0, errors.Wrapf(ErrBlockNotFound, "%v", tag)
	}
	if head.Number == nil {
		return 0, errors.Wrap(ErrMalformedResponse, "eth_getBlock: missing number")
	}
	return uint64(*head.Number), nil
}

func (t *RPCTransport) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := t.eth.ChainID(ctx)
	if err != nil {
		return nil, callError("eth_chainId", err)
	}
	return id, nil
}

// callError marks result decoding failures as malformed responses.
func callError(method string, err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
	)
	if errors.As(err, &typeErr) || errors.As(err, &syntaxErr) {
		return errors.Wrapf(ErrMalformedResponse, "%s: %v", method, err)
	}
	return errors.Wrap(err, method)
}
