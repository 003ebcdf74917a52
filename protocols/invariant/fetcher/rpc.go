package fetcher

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCAccountGetter adapts a solana-go RPC client to the AccountGetter
// interface.
type RPCAccountGetter struct {
	Client *rpc.Client
}

// NewRPCAccountGetter dials the given RPC endpoint.
func NewRPCAccountGetter(endpoint string) *RPCAccountGetter {
	return &RPCAccountGetter{Client: rpc.New(endpoint)}
}

func (g *RPCAccountGetter) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	res, err := g.Client.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%s: %w", address, ErrAccountNotFound)
	}
	data := res.Value.Data.GetBinary()
	if data == nil {
		return nil, fmt.Errorf("%s holds non-binary data", address)
	}
	return data, nil
}
