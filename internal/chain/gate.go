package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Gate defines the contract for the ownership check that gates rewards
type Gate interface {
	HoldsAsset(ctx context.Context, address string) (bool, error)
}

// NFTGate passes addresses holding at least one token of an ERC-721 collection
type NFTGate struct {
	backend    Backend
	collection common.Address
}

var _ Gate = (*NFTGate)(nil)

// NewNFTGate creates a gate for the collection at nftAddress
func NewNFTGate(backend Backend, nftAddress string) (*NFTGate, error) {
	collection, err := parseAddress(nftAddress)
	if err != nil {
		return nil, err
	}
	return &NFTGate{backend: backend, collection: collection}, nil
}

// HoldsAsset reports whether address owns any token of the collection
func (g *NFTGate) HoldsAsset(ctx context.Context, address string) (bool, error) {
	owner, err := parseAddress(address)
	if err != nil {
		return false, err
	}
	balance, err := balanceOf(ctx, g.backend, g.collection, owner)
	if err != nil {
		return false, err
	}
	return balance.Sign() > 0, nil
}
