package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

const (
	// Gas price paid is this multiple of the node's suggestion
	gasPriceMultiplier = 2
	transferGasLimit   = 100000
)

// Ledger defines the contract for the value-transfer collaborator
type Ledger interface {
	Custodian() string
	BalanceOf(ctx context.Context, address string) (*big.Int, error)
	Transfer(ctx context.Context, to string, amount *big.Int) (string, error)
}

// ERC20Ledger transfers an ERC-20 token from the agent wallet
type ERC20Ledger struct {
	backend Backend
	token   common.Address
	key     *ecdsa.PrivateKey
	from    common.Address

	mu      sync.Mutex
	chainID *big.Int
}

var _ Ledger = (*ERC20Ledger)(nil)

// NewERC20Ledger creates a ledger for tokenAddress signed by privateKeyHex
func NewERC20Ledger(backend Backend, tokenAddress, privateKeyHex string) (*ERC20Ledger, error) {
	token, err := parseAddress(tokenAddress)
	if err != nil {
		return nil, fmt.Errorf("token address: %w", err)
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse agent private key: %w", err)
	}

	return &ERC20Ledger{
		backend: backend,
		token:   token,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Custodian returns the agent wallet address rewards are paid from
func (l *ERC20Ledger) Custodian() string {
	return l.from.Hex()
}

// BalanceOf returns the token balance of address in base units
func (l *ERC20Ledger) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	owner, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	return balanceOf(ctx, l.backend, l.token, owner)
}

// Transfer signs and submits a token transfer and returns the transaction hash.
// Confirmation is not awaited.
func (l *ERC20Ledger) Transfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	recipient, err := parseAddress(to)
	if err != nil {
		return "", err
	}

	data, err := parsedTokenABI.Pack("transfer", recipient, amount)
	if err != nil {
		return "", fmt.Errorf("failed to pack transfer: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	chainID, err := l.chainIDLocked(ctx)
	if err != nil {
		return "", err
	}

	gasPrice, err := l.backend.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}
	gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(gasPriceMultiplier))

	nonce, err := l.backend.PendingNonceAt(ctx, l.from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &l.token,
		Value:    big.NewInt(0),
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), l.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transfer: %w", err)
	}

	if err := l.backend.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to send transfer: %w", err)
	}

	hash := signed.Hash().Hex()
	logrus.Infof("Sending %s tokens to %s - TX: %s", FormatTokens(amount), recipient.Hex(), hash)
	return hash, nil
}

// DescribeAgent logs the agent wallet's native and token balances
func (l *ERC20Ledger) DescribeAgent(ctx context.Context, symbol string) error {
	native, err := l.backend.BalanceAt(ctx, l.from, nil)
	if err != nil {
		return fmt.Errorf("failed to read agent ETH balance: %w", err)
	}
	tokens, err := balanceOf(ctx, l.backend, l.token, l.from)
	if err != nil {
		return err
	}

	logrus.Infof("Agent %s ETH balance: %s ETH", l.from.Hex(), FormatTokens(native))
	logrus.Infof("Agent %s balance: %s %s", symbol, FormatTokens(tokens), symbol)
	return nil
}

func (l *ERC20Ledger) chainIDLocked(ctx context.Context) (*big.Int, error) {
	if l.chainID != nil {
		return l.chainID, nil
	}
	id, err := l.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	l.chainID = id
	return id, nil
}
