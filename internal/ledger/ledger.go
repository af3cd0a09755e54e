package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/SeakMengs/OceanSeal/internal/config"
	"github.com/SeakMengs/OceanSeal/pkg/oceanseal"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	ErrNotConfigured  = errors.New("ledger not configured")
	ErrNotFound       = errors.New("certificate not found on ledger")
	ErrUnreachable    = errors.New("ledger unreachable")
	ErrReverted       = errors.New("ledger transaction reverted")
	ErrReceiptTimeout = errors.New("timed out waiting for ledger transaction receipt")
)

const connectivityTimeout = 5 * time.Second

// Backend is the subset of the JSON-RPC client used by the ledger. *ethclient.Client satisfies it.
type Backend interface {
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type IssueResult struct {
	LedgerID    string
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
}

type VerifyResult struct {
	IssuedAt time.Time
}

type Client struct {
	backend        Backend
	key            *ecdsa.PrivateKey
	from           common.Address
	contract       *common.Address
	abi            abi.ABI
	gasLimit       uint64
	receiptTimeout time.Duration
	rpcURL         string
	logger         *zap.SugaredLogger
}

// Dial connects to the configured RPC node. A failed dial, a missing key or a missing contract
// address still yields a usable client that reports IsConfigured false.
func Dial(ctx context.Context, cfg config.LedgerConfig, logger *zap.SugaredLogger) *Client {
	var backend Backend
	if cfg.RPC_URL != "" {
		ec, err := ethclient.DialContext(ctx, cfg.RPC_URL)
		if err != nil {
			logger.Warnw("ledger rpc dial failed, certificates will be issued off-chain", "rpc", cfg.RPC_URL, "error", err)
		} else {
			backend = ec
		}
	}

	return NewClient(backend, cfg, logger)
}

func NewClient(backend Backend, cfg config.LedgerConfig, logger *zap.SugaredLogger) *Client {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		// The ABI is a compile time constant
		panic(fmt.Sprintf("ledger: invalid contract abi: %v", err))
	}

	c := &Client{
		backend:        backend,
		abi:            parsed,
		gasLimit:       cfg.GasLimit,
		receiptTimeout: cfg.ReceiptTimeout,
		rpcURL:         cfg.RPC_URL,
		logger:         logger,
	}

	if c.gasLimit == 0 {
		c.gasLimit = 100000
	}
	if c.receiptTimeout <= 0 {
		c.receiptTimeout = 60 * time.Second
	}

	if cfg.PRIVATE_KEY != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PRIVATE_KEY, "0x"))
		if err != nil {
			logger.Warnw("ledger private key is invalid", "error", err)
		} else {
			c.key = key
			c.from = crypto.PubkeyToAddress(key.PublicKey)
		}
	}

	if common.IsHexAddress(cfg.CONTRACT_ADDRESS) {
		addr := common.HexToAddress(cfg.CONTRACT_ADDRESS)
		c.contract = &addr
	} else if cfg.CONTRACT_ADDRESS != "" {
		logger.Warnw("ledger contract address is invalid", "address", cfg.CONTRACT_ADDRESS)
	}

	return c
}

// IsConfigured is true only when the node answers, a signing key is loaded and a contract is set.
func (c *Client) IsConfigured(ctx context.Context) bool {
	_, err := c.connect(ctx)
	return err == nil
}

// connect checks the static configuration and then the node, returning the chain id it reports.
func (c *Client) connect(ctx context.Context) (*big.Int, error) {
	if c == nil || c.backend == nil || c.key == nil || c.contract == nil {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, connectivityTimeout)
	defer cancel()

	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		c.logger.Debugf("Ledger connectivity check failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}

	return chainID, nil
}

// Issue records the certificate id derived from the three inputs and blocks until the
// transaction is mined or the receipt timeout passes. It submits exactly once. Cancelling ctx
// after submission does not shorten the wait.
func (c *Client) Issue(ctx context.Context, imageHash string, certType oceanseal.CertType, hashedUserID string) (*IssueResult, error) {
	chainID, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	certID := oceanseal.LedgerCertID(imageHash, certType, hashedUserID)

	data, err := c.abi.Pack("issue", certID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack issue call: %w", err)
	}

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrUnreachable, err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: gas price: %v", ErrUnreachable, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      c.gasLimit,
		To:       c.contract,
		Value:    big.NewInt(0),
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: send transaction: %v", ErrUnreachable, err)
	}

	c.logger.Debugf("Ledger transaction sent: %s", signed.Hash().Hex())

	// Once sent the transaction will be mined regardless of the caller, only the timeout ends the wait
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.receiptTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, c.backend, signed)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: tx %s after %s", ErrReceiptTimeout, signed.Hash().Hex(), c.receiptTimeout)
		}
		return nil, fmt.Errorf("%w: receipt: %v", ErrUnreachable, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("%w: tx %s", ErrReverted, signed.Hash().Hex())
	}

	result := &IssueResult{
		LedgerID: oceanseal.Bytes32ToHex(certID),
		TxHash:   signed.Hash().Hex(),
		GasUsed:  receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}

	c.logger.Infow("certificate recorded on ledger", "certId", result.LedgerID, "tx", result.TxHash, "block", result.BlockNumber, "gasUsed", result.GasUsed)

	return result, nil
}

// Verify is read only. An id the contract has never seen yields ErrNotFound, transport
// failures yield ErrUnreachable.
func (c *Client) Verify(ctx context.Context, ledgerID string) (*VerifyResult, error) {
	if _, err := c.connect(ctx); err != nil {
		return nil, err
	}

	raw := common.FromHex(ledgerID)
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: id %q is not 32 bytes", ErrNotFound, ledgerID)
	}

	var certID [32]byte
	copy(certID[:], raw)

	data, err := c.abi.Pack("verify", certID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack verify call: %w", err)
	}

	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	values, err := c.abi.Unpack("verify", out)
	if err != nil || len(values) != 1 {
		return nil, fmt.Errorf("%w: unexpected verify output: %v", ErrUnreachable, err)
	}

	ts, ok := values[0].(*big.Int)
	if !ok || ts.Sign() == 0 {
		return nil, ErrNotFound
	}

	return &VerifyResult{IssuedAt: time.Unix(ts.Int64(), 0).UTC()}, nil
}

func (c *Client) ExplorerURL(txHash string) string {
	return oceanseal.ExplorerTxURL(c.rpcURL, txHash)
}
