package executor

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/mr-tron/base58"

	"github.com/solmirror/solmirror-backend/internal/external"
)

// SwapAPI builds the route and the serialized transaction for a swap.
type SwapAPI interface {
	Quote(ctx context.Context, inputMint, outputMint string, amount uint64, slippageBps int) (*external.SwapQuote, error)
	SwapTransaction(ctx context.Context, quote *external.SwapQuote, userPublicKey string) (string, error)
}

// Broadcaster sends a signed transaction to the cluster.
type Broadcaster interface {
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
}

// JupiterSubmitter implements live execution: quote the swap through
// Jupiter, have it build the transaction, sign as fee payer and broadcast
// over the shared RPC client.
type JupiterSubmitter struct {
	api   SwapAPI
	chain Broadcaster
	key   ed25519.PrivateKey
	owner string // wallet public key, base58
}

// NewJupiterSubmitter derives the signing identity from the base58-encoded
// 64-byte keypair the Solana tooling exports.
func NewJupiterSubmitter(api SwapAPI, chain Broadcaster, privateKeyBase58 string) (*JupiterSubmitter, error) {
	raw, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("private key must be %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}

	key := ed25519.PrivateKey(raw)
	owner := base58.Encode(key.Public().(ed25519.PublicKey))
	fmt.Printf("[EXECUTOR] Signing as %s\n", owner)
	return &JupiterSubmitter{api: api, chain: chain, key: key, owner: owner}, nil
}

func (s *JupiterSubmitter) SubmitSwap(ctx context.Context, inputMint, outputMint string, amountIn uint64, slippageBps int) (*Swap, error) {
	quote, err := s.api.Quote(ctx, inputMint, outputMint, amountIn, slippageBps)
	if err != nil {
		return nil, fmt.Errorf("quote: %w", err)
	}

	// the quoted fill is what the position records as its holdings, so an
	// unparseable amount aborts before any value moves
	outAmount, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quoted out amount %q: %w", quote.OutAmount, err)
	}

	txBase64, err := s.api.SwapTransaction(ctx, quote, s.owner)
	if err != nil {
		return nil, fmt.Errorf("build swap: %w", err)
	}

	signed, err := signTransaction(txBase64, s.key)
	if err != nil {
		return nil, fmt.Errorf("sign swap: %w", err)
	}

	sig, err := s.chain.SendTransaction(ctx, signed)
	if err != nil {
		return nil, fmt.Errorf("broadcast: %w", err)
	}
	return &Swap{Signature: sig, OutAmount: outAmount}, nil
}

// signTransaction fills the fee-payer slot of a serialized transaction.
// Layout: compact-u16 signature count, then count 64-byte signatures, then
// the message bytes that get signed. Jupiter returns the transaction with
// placeholder signatures, so the slot is overwritten in place.
func signTransaction(txBase64 string, key ed25519.PrivateKey) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}

	count, offset, err := decodeCompactU16(raw)
	if err != nil {
		return "", err
	}
	if count < 1 {
		return "", fmt.Errorf("transaction has no signature slots")
	}
	msgStart := offset + count*ed25519.SignatureSize
	if len(raw) <= msgStart {
		return "", fmt.Errorf("transaction truncated: %d bytes for %d signatures", len(raw), count)
	}

	sig := ed25519.Sign(key, raw[msgStart:])
	copy(raw[offset:offset+ed25519.SignatureSize], sig)
	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeCompactU16 reads the shortvec-encoded length prefix.
func decodeCompactU16(b []byte) (value, size int, err error) {
	for i := 0; i < 3; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("truncated compact-u16")
		}
		value |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
