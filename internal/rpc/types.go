package rpc

import "encoding/json"

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string          `json:"signature"`
	Slot      int64           `json:"slot"`
	BlockTime *int64          `json:"blockTime"`
	Err       json.RawMessage `json:"err"`
}

// Failed reports whether the transaction errored on-chain.
func (s SignatureInfo) Failed() bool {
	return len(s.Err) > 0 && string(s.Err) != "null"
}

// Transaction is a finalized transaction in "json" encoding.
type Transaction struct {
	Slot        int64     `json:"slot"`
	BlockTime   *int64    `json:"blockTime"`
	Meta        *TxMeta   `json:"meta"`
	Transaction TxPayload `json:"transaction"`
}

type TxPayload struct {
	Signatures []string  `json:"signatures"`
	Message    TxMessage `json:"message"`
}

type TxMessage struct {
	AccountKeys  []string      `json:"accountKeys"`
	Instructions []Instruction `json:"instructions"`
}

// Instruction references its program through the message account table.
type Instruction struct {
	ProgramIDIndex int    `json:"programIdIndex"`
	Accounts       []int  `json:"accounts"`
	Data           string `json:"data"`
}

// ProgramID resolves the instruction's program address, or "" when the
// index is out of range (lookup-table addresses outside the static keys).
func (ix Instruction) ProgramID(msg TxMessage) string {
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(msg.AccountKeys) {
		return ""
	}
	return msg.AccountKeys[ix.ProgramIDIndex]
}

type TxMeta struct {
	Err               json.RawMessage `json:"err"`
	Fee               uint64          `json:"fee"`
	PreBalances       []uint64        `json:"preBalances"`
	PostBalances      []uint64        `json:"postBalances"`
	PreTokenBalances  []TokenBalance  `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance  `json:"postTokenBalances"`
}

// TokenBalance is one SPL token account balance snapshot.
type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

type UITokenAmount struct {
	Amount   string `json:"amount"` // base units as a decimal string
	Decimals int    `json:"decimals"`
}
