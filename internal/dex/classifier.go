package dex

import (
	"strconv"
	"time"

	"github.com/solmirror/solmirror-backend/internal/models"
	"github.com/solmirror/solmirror-backend/internal/rpc"
)

// Mainnet program IDs for the recognized venues.
const (
	JupiterProgramID = "JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB"
	RaydiumProgramID = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
	OrcaProgramID    = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"

	// WrappedSOLMint stands in for native SOL legs so both sides of a
	// swap are expressed as mints.
	WrappedSOLMint = "So11111111111111111111111111111111111111112"

	solDecimals = 9

	// Native lamport moves below this are fee/rent noise, not a trade leg.
	solDustLamports = 5_000_000
)

var venuePrograms = map[string]models.Venue{
	JupiterProgramID: models.VenueJupiter,
	RaydiumProgramID: models.VenueRaydium,
	OrcaProgramID:    models.VenueOrca,
}

// delta is one signed per-mint balance change for the tracked wallet.
type delta struct {
	mint     string
	amount   int64 // base units, negative = spent
	decimals int
}

// extractor derives the wallet's trade legs for one venue's swap shape.
type extractor func(wallet string, tx *rpc.Transaction) []delta

var venueExtractors = map[models.Venue]extractor{
	models.VenueJupiter: nettedDeltas,
	models.VenueRaydium: directSwapDeltas,
	models.VenueOrca:    directSwapDeltas,
}

// Classify parses a raw transaction into a trade event. The second return
// is false when the transaction is not a recognizable swap by the tracked
// wallet: failed on-chain, no known venue program, or a balance footprint
// that is not exactly one token spent and one received. That outcome is a
// discard, not an error.
//
// Classify is a pure function of its inputs: no I/O, no clock.
func Classify(wallet string, tx *rpc.Transaction) (models.TradeEvent, bool) {
	if tx == nil || tx.Meta == nil || len(tx.Transaction.Signatures) == 0 {
		return models.TradeEvent{}, false
	}
	if len(tx.Meta.Err) > 0 && string(tx.Meta.Err) != "null" {
		return models.TradeEvent{}, false
	}

	venue, ok := detectVenue(tx.Transaction.Message)
	if !ok {
		return models.TradeEvent{}, false
	}

	deltas := venueExtractors[venue](wallet, tx)
	if len(deltas) != 2 {
		return models.TradeEvent{}, false
	}

	var in, out delta
	switch {
	case deltas[0].amount < 0 && deltas[1].amount > 0:
		in, out = deltas[0], deltas[1]
	case deltas[1].amount < 0 && deltas[0].amount > 0:
		in, out = deltas[1], deltas[0]
	default:
		// two legs in the same direction is a transfer, not a swap
		return models.TradeEvent{}, false
	}

	var blockTime time.Time
	if tx.BlockTime != nil {
		blockTime = time.Unix(*tx.BlockTime, 0).UTC()
	}

	return models.TradeEvent{
		Wallet:      wallet,
		Venue:       venue,
		TokenIn:     in.mint,
		TokenOut:    out.mint,
		AmountIn:    uint64(-in.amount),
		AmountOut:   uint64(out.amount),
		DecimalsIn:  in.decimals,
		DecimalsOut: out.decimals,
		Slot:        tx.Slot,
		BlockTime:   blockTime,
		Signature:   tx.Transaction.Signatures[0],
	}, true
}

// detectVenue scans the instruction list for known venue programs. When
// several venues appear in one transaction, the instruction closest to the
// end wins: it directly precedes the final balance state.
func detectVenue(msg rpc.TxMessage) (models.Venue, bool) {
	venue := models.VenueUnknown
	found := false
	for _, ix := range msg.Instructions {
		if v, ok := venuePrograms[ix.ProgramID(msg)]; ok {
			venue = v
			found = true
		}
	}
	return venue, found
}

// nettedDeltas nets balance changes per mint across all of the wallet's
// token accounts plus its native SOL account. Aggregator routes nest inner
// swaps, so intermediate legs that are fully consumed net out to zero and
// only the true entry and exit legs survive.
func nettedDeltas(wallet string, tx *rpc.Transaction) []delta {
	perMint := map[string]*delta{}
	order := []string{}

	add := func(mint string, amount int64, decimals int) {
		if amount == 0 {
			return
		}
		d, ok := perMint[mint]
		if !ok {
			d = &delta{mint: mint, decimals: decimals}
			perMint[mint] = d
			order = append(order, mint)
		}
		d.amount += amount
	}

	for _, ch := range tokenAccountChanges(wallet, tx) {
		add(ch.mint, ch.amount, ch.decimals)
	}
	if lamports := nativeSOLDelta(wallet, tx); lamports != 0 {
		add(WrappedSOLMint, lamports, solDecimals)
	}

	var out []delta
	for _, mint := range order {
		if d := perMint[mint]; d.amount != 0 {
			out = append(out, *d)
		}
	}
	return out
}

// directSwapDeltas handles plain AMM swaps: the wallet's footprint must be
// at most two changed token accounts, taken as-is without netting.
func directSwapDeltas(wallet string, tx *rpc.Transaction) []delta {
	changes := tokenAccountChanges(wallet, tx)
	if lamports := nativeSOLDelta(wallet, tx); lamports != 0 {
		changes = append(changes, delta{mint: WrappedSOLMint, amount: lamports, decimals: solDecimals})
	}
	if len(changes) > 2 {
		return nil
	}
	return changes
}

// tokenAccountChanges computes per-account SPL balance deltas for accounts
// owned by the wallet, reconciling pre and post token balances by account
// index.
func tokenAccountChanges(wallet string, tx *rpc.Transaction) []delta {
	pre := map[int]rpc.TokenBalance{}
	for _, b := range tx.Meta.PreTokenBalances {
		pre[b.AccountIndex] = b
	}

	seen := map[int]bool{}
	var out []delta

	for _, post := range tx.Meta.PostTokenBalances {
		seen[post.AccountIndex] = true
		if post.Owner != wallet {
			continue
		}
		postAmt := parseAmount(post.UITokenAmount.Amount)
		preAmt := int64(0)
		if p, ok := pre[post.AccountIndex]; ok {
			preAmt = parseAmount(p.UITokenAmount.Amount)
		}
		if diff := postAmt - preAmt; diff != 0 {
			out = append(out, delta{mint: post.Mint, amount: diff, decimals: post.UITokenAmount.Decimals})
		}
	}

	// accounts present pre but closed post (e.g. wrapped SOL unwrapped)
	for idx, p := range pre {
		if seen[idx] || p.Owner != wallet {
			continue
		}
		if amt := parseAmount(p.UITokenAmount.Amount); amt != 0 {
			out = append(out, delta{mint: p.Mint, amount: -amt, decimals: p.UITokenAmount.Decimals})
		}
	}
	return out
}

// nativeSOLDelta returns the wallet's lamport change net of the transaction
// fee, ignoring dust-level moves from rent and tips.
func nativeSOLDelta(wallet string, tx *rpc.Transaction) int64 {
	keys := tx.Transaction.Message.AccountKeys
	for i, key := range keys {
		if key != wallet {
			continue
		}
		if i >= len(tx.Meta.PreBalances) || i >= len(tx.Meta.PostBalances) {
			return 0
		}
		diff := int64(tx.Meta.PostBalances[i]) - int64(tx.Meta.PreBalances[i])
		if i == 0 {
			// fee payer: the fee is not part of the trade
			diff += int64(tx.Meta.Fee)
		}
		if diff > -solDustLamports && diff < solDustLamports {
			return 0
		}
		return diff
	}
	return 0
}

func parseAmount(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}
